package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forest maps id -> parent id ("" = root)
type forest map[string]string

func (f forest) lookup(calls *int) parentLookup {
	return func(_ context.Context, id string) (*string, bool, error) {
		if calls != nil {
			*calls++
		}
		parent, ok := f[id]
		if !ok {
			return nil, false, nil
		}
		if parent == "" {
			return nil, true, nil
		}
		return &parent, true, nil
	}
}

func TestWouldCreateCycle(t *testing.T) {
	// A -> B -> C, D root, X <-> Y corrupt loop
	f := forest{"A": "", "B": "A", "C": "B", "D": "", "X": "Y", "Y": "X"}

	tests := []struct {
		name      string
		id        string
		candidate string
		maxDepth  int
		want      bool
	}{
		{"self parent", "A", "A", 100, true},
		{"parent under its child", "A", "B", 100, true},
		{"parent under its grandchild", "A", "C", 100, true},
		{"child under sibling root", "B", "D", 100, false},
		{"grandchild under root", "C", "A", 100, false},
		{"root under leaf of other tree", "D", "C", 100, false},
		{"missing candidate", "A", "missing", 100, false},
		{"candidate chain already loops", "A", "X", 100, true},
		{"depth bound exceeded", "D", "C", 2, true},
		{"depth bound just enough", "D", "C", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := wouldCreateCycle(context.Background(), tt.id, tt.candidate, tt.maxDepth, f.lookup(nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWouldCreateCycle_SelfParentSkipsLookups(t *testing.T) {
	calls := 0
	cycle, depth, err := wouldCreateCycle(context.Background(), "A", "A", 10, forest{"A": ""}.lookup(&calls))
	require.NoError(t, err)
	assert.True(t, cycle)
	assert.Equal(t, 0, depth)
	assert.Zero(t, calls)
}

func TestWouldCreateCycle_StopsAtRoot(t *testing.T) {
	calls := 0
	f := forest{"A": "", "B": "A", "C": "B", "Z": ""}
	cycle, depth, err := wouldCreateCycle(context.Background(), "Z", "C", 100, f.lookup(&calls))
	require.NoError(t, err)
	assert.False(t, cycle)
	assert.Equal(t, 3, calls, "C, B and A are each read once")
	assert.Equal(t, 2, depth)
}

func TestWouldCreateCycle_LookupError(t *testing.T) {
	boom := errors.New("connection reset")
	lookup := func(context.Context, string) (*string, bool, error) { return nil, false, boom }

	_, _, err := wouldCreateCycle(context.Background(), "A", "B", 10, lookup)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
