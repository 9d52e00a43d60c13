package postgres

import (
	"context"
	"fmt"
)

// parentLookup returns the parent of id (nil for a root). found is false when
// id does not exist for the user.
type parentLookup func(ctx context.Context, id string) (parent *string, found bool, err error)

// wouldCreateCycle reports whether making candidate the parent of id would
// close a loop. It walks upward from candidate until a root or a missing
// project. Reaching id, revisiting a node, or walking more than maxDepth
// ancestors all count as a cycle.
func wouldCreateCycle(ctx context.Context, id, candidate string, maxDepth int, parentOf parentLookup) (bool, int, error) {
	if id == candidate {
		return true, 0, nil
	}

	visited := make(map[string]struct{})
	current := candidate
	for steps := 0; ; steps++ {
		if current == id {
			return true, steps, nil
		}
		if _, seen := visited[current]; seen {
			return true, steps, nil
		}
		if steps >= maxDepth {
			return true, steps, nil
		}
		visited[current] = struct{}{}

		parent, found, err := parentOf(ctx, current)
		if err != nil {
			return false, steps, fmt.Errorf("walk ancestors of %s: %w", candidate, err)
		}
		if !found || parent == nil {
			return false, steps, nil
		}
		current = *parent
	}
}
