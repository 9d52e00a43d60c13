package cache

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded JetStream-enabled NATS server.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func newTestNATS(t *testing.T) *NATS {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewNATS(ctx, nc, "pkm_test_cache", time.Hour)
	require.NoError(t, err)
	return c
}

func TestNATS_GetSetDelete(t *testing.T) {
	c := newTestNATS(t)
	ctx := context.Background()

	// keys contain characters outside the KV alphabet
	key := "project:user-1:0b8f7c1e-0000-4000-8000-000000000001:true"

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []byte(`{"id":"1"}`), time.Minute))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"id":"1"}`), got)

	require.NoError(t, c.Delete(ctx, key))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "never-set"))
}

func TestNATS_PerEntryDeadline(t *testing.T) {
	c := newTestNATS(t)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30*time.Second))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNATS_SharedAcrossClients(t *testing.T) {
	server := startTestNATSServer(t)
	ctx := context.Background()

	open := func() *NATS {
		nc, err := nats.Connect(server.ClientURL())
		require.NoError(t, err)
		t.Cleanup(nc.Close)
		c, err := NewNATS(ctx, nc, "shared", time.Hour)
		require.NoError(t, err)
		return c
	}

	a, b := open(), open()
	require.NoError(t, a.Set(ctx, "k", []byte("from-a"), 0))

	got, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("from-a"), got)

	require.NoError(t, b.Delete(ctx, "k"))
	_, ok, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNATSKey_Alphabet(t *testing.T) {
	k := natsKey("project:a/b c:true")
	assert.Regexp(t, `^[-_A-Za-z0-9]+$`, k)
}
