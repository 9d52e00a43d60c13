package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value    []byte
	deadline time.Time
}

// Memory is a bounded in-process cache. The LRU's own TTL caps every entry;
// shorter per-entry TTLs are enforced on read. Safe for concurrent use.
type Memory struct {
	lru    *expirable.LRU[string, memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemory creates a cache holding at most size entries, none older than maxTTL.
func NewMemory(size int, maxTTL time.Duration) *Memory {
	return &Memory{
		lru:    expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	// expired entries are left for the LRU to evict; removing one here could
	// drop a fresh value a concurrent Set just stored under the same key
	if !e.deadline.IsZero() && !m.now().Before(e.deadline) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 && (m.maxTTL <= 0 || ttl < m.maxTTL) {
		e.deadline = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of entries, expired ones included until purged.
func (m *Memory) Len() int {
	return m.lru.Len()
}
