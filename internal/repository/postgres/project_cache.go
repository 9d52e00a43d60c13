package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"pkm/internal/cache"
	"pkm/internal/domain"
	"pkm/internal/domain/models"
)

// projectCacheKey identifies one cached read: the project alone or with its
// direct children.
func projectCacheKey(userID, id string, withChildren bool) string {
	return fmt.Sprintf("project:%s:%s:%t", userID, id, withChildren)
}

// cacheJournal remembers keys written while a transaction is open so they can
// be dropped if that transaction never commits.
type cacheJournal struct {
	cache  cache.Cache
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]struct{}
}

func newCacheJournal(c cache.Cache, logger *slog.Logger) *cacheJournal {
	return &cacheJournal{cache: c, logger: logger, keys: make(map[string]struct{})}
}

func (j *cacheJournal) record(key string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.keys[key] = struct{}{}
	j.mu.Unlock()
}

// reset forgets the recorded keys; they now describe committed state.
func (j *cacheJournal) reset() {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.keys = make(map[string]struct{})
	j.mu.Unlock()
}

// discard deletes every recorded key. Failures are logged; the entries expire
// with their TTL anyway.
func (j *cacheJournal) discard(ctx context.Context) {
	if j == nil {
		return
	}
	j.mu.Lock()
	keys := j.keys
	j.keys = make(map[string]struct{})
	j.mu.Unlock()

	for key := range keys {
		if err := j.cache.Delete(ctx, key); err != nil {
			j.logger.Warn("failed to discard uncommitted cache entry", "key", key, "error", err)
		}
	}
}

// cachedProject returns the cached value for key. Backend and decode failures
// are treated as misses.
func (s *ProjectStore) cachedProject(ctx context.Context, key string) (*models.ProjectWithChildren, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("project cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var v models.ProjectWithChildren
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("dropping undecodable project cache entry", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	return &v, true
}

func (s *ProjectStore) storeProject(ctx context.Context, key string, v *models.ProjectWithChildren) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode project for cache", "key", key, "error", err)
		return
	}
	// record first so a failed Set still gets cleaned up on rollback
	s.journal.record(key)
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("project cache write failed", "key", key, "error", err)
	}
}

// invalidateProjects drops both cached variants of every id.
func (s *ProjectStore) invalidateProjects(ctx context.Context, userID string, ids ...string) error {
	for _, id := range ids {
		for _, withChildren := range []bool{true, false} {
			key := projectCacheKey(userID, id, withChildren)
			if err := s.cache.Delete(ctx, key); err != nil {
				return &domain.StorageError{Op: "invalidate cache " + key, Err: err}
			}
		}
	}
	s.logger.Debug("project cache invalidated", "user_id", userID, "ids", ids)
	return nil
}
