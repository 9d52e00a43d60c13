package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pkm/internal/cache"
	"pkm/internal/domain"
	"pkm/internal/domain/models"
	"pkm/internal/domain/repositories"
)

const projectColumns = "id, user_id, name, description, parent_project_id, created_at, updated_at"

// ProjectStore implements repositories.ProjectRepository. It keeps each
// user's projects a forest and serves single-project reads through the cache.
type ProjectStore struct {
	db          repositories.DBTX
	tables      *TableNames
	cache       cache.Cache
	ttl         time.Duration
	lockTimeout time.Duration
	maxDepth    int
	logger      *slog.Logger
	notes       *NoteStore
	journal     *cacheJournal
}

// NewProjectStore binds a store to db, which should be a transaction for
// Update and Delete to be atomic.
func NewProjectStore(db repositories.DBTX, cfg *RepositoryConfig) *ProjectStore {
	cfg = cfg.withDefaults()
	return newProjectStore(db, cfg, newNoteStore(db, cfg), nil)
}

func newProjectStore(db repositories.DBTX, cfg *RepositoryConfig, notes *NoteStore, journal *cacheJournal) *ProjectStore {
	return &ProjectStore{
		db:          db,
		tables:      cfg.Tables,
		cache:       cfg.Cache,
		ttl:         cfg.CacheTTL,
		lockTimeout: cfg.LockTimeout,
		maxDepth:    cfg.MaxHierarchyDepth,
		logger:      cfg.Logger.With("store", "projects"),
		notes:       notes,
		journal:     journal,
	}
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.ParentProjectID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns the project, read through the cache.
func (s *ProjectStore) GetByID(ctx context.Context, id, userID string) (*models.Project, error) {
	v, err := s.load(ctx, id, userID, true)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NewProjectNotFound(id)
	}
	return &v.Project, nil
}

// ListByUser returns a page of the user's projects ordered by name.
func (s *ProjectStore) ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Project, error) {
	page.ApplyDefaults()
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY name, id
		OFFSET $2 LIMIT $3
	`, projectColumns, s.tables.Projects)

	rows, err := s.db.Query(ctx, query, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, translateError("list projects", err)
	}
	projects, err := collect(rows, "project", scanProject)
	if err != nil {
		return nil, translateError("list projects", err)
	}

	s.logger.Debug("listed projects", "user_id", userID, "count", len(projects))
	return projects, nil
}

// GetRootProjects returns a page of projects without a parent ordered by name.
func (s *ProjectStore) GetRootProjects(ctx context.Context, userID string, page models.Page) ([]models.Project, error) {
	page.ApplyDefaults()
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND parent_project_id IS NULL
		ORDER BY name, id
		OFFSET $2 LIMIT $3
	`, projectColumns, s.tables.Projects)

	rows, err := s.db.Query(ctx, query, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, translateError("list root projects", err)
	}
	projects, err := collect(rows, "project", scanProject)
	if err != nil {
		return nil, translateError("list root projects", err)
	}
	return projects, nil
}

// GetChildren returns the direct children of a project. An absent parent has
// no children.
func (s *ProjectStore) GetChildren(ctx context.Context, id, userID string) ([]models.Project, error) {
	v, err := s.load(ctx, id, userID, true)
	if err != nil {
		return nil, err
	}
	if v == nil || v.Children == nil {
		return []models.Project{}, nil
	}
	return v.Children, nil
}

// Create validates in and inserts a new project.
func (s *ProjectStore) Create(ctx context.Context, userID string, in *models.ProjectCreate) (*models.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if in.ParentProjectID != nil {
		parent, err := s.load(ctx, *in.ParentProjectID, userID, false)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			s.logger.Warn("create with missing parent", "user_id", userID, "parent_project_id", *in.ParentProjectID)
			return nil, domain.NewProjectNotFound(*in.ParentProjectID)
		}
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, description, parent_project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING %s
	`, s.tables.Projects, projectColumns)

	project, err := scanProject(s.db.QueryRow(ctx, query,
		uuid.NewString(),
		userID,
		in.Name,
		in.Description,
		in.ParentProjectID,
		now,
	))
	if err != nil {
		if IsPgForeignKeyError(err) && in.ParentProjectID != nil {
			// parent removed since the (possibly cached) existence check
			return nil, domain.NewProjectNotFound(*in.ParentProjectID)
		}
		return nil, translateError("create project", err)
	}

	if project.ParentProjectID != nil {
		if err := s.invalidateProjects(ctx, userID, *project.ParentProjectID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("project created", "id", project.ID, "user_id", userID, "parent_project_id", project.ParentProjectID)
	return project, nil
}

// Update locks the project row for the rest of the transaction, validates a
// reparent and applies the patch.
func (s *ProjectStore) Update(ctx context.Context, id, userID string, patch *models.ProjectPatch) (*models.Project, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, domain.NewProjectNotFound(id)
	}

	if err := s.applyLockTimeout(ctx); err != nil {
		return nil, err
	}

	current, err := s.lock(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		s.logger.Warn("update of missing project", "id", id, "user_id", userID)
		return nil, domain.NewProjectNotFound(id)
	}

	if patch.IsEmpty() {
		return current, nil
	}

	if newParent, ok := patch.ParentProjectID.Get(); ok {
		if err := s.checkReparent(ctx, id, newParent, userID); err != nil {
			return nil, err
		}
	}

	var set setList
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	set.addOptional("description", patch.Description)
	set.addOptional("parent_project_id", patch.ParentProjectID)
	set.add("updated_at", time.Now().UTC())

	idArg := set.next()
	set.args = append(set.args, id)
	userArg := set.next()
	set.args = append(set.args, userID)

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = %s AND user_id = %s
		RETURNING %s
	`, s.tables.Projects, set.String(), idArg, userArg, projectColumns)

	updated, err := scanProject(s.db.QueryRow(ctx, query, set.args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewProjectNotFound(id)
		}
		return nil, translateError("update project", err)
	}

	stale := []string{id}
	if current.ParentProjectID != nil {
		stale = append(stale, *current.ParentProjectID)
	}
	if updated.ParentProjectID != nil {
		stale = append(stale, *updated.ParentProjectID)
	}
	if err := s.invalidateProjects(ctx, userID, stale...); err != nil {
		return nil, err
	}

	s.logger.Info("project updated", "id", id, "user_id", userID, "parent_project_id", updated.ParentProjectID)
	return updated, nil
}

// checkReparent rejects a new parent that is the project itself, missing, or
// one of its descendants.
func (s *ProjectStore) checkReparent(ctx context.Context, id, newParent, userID string) error {
	if newParent == id {
		return &domain.CircularHierarchyError{
			Message:  fmt.Sprintf("project %s cannot be its own parent", id),
			ID:       id,
			ParentID: newParent,
		}
	}

	parent, err := s.fetch(ctx, newParent, userID)
	if err != nil {
		return err
	}
	if parent == nil {
		s.logger.Warn("reparent to missing project", "id", id, "user_id", userID, "parent_project_id", newParent)
		return domain.NewProjectNotFound(newParent)
	}

	ok, err := s.ValidateHierarchy(ctx, id, newParent, userID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("reparent would create a cycle", "id", id, "user_id", userID, "parent_project_id", newParent)
		return &domain.CircularHierarchyError{
			Message:  fmt.Sprintf("moving project %s under %s would create a circular hierarchy", id, newParent),
			ID:       id,
			ParentID: newParent,
		}
	}
	return nil
}

// ValidateHierarchy reports whether candidateParentID may become the parent
// of id without creating a cycle. Ancestors are read from the database, not
// the cache.
func (s *ProjectStore) ValidateHierarchy(ctx context.Context, id, candidateParentID, userID string) (bool, error) {
	cycle, depth, err := wouldCreateCycle(ctx, id, candidateParentID, s.maxDepth, func(ctx context.Context, current string) (*string, bool, error) {
		return s.parentOf(ctx, current, userID)
	})
	HierarchyWalkDepth.Observe(float64(depth))
	if err != nil {
		return false, translateError("validate hierarchy", err)
	}
	return !cycle, nil
}

func (s *ProjectStore) parentOf(ctx context.Context, id, userID string) (*string, bool, error) {
	if !isUUID(id) {
		return nil, false, nil
	}
	query := fmt.Sprintf(`SELECT parent_project_id FROM %s WHERE id = $1 AND user_id = $2`, s.tables.Projects)

	var parent *string
	if err := s.db.QueryRow(ctx, query, id, userID).Scan(&parent); err != nil {
		if IsPgNoRowsError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return parent, true, nil
}

// Delete removes the project and its whole subtree, children first. Notes in
// any removed project are detached. Returns false when the project is absent.
func (s *ProjectStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}

	if err := s.applyLockTimeout(ctx); err != nil {
		return false, err
	}

	root, err := s.lock(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if root == nil {
		s.logger.Warn("delete of missing project", "id", id, "user_id", userID)
		return false, nil
	}

	visited := make(map[string]struct{})
	if err := s.deleteSubtree(ctx, id, userID, visited, 0); err != nil {
		return false, err
	}

	if root.ParentProjectID != nil {
		if err := s.invalidateProjects(ctx, userID, *root.ParentProjectID); err != nil {
			return false, err
		}
	}

	s.logger.Info("project deleted", "id", id, "user_id", userID, "removed", len(visited))
	return true, nil
}

func (s *ProjectStore) deleteSubtree(ctx context.Context, id, userID string, visited map[string]struct{}, depth int) error {
	if _, seen := visited[id]; seen || depth > s.maxDepth {
		return &domain.CircularHierarchyError{
			Message: fmt.Sprintf("project %s is part of a cycle or too deep to delete", id),
			ID:      id,
		}
	}
	visited[id] = struct{}{}

	// children come from the transaction, never the cache
	children, err := s.childIDs(ctx, id, userID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.deleteSubtree(ctx, child, userID, visited, depth+1); err != nil {
			return err
		}
	}

	if _, err := s.notes.DetachProject(ctx, id, userID); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, s.tables.Projects)
	if _, err := s.db.Exec(ctx, query, id, userID); err != nil {
		return translateError("delete project", err)
	}

	s.logger.Debug("project row deleted", "id", id, "user_id", userID, "depth", depth)
	return s.invalidateProjects(ctx, userID, id)
}

func (s *ProjectStore) childIDs(ctx context.Context, id, userID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE parent_project_id = $1 AND user_id = $2 ORDER BY id`, s.tables.Projects)
	rows, err := s.db.Query(ctx, query, id, userID)
	if err != nil {
		return nil, translateError("list child ids", err)
	}
	ids, err := collect(rows, "child id", func(r rowScanner) (*string, error) {
		var childID string
		return &childID, r.Scan(&childID)
	})
	if err != nil {
		return nil, translateError("list child ids", err)
	}
	return ids, nil
}

// load reads a project, and optionally its children, through the cache.
// Absent projects return (nil, nil) and are not cached.
func (s *ProjectStore) load(ctx context.Context, id, userID string, withChildren bool) (*models.ProjectWithChildren, error) {
	if !isUUID(id) {
		return nil, nil
	}

	key := projectCacheKey(userID, id, withChildren)
	if v, ok := s.cachedProject(ctx, key); ok {
		return v, nil
	}

	project, err := s.fetch(ctx, id, userID)
	if err != nil || project == nil {
		return nil, err
	}

	v := &models.ProjectWithChildren{Project: *project}
	if withChildren {
		query := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE parent_project_id = $1 AND user_id = $2
			ORDER BY name, id
		`, projectColumns, s.tables.Projects)
		rows, err := s.db.Query(ctx, query, id, userID)
		if err != nil {
			return nil, translateError("get project children", err)
		}
		if v.Children, err = collect(rows, "project", scanProject); err != nil {
			return nil, translateError("get project children", err)
		}
	}

	s.storeProject(ctx, key, v)
	return v, nil
}

// fetch reads a project straight from the database. Absent returns (nil, nil).
func (s *ProjectStore) fetch(ctx context.Context, id, userID string) (*models.Project, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, projectColumns, s.tables.Projects)
	project, err := scanProject(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, translateError("get project", err)
	}
	return project, nil
}

// lock reads and row-locks a project until the transaction ends.
func (s *ProjectStore) lock(ctx context.Context, id, userID string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2 FOR UPDATE`, projectColumns, s.tables.Projects)
	project, err := scanProject(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, translateError("lock project", err)
	}
	return project, nil
}

// applyLockTimeout bounds how long FOR UPDATE waits, for this transaction only.
func (s *ProjectStore) applyLockTimeout(ctx context.Context) error {
	if s.lockTimeout <= 0 {
		return nil
	}
	ms := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
	if _, err := s.db.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", ms); err != nil {
		return translateError("set lock timeout", err)
	}
	return nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

var _ repositories.ProjectRepository = (*ProjectStore)(nil)
