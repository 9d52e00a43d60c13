package repositories

import (
	"context"

	"pkm/internal/domain/models"
)

// ProjectRepository defines data access operations for the project forest.
// Every method is scoped by userID; a project owned by another user behaves
// exactly like a missing one.
type ProjectRepository interface {
	// GetByID returns the project or a domain.NotFoundError
	GetByID(ctx context.Context, id, userID string) (*models.Project, error)

	// ListByUser returns a page of the user's projects ordered by name
	ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Project, error)

	// Create validates and inserts a project. A missing parent yields a domain.NotFoundError
	Create(ctx context.Context, userID string, in *models.ProjectCreate) (*models.Project, error)

	// Update locks the row, applies the patch and returns the refreshed project.
	// Reparenting into a cycle yields a domain.CircularHierarchyError
	Update(ctx context.Context, id, userID string, patch *models.ProjectPatch) (*models.Project, error)

	// Delete removes the project and all its descendants. Returns false if absent
	Delete(ctx context.Context, id, userID string) (bool, error)

	// GetChildren returns the direct children of a project (empty if absent)
	GetChildren(ctx context.Context, id, userID string) ([]models.Project, error)

	// GetRootProjects returns a page of projects without a parent ordered by name
	GetRootProjects(ctx context.Context, userID string, page models.Page) ([]models.Project, error)

	// ValidateHierarchy reports whether candidateParentID may become the parent of id
	ValidateHierarchy(ctx context.Context, id, candidateParentID, userID string) (bool, error)
}
