package services

import (
	"context"

	"pkm/internal/domain/models"
)

// ProjectService defines the project use cases. Each call runs in its own
// unit of work and commits before returning.
type ProjectService interface {
	CreateProject(ctx context.Context, userID string, req *models.ProjectCreate) (*models.Project, error)
	GetProject(ctx context.Context, id, userID string) (*models.Project, error)
	ListProjects(ctx context.Context, userID string, page models.Page) ([]models.Project, error)
	ListRootProjects(ctx context.Context, userID string, page models.Page) ([]models.Project, error)

	// GetChildren returns a NotFoundError when the parent itself is absent
	GetChildren(ctx context.Context, id, userID string) ([]models.Project, error)

	UpdateProject(ctx context.Context, id, userID string, patch *models.ProjectPatch) (*models.Project, error)

	// DeleteProject removes the project subtree; absence is a NotFoundError
	DeleteProject(ctx context.Context, id, userID string) error

	// ValidateHierarchy reports whether parentID may become the parent of id
	ValidateHierarchy(ctx context.Context, id, parentID, userID string) (bool, error)
}
