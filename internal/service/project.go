package service

import (
	"context"
	"log/slog"

	"pkm/internal/domain"
	"pkm/internal/domain/models"
	"pkm/internal/domain/repositories"
	"pkm/internal/domain/services"
)

// projectService implements the ProjectService interface
type projectService struct {
	uow    repositories.UnitOfWorkFactory
	logger *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(uow repositories.UnitOfWorkFactory, logger *slog.Logger) services.ProjectService {
	return &projectService{
		uow:    uow,
		logger: logger,
	}
}

func (s *projectService) CreateProject(ctx context.Context, userID string, req *models.ProjectCreate) (*models.Project, error) {
	var project *models.Project
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		var err error
		project, err = uow.Projects().Create(ctx, userID, req)
		return err
	})
	if err != nil {
		s.logger.Debug("create project failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
		"user_id", userID,
	)
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	var project *models.Project
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		var err error
		project, err = uow.Projects().GetByID(ctx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, userID string, page models.Page) ([]models.Project, error) {
	var projects []models.Project
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		var err error
		projects, err = uow.Projects().ListByUser(ctx, userID, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *projectService) ListRootProjects(ctx context.Context, userID string, page models.Page) ([]models.Project, error) {
	var projects []models.Project
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		var err error
		projects, err = uow.Projects().GetRootProjects(ctx, userID, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *projectService) GetChildren(ctx context.Context, id, userID string) ([]models.Project, error) {
	var children []models.Project
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		// the store reports a missing parent as "no children"
		if _, err := uow.Projects().GetByID(ctx, id, userID); err != nil {
			return err
		}
		var err error
		children, err = uow.Projects().GetChildren(ctx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (s *projectService) UpdateProject(ctx context.Context, id, userID string, patch *models.ProjectPatch) (*models.Project, error) {
	var project *models.Project
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		var err error
		project, err = uow.Projects().Update(ctx, id, userID, patch)
		return err
	})
	if err != nil {
		s.logger.Debug("update project failed", "id", id, "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("project updated",
		"id", project.ID,
		"name", project.Name,
		"parent_project_id", project.ParentProjectID,
		"user_id", userID,
	)
	return project, nil
}

func (s *projectService) DeleteProject(ctx context.Context, id, userID string) error {
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		deleted, err := uow.Projects().Delete(ctx, id, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.NewProjectNotFound(id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("project deleted", "id", id, "user_id", userID)
	return nil
}

func (s *projectService) ValidateHierarchy(ctx context.Context, id, parentID, userID string) (bool, error) {
	var ok bool
	err := repositories.Run(ctx, s.uow, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if _, err := uow.Projects().GetByID(ctx, id, userID); err != nil {
			return err
		}
		var err error
		ok, err = uow.Projects().ValidateHierarchy(ctx, id, parentID, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
