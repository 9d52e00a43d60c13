package repositories

import (
	"context"

	"pkm/internal/domain/models"
)

// NoteRepository defines data access operations for notes
type NoteRepository interface {
	Create(ctx context.Context, userID string, in *models.NoteCreate) (*models.Note, error)
	GetByID(ctx context.Context, id, userID string) (*models.Note, error)
	ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Note, error)
	ListByProject(ctx context.Context, projectID, userID string, page models.Page) ([]models.Note, error)
	Update(ctx context.Context, id, userID string, patch *models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, id, userID string) (bool, error)

	// DetachProject clears project_id on every note of the user that points at projectID
	DetachProject(ctx context.Context, projectID, userID string) (int64, error)

	AddKeyword(ctx context.Context, noteID, keywordID, userID string) error
	RemoveKeyword(ctx context.Context, noteID, keywordID, userID string) (bool, error)
	ListKeywords(ctx context.Context, noteID, userID string) ([]models.Keyword, error)
}

// KeywordRepository defines data access operations for keywords
type KeywordRepository interface {
	Create(ctx context.Context, userID string, in *models.KeywordInput) (*models.Keyword, error)
	GetByID(ctx context.Context, id, userID string) (*models.Keyword, error)
	GetByName(ctx context.Context, name, userID string) (*models.Keyword, error)
	ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Keyword, error)
	Update(ctx context.Context, id, userID string, in *models.KeywordInput) (*models.Keyword, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// SourceRepository defines data access operations for sources
type SourceRepository interface {
	Create(ctx context.Context, userID string, in *models.SourceCreate) (*models.Source, error)
	GetByID(ctx context.Context, id, userID string) (*models.Source, error)
	ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Source, error)
	Update(ctx context.Context, id, userID string, patch *models.SourcePatch) (*models.Source, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// NoteLinkRepository defines data access operations for links between notes
type NoteLinkRepository interface {
	Create(ctx context.Context, userID string, in *models.NoteLinkCreate) (*models.NoteLink, error)
	GetByID(ctx context.Context, id, userID string) (*models.NoteLink, error)
	ListBySourceNote(ctx context.Context, noteID, userID string) ([]models.NoteLink, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}
