package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pkm/internal/domain"
	"pkm/internal/domain/models"
	"pkm/internal/domain/repositories"
)

const keywordColumns = "id, user_id, name, created_at"

// KeywordStore implements repositories.KeywordRepository
type KeywordStore struct {
	db     repositories.DBTX
	tables *TableNames
	logger *slog.Logger
}

func NewKeywordStore(db repositories.DBTX, cfg *RepositoryConfig) *KeywordStore {
	return newKeywordStore(db, cfg.withDefaults())
}

func newKeywordStore(db repositories.DBTX, cfg *RepositoryConfig) *KeywordStore {
	return &KeywordStore{db: db, tables: cfg.Tables, logger: cfg.Logger.With("store", "keywords")}
}

func scanKeyword(row rowScanner) (*models.Keyword, error) {
	var k models.Keyword
	if err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.CreatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

// Create inserts a keyword. Names are unique per user.
func (s *KeywordStore) Create(ctx context.Context, userID string, in *models.KeywordInput) (*models.Keyword, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, s.tables.Keywords, keywordColumns)

	keyword, err := scanKeyword(s.db.QueryRow(ctx, query, uuid.NewString(), userID, in.Name, time.Now().UTC()))
	if err != nil {
		if IsPgDuplicateError(err) {
			return nil, s.conflict(ctx, userID, in.Name)
		}
		return nil, translateError("create keyword", err)
	}
	return keyword, nil
}

// conflict builds a ConflictError pointing at the existing keyword when it
// can still be read; a duplicate error aborts the transaction, so usually it
// cannot.
func (s *KeywordStore) conflict(ctx context.Context, userID, name string) error {
	existing, err := s.GetByName(ctx, name, userID)
	if err != nil {
		return fmt.Errorf("keyword '%s' already exists: %w", name, domain.ErrConflict)
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("keyword '%s' already exists", name),
		ResourceType: "keyword",
		ResourceID:   existing.ID,
	}
}

func (s *KeywordStore) GetByID(ctx context.Context, id, userID string) (*models.Keyword, error) {
	if !isUUID(id) {
		return nil, domain.NewNotFound("keyword", id)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, keywordColumns, s.tables.Keywords)
	keyword, err := scanKeyword(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("keyword", id)
		}
		return nil, translateError("get keyword", err)
	}
	return keyword, nil
}

func (s *KeywordStore) GetByName(ctx context.Context, name, userID string) (*models.Keyword, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1 AND user_id = $2`, keywordColumns, s.tables.Keywords)
	keyword, err := scanKeyword(s.db.QueryRow(ctx, query, name, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("keyword", name)
		}
		return nil, translateError("get keyword by name", err)
	}
	return keyword, nil
}

func (s *KeywordStore) ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Keyword, error) {
	page.ApplyDefaults()
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY name
		OFFSET $2 LIMIT $3
	`, keywordColumns, s.tables.Keywords)

	rows, err := s.db.Query(ctx, query, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, translateError("list keywords", err)
	}
	keywords, err := collect(rows, "keyword", scanKeyword)
	return keywords, translateError("list keywords", err)
}

// Update renames a keyword.
func (s *KeywordStore) Update(ctx context.Context, id, userID string, in *models.KeywordInput) (*models.Keyword, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, domain.NewNotFound("keyword", id)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET name = $1
		WHERE id = $2 AND user_id = $3
		RETURNING %s
	`, s.tables.Keywords, keywordColumns)

	keyword, err := scanKeyword(s.db.QueryRow(ctx, query, in.Name, id, userID))
	if err != nil {
		switch {
		case IsPgNoRowsError(err):
			return nil, domain.NewNotFound("keyword", id)
		case IsPgDuplicateError(err):
			return nil, s.conflict(ctx, userID, in.Name)
		}
		return nil, translateError("update keyword", err)
	}
	return keyword, nil
}

func (s *KeywordStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, s.tables.Keywords)
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return false, translateError("delete keyword", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ repositories.KeywordRepository = (*KeywordStore)(nil)
