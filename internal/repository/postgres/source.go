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

const sourceColumns = "id, user_id, type, title, description, url, metadata, created_at, updated_at"

// SourceStore implements repositories.SourceRepository
type SourceStore struct {
	db     repositories.DBTX
	tables *TableNames
	logger *slog.Logger
}

func NewSourceStore(db repositories.DBTX, cfg *RepositoryConfig) *SourceStore {
	return newSourceStore(db, cfg.withDefaults())
}

func newSourceStore(db repositories.DBTX, cfg *RepositoryConfig) *SourceStore {
	return &SourceStore{db: db, tables: cfg.Tables, logger: cfg.Logger.With("store", "sources")}
}

func scanSource(row rowScanner) (*models.Source, error) {
	var src models.Source
	err := row.Scan(
		&src.ID,
		&src.UserID,
		&src.Type,
		&src.Title,
		&src.Description,
		&src.URL,
		&src.Metadata,
		&src.CreatedAt,
		&src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *SourceStore) Create(ctx context.Context, userID string, in *models.SourceCreate) (*models.Source, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, type, title, description, url, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING %s
	`, s.tables.Sources, sourceColumns)

	src, err := scanSource(s.db.QueryRow(ctx, query,
		uuid.NewString(),
		userID,
		in.Type,
		in.Title,
		in.Description,
		in.URL,
		metadata,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, translateError("create source", err)
	}

	s.logger.Info("source created", "id", src.ID, "user_id", userID)
	return src, nil
}

func (s *SourceStore) GetByID(ctx context.Context, id, userID string) (*models.Source, error) {
	if !isUUID(id) {
		return nil, domain.NewNotFound("source", id)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, sourceColumns, s.tables.Sources)
	src, err := scanSource(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("source", id)
		}
		return nil, translateError("get source", err)
	}
	return src, nil
}

func (s *SourceStore) ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Source, error) {
	page.ApplyDefaults()
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		OFFSET $2 LIMIT $3
	`, sourceColumns, s.tables.Sources)

	rows, err := s.db.Query(ctx, query, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, translateError("list sources", err)
	}
	sources, err := collect(rows, "source", scanSource)
	return sources, translateError("list sources", err)
}

func (s *SourceStore) Update(ctx context.Context, id, userID string, patch *models.SourcePatch) (*models.Source, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetByID(ctx, id, userID)
	}
	if !isUUID(id) {
		return nil, domain.NewNotFound("source", id)
	}

	var set setList
	set.addOptional("type", patch.Type)
	set.addOptional("title", patch.Title)
	set.addOptional("description", patch.Description)
	set.addOptional("url", patch.URL)
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
	`, s.tables.Sources, set.String(), idArg, userArg, sourceColumns)

	src, err := scanSource(s.db.QueryRow(ctx, query, set.args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("source", id)
		}
		return nil, translateError("update source", err)
	}
	return src, nil
}

// Delete removes a source; notes citing it keep existing with source_id NULL.
func (s *SourceStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, s.tables.Sources)
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return false, translateError("delete source", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ repositories.SourceRepository = (*SourceStore)(nil)
