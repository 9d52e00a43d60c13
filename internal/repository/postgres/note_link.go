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

const noteLinkColumns = "id, user_id, source_note_id, target_note_id, link_type, description, created_at"

// NoteLinkStore implements repositories.NoteLinkRepository
type NoteLinkStore struct {
	db     repositories.DBTX
	tables *TableNames
	logger *slog.Logger
}

func NewNoteLinkStore(db repositories.DBTX, cfg *RepositoryConfig) *NoteLinkStore {
	return newNoteLinkStore(db, cfg.withDefaults())
}

func newNoteLinkStore(db repositories.DBTX, cfg *RepositoryConfig) *NoteLinkStore {
	return &NoteLinkStore{db: db, tables: cfg.Tables, logger: cfg.Logger.With("store", "note_links")}
}

func scanNoteLink(row rowScanner) (*models.NoteLink, error) {
	var l models.NoteLink
	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.SourceNoteID,
		&l.TargetNoteID,
		&l.LinkType,
		&l.Description,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create links two notes of the same user.
func (s *NoteLinkStore) Create(ctx context.Context, userID string, in *models.NoteLinkCreate) (*models.NoteLink, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	for _, noteID := range []string{in.SourceNoteID, in.TargetNoteID} {
		ok, err := ownedBy(ctx, s.db, s.tables.Notes, noteID, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewNotFound("note", noteID)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, source_note_id, target_note_id, link_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, s.tables.NoteLinks, noteLinkColumns)

	link, err := scanNoteLink(s.db.QueryRow(ctx, query,
		uuid.NewString(),
		userID,
		in.SourceNoteID,
		in.TargetNoteID,
		in.LinkType,
		in.Description,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, translateError("create note link", err)
	}

	s.logger.Info("note link created", "id", link.ID, "user_id", userID)
	return link, nil
}

func (s *NoteLinkStore) GetByID(ctx context.Context, id, userID string) (*models.NoteLink, error) {
	if !isUUID(id) {
		return nil, domain.NewNotFound("note link", id)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, noteLinkColumns, s.tables.NoteLinks)
	link, err := scanNoteLink(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("note link", id)
		}
		return nil, translateError("get note link", err)
	}
	return link, nil
}

// ListBySourceNote returns the outgoing links of a note.
func (s *NoteLinkStore) ListBySourceNote(ctx context.Context, noteID, userID string) ([]models.NoteLink, error) {
	if !isUUID(noteID) {
		return []models.NoteLink{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE source_note_id = $1 AND user_id = $2
		ORDER BY created_at, id
	`, noteLinkColumns, s.tables.NoteLinks)

	rows, err := s.db.Query(ctx, query, noteID, userID)
	if err != nil {
		return nil, translateError("list note links", err)
	}
	links, err := collect(rows, "note link", scanNoteLink)
	return links, translateError("list note links", err)
}

func (s *NoteLinkStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, s.tables.NoteLinks)
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return false, translateError("delete note link", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ repositories.NoteLinkRepository = (*NoteLinkStore)(nil)
