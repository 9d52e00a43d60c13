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

const noteColumns = "id, user_id, project_id, source_id, title, content, type, metadata, created_at, updated_at"

// NoteStore implements repositories.NoteRepository
type NoteStore struct {
	db     repositories.DBTX
	tables *TableNames
	logger *slog.Logger
}

// NewNoteStore binds a note store to db
func NewNoteStore(db repositories.DBTX, cfg *RepositoryConfig) *NoteStore {
	return newNoteStore(db, cfg.withDefaults())
}

func newNoteStore(db repositories.DBTX, cfg *RepositoryConfig) *NoteStore {
	return &NoteStore{db: db, tables: cfg.Tables, logger: cfg.Logger.With("store", "notes")}
}

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.ProjectID,
		&n.SourceID,
		&n.Title,
		&n.Content,
		&n.Type,
		&n.Metadata,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ownedBy reports whether table has a row id belonging to userID.
func ownedBy(ctx context.Context, db repositories.DBTX, table, id, userID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND user_id = $2)`, table)
	if err := db.QueryRow(ctx, query, id, userID).Scan(&exists); err != nil {
		return false, translateError("check ownership", err)
	}
	return exists, nil
}

// checkReferences makes sure optional project/source ids belong to the user.
func (s *NoteStore) checkReferences(ctx context.Context, userID string, projectID, sourceID *string) error {
	if projectID != nil {
		ok, err := ownedBy(ctx, s.db, s.tables.Projects, *projectID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewProjectNotFound(*projectID)
		}
	}
	if sourceID != nil {
		ok, err := ownedBy(ctx, s.db, s.tables.Sources, *sourceID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewNotFound("source", *sourceID)
		}
	}
	return nil
}

func (s *NoteStore) Create(ctx context.Context, userID string, in *models.NoteCreate) (*models.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, in.ProjectID, in.SourceID); err != nil {
		return nil, err
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, project_id, source_id, title, content, type, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING %s
	`, s.tables.Notes, noteColumns)

	note, err := scanNote(s.db.QueryRow(ctx, query,
		uuid.NewString(),
		userID,
		in.ProjectID,
		in.SourceID,
		in.Title,
		in.Content,
		in.Type,
		metadata,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, translateError("create note", err)
	}

	s.logger.Info("note created", "id", note.ID, "user_id", userID)
	return note, nil
}

func (s *NoteStore) GetByID(ctx context.Context, id, userID string) (*models.Note, error) {
	if !isUUID(id) {
		return nil, domain.NewNotFound("note", id)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`, noteColumns, s.tables.Notes)
	note, err := scanNote(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("note", id)
		}
		return nil, translateError("get note", err)
	}
	return note, nil
}

func (s *NoteStore) ListByUser(ctx context.Context, userID string, page models.Page) ([]models.Note, error) {
	page.ApplyDefaults()
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC, id
		OFFSET $2 LIMIT $3
	`, noteColumns, s.tables.Notes)

	rows, err := s.db.Query(ctx, query, userID, page.Skip, page.Limit)
	if err != nil {
		return nil, translateError("list notes", err)
	}
	notes, err := collect(rows, "note", scanNote)
	return notes, translateError("list notes", err)
}

func (s *NoteStore) ListByProject(ctx context.Context, projectID, userID string, page models.Page) ([]models.Note, error) {
	if !isUUID(projectID) {
		return []models.Note{}, nil
	}
	page.ApplyDefaults()
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND project_id = $2
		ORDER BY updated_at DESC, id
		OFFSET $3 LIMIT $4
	`, noteColumns, s.tables.Notes)

	rows, err := s.db.Query(ctx, query, userID, projectID, page.Skip, page.Limit)
	if err != nil {
		return nil, translateError("list project notes", err)
	}
	notes, err := collect(rows, "note", scanNote)
	return notes, translateError("list project notes", err)
}

func (s *NoteStore) Update(ctx context.Context, id, userID string, patch *models.NotePatch) (*models.Note, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.GetByID(ctx, id, userID)
	}
	if !isUUID(id) {
		return nil, domain.NewNotFound("note", id)
	}

	projectID, _ := patch.ProjectID.Get()
	sourceID, _ := patch.SourceID.Get()
	if err := s.checkReferences(ctx, userID, nonEmpty(projectID), nonEmpty(sourceID)); err != nil {
		return nil, err
	}

	var set setList
	set.addOptional("title", patch.Title)
	if patch.Content != nil {
		set.add("content", *patch.Content)
	}
	set.addOptional("type", patch.Type)
	set.addOptional("project_id", patch.ProjectID)
	set.addOptional("source_id", patch.SourceID)
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
	`, s.tables.Notes, set.String(), idArg, userArg, noteColumns)

	note, err := scanNote(s.db.QueryRow(ctx, query, set.args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("note", id)
		}
		return nil, translateError("update note", err)
	}
	return note, nil
}

func (s *NoteStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, s.tables.Notes)
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return false, translateError("delete note", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DetachProject clears project_id on the user's notes in projectID.
func (s *NoteStore) DetachProject(ctx context.Context, projectID, userID string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET project_id = NULL, updated_at = $3
		WHERE project_id = $1 AND user_id = $2
	`, s.tables.Notes)
	tag, err := s.db.Exec(ctx, query, projectID, userID, time.Now().UTC())
	if err != nil {
		return 0, translateError("detach notes", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Debug("notes detached from project", "project_id", projectID, "user_id", userID, "count", n)
	}
	return tag.RowsAffected(), nil
}

// AddKeyword tags a note. Tagging twice is a no-op.
func (s *NoteStore) AddKeyword(ctx context.Context, noteID, keywordID, userID string) error {
	ok, err := ownedBy(ctx, s.db, s.tables.Notes, noteID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFound("note", noteID)
	}
	ok, err = ownedBy(ctx, s.db, s.tables.Keywords, keywordID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFound("keyword", keywordID)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (note_id, keyword_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, s.tables.NoteKeywords)
	if _, err := s.db.Exec(ctx, query, noteID, keywordID); err != nil {
		return translateError("add keyword", err)
	}
	return nil
}

func (s *NoteStore) RemoveKeyword(ctx context.Context, noteID, keywordID, userID string) (bool, error) {
	if !isUUID(noteID) || !isUUID(keywordID) {
		return false, nil
	}
	query := fmt.Sprintf(`
		DELETE FROM %s nk
		USING %s n
		WHERE nk.note_id = n.id AND n.id = $1 AND n.user_id = $2 AND nk.keyword_id = $3
	`, s.tables.NoteKeywords, s.tables.Notes)
	tag, err := s.db.Exec(ctx, query, noteID, userID, keywordID)
	if err != nil {
		return false, translateError("remove keyword", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *NoteStore) ListKeywords(ctx context.Context, noteID, userID string) ([]models.Keyword, error) {
	if !isUUID(noteID) {
		return []models.Keyword{}, nil
	}
	query := fmt.Sprintf(`
		SELECT k.id, k.user_id, k.name, k.created_at
		FROM %s k
		JOIN %s nk ON nk.keyword_id = k.id
		JOIN %s n ON n.id = nk.note_id
		WHERE n.id = $1 AND n.user_id = $2
		ORDER BY k.name
	`, s.tables.Keywords, s.tables.NoteKeywords, s.tables.Notes)

	rows, err := s.db.Query(ctx, query, noteID, userID)
	if err != nil {
		return nil, translateError("list note keywords", err)
	}
	keywords, err := collect(rows, "keyword", scanKeyword)
	return keywords, translateError("list note keywords", err)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ repositories.NoteRepository = (*NoteStore)(nil)
