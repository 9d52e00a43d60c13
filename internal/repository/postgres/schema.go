package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"pkm/internal/domain/repositories"
)

// schemaStatements returns the DDL for every table, parents first.
// Project children are deleted in application code, so parent_project_id has
// no ON DELETE action.
func schemaStatements(t *TableNames) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			name VARCHAR(100) NOT NULL CHECK (char_length(name) > 0),
			description VARCHAR(500),
			parent_project_id UUID REFERENCES %[1]s(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (parent_project_id IS NULL OR parent_project_id <> id)
		)`, t.Projects),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user_parent ON %[1]s(user_id, parent_project_id)`, t.Projects),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user_name ON %[1]s(user_id, name)`, t.Projects),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			type VARCHAR(100),
			title TEXT,
			description TEXT,
			url TEXT,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.Sources),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			project_id UUID REFERENCES %s(id) ON DELETE SET NULL,
			source_id UUID REFERENCES %s(id) ON DELETE SET NULL,
			title VARCHAR(255),
			content TEXT NOT NULL,
			type VARCHAR(100),
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, t.Notes, t.Projects, t.Sources),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user_project ON %[1]s(user_id, project_id)`, t.Notes),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			name VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, name)
		)`, t.Keywords),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			note_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			keyword_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			PRIMARY KEY (note_id, keyword_id)
		)`, t.NoteKeywords, t.Notes, t.Keywords),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			source_note_id UUID NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
			target_note_id UUID NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
			link_type VARCHAR(50),
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (source_note_id <> target_note_id)
		)`, t.NoteLinks, t.Notes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_source ON %[1]s(user_id, source_note_id)`, t.NoteLinks),
	}
}

// EnsureSchema creates any missing tables. It is a dev/test bootstrap, not a
// migration tool: existing tables are left as they are.
func EnsureSchema(ctx context.Context, db repositories.DBTX, tables *TableNames, logger *slog.Logger) error {
	for _, stmt := range schemaStatements(tables) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	logger.Info("schema ready", "projects_table", tables.Projects)
	return nil
}

// DropSchema drops every table, children first.
func DropSchema(ctx context.Context, db repositories.DBTX, tables *TableNames, logger *slog.Logger) error {
	for _, table := range []string{tables.NoteLinks, tables.NoteKeywords, tables.Keywords, tables.Notes, tables.Sources, tables.Projects} {
		if _, err := db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		logger.Debug("dropped table", "table", table)
	}
	return nil
}
