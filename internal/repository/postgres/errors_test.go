package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"pkm/internal/domain"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, domain.ErrConcurrency},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, domain.ErrConcurrency},
		{"deadlock", fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), domain.ErrConcurrency},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, domain.ErrConcurrency},
		{"unique violation", &pgconn.PgError{Code: "23505"}, domain.ErrConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, domain.ErrStorage},
		{"check violation", &pgconn.PgError{Code: "23514"}, domain.ErrStorage},
		{"context canceled", context.Canceled, domain.ErrStorage},
		{"anything else", errors.New("broken pipe"), domain.ErrStorage},
		{"already classified", domain.NewProjectNotFound("x"), domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError("op", tt.err)
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestTranslateError_KeepsCause(t *testing.T) {
	assert.Nil(t, translateError("op", nil))

	err := translateError("get project", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "get project")

	classified := domain.NewProjectNotFound("x")
	assert.Same(t, classified, translateError("op", classified))
}

func TestPgErrorHelpers(t *testing.T) {
	assert.True(t, IsPgDuplicateError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsPgDuplicateError(errors.New("23505")))
	assert.True(t, IsPgForeignKeyError(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23503"})))
	assert.True(t, IsPgNoRowsError(fmt.Errorf("wrap: %w", pgx.ErrNoRows)))
	assert.True(t, IsPgConcurrencyError(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsPgConcurrencyError(&pgconn.PgError{Code: "23505"}))
}
