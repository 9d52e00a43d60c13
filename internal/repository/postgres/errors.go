package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pkm/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgLockNotAvailable    = "55P03"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
	pgQueryCanceled       = "57014"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

// IsPgConcurrencyError reports lock timeouts, serialization failures,
// deadlocks and statement timeouts.
func IsPgConcurrencyError(err error) bool {
	switch pgErrorCode(err) {
	case pgLockNotAvailable, pgSerializationFail, pgDeadlockDetected, pgQueryCanceled:
		return true
	}
	return false
}

// translateError maps a driver error onto the domain taxonomy. Errors that
// already belong to the taxonomy pass through untouched.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	switch {
	case IsPgConcurrencyError(err):
		return &domain.ConcurrencyError{Message: op + ": concurrent modification or lock timeout", Err: err}
	case IsPgDuplicateError(err):
		return &domain.ConflictError{Message: op + ": already exists"}
	}

	// integrity violations (FK, check), cancellation and everything else
	return &domain.StorageError{Op: op, Err: err}
}
