package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkm/internal/domain/repositories"
)

// Session is the connection a unit of work runs on.
type Session interface {
	repositories.DBTX

	// InTransaction reports whether a transaction is already open
	InTransaction() bool
	Begin(ctx context.Context) (pgx.Tx, error)
	// Release returns the connection to its owner
	Release()
}

// SessionFactory hands a unit of work its session on Begin
type SessionFactory func(ctx context.Context) (Session, error)

// PoolSessions acquires a dedicated pooled connection per unit of work.
func PoolSessions(pool *pgxpool.Pool) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire connection: %w", err)
		}
		return &poolSession{Conn: conn}, nil
	}
}

type poolSession struct {
	*pgxpool.Conn
}

func (s *poolSession) InTransaction() bool {
	return s.Conn.Conn().PgConn().TxStatus() != 'I'
}

// TxSessions runs every unit of work inside a transaction the caller owns.
// Units of work created this way never commit, roll back or release it.
func TxSessions(tx pgx.Tx) SessionFactory {
	return func(context.Context) (Session, error) {
		return &txSession{tx: tx}, nil
	}
}

type txSession struct {
	tx pgx.Tx
}

func (s *txSession) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return s.tx.Exec(ctx, sql, args...)
}

func (s *txSession) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return s.tx.Query(ctx, sql, args...)
}

func (s *txSession) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return s.tx.QueryRow(ctx, sql, args...)
}

func (s *txSession) InTransaction() bool { return true }

// Begin opens a savepoint; units of work never call it for a session that is
// already in a transaction.
func (s *txSession) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.tx.Begin(ctx)
}

func (s *txSession) Release() {}
