package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pkm/internal/domain"
	"pkm/internal/domain/repositories"
)

type uowState int

const (
	uowIdle uowState = iota
	uowEntered
	// entered, but the transaction could not be reopened after commit/rollback
	uowBroken
)

// UnitOfWork implements repositories.UnitOfWork over a Session.
//
// When Begin finds the session idle it opens and owns a transaction: Commit
// and Rollback end it and immediately open the next one, and Close rolls back
// whatever is left and releases the session. When the session is already in
// a transaction the unit of work is nested: Commit only flushes, Rollback does
// nothing, and the transaction is left to its owner.
//
// Not safe for concurrent use; one logical flow per unit of work.
type UnitOfWork struct {
	cfg      *RepositoryConfig
	sessions SessionFactory
	logger   *slog.Logger

	state   uowState
	session Session
	tx      pgx.Tx
	ownsTx  bool
	journal *cacheJournal

	projects  *ProjectStore
	notes     *NoteStore
	keywords  *KeywordStore
	sources   *SourceStore
	noteLinks *NoteLinkStore
}

// NewUnitOfWork creates an idle unit of work drawing sessions from sessions.
func NewUnitOfWork(cfg *RepositoryConfig, sessions SessionFactory) *UnitOfWork {
	cfg = cfg.withDefaults()
	u := &UnitOfWork{
		cfg:      cfg,
		sessions: sessions,
		logger:   cfg.Logger,
		journal:  newCacheJournal(cfg.Cache, cfg.Logger),
	}

	db := uowExecutor{u}
	u.notes = newNoteStore(db, cfg)
	u.projects = newProjectStore(db, cfg, u.notes, u.journal)
	u.keywords = newKeywordStore(db, cfg)
	u.sources = newSourceStore(db, cfg)
	u.noteLinks = newNoteLinkStore(db, cfg)
	return u
}

// NewUnitOfWorkFactory returns a factory of pool-backed units of work.
func NewUnitOfWorkFactory(cfg *RepositoryConfig) repositories.UnitOfWorkFactory {
	sessions := PoolSessions(cfg.Pool)
	return func() repositories.UnitOfWork {
		return NewUnitOfWork(cfg, sessions)
	}
}

// Begin enters the unit of work.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.state != uowIdle {
		return &domain.InvalidStateError{Message: "unit of work already entered"}
	}

	session, err := u.sessions(ctx)
	if err != nil {
		return translateError("open session", err)
	}

	if session.InTransaction() {
		u.ownsTx = false
	} else {
		tx, err := session.Begin(ctx)
		if err != nil {
			session.Release()
			TransactionsTotal.WithLabelValues("error").Inc()
			return translateError("begin transaction", err)
		}
		u.tx = tx
		u.ownsTx = true
		TransactionsTotal.WithLabelValues("begin").Inc()
	}

	u.session = session
	u.state = uowEntered
	u.logger.Debug("unit of work entered", "owns_tx", u.ownsTx)
	return nil
}

// Commit commits the owned transaction and opens the next one. In nested
// mode it only flushes; pgx sends every statement eagerly, so there is
// nothing buffered.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if err := u.checkEntered("commit"); err != nil {
		return err
	}
	if !u.ownsTx {
		TransactionsTotal.WithLabelValues("flush").Inc()
		return nil
	}

	err := u.tx.Commit(ctx)
	u.tx = nil
	if err != nil {
		TransactionsTotal.WithLabelValues("error").Inc()
		u.journal.discard(ctx)
		return errors.Join(translateError("commit transaction", err), u.reopen(ctx))
	}

	TransactionsTotal.WithLabelValues("commit").Inc()
	u.journal.reset()
	if err := u.reopen(ctx); err != nil {
		u.logger.Warn("transaction committed but could not be reopened", "error", err)
		return fmt.Errorf("%w: %w", repositories.ErrReopenAfterCommit, err)
	}
	return nil
}

// Rollback rolls back the owned transaction and opens the next one. No-op
// in nested mode.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if err := u.checkEntered("rollback"); err != nil {
		return err
	}
	if !u.ownsTx {
		return nil
	}

	err := u.tx.Rollback(ctx)
	u.tx = nil
	u.journal.discard(ctx)
	TransactionsTotal.WithLabelValues("rollback").Inc()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return errors.Join(translateError("rollback transaction", err), u.reopen(ctx))
	}
	return u.reopen(ctx)
}

// Close leaves the unit of work. cause is the error that ended the scope, if
// any; it is returned unchanged (joined with cleanup failures, never
// replaced). Uncommitted work in an owned transaction is always rolled back.
func (u *UnitOfWork) Close(ctx context.Context, cause error) error {
	if u.state == uowIdle {
		return cause
	}
	defer u.reset()

	// cleanup must run even when ctx is what failed
	ctx = context.WithoutCancel(ctx)

	// a session borrowed from the pool goes back even if it reported an
	// open transaction; caller-owned sessions release as a no-op
	defer u.session.Release()

	if !u.ownsTx {
		// the owner may still roll back, so nothing cached here is known
		// to be committed
		u.journal.discard(ctx)
		return cause
	}

	if u.tx == nil {
		// reopen failed earlier; nothing left to roll back
		return cause
	}

	err := u.tx.Rollback(ctx)
	u.journal.discard(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		if cause == nil {
			// trailing transaction after the last commit
			u.logger.Warn("rollback of trailing transaction failed", "error", err)
			return nil
		}
		TransactionsTotal.WithLabelValues("error").Inc()
		return errors.Join(cause, translateError("rollback transaction", err))
	}
	if cause != nil {
		TransactionsTotal.WithLabelValues("rollback").Inc()
		u.logger.Debug("unit of work rolled back", "error", cause)
	}
	return cause
}

// OwnsTransaction reports whether Begin started the physical transaction.
func (u *UnitOfWork) OwnsTransaction() bool { return u.ownsTx }

func (u *UnitOfWork) Projects() repositories.ProjectRepository  { return u.projects }
func (u *UnitOfWork) Notes() repositories.NoteRepository        { return u.notes }
func (u *UnitOfWork) Keywords() repositories.KeywordRepository  { return u.keywords }
func (u *UnitOfWork) Sources() repositories.SourceRepository    { return u.sources }
func (u *UnitOfWork) NoteLinks() repositories.NoteLinkRepository { return u.noteLinks }

func (u *UnitOfWork) reopen(ctx context.Context) error {
	tx, err := u.session.Begin(context.WithoutCancel(ctx))
	if err != nil {
		u.state = uowBroken
		TransactionsTotal.WithLabelValues("error").Inc()
		return translateError("reopen transaction", err)
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWork) reset() {
	u.state = uowIdle
	u.session = nil
	u.tx = nil
	u.ownsTx = false
	u.journal.reset()
}

func (u *UnitOfWork) checkEntered(op string) error {
	switch u.state {
	case uowEntered:
		return nil
	case uowBroken:
		return &domain.InvalidStateError{Message: op + ": unit of work has no open transaction"}
	default:
		return &domain.InvalidStateError{Message: op + ": unit of work not entered"}
	}
}

// executor returns what stores should run statements on right now.
func (u *UnitOfWork) executor() (repositories.DBTX, error) {
	if err := u.checkEntered("query"); err != nil {
		return nil, err
	}
	if u.ownsTx {
		return u.tx, nil
	}
	return u.session, nil
}

// uowExecutor lets stores outlive the transaction they were built with:
// every call resolves the unit of work's current transaction.
type uowExecutor struct {
	u *UnitOfWork
}

func (e uowExecutor) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	db, err := e.u.executor()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return db.Exec(ctx, sql, args...)
}

func (e uowExecutor) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	db, err := e.u.executor()
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, sql, args...)
}

func (e uowExecutor) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	db, err := e.u.executor()
	if err != nil {
		return errRow{err}
	}
	return db.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...interface{}) error { return r.err }

var _ repositories.UnitOfWork = (*UnitOfWork)(nil)
