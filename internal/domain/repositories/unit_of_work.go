package repositories

import (
	"context"
	"errors"
)

// UnitOfWork scopes one logical transaction shared by every store it exposes.
//
// Lifecycle: Begin -> (store calls, Commit/Rollback any number of times) -> Close.
// Close must run on every exit path; pass the error that ended the scope so an
// owned transaction is rolled back.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context, cause error) error

	// OwnsTransaction is true when Begin started the physical transaction
	OwnsTransaction() bool

	Projects() ProjectRepository
	Notes() NoteRepository
	Keywords() KeywordRepository
	Sources() SourceRepository
	NoteLinks() NoteLinkRepository
}

// ErrReopenAfterCommit is returned by Commit when the transaction committed
// but the next one could not be opened. The committed work is durable; only
// the rest of the scope is lost.
var ErrReopenAfterCommit = errors.New("committed, but reopening the transaction failed")

// UnitOfWorkFactory creates a fresh, idle unit of work
type UnitOfWorkFactory func() UnitOfWork

// WorkFn runs inside an entered unit of work
type WorkFn func(ctx context.Context, uow UnitOfWork) error

// Run enters a fresh unit of work, runs fn, commits on success and closes on
// every path. A panic in fn rolls back and is re-raised.
func Run(ctx context.Context, factory UnitOfWorkFactory, fn WorkFn) (err error) {
	uow := factory()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Close(ctx, errPanic)
			panic(p)
		}
		err = uow.Close(ctx, err)
	}()

	if err = fn(ctx, uow); err != nil {
		return err
	}
	// the scope ends here, so a missing follow-up transaction is irrelevant
	if err = uow.Commit(ctx); errors.Is(err, ErrReopenAfterCommit) {
		err = nil
	}
	return err
}

type panicError struct{}

func (panicError) Error() string { return "panic in unit of work" }

var errPanic error = panicError{}
