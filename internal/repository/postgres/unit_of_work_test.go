package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkm/internal/cache"
	"pkm/internal/domain"
	"pkm/internal/domain/repositories"
)

// fakeTx records what the unit of work does with it. Methods a unit of work
// never calls are left to the embedded nil interface.
type fakeTx struct {
	pgx.Tx

	committed   bool
	rolledBack  bool
	commitErr   error
	rollbackErr error
	execs       []string
}

func (t *fakeTx) Commit(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return t.rollbackErr
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

type fakeSession struct {
	inTx      bool
	txs       []*fakeTx
	beginErrs []error // consumed per Begin call; nil entries succeed
	released  int
	execs     []string
}

func (s *fakeSession) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, sql)
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (s *fakeSession) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeSession) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return errRow{errors.New("not implemented")}
}

func (s *fakeSession) InTransaction() bool { return s.inTx }

func (s *fakeSession) Begin(context.Context) (pgx.Tx, error) {
	if len(s.beginErrs) > 0 {
		err := s.beginErrs[0]
		s.beginErrs = s.beginErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	tx := &fakeTx{}
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *fakeSession) Release() { s.released++ }

func (s *fakeSession) current() *fakeTx { return s.txs[len(s.txs)-1] }

func testConfig() *RepositoryConfig {
	return &RepositoryConfig{
		Tables: NewTableNames("test_"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache:  cache.NewMemory(64, time.Minute),
	}
}

func newTestUnitOfWork(session *fakeSession) *UnitOfWork {
	return NewUnitOfWork(testConfig(), func(context.Context) (Session, error) { return session, nil })
}

const projectID = "7f1d2c4e-0000-4000-8000-000000000001"

func TestUnitOfWork_BeginOwnsTransaction(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)

	require.NoError(t, uow.Begin(context.Background()))
	assert.True(t, uow.OwnsTransaction())
	assert.Len(t, session.txs, 1)
}

func TestUnitOfWork_BeginTwice(t *testing.T) {
	uow := newTestUnitOfWork(&fakeSession{})
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	err := uow.Begin(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestUnitOfWork_BeginFailureReleasesSession(t *testing.T) {
	boom := errors.New("connection refused")
	session := &fakeSession{beginErrs: []error{boom}}
	uow := newTestUnitOfWork(session)

	err := uow.Begin(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 1, session.released)

	// still idle
	assert.ErrorIs(t, uow.Commit(context.Background()), domain.ErrInvalidState)
}

func TestUnitOfWork_CommitReopens(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	first := session.current()

	require.NoError(t, uow.Commit(ctx))
	assert.True(t, first.committed)
	require.Len(t, session.txs, 2)

	// stores follow the new transaction
	_, err := uow.Notes().DetachProject(ctx, projectID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, first.execs)
	assert.Len(t, session.current().execs, 1)
}

func TestUnitOfWork_RollbackReopens(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	first := session.current()

	require.NoError(t, uow.Rollback(ctx))
	assert.True(t, first.rolledBack)
	assert.False(t, first.committed)
	require.Len(t, session.txs, 2)

	require.NoError(t, uow.Commit(ctx))
	assert.True(t, session.txs[1].committed)
}

func TestUnitOfWork_OperationsOutsideScope(t *testing.T) {
	uow := newTestUnitOfWork(&fakeSession{})
	ctx := context.Background()

	assert.ErrorIs(t, uow.Commit(ctx), domain.ErrInvalidState)
	assert.ErrorIs(t, uow.Rollback(ctx), domain.ErrInvalidState)

	_, err := uow.Notes().DetachProject(ctx, projectID, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = uow.Projects().GetByID(ctx, projectID, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Close on an idle unit of work just hands back the cause
	assert.NoError(t, uow.Close(ctx, nil))
}

func TestUnitOfWork_CloseWithErrorRollsBack(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	tx := session.current()

	cause := errors.New("use case failed")
	err := uow.Close(ctx, cause)
	assert.Equal(t, cause, err, "the original error is returned unchanged")
	assert.True(t, tx.rolledBack)
	assert.Equal(t, 1, session.released)

	// back to idle, can be entered again
	assert.ErrorIs(t, uow.Commit(ctx), domain.ErrInvalidState)
	require.NoError(t, uow.Begin(ctx))
}

func TestUnitOfWork_CloseRollsBackTrailingTransaction(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.Commit(ctx))
	trailing := session.current()

	require.NoError(t, uow.Close(ctx, nil))
	assert.True(t, session.txs[0].committed)
	assert.True(t, trailing.rolledBack)
	assert.False(t, trailing.committed)
	assert.Equal(t, 1, session.released)
}

func TestUnitOfWork_CloseDoesNotMaskCause(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	rbErr := errors.New("rollback failed")
	session.current().rollbackErr = rbErr

	cause := errors.New("use case failed")
	err := uow.Close(ctx, cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, rbErr)
	assert.Equal(t, 1, session.released)
}

func TestUnitOfWork_CommitErrorIsReported(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	commitErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	session.current().commitErr = commitErr

	err := uow.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrency)
	assert.ErrorIs(t, err, commitErr)

	// scope stays usable
	require.Len(t, session.txs, 2)
	require.NoError(t, uow.Commit(ctx))
}

func TestUnitOfWork_ReopenFailureBreaksScope(t *testing.T) {
	boom := errors.New("server closed the connection")
	session := &fakeSession{beginErrs: []error{nil, boom}}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	err := uow.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, repositories.ErrReopenAfterCommit)
	assert.True(t, session.txs[0].committed)

	assert.ErrorIs(t, uow.Commit(ctx), domain.ErrInvalidState)
	_, err = uow.Notes().DetachProject(ctx, projectID, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.NoError(t, uow.Close(ctx, nil))
	assert.Equal(t, 1, session.released)
}

func TestUnitOfWork_Nested(t *testing.T) {
	session := &fakeSession{inTx: true}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	assert.False(t, uow.OwnsTransaction())
	assert.Empty(t, session.txs, "nested unit of work must not begin")

	_, err := uow.Notes().DetachProject(ctx, projectID, "user-1")
	require.NoError(t, err)
	assert.Len(t, session.execs, 1, "statements run on the caller's transaction")

	require.NoError(t, uow.Commit(ctx))
	require.NoError(t, uow.Rollback(ctx))
	assert.Empty(t, session.txs)

	cause := errors.New("boom")
	assert.Equal(t, cause, uow.Close(ctx, cause))
	assert.Empty(t, session.txs, "caller's transaction is left alone")
	assert.Equal(t, 1, session.released)
}

func TestUnitOfWork_CloseReleasesSessionReportingTransaction(t *testing.T) {
	// a pooled connection that came back mid-transaction must still be returned
	session := &fakeSession{inTx: true}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.Close(ctx, nil))
	assert.Equal(t, 1, session.released)

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.Close(ctx, errors.New("boom")))
	assert.Equal(t, 2, session.released)
}

func TestUnitOfWork_NestedCloseDropsCachedKeys(t *testing.T) {
	session := &fakeSession{inTx: true}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()
	c := uow.cfg.Cache

	require.NoError(t, uow.Begin(ctx))
	key := projectCacheKey("user-1", projectID, true)
	require.NoError(t, c.Set(ctx, key, []byte("{}"), 0))
	uow.journal.record(key)
	require.NoError(t, uow.Commit(ctx))

	require.NoError(t, uow.Close(ctx, nil))
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "the owning transaction has not committed yet")
}

func TestUnitOfWork_RollbackDiscardsCachedKeys(t *testing.T) {
	session := &fakeSession{}
	uow := newTestUnitOfWork(session)
	ctx := context.Background()
	c := uow.cfg.Cache

	require.NoError(t, uow.Begin(ctx))

	committedKey := projectCacheKey("user-1", projectID, false)
	require.NoError(t, c.Set(ctx, committedKey, []byte("{}"), 0))
	uow.journal.record(committedKey)
	require.NoError(t, uow.Commit(ctx))

	uncommittedKey := projectCacheKey("user-1", projectID, true)
	require.NoError(t, c.Set(ctx, uncommittedKey, []byte("{}"), 0))
	uow.journal.record(uncommittedKey)
	require.NoError(t, uow.Rollback(ctx))

	_, ok, _ := c.Get(ctx, committedKey)
	assert.True(t, ok, "keys cached before commit survive")
	_, ok, _ = c.Get(ctx, uncommittedKey)
	assert.False(t, ok, "keys cached in a rolled back transaction are dropped")
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		session := &fakeSession{}
		factory := func() repositories.UnitOfWork { return newTestUnitOfWork(session) }

		err := repositories.Run(ctx, factory, func(ctx context.Context, uow repositories.UnitOfWork) error {
			return nil
		})
		require.NoError(t, err)
		assert.True(t, session.txs[0].committed)
		assert.True(t, session.current().rolledBack, "trailing transaction is closed")
		assert.Equal(t, 1, session.released)
	})

	t.Run("succeeds when only the reopen after commit fails", func(t *testing.T) {
		session := &fakeSession{beginErrs: []error{nil, errors.New("connection reset")}}
		factory := func() repositories.UnitOfWork { return newTestUnitOfWork(session) }

		err := repositories.Run(ctx, factory, func(ctx context.Context, uow repositories.UnitOfWork) error {
			return nil
		})
		require.NoError(t, err)
		require.Len(t, session.txs, 1)
		assert.True(t, session.txs[0].committed)
		assert.Equal(t, 1, session.released)
	})

	t.Run("reports a failed commit", func(t *testing.T) {
		session := &fakeSession{}
		factory := func() repositories.UnitOfWork { return newTestUnitOfWork(session) }
		boom := errors.New("serialization failure")

		err := repositories.Run(ctx, factory, func(ctx context.Context, uow repositories.UnitOfWork) error {
			session.current().commitErr = boom
			return nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, repositories.ErrReopenAfterCommit)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		session := &fakeSession{}
		factory := func() repositories.UnitOfWork { return newTestUnitOfWork(session) }
		want := errors.New("nope")

		err := repositories.Run(ctx, factory, func(ctx context.Context, uow repositories.UnitOfWork) error {
			return want
		})
		assert.Equal(t, want, err)
		require.Len(t, session.txs, 1)
		assert.True(t, session.txs[0].rolledBack)
		assert.False(t, session.txs[0].committed)
		assert.Equal(t, 1, session.released)
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		session := &fakeSession{}
		factory := func() repositories.UnitOfWork { return newTestUnitOfWork(session) }

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = repositories.Run(ctx, factory, func(ctx context.Context, uow repositories.UnitOfWork) error {
				panic("kaboom")
			})
		})
		assert.True(t, session.txs[0].rolledBack)
		assert.Equal(t, 1, session.released)
	})
}
