package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushrelay/internal/domain/notification"
)

// recordingDriver is an in-memory database/sql driver that captures every
// statement and answers queries with canned rows.
type recordingDriver struct {
	mu       sync.Mutex
	stmts    []recordedStmt
	rows     [][]driver.Value
	queryErr error
	execErr  error
}

type recordedStmt struct {
	query string
	args  []driver.Value
}

func (d *recordingDriver) Connect(context.Context) (driver.Conn, error) {
	return &recordingConn{d: d}, nil
}

func (d *recordingDriver) Driver() driver.Driver { return d }

func (d *recordingDriver) Open(string) (driver.Conn, error) {
	return &recordingConn{d: d}, nil
}

func (d *recordingDriver) record(query string, args []driver.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stmts = append(d.stmts, recordedStmt{query: query, args: args})
}

type recordingConn struct{ d *recordingDriver }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{d: c.d, query: query}, nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

type recordingStmt struct {
	d     *recordingDriver
	query string
}

func (s *recordingStmt) Close() error { return nil }

func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.d.record(s.query, args)
	if s.d.execErr != nil {
		return nil, s.d.execErr
	}
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.d.record(s.query, args)
	if s.d.queryErr != nil {
		return nil, s.d.queryErr
	}
	return &cannedRows{rows: s.d.rows}, nil
}

type cannedRows struct {
	rows [][]driver.Value
	next int
}

func (r *cannedRows) Columns() []string {
	return []string{"id", "title", "body", "token_count", "success_count", "failure_count", "error", "error_kind", "created_at"}
}

func (r *cannedRows) Close() error { return nil }

func (r *cannedRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

func newRecordingRepo(t *testing.T) (*DispatchRepository, *recordingDriver) {
	t.Helper()
	drv := &recordingDriver{}
	sqlDB := sql.OpenDB(drv)
	t.Cleanup(func() { sqlDB.Close() })
	return NewDispatchRepository(&DB{sqlDB}), drv
}

func TestDispatchRepository_EnsureSchema(t *testing.T) {
	repo, drv := newRecordingRepo(t)

	require.NoError(t, repo.EnsureSchema(context.Background()))

	require.Len(t, drv.stmts, 1)
	assert.Contains(t, drv.stmts[0].query, "CREATE TABLE IF NOT EXISTS push_dispatches")
	assert.Contains(t, drv.stmts[0].query, "idx_push_dispatches_created_at")
}

func TestDispatchRepository_Record(t *testing.T) {
	t.Run("delivered dispatch stores NULL errors", func(t *testing.T) {
		repo, drv := newRecordingRepo(t)

		err := repo.Record(context.Background(), notification.Dispatch{
			Title:        "Hi",
			Body:         "There",
			TokenCount:   3,
			SuccessCount: 2,
			FailureCount: 1,
		})
		require.NoError(t, err)

		require.Len(t, drv.stmts, 1)
		args := drv.stmts[0].args
		require.Len(t, args, 8)

		id, ok := args[0].(string)
		require.True(t, ok)
		_, err = uuid.Parse(id)
		assert.NoError(t, err, "generated id must be a uuid")

		assert.Equal(t, []driver.Value{"Hi", "There", int64(3), int64(2), int64(1), nil, nil}, args[1:])
	})

	t.Run("failed dispatch keeps error and kind", func(t *testing.T) {
		repo, drv := newRecordingRepo(t)

		err := repo.Record(context.Background(), notification.Dispatch{
			ID:         "7f1c7c4e-6a53-4d3e-9a52-0d6f0f1f4b11",
			TokenCount: 1,
			Error:      "quota exceeded",
			ErrorKind:  "quota_exceeded",
		})
		require.NoError(t, err)

		args := drv.stmts[0].args
		assert.Equal(t, "7f1c7c4e-6a53-4d3e-9a52-0d6f0f1f4b11", args[0])
		assert.Equal(t, "quota exceeded", args[6])
		assert.Equal(t, "quota_exceeded", args[7])
	})

	t.Run("exec error is wrapped", func(t *testing.T) {
		repo, drv := newRecordingRepo(t)
		drv.execErr = errors.New("relation does not exist")

		err := repo.Record(context.Background(), notification.Dispatch{TokenCount: 1})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record dispatch")
		assert.ErrorIs(t, err, drv.execErr)
	})
}

func TestDispatchRepository_ListRecent(t *testing.T) {
	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("scans rows newest first", func(t *testing.T) {
		repo, drv := newRecordingRepo(t)
		drv.rows = [][]driver.Value{
			{"id-2", "Hi", "There", int64(2), int64(1), int64(1), nil, nil, created},
			{"id-1", "", "", int64(0), int64(0), int64(0), "tokens must not be nil or empty", "unknown", created.Add(-time.Minute)},
		}

		got, err := repo.ListRecent(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, &notification.Dispatch{
			ID: "id-2", Title: "Hi", Body: "There",
			TokenCount: 2, SuccessCount: 1, FailureCount: 1,
			CreatedAt: created,
		}, got[0])
		assert.Equal(t, "tokens must not be nil or empty", got[1].Error)
		assert.Equal(t, "unknown", got[1].ErrorKind)

		require.Len(t, drv.stmts, 1)
		assert.Contains(t, drv.stmts[0].query, "ORDER BY created_at DESC")
		assert.Equal(t, []driver.Value{int64(5)}, drv.stmts[0].args)
	})

	t.Run("non-positive limit falls back to 20", func(t *testing.T) {
		repo, drv := newRecordingRepo(t)

		got, err := repo.ListRecent(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, []driver.Value{int64(20)}, drv.stmts[0].args)
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		repo, drv := newRecordingRepo(t)
		drv.queryErr = errors.New("connection refused")

		_, err := repo.ListRecent(context.Background(), 10)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list dispatches")
	})
}
