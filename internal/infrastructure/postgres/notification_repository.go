package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"pushrelay/internal/domain/notification"
)

const dispatchSchema = `
	CREATE TABLE IF NOT EXISTS push_dispatches (
		id            UUID PRIMARY KEY,
		title         TEXT NOT NULL,
		body          TEXT NOT NULL,
		token_count   INTEGER NOT NULL,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		error         TEXT,
		error_kind    TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_push_dispatches_created_at ON push_dispatches (created_at DESC);
`

// DispatchRepository stores forwarding attempts in push_dispatches.
type DispatchRepository struct {
	db *DB
}

func NewDispatchRepository(db *DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

// EnsureSchema creates the history table if it does not exist yet.
func (r *DispatchRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, dispatchSchema); err != nil {
		return fmt.Errorf("failed to create push_dispatches table: %w", err)
	}
	return nil
}

// Record inserts one dispatch. A missing ID is generated.
func (r *DispatchRepository) Record(ctx context.Context, d notification.Dispatch) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	query := `
		INSERT INTO push_dispatches (id, title, body, token_count, success_count, failure_count, error, error_kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Title, d.Body, d.TokenCount, d.SuccessCount, d.FailureCount,
		nullString(d.Error), nullString(d.ErrorKind),
	)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}

	return nil
}

// ListRecent returns the newest dispatches first.
func (r *DispatchRepository) ListRecent(ctx context.Context, limit int) ([]*notification.Dispatch, error) {
	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT id, title, body, token_count, success_count, failure_count, error, error_kind, created_at
		FROM push_dispatches
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer rows.Close()

	var dispatches []*notification.Dispatch
	for rows.Next() {
		var d notification.Dispatch
		var errMsg, errKind sql.NullString

		if err := rows.Scan(&d.ID, &d.Title, &d.Body, &d.TokenCount, &d.SuccessCount, &d.FailureCount, &errMsg, &errKind, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		d.Error = errMsg.String
		d.ErrorKind = errKind.String

		dispatches = append(dispatches, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispatches: %w", err)
	}

	return dispatches, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
