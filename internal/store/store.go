package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Record is one completed check run as persisted for history queries.
// RunID is unique per run. UpdateTime and DurationSeconds are null for runs
// that found no update or failed before reaching the detail log.
// CheckedAt should be in UTC.

type Record struct {
	ID               int64
	RunID            string
	Server           string
	Outcome          string
	EventID          int
	FromVersion      string
	ToVersion        string
	UpdateTime       sql.NullTime
	DurationSeconds  sql.NullInt64
	Reason           string
	NotificationSent bool
	CheckedAt        time.Time
}

// ErrNotFound is returned by LastRun when nothing has been recorded yet for
// the requested server.
var ErrNotFound = errors.New("no run recorded")

// Store persists check runs for history queries. Writes are best-effort from
// the checker's point of view and never influence a run's outcome.

type Store interface {
	EnsureSchema(ctx context.Context) error
	RecordRun(ctx context.Context, rec Record) error
	LastRun(ctx context.Context, server string) (Record, error)
	RunsSince(ctx context.Context, server string, since time.Time, limit int) ([]Record, error)
	Close() error
}
