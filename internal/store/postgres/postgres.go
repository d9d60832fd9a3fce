package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/updwatch/internal/store"
)

// DB implements store.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS update_runs(
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			server TEXT NOT NULL,
			outcome TEXT NOT NULL,
			event_id INTEGER NOT NULL,
			from_version TEXT NOT NULL,
			to_version TEXT NOT NULL,
			update_time TIMESTAMPTZ NULL,
			duration_seconds BIGINT NULL,
			reason TEXT NOT NULL,
			notification_sent BOOLEAN NOT NULL,
			checked_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_update_runs_server ON update_runs(server);`,
		`CREATE INDEX IF NOT EXISTS idx_update_runs_checked_at ON update_runs(checked_at);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) RecordRun(ctx context.Context, rec store.Record) error {
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now().UTC()
	}
	var updateTime any
	if rec.UpdateTime.Valid {
		updateTime = rec.UpdateTime.Time.UTC()
	}
	var duration any
	if rec.DurationSeconds.Valid {
		duration = rec.DurationSeconds.Int64
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO update_runs(run_id, server, outcome, event_id, from_version, to_version, update_time, duration_seconds, reason, notification_sent, checked_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`,
		rec.RunID, rec.Server, rec.Outcome, rec.EventID, rec.FromVersion, rec.ToVersion,
		updateTime, duration, rec.Reason, rec.NotificationSent, rec.CheckedAt.UTC())
	return err
}

func (p *DB) LastRun(ctx context.Context, server string) (store.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, run_id, server, outcome, event_id, from_version, to_version, update_time, duration_seconds, reason, notification_sent, checked_at
		FROM update_runs
		WHERE server=$1
		ORDER BY checked_at DESC, id DESC
		LIMIT 1;`, server)
	if err != nil {
		return store.Record{}, err
	}
	defer func() { _ = rows.Close() }()
	recs, err := scanRecords(rows)
	if err != nil {
		return store.Record{}, err
	}
	if len(recs) == 0 {
		return store.Record{}, store.ErrNotFound
	}
	return recs[0], nil
}

func (p *DB) RunsSince(ctx context.Context, server string, since time.Time, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, run_id, server, outcome, event_id, from_version, to_version, update_time, duration_seconds, reason, notification_sent, checked_at
		FROM update_runs
		WHERE server=$1 AND checked_at >= $2
		ORDER BY checked_at DESC, id DESC
		LIMIT $3;`, server, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]store.Record, error) {
	out := make([]store.Record, 0)
	for rows.Next() {
		var r store.Record
		if err := rows.Scan(&r.ID, &r.RunID, &r.Server, &r.Outcome, &r.EventID, &r.FromVersion, &r.ToVersion,
			&r.UpdateTime, &r.DurationSeconds, &r.Reason, &r.NotificationSent, &r.CheckedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
