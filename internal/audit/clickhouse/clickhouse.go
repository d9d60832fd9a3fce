package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/loykin/updwatch/internal/audit"
)

// Sink writes audit entries to a ClickHouse table over the native protocol.
// Sites that aggregate update events from many servers point every checker at
// the same table and query by server column.
type Sink struct {
	conn  driver.Conn
	table string
}

func New(addr, database, table string) (*Sink, error) {
	if database == "" {
		database = "default"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	s := &Sink{conn: conn, table: table}
	if err := s.EnsureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the audit table when it does not exist yet.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		time DateTime,
		severity String,
		event_id Int32,
		server String,
		message String
	) ENGINE = MergeTree() ORDER BY (server, time)`, s.table)
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create clickhouse audit table: %w", err)
	}
	return nil
}

func (s *Sink) Write(ctx context.Context, e audit.Entry) error {
	query := fmt.Sprintf(`INSERT INTO %s (time, severity, event_id, server, message) VALUES (?, ?, ?, ?, ?)`, s.table)
	err := s.conn.Exec(ctx, query,
		e.Time,
		string(e.Severity),
		int32(e.EventID),
		e.Server,
		e.Message,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry into clickhouse: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
