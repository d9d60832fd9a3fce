package factory

import (
	"errors"
	"net/url"
	"strings"

	"github.com/loykin/updwatch/internal/audit"
	"github.com/loykin/updwatch/internal/audit/clickhouse"
	"github.com/loykin/updwatch/internal/audit/opensearch"
)

// NewSinkFromDSN creates an audit sink based on DSN format.
// Supported formats:
//   - "" (empty) — discard entries
//   - "clickhouse://host:port?database=db&table=table"
//   - "opensearch://host:port/index" (add ?tls=true for https)
//   - "file:///path/to/audit.log"
//   - "/path/to/audit.log" (defaults to the file sink)
func NewSinkFromDSN(dsn string, fileOpts audit.FileOptions) (audit.Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return audit.Nop{}, nil
	}

	lower := strings.ToLower(dsn)

	if strings.HasPrefix(lower, "clickhouse://") {
		return parseClickHouseDSN(dsn)
	}

	if strings.HasPrefix(lower, "opensearch://") || strings.HasPrefix(lower, "elasticsearch://") {
		return parseOpenSearchDSN(dsn)
	}

	if strings.HasPrefix(lower, "file://") {
		return audit.NewFileSink(strings.TrimPrefix(dsn, "file://"), fileOpts), nil
	}

	if !strings.Contains(dsn, "://") {
		return audit.NewFileSink(dsn, fileOpts), nil
	}

	return nil, errors.New("unsupported audit DSN format: " + dsn)
}

func parseClickHouseDSN(dsn string) (audit.Sink, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	host := u.Host
	if host == "" {
		host = "localhost:9000" // default ClickHouse native port
	}

	q := u.Query()
	table := q.Get("table")
	if table == "" {
		table = "update_audit"
	}

	return clickhouse.New(host, q.Get("database"), table)
}

func parseOpenSearchDSN(dsn string) (audit.Sink, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	// The DSN scheme only selects the sink type; the actual transport is
	// plain HTTP unless tls=true.
	scheme := "http"
	if u.Query().Get("tls") == "true" {
		scheme = "https"
	}
	baseURL := scheme + "://" + u.Host

	index := strings.Trim(u.Path, "/")
	if index == "" {
		index = "update-audit"
	}

	return opensearch.New(baseURL, index), nil
}
