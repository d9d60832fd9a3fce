package client

import "time"

// Report mirrors the check report returned by /status and /check.
type Report struct {
	Outcome          string    `json:"outcome"`
	EventID          int       `json:"event_id"`
	NotificationSent bool      `json:"notification_sent"`
	Message          string    `json:"message"`
	CheckedAt        time.Time `json:"checked_at"`
	Result           *Result   `json:"result,omitempty"`
}

// Result mirrors the update details attached to a report.
type Result struct {
	Status              string    `json:"status"`
	FromVersion         string    `json:"from_version"`
	ToVersion           string    `json:"to_version"`
	UpdateTime          time.Time `json:"update_time"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	DurationSeconds     int64     `json:"duration_seconds"`
	Reason              string    `json:"reason,omitempty"`
	UpdateLogPath       string    `json:"update_log_path"`
	VersionConfirmed    bool      `json:"version_confirmed"`
	CompletionConfirmed bool      `json:"completion_confirmed"`
	OperationFound      bool      `json:"operation_found"`
}

// Run mirrors one persisted run returned by /runs and /runs/last.
type Run struct {
	RunID            string     `json:"run_id"`
	Server           string     `json:"server"`
	Outcome          string     `json:"outcome"`
	EventID          int        `json:"event_id"`
	FromVersion      string     `json:"from_version,omitempty"`
	ToVersion        string     `json:"to_version,omitempty"`
	UpdateTime       *time.Time `json:"update_time,omitempty"`
	DurationSeconds  *int64     `json:"duration_seconds,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
	CheckedAt        time.Time  `json:"checked_at"`
}

// RunsQuery filters the /runs listing. Zero values fall back to the server
// defaults (daemon's own server name, last 24h, limit 50).
type RunsQuery struct {
	Server string
	Since  time.Duration
	Limit  int
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
