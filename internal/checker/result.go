package checker

import (
	"time"

	"github.com/loykin/updwatch/internal/oplog"
)

// Outcome is the public four-valued verdict of one check run.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeNoUpdate     Outcome = "no-update"
	OutcomeUpdateFailed Outcome = "update-failed"
	OutcomeError        Outcome = "error"
)

// ExitCode maps an outcome to the process exit code. External tooling depends
// on this table staying stable.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSuccess, OutcomeNoUpdate:
		return 0
	case OutcomeUpdateFailed:
		return 2
	default:
		return 1
	}
}

// Result describes one detected update attempt. It is built once per run and
// not mutated afterwards. StartTime and EndTime are zero when the detail log
// had no timestamped lines; DurationSeconds is meaningful only when StartTime
// is set.
type Result struct {
	Status              oplog.Status `json:"status"`
	FromVersion         string       `json:"from_version"`
	ToVersion           string       `json:"to_version"`
	UpdateTime          time.Time    `json:"update_time"`
	StartTime           time.Time    `json:"start_time"`
	EndTime             time.Time    `json:"end_time"`
	DurationSeconds     int64        `json:"duration_seconds"`
	Reason              string       `json:"reason,omitempty"`
	UpdateLogPath       string       `json:"update_log_path"`
	VersionConfirmed    bool         `json:"version_confirmed"`
	CompletionConfirmed bool         `json:"completion_confirmed"`
	OperationFound      bool         `json:"operation_found"`

	kind ErrorKind
}

// Report is what one Run returns: the outcome, the wire event id written to
// the audit sink, whether a notification went out, and the update details when
// a trigger was found. Message is the notification text for detected updates
// and the error text otherwise.
type Report struct {
	Outcome          Outcome   `json:"outcome"`
	EventID          int       `json:"event_id"`
	NotificationSent bool      `json:"notification_sent"`
	Message          string    `json:"message"`
	CheckedAt        time.Time `json:"checked_at"`
	Result           *Result   `json:"result,omitempty"`
}

func (r *Report) ExitCode() int { return r.Outcome.ExitCode() }
