package audit

import (
	"context"
	"errors"
	"time"
)

// Severity classifies an audit entry for the operator-facing event stream.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Entry is one structured audit record describing the outcome of a check run.
// EventID carries the numeric wire code used by the installed monitoring; the
// rest of the program reasons about typed outcomes and error kinds, the code
// appears only here.
type Entry struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	EventID  int       `json:"event_id"`
	Server   string    `json:"server"`
	Message  string    `json:"message"`
}

// Sink records audit entries in an external system. Writes are best-effort
// from the caller's point of view: a failed write degrades to a warning and
// never aborts a check run. Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// Nop discards all entries. Used when no audit destination is configured.
type Nop struct{}

func (Nop) Write(context.Context, Entry) error { return nil }
func (Nop) Close() error                       { return nil }

// Multi duplicates entries across several sinks and reports every failure.
type Multi []Sink

func (m Multi) Write(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
