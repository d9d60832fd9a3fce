package notify

import (
	"context"
	"errors"
)

// Notifier delivers one short status text to a chat destination. Transports
// are intentionally dumb: no retries, no queueing, no state. The caller has
// already written its checkpoint by the time Send runs, so a lost message is
// never re-sent for the same trigger.
type Notifier interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Multi fans a message out to several transports and reports every failure.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Name() string { return "multi" }

// Nop is the transport used when no notification target is configured.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }
func (Nop) Name() string                       { return "nop" }
