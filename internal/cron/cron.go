package cron

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ParseEvery parses schedules of the form "@every <duration>" (e.g. "@every 15m").
func ParseEvery(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "@every ") {
		return 0, fmt.Errorf("unsupported schedule: %s (only @every <duration> supported)", expr)
	}
	durStr := strings.TrimSpace(strings.TrimPrefix(expr, "@every "))
	d, err := time.ParseDuration(durStr)
	if err != nil {
		return 0, fmt.Errorf("invalid @every duration: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("@every duration must be > 0")
	}
	return d, nil
}

// Scheduler fires one function on a fixed period. A tick is skipped while the
// previous run is still active, so overlapping checks never race on the
// checkpoint file.
//
// Use Start to launch the background ticker, and Stop to cancel it.

type Scheduler struct {
	schedule string
	run      func()

	quit    chan struct{}
	running atomic.Bool
}

func New(schedule string, run func()) *Scheduler {
	return &Scheduler{schedule: schedule, run: run}
}

// Start launches the tick loop. Call Stop to cancel.
func (s *Scheduler) Start() error {
	if s.quit != nil {
		return errors.New("scheduler already started")
	}
	if s.run == nil {
		return errors.New("scheduler requires a run function")
	}
	d, err := ParseEvery(s.schedule)
	if err != nil {
		return err
	}
	s.quit = make(chan struct{})
	go s.loop(d)
	return nil
}

func (s *Scheduler) loop(period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-t.C:
			// attempt to mark running; if already true, skip this tick
			if !s.running.CompareAndSwap(false, true) {
				continue
			}
			// run in a separate goroutine so a slow check never blocks the ticker
			go func() {
				defer s.running.Store(false)
				s.run()
			}()
		}
	}
}

// Stop cancels the loop.
func (s *Scheduler) Stop() {
	if s.quit == nil {
		return
	}
	// Close once; leaving channel non-nil avoids racy nil assignment observed by goroutines.
	select {
	case <-s.quit:
		// already closed
	default:
		close(s.quit)
	}
}
