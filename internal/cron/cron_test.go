package cron

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestParseEvery(t *testing.T) {
	if d, err := ParseEvery("@every 100ms"); err != nil || d != 100*time.Millisecond {
		t.Fatalf("parse every: %v %v", d, err)
	}
	if _, err := ParseEvery("* * * * *"); err == nil {
		t.Fatalf("expected error for unsupported cron expr")
	}
	if _, err := ParseEvery("every 1s"); err == nil { // missing '@'
		t.Fatalf("expected error for bad format")
	}
	if _, err := ParseEvery("@every -1s"); err == nil { // non-positive
		t.Fatalf("expected error for non-positive duration")
	}
	if _, err := ParseEvery("@every nonsense"); err == nil {
		t.Fatalf("expected error for unparsable duration")
	}
}

func TestSchedulerRuns(t *testing.T) {
	var runs atomic.Int64
	s := New("@every 20ms", func() { runs.Add(1) })
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runs.Load() >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected at least 2 runs, got %d", runs.Load())
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	var active atomic.Int64
	var overlapped atomic.Bool
	s := New("@every 10ms", func() {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(60 * time.Millisecond)
		active.Add(-1)
	})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	s.Stop()
	if overlapped.Load() {
		t.Fatal("ticks overlapped while a run was active")
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	s := New("@every 1s", func() {})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(); err == nil {
		t.Fatal("expected error on second start")
	}
}

func TestSchedulerStartValidation(t *testing.T) {
	if err := New("@every 1s", nil).Start(); err == nil {
		t.Fatal("expected error for nil run function")
	}
	if err := New("hourly", func() {}).Start(); err == nil {
		t.Fatal("expected error for bad schedule")
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	s := New("@every 1s", func() {})
	s.Stop() // before start, no panic
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
}
