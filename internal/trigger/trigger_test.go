package trigger

import (
	"regexp"
	"testing"
	"time"
)

func pat(t *testing.T) *regexp.Regexp {
	t.Helper()
	re, err := Compile(DefaultPattern)
	if err != nil {
		t.Fatalf("compile default pattern: %v", err)
	}
	return re
}

func TestCompileRejectsBadPatterns(t *testing.T) {
	if _, err := Compile("(unclosed"); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
	if _, err := Compile(`ezvit\.(\d+)-(\d+)\.upd`); err == nil {
		t.Fatal("expected error for pattern with two groups")
	}
}

func TestScanExtractsVersionsAndToken(t *testing.T) {
	lines := []string{
		"23.10.2025 4:59:00 checking for updates",
		"23.10.2025 5:00:00 downloading ezvit.11.02.185-11.02.186.upd",
	}
	ev := Scan(lines, time.Time{}, pat(t))
	if ev == nil {
		t.Fatal("expected trigger")
	}
	if ev.FromVersion != "11.02.185" || ev.ToVersion != "11.02.186" || ev.TargetToken != "186" {
		t.Fatalf("got from=%q to=%q token=%q", ev.FromVersion, ev.ToVersion, ev.TargetToken)
	}
	want := time.Date(2025, 10, 23, 5, 0, 0, 0, time.Local)
	if !ev.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", ev.Timestamp, want)
	}
}

func TestScanPrefersNewestTrigger(t *testing.T) {
	lines := []string{
		"01.10.2025 9:00:00 unpacking ezvit.11.02.184-11.02.185.upd",
		"23.10.2025 5:00:00 unpacking ezvit.11.02.185-11.02.186.upd",
	}
	ev := Scan(lines, time.Time{}, pat(t))
	if ev == nil || ev.ToVersion != "11.02.186" {
		t.Fatalf("got %+v, want newest trigger", ev)
	}
}

func TestScanCheckpointCutoff(t *testing.T) {
	lines := []string{
		"23.10.2025 5:00:00 unpacking ezvit.11.02.185-11.02.186.upd",
	}
	ts := time.Date(2025, 10, 23, 5, 0, 0, 0, time.Local)

	// A trigger exactly at the checkpoint is still eligible.
	if ev := Scan(lines, ts, pat(t)); ev == nil {
		t.Fatal("trigger equal to checkpoint must be eligible")
	}
	// One second past the trigger and it is consumed.
	if ev := Scan(lines, ts.Add(time.Second), pat(t)); ev != nil {
		t.Fatalf("trigger older than checkpoint must be ignored, got %+v", ev)
	}
}

func TestScanStopsAtFirstOldLine(t *testing.T) {
	// The newest line is older than the checkpoint, so the scan must stop
	// there and never reach the (even older) trigger below it.
	lines := []string{
		"22.10.2025 8:00:00 unpacking ezvit.11.02.184-11.02.185.upd",
		"22.10.2025 9:00:00 routine maintenance",
	}
	since := time.Date(2025, 10, 23, 0, 0, 0, 0, time.Local)
	if ev := Scan(lines, since, pat(t)); ev != nil {
		t.Fatalf("expected no trigger, got %+v", ev)
	}
}

func TestScanSkipsUnparseableLines(t *testing.T) {
	lines := []string{
		"23.10.2025 5:00:00 unpacking ezvit.11.02.185-11.02.186.upd",
		"--- log rotated ---",
		"garbage trailing line",
	}
	ev := Scan(lines, time.Time{}, pat(t))
	if ev == nil || ev.ToVersion != "11.02.186" {
		t.Fatalf("got %+v", ev)
	}
}

func TestScanNoTrigger(t *testing.T) {
	lines := []string{
		"23.10.2025 5:00:00 routine maintenance",
		"23.10.2025 6:00:00 backup completed",
	}
	if ev := Scan(lines, time.Time{}, pat(t)); ev != nil {
		t.Fatalf("expected nil, got %+v", ev)
	}
	if ev := Scan(nil, time.Time{}, pat(t)); ev != nil {
		t.Fatalf("expected nil for empty input, got %+v", ev)
	}
}

func TestScanMultiComponentVersions(t *testing.T) {
	lines := []string{
		"23.10.2025 5:00:00 unpacking ezvit.4.50.99.1-4.50.100.2.upd",
	}
	ev := Scan(lines, time.Time{}, pat(t))
	if ev == nil {
		t.Fatal("expected trigger")
	}
	if ev.FromVersion != "4.50.99.1" || ev.ToVersion != "4.50.100.2" || ev.TargetToken != "2" {
		t.Fatalf("got from=%q to=%q token=%q", ev.FromVersion, ev.ToVersion, ev.TargetToken)
	}
}
