package logtime

import (
	"testing"
	"time"
)

func TestParseEventStamp(t *testing.T) {
	ts, rest, err := ParseEventStamp("23.10.2025 5:00:00 found update package ezvit.11.02.185-11.02.186.upd")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 10, 23, 5, 0, 0, 0, time.Local)
	if !ts.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", ts, want)
	}
	if rest != "found update package ezvit.11.02.185-11.02.186.upd" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestParseEventStampTwoDigitHour(t *testing.T) {
	ts, _, err := ParseEventStamp("01.01.2024 15:30:45 service restarted")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ts.Hour() != 15 || ts.Minute() != 30 || ts.Second() != 45 {
		t.Fatalf("got %v", ts)
	}
}

func TestParseEventStampRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"no stamp here",
		"2025-10-23 05:00:00 iso format",
		"23.10.25 5:00:00 two-digit year in event log",
		"32.13.2025 5:00:00 impossible date",
		"23.10.2025 25:00:00 impossible hour",
	}
	for _, line := range cases {
		if _, _, err := ParseEventStamp(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}

func TestParseDetailStamp(t *testing.T) {
	ts, rest, err := ParseDetailStamp("23.10.25 5:00:01.123 4856 INFO Update operation started")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 10, 23, 5, 0, 1, 0, time.Local)
	if !ts.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", ts, want)
	}
	if rest != "4856 INFO Update operation started" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestParseDetailStampWithoutMillis(t *testing.T) {
	ts, _, err := ParseDetailStamp("23.10.25 10:45:23 4856 INFO Update operation completed")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2025, 10, 23, 10, 45, 23, 0, time.Local)
	if !ts.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", ts, want)
	}
}

func TestParseDetailStampCenturyMapping(t *testing.T) {
	ts, _, err := ParseDetailStamp("01.02.99 0:00:00 1 INFO old-style year")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ts.Year() != 2099 {
		t.Fatalf("year = %d, want 2099", ts.Year())
	}
}

func TestParseDetailStampRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "INFO no stamp", "23.10.2025 5:00:00 four-digit year"} {
		if _, _, err := ParseDetailStamp(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}
