package logtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The third-party updater writes two timestamp shapes. Event-log lines carry a
// 4-digit year and may use a single-digit hour ("23.10.2025 5:00:00"); detail-log
// lines carry a 2-digit year and optional milliseconds ("23.10.25 5:00:01.123").
// Neither fits a single time.Parse layout (Go layouts cannot express a 1-2 digit
// 24h hour), so both parsers capture fields and compose the time directly.
// Timestamps are wall-clock local time; all comparisons happen between values
// produced here, so the zone only has to be consistent.

var (
	eventStampRe  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4}) (\d{1,2}):(\d{2}):(\d{2})`)
	detailStampRe = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{2}) (\d{1,2}):(\d{2}):(\d{2})(\.\d{1,3})?`)
)

// ParseEventStamp parses the leading "DD.MM.YYYY H:MM:SS" timestamp of an
// event-log line and returns it together with the remainder of the line.
func ParseEventStamp(line string) (time.Time, string, error) {
	m := eventStampRe.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, "", fmt.Errorf("no event timestamp in %q", truncate(line))
	}
	t, err := compose(m[3], m[2], m[1], m[4], m[5], m[6])
	if err != nil {
		return time.Time{}, "", err
	}
	return t, strings.TrimLeft(line[len(m[0]):], " \t"), nil
}

// ParseDetailStamp parses the leading "DD.MM.YY H:MM:SS[.mmm]" timestamp of a
// detail-log line. Milliseconds are parsed away and discarded. Two-digit years
// map to 2000+YY; these logs postdate the year 2000.
func ParseDetailStamp(line string) (time.Time, string, error) {
	m := detailStampRe.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, "", fmt.Errorf("no detail timestamp in %q", truncate(line))
	}
	yy, _ := strconv.Atoi(m[3])
	t, err := compose(strconv.Itoa(2000+yy), m[2], m[1], m[4], m[5], m[6])
	if err != nil {
		return time.Time{}, "", err
	}
	return t, strings.TrimLeft(line[len(m[0]):], " \t"), nil
}

// compose builds a local-time value from captured fields and rejects
// out-of-range components instead of letting time.Date normalize them
// (a "32.13.2025" line must be skipped, not silently shifted).
func compose(year, month, day, hour, minute, sec string) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)
	s, _ := strconv.Atoi(sec)
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, time.Local)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d || t.Hour() != h || t.Minute() != mi || t.Second() != s {
		return time.Time{}, fmt.Errorf("timestamp %s.%s.%s %s:%s:%s out of range", day, month, year, hour, minute, sec)
	}
	return t, nil
}

func truncate(line string) string {
	if len(line) > 40 {
		return line[:40] + "..."
	}
	return line
}
