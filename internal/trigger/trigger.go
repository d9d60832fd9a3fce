package trigger

import (
	"fmt"
	"regexp"
	"time"

	"github.com/loykin/updwatch/internal/logtime"
)

// DefaultPattern matches the update package name the vendor tooling drops into
// the event log, e.g. "ezvit.11.02.185-11.02.186.upd". Capture groups are, in
// order: the full source version, the full target version and the last numeric
// component of the target version.
const DefaultPattern = `ezvit\.((?:\d+\.)+\d+)-((?:\d+\.)+(\d+))\.upd`

// Event is one detected update trigger from the event log.
type Event struct {
	Timestamp   time.Time
	FromVersion string
	ToVersion   string
	TargetToken string
}

// Compile validates a trigger pattern. The pattern must compile and carry at
// least three capture groups (source version, target version, target token).
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile trigger pattern: %w", err)
	}
	if re.NumSubexp() < 3 {
		return nil, fmt.Errorf("trigger pattern needs 3 capture groups (from, to, token), has %d", re.NumSubexp())
	}
	return re, nil
}

// Scan walks lines from newest to oldest and returns the most recent trigger
// whose timestamp is at or after since. A zero since means no checkpoint
// exists and every line is eligible. Lines without a parseable timestamp are
// skipped; the scan stops at the first line older than since, so one pass over
// the tail is enough. Returns nil when no eligible trigger exists.
func Scan(lines []string, since time.Time, pattern *regexp.Regexp) *Event {
	for i := len(lines) - 1; i >= 0; i-- {
		ts, rest, err := logtime.ParseEventStamp(lines[i])
		if err != nil {
			continue
		}
		if !since.IsZero() && ts.Before(since) {
			return nil
		}
		m := pattern.FindStringSubmatch(rest)
		if m == nil || len(m) < 4 {
			continue
		}
		return &Event{
			Timestamp:   ts,
			FromVersion: m[1],
			ToVersion:   m[2],
			TargetToken: m[3],
		}
	}
	return nil
}
