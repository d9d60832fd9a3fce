package oplog

import (
	"time"

	"github.com/loykin/updwatch/internal/logtime"
)

// Duration is the elapsed time of an update attempt, taken from the first and
// last timestamped lines of its detail log. Valid is false when the log has no
// timestamped lines at all.
type Duration struct {
	Start   time.Time
	End     time.Time
	Seconds int64
	Valid   bool
}

// MeasureDuration scans lines once, front to back. The first line with a
// parseable detail timestamp sets Start, every later one moves End. Lines
// without a timestamp (stack traces, wrapped output) are skipped.
func MeasureDuration(lines []string) Duration {
	var d Duration
	for _, line := range lines {
		ts, _, err := logtime.ParseDetailStamp(line)
		if err != nil {
			continue
		}
		if !d.Valid {
			d.Start = ts
			d.Valid = true
		}
		d.End = ts
	}
	if d.Valid {
		d.Seconds = int64(d.End.Sub(d.Start) / time.Second)
	}
	return d
}
