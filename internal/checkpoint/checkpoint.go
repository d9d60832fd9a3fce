package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Layout is the checkpoint file format: one line, local time.
const Layout = "02.01.2006 15:04:05"

// ErrCreateDir marks a failure to create the checkpoint directory. Callers
// report it separately from a plain write failure.
var ErrCreateDir = errors.New("create checkpoint directory")

// Store reads and writes the per-server checkpoint file. The file holds the
// single timestamp that bounds trigger scanning; losing it only costs a full
// rescan, so reads are deliberately forgiving while writes are strict.
type Store struct {
	Dir    string
	Server string
}

// Sanitize maps a server identifier onto a safe file name: every character
// outside [A-Za-z0-9-] becomes an underscore.
func Sanitize(server string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, server)
}

// Path returns the checkpoint file path for the store's server.
func (s Store) Path() string {
	return filepath.Join(s.Dir, Sanitize(s.Server)+".checkpoint")
}

// Load returns the stored timestamp. A missing file, unreadable file or
// unparsable content all mean "no checkpoint": scanning the whole log again
// is always safer than skipping an update.
func (s Store) Load() (time.Time, bool) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(string(data)), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Save writes the timestamp atomically: the content lands in a temp file in
// the same directory and is renamed over the target, so a concurrent Load
// never observes a partial write. The directory is created if needed.
func (s Store) Save(t time.Time) error {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("%w %s: %v", ErrCreateDir, s.Dir, err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(t.Format(Layout) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(name, s.Path()); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Reset removes the checkpoint file. Missing files are not an error.
func (s Store) Reset() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
