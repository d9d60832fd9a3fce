package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// FileSink appends entries as JSON lines to a rotated local file. Rotation
// keeps the audit trail bounded on hosts that run the checker for years.
type FileSink struct {
	mu sync.Mutex
	w  *lj.Logger
}

// FileOptions bound the rotated audit file. Zero values fall back to the
// defaults below.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func NewFileSink(path string, opts FileOptions) *FileSink {
	return &FileSink{
		w: &lj.Logger{
			Filename:   path,
			MaxSize:    valOr(opts.MaxSizeMB, 10),
			MaxBackups: valOr(opts.MaxBackups, 3),
			MaxAge:     valOr(opts.MaxAgeDays, 28),
			Compress:   opts.Compress,
		},
	}
}

func (s *FileSink) Write(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}

func valOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
