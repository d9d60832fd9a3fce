package logger

import (
	"context"
	"io"
	"log/slog"

	"github.com/fatih/color"
)

// ColorTextHandler wraps slog.TextHandler and colors the level tag so
// failures stand out when the checker runs interactively.
type ColorTextHandler struct {
	*slog.TextHandler
	showTime bool
}

var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.FgCyan),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed),
}

// NewColorTextHandler creates a new ColorTextHandler
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	return &ColorTextHandler{
		TextHandler: slog.NewTextHandler(w, opts),
		showTime:    showTime,
	}
}

// Handle implements slog.Handler
func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if c, ok := levelColors[r.Level]; ok {
		r.Message = c.Sprint(r.Level.String()) + "  " + r.Message
	} else {
		r.Message = r.Level.String() + "  " + r.Message
	}
	return h.TextHandler.Handle(ctx, r)
}
