package notify

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console prints the message to a local stream. Useful for dry runs and for
// hosts where the chat transport is not reachable.
type Console struct {
	Out io.Writer
}

func NewConsole() *Console { return &Console{Out: os.Stdout} }

func (c *Console) Name() string { return "console" }

func (c *Console) Send(_ context.Context, text string) error {
	prefix := color.New(color.FgCyan, color.Bold).Sprint("notify>")
	_, err := io.WriteString(c.Out, prefix+" "+text+"\n")
	return err
}
