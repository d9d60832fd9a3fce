package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/loykin/updwatch"
	"github.com/loykin/updwatch/pkg/client"
	"github.com/loykin/updwatch/pkg/template"
)

// timeLayout is how timestamps are shown to operators, matching the watched
// logs' own day-first format.
const timeLayout = "02.01.2006 15:04:05"

type command struct{}

// loadWatcher builds a Watcher from --config, shared by the local commands.
func loadWatcher(configPath string) (*updwatch.Config, *updwatch.Watcher, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("config file required. Use --config=updwatch.toml")
	}
	c, err := updwatch.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	w, err := updwatch.New(c)
	if err != nil {
		return nil, nil, err
	}
	return c, w, nil
}

// Check runs one check and returns the process exit code for its outcome.
func (c command) Check(configPath string, f CheckFlags) (int, error) {
	_, w, err := loadWatcher(configPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = w.Close() }()

	rep := w.Check(context.Background())
	if f.JSON {
		printJSON(rep)
	} else {
		fmt.Printf("[%s] %s\n", rep.Outcome, rep.Message)
	}
	return rep.ExitCode(), nil
}

// Status shows a remote daemon's last report or the local checkpoint state.
func (c command) Status(configPath string, f StatusFlags) error {
	if f.APIUrl != "" {
		return c.statusViaAPI(f)
	}

	cfg, w, err := loadWatcher(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	fmt.Printf("server:      %s\n", cfg.Server)
	if t, ok := w.Checkpoint(); ok {
		fmt.Printf("checkpoint:  %s\n", t.Format(timeLayout))
	} else {
		fmt.Println("checkpoint:  none")
	}
	fmt.Printf("file:        %s\n", w.CheckpointPath())

	rec, err := w.LastRun(context.Background())
	if err != nil {
		return err
	}
	if rec != nil {
		line := fmt.Sprintf("last run:    [%s] at %s", rec.Outcome, rec.CheckedAt.Local().Format(timeLayout))
		if rec.FromVersion != "" {
			line += fmt.Sprintf(", %s -> %s", rec.FromVersion, rec.ToVersion)
		}
		if rec.Reason != "" {
			line += ", " + rec.Reason
		}
		fmt.Println(line)
	}
	return nil
}

// statusViaAPI asks a running daemon for its last report
func (c command) statusViaAPI(f StatusFlags) error {
	cl := client.New(client.Config{BaseURL: f.APIUrl, Token: f.APIToken, Timeout: f.APITimeout, Insecure: f.Insecure})
	rep, err := cl.Status(context.Background())
	if errors.Is(err, client.ErrNotFound) {
		fmt.Println("no check has run yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", f.APIUrl, err)
	}
	if f.JSON {
		printJSON(rep)
		return nil
	}
	fmt.Printf("[%s] %s\n", rep.Outcome, rep.Message)
	fmt.Printf("checked at:  %s\n", rep.CheckedAt.Local().Format(timeLayout))
	if rep.Result != nil {
		fmt.Printf("update:      %s -> %s at %s\n",
			rep.Result.FromVersion, rep.Result.ToVersion, rep.Result.UpdateTime.Local().Format(timeLayout))
	}
	return nil
}

// Runs lists persisted check runs from a running daemon.
func (c command) Runs(f RunsFlags) error {
	apiUrl := f.APIUrl
	if apiUrl == "" {
		apiUrl = "http://127.0.0.1:8060" // Default local daemon
	}
	cl := client.New(client.Config{BaseURL: apiUrl, Token: f.APIToken, Timeout: f.APITimeout, Insecure: f.Insecure})
	runs, err := cl.Runs(context.Background(), client.RunsQuery{Server: f.Server, Since: f.Since, Limit: f.Limit})
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiUrl, err)
	}
	if f.JSON {
		printJSON(runs)
		return nil
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  [%s]", r.CheckedAt.Local().Format(timeLayout), r.Outcome)
		if r.FromVersion != "" {
			line += fmt.Sprintf("  %s -> %s", r.FromVersion, r.ToVersion)
		}
		if r.Reason != "" {
			line += "  " + r.Reason
		}
		fmt.Println(line)
	}
	return nil
}

// CheckpointShow prints the checkpoint value and its file path.
func (c command) CheckpointShow(configPath string) error {
	cfg, w, err := loadWatcher(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	fmt.Printf("server:  %s\n", cfg.Server)
	fmt.Printf("file:    %s\n", w.CheckpointPath())
	if t, ok := w.Checkpoint(); ok {
		fmt.Printf("value:   %s\n", t.Format(timeLayout))
	} else {
		fmt.Println("value:   none")
	}
	return nil
}

// CheckpointReset removes the checkpoint file.
func (c command) CheckpointReset(configPath string) error {
	_, w, err := loadWatcher(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.ResetCheckpoint(); err != nil {
		return fmt.Errorf("failed to reset checkpoint: %w", err)
	}
	fmt.Println("Checkpoint removed; the next check rescans the whole event log.")
	return nil
}

// NotifyTest sends a test message through the configured transports.
func (c command) NotifyTest(configPath string, f NotifyTestFlags) error {
	cfg, w, err := loadWatcher(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	msg := f.Message
	if msg == "" {
		msg = fmt.Sprintf("updwatch test notification from %s", cfg.Server)
	}
	if err := w.NotifyTest(context.Background(), msg); err != nil {
		return fmt.Errorf("notification failed: %w", err)
	}
	fmt.Println("Notification sent.")
	return nil
}

// TokenIssue mints an API bearer token from the configured jwt_secret. The
// token goes to stdout so it can be captured; the expiry goes to stderr.
func (c command) TokenIssue(configPath string, f TokenIssueFlags) error {
	_, w, err := loadWatcher(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	token, expiresAt, err := w.IssueAPIToken(f.Subject, f.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	_, _ = fmt.Fprintf(os.Stderr, "Expires: %s\n", expiresAt.Format(timeLayout))
	return nil
}

// TokenHash prints a bcrypt hash for the serve.auth.token_hash key.
func (c command) TokenHash(token string) error {
	h, err := updwatch.HashAPIToken(token)
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}

// Init writes a config scaffold for the operator to edit.
func (c command) Init(f InitFlags) error {
	outputPath := f.Output
	if outputPath == "" {
		outputPath = "updwatch.toml"
	}

	if _, err := os.Stat(outputPath); err == nil && !f.Force {
		return fmt.Errorf("config file '%s' already exists (use --force to overwrite)", outputPath)
	}

	generator := template.NewGenerator()
	content, err := generator.GenerateTOML(template.TemplateType(f.Type), f.Server)
	if err != nil {
		return fmt.Errorf("failed to generate config template: %w", err)
	}

	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Config template created: %s\n", outputPath)
	fmt.Printf("Edit it and run: updwatch check --config %s\n", outputPath)
	return nil
}
