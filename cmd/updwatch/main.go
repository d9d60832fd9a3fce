package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/updwatch"
	"github.com/spf13/cobra"
)

// exitFunc is replaced in tests to observe exit codes.
var exitFunc = os.Exit

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}

// buildRoot creates the root command and wires all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	checkFlags := &CheckFlags{}
	statusFlags := &StatusFlags{}
	runsFlags := &RunsFlags{}
	notifyFlags := &NotifyTestFlags{}
	initFlags := &InitFlags{}

	updwatchCommand := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createCheckCommand(updwatchCommand, globalFlags, checkFlags),
		createServeCommand(globalFlags),
		createStatusCommand(updwatchCommand, globalFlags, statusFlags),
		createRunsCommand(updwatchCommand, runsFlags),
		createCheckpointCommand(updwatchCommand, globalFlags),
		createNotifyTestCommand(updwatchCommand, globalFlags, notifyFlags),
		createInitCommand(updwatchCommand, initFlags),
		createTokenCommand(updwatchCommand, globalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "updwatch",
		Short: "Update detector for the ezvit reporting client",
		Long: `Updwatch scans the ezvit updater's logs for finished update attempts,
classifies each one as succeeded or failed and reports the verdict to the
configured notification transports and audit sink.

Examples:
  updwatch check --config updwatch.toml          # One-shot check (cron / Task Scheduler)
  updwatch serve updwatch.toml                   # Long-running daemon with HTTP API
  updwatch status --config updwatch.toml         # Local checkpoint and last run
  updwatch status --api-url http://host:8060     # Ask a running daemon
  updwatch init --type daemon --server branch-7  # Write a config scaffold`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")
	return root
}

// createCheckCommand creates the check subcommand
func createCheckCommand(updwatchCommand command, globalFlags *GlobalFlags, checkFlags *CheckFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one check and exit",
		Long: `Run a single check: scan the event log for a new update trigger, inspect
the per-day detail log, notify and record the verdict.

Exit codes:
  0  update succeeded, or no update found
  2  update detected but not confirmed successful
  1  the check itself could not complete

Examples:
  updwatch check --config updwatch.toml
  updwatch check --config updwatch.toml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := updwatchCommand.Check(globalFlags.ConfigPath, *checkFlags)
			if err != nil {
				return err
			}
			if code != 0 {
				exitFunc(code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkFlags.JSON, "json", false, "print the full report as JSON")
	return cmd
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Run checks on a schedule and expose the HTTP API",
		Long: `Run updwatch as a daemon: check on the configured [serve] schedule and
serve reports, run history and metrics over HTTP.

Examples:
  updwatch serve updwatch.toml
  updwatch serve --config updwatch.toml
  updwatch serve updwatch.toml --daemonize --pidfile updwatch.pid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}
	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run in the background")
	cmd.Flags().StringVar(&serveFlags.PidFile, "pidfile", "", "write the daemon PID to this file")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon output to this file")
	return cmd
}

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=updwatch.toml or provide as argument")
	}

	if flags.Daemonize {
		return daemonize(flags.PidFile, flags.LogFile)
	}

	c, err := updwatch.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	w, err := updwatch.New(c)
	if err != nil {
		return err
	}

	if err := updwatch.RegisterMetricsDefault(); err != nil {
		fmt.Printf("Warning: failed to register metrics: %v\n", err)
	}

	scheduler := w.NewScheduler()
	if err := scheduler.Start(); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	protocol := "HTTP"
	if c.Serve.CertFile != "" || (c.Serve.TLS != nil && c.Serve.TLS.Dir != "") {
		protocol = "HTTPS"
	}
	server, err := w.NewHTTPServer()
	if err != nil {
		scheduler.Stop()
		_ = w.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}
	fmt.Printf("Starting updwatch %s server on %s%s (schedule %s)\n", protocol, c.Serve.Listen, c.Serve.BasePath, c.Serve.Schedule)

	// First check right away so /status has a report before the first tick.
	_ = w.Check(context.Background())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	scheduler.Stop()
	err = server.Close()
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	_ = removePidFile(flags.PidFile)
	return err
}

// createStatusCommand creates the status subcommand
func createStatusCommand(updwatchCommand command, globalFlags *GlobalFlags, statusFlags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint and last check result",
		Long: `Show the state of a host: with --api-url, the last report of a running
daemon; otherwise the local checkpoint and the last persisted run.

Examples:
  updwatch status --config updwatch.toml
  updwatch status --api-url http://branch-7:8060
  updwatch status --api-url https://branch-7:8060 --insecure --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.Status(globalFlags.ConfigPath, *statusFlags)
		},
	}
	cmd.Flags().BoolVar(&statusFlags.JSON, "json", false, "print as JSON")
	cmd.Flags().StringVar(&statusFlags.APIUrl, "api-url", "", "running daemon URL (e.g. http://host:8060)")
	cmd.Flags().StringVar(&statusFlags.APIToken, "api-token", "", "bearer token for a daemon with [serve.auth]")
	cmd.Flags().DurationVar(&statusFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	cmd.Flags().BoolVar(&statusFlags.Insecure, "insecure", false, "skip TLS certificate verification")
	return cmd
}

// createRunsCommand creates the runs subcommand
func createRunsCommand(updwatchCommand command, runsFlags *RunsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent check runs from a daemon",
		Long: `List persisted check runs from a running daemon's history store.

Examples:
  updwatch runs --api-url http://branch-7:8060
  updwatch runs --api-url http://branch-7:8060 --since 72h --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.Runs(*runsFlags)
		},
	}
	cmd.Flags().StringVar(&runsFlags.Server, "server", "", "server name (defaults to the daemon's own)")
	cmd.Flags().DurationVar(&runsFlags.Since, "since", 24*time.Hour, "list runs newer than this age")
	cmd.Flags().IntVar(&runsFlags.Limit, "limit", 50, "maximum number of runs")
	cmd.Flags().BoolVar(&runsFlags.JSON, "json", false, "print as JSON")
	cmd.Flags().StringVar(&runsFlags.APIUrl, "api-url", "", "running daemon URL (e.g. http://host:8060)")
	cmd.Flags().StringVar(&runsFlags.APIToken, "api-token", "", "bearer token for a daemon with [serve.auth]")
	cmd.Flags().DurationVar(&runsFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	cmd.Flags().BoolVar(&runsFlags.Insecure, "insecure", false, "skip TLS certificate verification")
	return cmd
}

// createCheckpointCommand creates the checkpoint command with subcommands
func createCheckpointCommand(updwatchCommand command, globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset the scan checkpoint",
		Long: `The checkpoint marks how far the event log has been processed; the next
check stops scanning at entries older than it.

Examples:
  updwatch checkpoint show --config updwatch.toml
  updwatch checkpoint reset --config updwatch.toml`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the checkpoint value and file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.CheckpointShow(globalFlags.ConfigPath)
		},
	}
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Remove the checkpoint so the next check rescans everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.CheckpointReset(globalFlags.ConfigPath)
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

// createNotifyTestCommand creates the notify-test subcommand
func createNotifyTestCommand(updwatchCommand command, globalFlags *GlobalFlags, notifyFlags *NotifyTestFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification",
		Long: `Send a message through the configured notification transports to verify
tokens and connectivity.

Examples:
  updwatch notify-test --config updwatch.toml
  updwatch notify-test --config updwatch.toml --message "hello from branch-7"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.NotifyTest(globalFlags.ConfigPath, *notifyFlags)
		},
	}
	cmd.Flags().StringVar(&notifyFlags.Message, "message", "", "message text (default: a host-identifying test line)")
	return cmd
}

// createInitCommand creates the init subcommand
func createInitCommand(updwatchCommand command, initFlags *InitFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file scaffold",
		Long: `Generate a commented updwatch.toml to start from.

Template types: minimal, telegram, webhook, daemon, full.

Examples:
  updwatch init --server branch-7
  updwatch init --type daemon --server branch-7 -o /etc/updwatch/updwatch.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.Init(*initFlags)
		},
	}
	cmd.Flags().StringVar(&initFlags.Type, "type", "minimal", "template type")
	cmd.Flags().StringVar(&initFlags.Server, "server", "", "server name to embed")
	cmd.Flags().StringVarP(&initFlags.Output, "output", "o", "", "output path (default updwatch.toml)")
	cmd.Flags().BoolVar(&initFlags.Force, "force", false, "overwrite an existing file")
	return cmd
}

// createTokenCommand creates the token command with subcommands
func createTokenCommand(updwatchCommand command, globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
		Long: `Manage bearer tokens for a daemon guarded by [serve.auth].

issue mints a short-lived token signed with the configured jwt_secret.
hash prints a bcrypt hash of a static token for the token_hash key.

Examples:
  updwatch token issue --config updwatch.toml --subject ops --ttl 12h
  updwatch token hash s3cret`,
	}

	issueFlags := &TokenIssueFlags{}
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Mint a bearer token signed with the configured jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.TokenIssue(globalFlags.ConfigPath, *issueFlags)
		},
	}
	issue.Flags().StringVar(&issueFlags.Subject, "subject", "updwatch-cli", "token subject recorded in the claims")
	issue.Flags().DurationVar(&issueFlags.TTL, "ttl", 0, "token lifetime (default: serve.auth.jwt_ttl)")

	hash := &cobra.Command{
		Use:   "hash TOKEN",
		Short: "Print a bcrypt hash of TOKEN for serve.auth.token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updwatchCommand.TokenHash(args[0])
		},
	}

	cmd.AddCommand(issue, hash)
	return cmd
}
