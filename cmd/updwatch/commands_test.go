package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigFixture lays out a logs directory with an event log and a config
// pointing at it. Returns the config path and the logs directory.
func writeConfigFixture(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logsDir, "ezvit.log"), []byte("23.10.2025 4:59:59 session heartbeat\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	content := fmt.Sprintf("server = \"branch-7\"\n\n[logs]\ndir = %q\nencoding = \"utf-8\"\n%s", logsDir, extra)
	cfgPath := filepath.Join(dir, "updwatch.toml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, logsDir
}

func TestCheckCommandNoUpdate(t *testing.T) {
	cfgPath, _ := writeConfigFixture(t, "")
	code, err := command{}.Check(cfgPath, CheckFlags{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestCheckCommandFailedUpdateExitCode(t *testing.T) {
	cfgPath, logsDir := writeConfigFixture(t, "")
	lines := "23.10.2025 4:59:59 session heartbeat\n" +
		"23.10.2025 5:00:00 received package ezvit.11.02.185-11.02.186.upd\n"
	if err := os.WriteFile(filepath.Join(logsDir, "ezvit.log"), []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	// No update_2025-10-23.log exists, so the attempt counts as failed.
	code, err := command{}.Check(cfgPath, CheckFlags{JSON: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestCheckCommandMissingConfig(t *testing.T) {
	if _, err := (command{}).Check("", CheckFlags{}); err == nil || !strings.Contains(err.Error(), "config file required") {
		t.Fatalf("expected config-required error, got %v", err)
	}
	if _, err := (command{}).Check(filepath.Join(t.TempDir(), "absent.toml"), CheckFlags{}); err == nil || !strings.Contains(err.Error(), "error loading config") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestCheckExitCodeViaRoot(t *testing.T) {
	cfgPath, logsDir := writeConfigFixture(t, "")
	lines := "23.10.2025 5:00:00 received package ezvit.11.02.185-11.02.186.upd\n"
	if err := os.WriteFile(filepath.Join(logsDir, "ezvit.log"), []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	old := exitFunc
	defer func() { exitFunc = old }()
	var code int
	exitFunc = func(c int) { code = c }

	root := buildRoot()
	root.SetArgs([]string{"check", "--config", cfgPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestCheckpointShowAndReset(t *testing.T) {
	cfgPath, logsDir := writeConfigFixture(t, "")
	if _, err := (command{}).Check(cfgPath, CheckFlags{}); err != nil {
		t.Fatalf("Check: %v", err)
	}

	cpFile := filepath.Join(logsDir, ".updwatch", "branch-7.checkpoint")
	if _, err := os.Stat(cpFile); err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}

	if err := (command{}).CheckpointShow(cfgPath); err != nil {
		t.Fatalf("CheckpointShow: %v", err)
	}
	if err := (command{}).CheckpointReset(cfgPath); err != nil {
		t.Fatalf("CheckpointReset: %v", err)
	}
	if _, err := os.Stat(cpFile); !os.IsNotExist(err) {
		t.Fatalf("checkpoint still present after reset: %v", err)
	}
	// Showing an absent checkpoint still works.
	if err := (command{}).CheckpointShow(cfgPath); err != nil {
		t.Fatalf("CheckpointShow after reset: %v", err)
	}
}

func TestStatusLocal(t *testing.T) {
	cfgPath, _ := writeConfigFixture(t, "")
	if _, err := (command{}).Check(cfgPath, CheckFlags{}); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := (command{}).Status(cfgPath, StatusFlags{}); err != nil {
		t.Fatalf("Status: %v", err)
	}
}

func TestStatusLocalRequiresConfig(t *testing.T) {
	err := command{}.Status("", StatusFlags{})
	if err == nil || !strings.Contains(err.Error(), "config file required") {
		t.Fatalf("expected config-required error, got %v", err)
	}
}

func TestStatusRemote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outcome":           "no-update",
			"event_id":          2,
			"notification_sent": false,
			"message":           "no update detected for branch-7",
			"checked_at":        time.Now().UTC(),
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	if err := (command{}).Status("", StatusFlags{APIUrl: srv.URL, APITimeout: 2 * time.Second}); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if err := (command{}).Status("", StatusFlags{APIUrl: srv.URL, APITimeout: 2 * time.Second, JSON: true}); err != nil {
		t.Fatalf("Status json: %v", err)
	}
}

func TestStatusRemoteBeforeFirstRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no check has run yet"})
	}))
	defer srv.Close()

	// A daemon without a report is not an error for status.
	if err := (command{}).Status("", StatusFlags{APIUrl: srv.URL, APITimeout: 2 * time.Second}); err != nil {
		t.Fatalf("Status: %v", err)
	}
}

func TestStatusRemoteUnreachable(t *testing.T) {
	err := command{}.Status("", StatusFlags{APIUrl: "http://127.0.0.1:1", APITimeout: 500 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "daemon not reachable") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestRunsRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"run_id":            "01K8Q2M9V3",
				"server":            "branch-7",
				"outcome":           "success",
				"event_id":          1,
				"from_version":      "11.02.185",
				"to_version":        "11.02.186",
				"notification_sent": true,
				"checked_at":        time.Now().UTC(),
			},
		})
	}))
	defer srv.Close()

	f := RunsFlags{APIUrl: srv.URL, APITimeout: 2 * time.Second, Since: 24 * time.Hour, Limit: 10}
	if err := (command{}).Runs(f); err != nil {
		t.Fatalf("Runs: %v", err)
	}
	f.JSON = true
	if err := (command{}).Runs(f); err != nil {
		t.Fatalf("Runs json: %v", err)
	}
}

func TestRunsRemoteUnreachable(t *testing.T) {
	err := command{}.Runs(RunsFlags{APIUrl: "http://127.0.0.1:1", APITimeout: 500 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "daemon not reachable") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestNotifyTestWithoutTransport(t *testing.T) {
	cfgPath, _ := writeConfigFixture(t, "")
	err := command{}.NotifyTest(cfgPath, NotifyTestFlags{})
	if err == nil || !strings.Contains(err.Error(), "no notification transport configured") {
		t.Fatalf("expected no-transport error, got %v", err)
	}
}

func TestNotifyTestConsole(t *testing.T) {
	cfgPath, _ := writeConfigFixture(t, "\n[notify]\nconsole = true\n")
	if err := (command{}).NotifyTest(cfgPath, NotifyTestFlags{Message: "ping"}); err != nil {
		t.Fatalf("NotifyTest: %v", err)
	}
}

func TestInitCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "updwatch.toml")

	if err := (command{}).Init(InitFlags{Type: "daemon", Server: "branch-7", Output: out}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`server = "branch-7"`, "[serve]", "[store]"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("generated config missing %q", want)
		}
	}

	// Refuses to clobber without --force.
	err = command{}.Init(InitFlags{Type: "daemon", Server: "branch-7", Output: out})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}
	if err := (command{}).Init(InitFlags{Type: "minimal", Server: "branch-7", Output: out, Force: true}); err != nil {
		t.Fatalf("Init with force: %v", err)
	}

	if err := (command{}).Init(InitFlags{Type: "cluster", Output: filepath.Join(t.TempDir(), "x.toml")}); err == nil {
		t.Fatal("expected error for unknown template type")
	}
}

func TestServeRequiresConfig(t *testing.T) {
	if err := runServeCommand(&ServeFlags{}, nil); err == nil || !strings.Contains(err.Error(), "config file required") {
		t.Fatalf("expected config-required error, got %v", err)
	}
	err := runServeCommand(&ServeFlags{ConfigPath: filepath.Join(t.TempDir(), "absent.toml")}, nil)
	if err == nil || !strings.Contains(err.Error(), "error loading config") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestTokenIssue(t *testing.T) {
	cfgPath, _ := writeConfigFixture(t, "\n[serve.auth]\nenabled = true\njwt_secret = \"sign-me\"\njwt_ttl = \"1h\"\n")
	if err := (command{}).TokenIssue(cfgPath, TokenIssueFlags{Subject: "ops", TTL: time.Minute}); err != nil {
		t.Fatalf("TokenIssue: %v", err)
	}
}

func TestTokenIssueWithoutSecret(t *testing.T) {
	cfgPath, _ := writeConfigFixture(t, "")
	err := command{}.TokenIssue(cfgPath, TokenIssueFlags{Subject: "ops"})
	if err == nil || !strings.Contains(err.Error(), "serve.auth") {
		t.Fatalf("expected serve.auth error, got %v", err)
	}

	// Auth on but with a static token only: issuing still needs a jwt_secret.
	cfgPath, _ = writeConfigFixture(t, "\n[serve.auth]\nenabled = true\ntoken = \"x\"\n")
	err = command{}.TokenIssue(cfgPath, TokenIssueFlags{Subject: "ops"})
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("expected jwt_secret error, got %v", err)
	}
}

func TestTokenHash(t *testing.T) {
	if err := (command{}).TokenHash("hunter2"); err != nil {
		t.Fatalf("TokenHash: %v", err)
	}
}
