package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWritePidFileAndRemove(t *testing.T) {
	p := filepath.Join(t.TempDir(), "updwatch.pid")
	if err := writePidFile(p, 4242); err != nil {
		t.Fatalf("writePidFile: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4242" {
		t.Fatalf("pid file content = %q", data)
	}
	if err := removePidFile(p); err != nil {
		t.Fatalf("removePidFile: %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatal("pid file still present")
	}
	// Empty path is a no-op.
	if err := removePidFile(""); err != nil {
		t.Fatalf("removePidFile(\"\"): %v", err)
	}
}

func TestStripDaemonArgs(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{
			in:   []string{"serve", "updwatch.toml", "--daemonize"},
			want: []string{"serve", "updwatch.toml"},
		},
		{
			in:   []string{"serve", "--daemonize", "--pidfile", "a.pid", "--logfile", "a.log"},
			want: []string{"serve"},
		},
		{
			in:   []string{"serve", "--config", "updwatch.toml"},
			want: []string{"serve", "--config", "updwatch.toml"},
		},
	}
	for _, tc := range cases {
		if got := stripDaemonArgs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("stripDaemonArgs(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
