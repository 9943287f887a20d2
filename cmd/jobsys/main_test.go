package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"jobsys"}, args...))
	return out.String(), err
}

func TestRun_Batch(t *testing.T) {
	t.Setenv("JOBSYS_LOG_LEVEL", "error")

	out, err := runApp(t, "run", "--jobs", "64", "--work", "10", "--workers", "2", "--priority", "high")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "64 jobs on 2 workers at high priority") {
		t.Fatalf("unexpected output: %q", out)
	}
	// 64 * (0+1+...+9)
	if !strings.Contains(out, "sum=2880 completed=64 panicked=0") {
		t.Fatalf("unexpected totals: %q", out)
	}
}

func TestRun_RejectsBadFlags(t *testing.T) {
	t.Setenv("JOBSYS_LOG_LEVEL", "error")

	if _, err := runApp(t, "run", "--jobs", "0"); err == nil {
		t.Fatal("expected error for --jobs 0")
	}
	if _, err := runApp(t, "run", "--priority", "urgent"); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestConfig_PrintsEffectiveYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobsys.yaml")
	if err := os.WriteFile(path, []byte("workers: 3\nlog:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := runApp(t, "--config", path, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, "workers: 3") || !strings.Contains(out, "level: warn") {
		t.Fatalf("unexpected output: %q", out)
	}
}
