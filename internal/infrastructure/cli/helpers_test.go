package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fixedNow is Tuesday 2025-01-14 09:00 UTC.
var fixedNow = time.Date(2025, time.January, 14, 9, 0, 0, 0, time.UTC)

// runCLI executes the command tree against dir and returns stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd(&rootOptions{now: func() time.Time { return fixedNow }})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"-C", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dir, args...)
	if err != nil {
		t.Fatalf("cadence %v failed: %v\n%s", args, err, out)
	}
	return out
}

// newABCProject creates a project where A (3d, 24h of dev) precedes B (2d)
// and C (1d, budget 500) runs in parallel.
func newABCProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRun(t, dir, "init", "demo", "--start", "2025-01-06")
	mustRun(t, dir, "resource", "add", "dev", "--name", "Developer", "--hourly-rate", "100")
	mustRun(t, dir, "task", "add", "Design", "--id", "A", "--duration", "3", "--assign", "dev:24")
	mustRun(t, dir, "task", "add", "Build", "--id", "B", "--duration", "2", "--after", "A")
	mustRun(t, dir, "task", "add", "Docs", "--id", "C", "--duration", "1", "--budget", "500")
	return dir
}

func writeProjectConfig(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, ".cadence", "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
