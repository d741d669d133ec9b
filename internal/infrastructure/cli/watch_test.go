package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/watch"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
)

func watchServices(t *testing.T, dir string) *wiring.AppServices {
	t.Helper()
	services, err := wiring.BuildAppServices(dir, wiring.BuildOptions{
		Now: func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("build services: %v", err)
	}
	t.Cleanup(services.Workspace.Close)
	return services
}

func TestRunWatchCycle(t *testing.T) {
	dir := newABCProject(t)
	services := watchServices(t, dir)
	projectFile := filepath.Join(dir, ".cadence", "project.yaml")

	var out bytes.Buffer
	batch := []watch.ChangeEvent{{Path: projectFile, ChangeType: watch.ChangeWrite}}
	runWatchCycle(context.Background(), &out, services, batch, application.RunOptions{Record: true}, func() time.Time { return fixedNow })

	for _, want := range []string{"Changed: [project.yaml]", "Finish 2025-01-10 17:00", "[A B]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	changes, err := services.Workspace.Events.Read(events.Query{Types: []string{events.EventTypeFileChanged}})
	if err != nil || len(changes) != 1 {
		t.Fatalf("expected one file.changed event, got %d (%v)", len(changes), err)
	}
	runs, _, err := services.History.Runs(0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
	}
}

func TestRunWatchCycle_ReportsBrokenProject(t *testing.T) {
	dir := newABCProject(t)
	services := watchServices(t, dir)

	projectFile := filepath.Join(dir, ".cadence", "project.yaml")
	if err := os.WriteFile(projectFile, []byte("name: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	runWatchCycle(context.Background(), &out, services, nil, application.RunOptions{}, time.Now)
	if !strings.Contains(out.String(), "Schedule failed") {
		t.Errorf("expected a failure line, got:\n%s", out.String())
	}
}
