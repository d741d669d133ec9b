package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/watch"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		debounce time.Duration
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reschedule whenever the project files change",
		Long: `Watch .cadence/ and recompute the schedule after every change to
project.yaml, calendars.yaml, resources.yaml or rates.yaml.
Each run is recorded in the history unless --no-record is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if !cmd.Flags().Changed("debounce") {
				debounce = services.Workspace.Config.Watch.Debounce
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			ro := application.RunOptions{Record: !noRecord}
			cycle := func(batch []watch.ChangeEvent) {
				runWatchCycle(ctx, w, services, batch, ro, opts.clock())
			}

			watcher, err := watch.Open(services.Workspace.Repo.Dir(), watch.ProjectFiles(), debounce)
			if err != nil {
				return NewCLIError("cannot watch the project", "Run 'cadence init' first", err)
			}

			fmt.Fprintf(w, "Watching %s for changes... (Ctrl+C to stop)\n", watcher.Dir())
			cycle(nil)

			if err := watcher.Run(ctx, cycle); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintln(w, "Stopped watching.")
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before rescheduling (overrides config)")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not append runs to the history")
	return cmd
}

// runWatchCycle publishes the changes in batch and reschedules. Failures are
// printed rather than returned so the watch keeps running while the project
// is being edited.
func runWatchCycle(ctx context.Context, w io.Writer, services *wiring.AppServices, batch []watch.ChangeEvent, ro application.RunOptions, now func() time.Time) {
	for _, c := range batch {
		if err := services.Workspace.Bus.Publish(ctx, events.NewFileChanged(c.Path, c.ChangeType, now())); err != nil {
			services.Workspace.Logger.Warn("failed to record file change", "path", c.Path, "error", err)
		}
	}
	if len(batch) > 0 {
		names := make([]string, len(batch))
		for i, c := range batch {
			names[i] = filepath.Base(c.Path)
		}
		fmt.Fprintf(w, "\n[%s] Changed: %v\n", now().Format("15:04:05"), names)
	}

	report, err := services.Schedule.Run(ctx, ro)
	if err != nil {
		fmt.Fprintf(w, "%s\n", criticalStyle.Render("Schedule failed: "+MapError(err).Error()))
		return
	}
	res := report.Schedule
	fmt.Fprintf(w, "Finish %s (%.2f working days), critical path %v, %d over-allocated day(s), %d finding(s)\n",
		fmtTime(res.ProjectFinish), res.DurationDays, res.CriticalPath,
		len(report.Allocation.Overallocations), len(report.Findings))
}
