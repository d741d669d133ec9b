package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/sse"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/watch"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/infrastructure/dashboard"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		watchDirs bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only web view of the schedule",
		Long: `Serve the schedule as HTML on / and as JSON on /api/report,
/api/schedule, /api/evm and /api/costs. Recorded events stream on /events.
With --watch the project is rescheduled on every change and open pages
reload themselves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server, stream, err := newDashboardServer(addr, services)
			if err != nil {
				return err
			}
			services.Workspace.Dispatcher.Register(stream.Registration())

			var watcher *watch.Watcher
			if watchDirs {
				watcher, err = watch.Open(services.Workspace.Repo.Dir(), watch.ProjectFiles(), services.Workspace.Config.Watch.Debounce)
				if err != nil {
					return NewCLIError("cannot watch the project", "Run 'cadence init' first", err)
				}
			}

			w := cmd.OutOrStdout()
			errCh := make(chan error, 2)
			go func() { errCh <- server.Start() }()
			if watcher != nil {
				go func() {
					errCh <- watcher.Run(ctx, func(batch []watch.ChangeEvent) {
						runWatchCycle(ctx, w, services, batch, application.RunOptions{Record: true}, opts.clock())
					})
				}()
			}

			fmt.Fprintf(w, "Serving the schedule on http://%s (Ctrl+C to stop)\n", addr)

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().BoolVar(&watchDirs, "watch", false, "Reschedule and record a run on every project change")
	return cmd
}

func newDashboardServer(addr string, services *wiring.AppServices) (*dashboard.Server, *sse.Stream, error) {
	provider := dashboard.ProviderFunc(func(ctx context.Context) (*project.Snapshot, *application.Report, error) {
		report, err := services.Schedule.Run(ctx, application.RunOptions{})
		if err != nil {
			return nil, nil, MapError(err)
		}
		snap, err := services.Projects.Snapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		return snap, report, nil
	})
	stream := sse.NewStream(services.Workspace.Events)
	server, err := dashboard.NewServer(addr, provider, stream, services.Workspace.Logger)
	if err != nil {
		return nil, nil, err
	}
	return server, stream, nil
}
