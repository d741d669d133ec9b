package wiring

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
)

// BuildOptions tune BuildAppServices. The zero value loads the config from
// the workspace and logs through slog.Default.
type BuildOptions struct {
	Config *config.Config
	Logger *slog.Logger
	// Actor is recorded on events; defaults to $USER.
	Actor string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// AppServices exposes the application services wired to one workspace.
type AppServices struct {
	Workspace *Workspace
	Projects  *application.ProjectService
	Schedule  *application.ScheduleService
	History   *application.HistoryService
	Baselines *application.BaselineService
}

// BuildAppServices wires the services for the project under root.
func BuildAppServices(root string, opts BuildOptions) (*AppServices, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(root)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ws, err := NewWorkspace(root, cfg, logger)
	if err != nil {
		return nil, err
	}

	defaultCal, err := cfg.DefaultCalendar()
	if err != nil {
		return nil, fmt.Errorf("default calendar: %w", err)
	}
	reportDate, err := cfg.ParsedReportDate()
	if err != nil {
		return nil, fmt.Errorf("report date: %w", err)
	}

	actor := opts.Actor
	if actor == "" {
		actor = os.Getenv("USER")
	}
	if actor == "" {
		actor = "unknown"
	}

	history := application.NewHistoryService(ws.Events)
	if err := registerHandlers(ws, history); err != nil {
		return nil, err
	}

	coordinator := application.NewProjectCoordinator(ws.Repo, ws.Bus, actor)
	sched := application.NewScheduleService(coordinator, ws.Bus, application.Options{
		DefaultCalendar: defaultCal,
		ReportDate:      reportDate,
		Now:             opts.Now,
		Logger:          logger,
	})
	return &AppServices{
		Workspace: ws,
		Projects:  application.NewProjectService(coordinator, logger),
		Schedule:  sched,
		History:   history,
		Baselines: application.NewBaselineService(ws.Repo, sched, ws.Bus, actor),
	}, nil
}

func registerHandlers(ws *Workspace, history *application.HistoryService) error {
	previous, err := history.LatestRun()
	if err != nil {
		return fmt.Errorf("load run history: %w", err)
	}
	notifier := ws.AlertNotifier()

	ws.Dispatcher.Register(events.LogEvents(ws.Logger))
	ws.Dispatcher.Register(events.LogTransitions(ws.Logger))
	ws.Dispatcher.Register(events.NewRunAlerter(previous, notifier, ws.Logger).Registration())
	if ws.Notifier != nil {
		ws.Dispatcher.Register(ws.Notifier.Registration())
	}
	return nil
}
