package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
)

// RunOptions control what a scheduling run does besides computing.
type RunOptions struct {
	// ReportDate overrides the earned value report date for this run.
	ReportDate time.Time
	// WriteBack stores the critical flags and slack on the project file.
	WriteBack bool
	// Record appends a schedule.computed event to the run history.
	Record bool
}

// ScheduleService runs the engine over the stored project.
type ScheduleService struct {
	coordinator *project.Coordinator
	bus         *events.Bus
	opts        Options
	logger      *slog.Logger
}

// NewScheduleService creates a new schedule service. bus may be nil, in which
// case runs are never recorded.
func NewScheduleService(coordinator *project.Coordinator, bus *events.Bus, opts Options) *ScheduleService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	return &ScheduleService{
		coordinator: coordinator,
		bus:         bus,
		opts:        opts,
		logger:      logger,
	}
}

// Run schedules a copy of the stored project. The project file is only
// touched when WriteBack is set and the run succeeded.
func (s *ScheduleService) Run(ctx context.Context, ro RunOptions) (*Report, error) {
	snap, err := s.coordinator.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	if !ro.ReportDate.IsZero() {
		opts.ReportDate = ro.ReportDate
	}

	report, err := RunEngine(ctx, snap, opts)
	if err != nil {
		s.logger.Warn("schedule run failed", "project", snap.Name, "error", err)
		return nil, err
	}
	res := report.Schedule

	if ro.WriteBack {
		if err := s.coordinator.WriteBack(ctx, res.CriticalSet(), res.Slack); err != nil {
			return nil, err
		}
		s.logger.Info("derived fields written", "project", snap.Name, "critical", len(res.CriticalPath))
	}

	if ro.Record && s.bus != nil {
		now := time.Now
		if s.opts.Now != nil {
			now = s.opts.Now
		}
		run := events.NewScheduleComputed(snap.Name, res.DurationDays, res.ProjectFinish, res.CriticalPath,
			len(report.Allocation.Overallocations), len(report.Findings), now())
		if err := s.bus.Publish(ctx, run); err != nil {
			return nil, err
		}
	}

	s.logger.Info("schedule run complete",
		"project", snap.Name,
		"finish", res.ProjectFinish.Format(time.RFC3339),
		"duration_days", res.DurationDays,
		"findings", len(report.Findings))
	return report, nil
}

// Calendar returns a calendar by ID. An empty ID selects the project
// calendar, or the configured default when there is no project yet.
func (s *ScheduleService) Calendar(ctx context.Context, id string) (calendar.Calendar, error) {
	snap, err := s.coordinator.Snapshot(ctx)
	if err != nil && !errors.Is(err, project.ErrNoProject) {
		return calendar.Calendar{}, err
	}
	var cals []calendar.Calendar
	if snap != nil {
		cals = snap.Calendars
	}
	resolver := calendar.NewResolver(cals, s.opts.DefaultCalendar)
	if id != "" {
		return resolver.Lookup(id)
	}
	if snap == nil || snap.CalendarID == "" {
		return resolver.Default(), nil
	}
	// The scheduler falls back the same way for an unusable project calendar.
	cal, _ := resolver.Resolve("project", snap.CalendarID)
	return cal, nil
}
