package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/baseline"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
)

// BaselineStore persists the baselines of a project.
type BaselineStore interface {
	LoadBaselines() ([]baseline.Baseline, error)
	SaveBaselines([]baseline.Baseline) error
}

// BaselineService takes baselines of the schedule and compares the current
// plan with them.
type BaselineService struct {
	mu       sync.Mutex
	store    BaselineStore
	schedule *ScheduleService
	bus      *events.Bus
	actor    string
}

// NewBaselineService creates a baseline service. bus may be nil, in which
// case new baselines are not published.
func NewBaselineService(store BaselineStore, schedule *ScheduleService, bus *events.Bus, actor string) *BaselineService {
	return &BaselineService{store: store, schedule: schedule, bus: bus, actor: actor}
}

func (s *BaselineService) now() time.Time {
	if s.schedule.opts.Now != nil {
		return s.schedule.opts.Now()
	}
	return time.Now()
}

// Create schedules the project and stores the result as a baseline called
// name.
func (s *BaselineService) Create(ctx context.Context, name string) (*baseline.Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.store.LoadBaselines()
	if err != nil {
		return nil, err
	}
	report, err := s.schedule.Run(ctx, RunOptions{})
	if err != nil {
		return nil, err
	}
	b, err := baseline.Capture(name, s.now(), report.Schedule, report.Costs)
	if err != nil {
		return nil, err
	}
	if set, err = baseline.Add(set, *b); err != nil {
		return nil, err
	}
	if err := s.store.SaveBaselines(set); err != nil {
		return nil, err
	}

	snap, err := s.schedule.coordinator.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if s.bus != nil {
		created := events.NewBaselineCreated(snap.Name, b.Name, b.ProjectFinish, b.TotalBudget, len(b.Tasks), s.actor, b.CreatedAt)
		if err := s.bus.Publish(ctx, created); err != nil {
			return nil, err
		}
	}
	s.schedule.logger.Info("baseline created",
		"project", snap.Name,
		"baseline", b.Name,
		"finish", b.ProjectFinish.Format(time.RFC3339),
		"budget", b.TotalBudget)
	return b, nil
}

// List returns the stored baselines in the order they were taken.
func (s *BaselineService) List(ctx context.Context) ([]baseline.Baseline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadBaselines()
}

// Compare measures the current plan against the baseline called name, or
// against the latest baseline when name is empty. Finished tasks also get
// their actual duration and cost variance.
func (s *BaselineService) Compare(ctx context.Context, name string) (*baseline.Comparison, error) {
	set, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	base, ok := baseline.Find(set, name)
	if !ok {
		if name == "" {
			return nil, fmt.Errorf("%w: no baseline taken yet", baseline.ErrBaselineNotFound)
		}
		return nil, fmt.Errorf("%w: %s", baseline.ErrBaselineNotFound, name)
	}

	report, err := s.schedule.Run(ctx, RunOptions{})
	if err != nil {
		return nil, err
	}
	current, err := baseline.Capture("current", s.now(), report.Schedule, report.Costs)
	if err != nil {
		return nil, err
	}
	snap, err := s.schedule.coordinator.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	c := baseline.Compare(base, current)
	c.MeasureCompleted(base, snap.Tasks, report.Schedule.Calendar)
	return c, nil
}
