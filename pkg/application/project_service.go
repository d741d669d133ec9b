package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrEmptyCalendarFile is returned when an imported file holds no calendar.
var ErrEmptyCalendarFile = errors.New("no calendars in file")

// ProjectService edits the stored project through the coordinator.
type ProjectService struct {
	coordinator *project.Coordinator
	logger      *slog.Logger
}

func NewProjectService(coordinator *project.Coordinator, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{coordinator: coordinator, logger: logger}
}

// Snapshot returns a copy of the stored project.
func (s *ProjectService) Snapshot(ctx context.Context) (*project.Snapshot, error) {
	return s.coordinator.Snapshot(ctx)
}

// Init creates an empty project.
func (s *ProjectService) Init(ctx context.Context, name string, start time.Time, calendarID string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: project name is required", project.ErrInvalidSnapshot)
	}
	if start.IsZero() {
		return project.ErrMissingProjectStart
	}
	snap := &project.Snapshot{
		Name:         name,
		ProjectStart: start,
		CalendarID:   calendarID,
		Tasks:        []planning.Task{},
	}
	if err := s.coordinator.Init(ctx, snap); err != nil {
		return err
	}
	s.logger.Info("project initialised", "name", name, "start", start.Format(time.RFC3339))
	return nil
}

// AddTask adds a task and returns its ID. A task without an ID gets a
// generated one.
func (s *ProjectService) AddTask(ctx context.Context, task planning.Task) (string, error) {
	if task.ID == "" {
		task.ID = "task-" + uuid.New().String()[:8]
	}
	if task.Kind == "" {
		task.Kind = planning.KindFixedDuration
	}
	if err := s.coordinator.AddTask(ctx, task); err != nil {
		return "", err
	}
	s.logger.Info("task added", "task_id", task.ID, "kind", task.Kind)
	return task.ID, nil
}

// RecordProgress records percent complete on a task.
func (s *ProjectService) RecordProgress(ctx context.Context, taskID string, at time.Time, percent, actualCost float64, note string) error {
	if at.IsZero() {
		at = time.Now()
	}
	return s.coordinator.RecordProgress(ctx, taskID, at, percent, actualCost, note)
}

// Transition fires a lifecycle event (hold, resume, cancel, reopen) on a task.
func (s *ProjectService) Transition(ctx context.Context, taskID, event string) error {
	return s.coordinator.TransitionTask(ctx, taskID, event)
}

// AddResource adds a resource. Duplicate IDs are rejected.
func (s *ProjectService) AddResource(ctx context.Context, r planning.Resource) error {
	return s.coordinator.Update(ctx, func(snap *project.Snapshot) error {
		snap.Resources = append(snap.Resources, r)
		return nil
	})
}

// AddRate adds a billing rate, optionally making it the default.
func (s *ProjectService) AddRate(ctx context.Context, rate billing.Rate) error {
	return s.coordinator.Update(ctx, func(snap *project.Snapshot) error {
		return snap.Rates.Add(rate)
	})
}

// SetDefaultRate makes id the rate used by resources without one.
func (s *ProjectService) SetDefaultRate(ctx context.Context, id string) error {
	return s.coordinator.Update(ctx, func(snap *project.Snapshot) error {
		return snap.Rates.MakeDefault(id)
	})
}

// ConfigureBilling sets the currency and, when tax is not nil, the tax
// applied in cost reports. An empty currency keeps the current one.
func (s *ProjectService) ConfigureBilling(ctx context.Context, currency string, tax *billing.TaxConfig) error {
	return s.coordinator.Update(ctx, func(snap *project.Snapshot) error {
		if currency != "" {
			snap.Rates.Currency = strings.ToUpper(currency)
		}
		if tax != nil {
			if err := tax.Validate(); err != nil {
				return err
			}
			snap.Rates.Tax = tax
		}
		return nil
	})
}

// ImportCalendars reads calendars from YAML and stores them, replacing any
// calendar with the same ID. The file may hold a "calendars" list or a
// single calendar document.
func (s *ProjectService) ImportCalendars(ctx context.Context, data []byte) ([]string, error) {
	cals, err := parseCalendars(data)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cals))
	err = s.coordinator.Update(ctx, func(snap *project.Snapshot) error {
		byID := make(map[string]int, len(snap.Calendars))
		for i, c := range snap.Calendars {
			byID[c.ID] = i
		}
		for _, c := range cals {
			if i, ok := byID[c.ID]; ok {
				snap.Calendars[i] = c
			} else {
				byID[c.ID] = len(snap.Calendars)
				snap.Calendars = append(snap.Calendars, c)
			}
			ids = append(ids, c.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("calendars imported", "ids", ids)
	return ids, nil
}

func parseCalendars(data []byte) ([]calendar.Calendar, error) {
	var doc struct {
		Calendars []calendar.Calendar `yaml:"calendars"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse calendars: %w", err)
	}
	cals := doc.Calendars
	if len(cals) == 0 {
		var single calendar.Calendar
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse calendar: %w", err)
		}
		if single.ID == "" {
			return nil, ErrEmptyCalendarFile
		}
		cals = []calendar.Calendar{single}
	}

	seen := make(map[string]bool, len(cals))
	for _, c := range cals {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: calendar id is required", calendar.ErrInvalidCalendar)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate calendar %s", calendar.ErrInvalidCalendar, c.ID)
		}
		seen[c.ID] = true
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.ID, err)
		}
	}
	return cals, nil
}

// Tasks returns the stored tasks in declaration order.
func (s *ProjectService) Tasks(ctx context.Context) ([]planning.Task, error) {
	snap, err := s.coordinator.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Tasks, nil
}
