package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Notifier delivers alerts outside the process.
type Notifier interface {
	Notify(ctx context.Context, level NotificationLevel, title, message string) error
}

type NotificationLevel string

const (
	NotificationLevelInfo    NotificationLevel = "info"
	NotificationLevelWarning NotificationLevel = "warning"
	NotificationLevelError   NotificationLevel = "error"
)

func (l NotificationLevel) slogLevel() slog.Level {
	switch l {
	case NotificationLevelWarning:
		return slog.LevelWarn
	case NotificationLevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Alert is something a schedule run should tell the team about.
type Alert struct {
	Level   NotificationLevel
	Title   string
	Message string
}

// CompareRuns returns the alerts run raises. Over-allocation is reported on
// every run. Critical path changes and a later finish need the previous
// run, which may be nil.
func CompareRuns(prev, run *ScheduleComputed) []Alert {
	var alerts []Alert
	if run.Overallocations > 0 {
		alerts = append(alerts, Alert{
			Level:   NotificationLevelWarning,
			Title:   "Resources Over-allocated",
			Message: overallocationMessage(run.Overallocations),
		})
	}
	if prev == nil {
		return alerts
	}
	if added, removed := diffPaths(prev.CriticalPath, run.CriticalPath); len(added)+len(removed) > 0 {
		alerts = append(alerts, Alert{
			Level:   NotificationLevelInfo,
			Title:   "Critical Path Changed",
			Message: pathChangeMessage(added, removed),
		})
	}
	if slip := run.DurationDays - prev.DurationDays; slip > 0 {
		alerts = append(alerts, Alert{
			Level: NotificationLevelWarning,
			Title: "Project Finish Slipped",
			Message: fmt.Sprintf("Project finish moved by %.2f working days to %s.",
				slip, run.ProjectFinish.Format(time.DateOnly)),
		})
	}
	return alerts
}

// RunAlerter compares each recorded schedule run with the one before it,
// logs the resulting alerts and passes them to the notifier.
type RunAlerter struct {
	mu       sync.Mutex
	last     *ScheduleComputed
	notifier Notifier
	logger   *slog.Logger
}

// NewRunAlerter creates an alerter. previous seeds the comparison;
// previous and notifier may be nil.
func NewRunAlerter(previous *ScheduleComputed, notifier Notifier, logger *slog.Logger) *RunAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunAlerter{last: previous, notifier: notifier, logger: logger}
}

func (a *RunAlerter) Handle(ctx context.Context, event DomainEvent) error {
	run, ok := event.(*ScheduleComputed)
	if !ok {
		return nil
	}

	a.mu.Lock()
	prev := a.last
	a.last = run
	a.mu.Unlock()

	for _, alert := range CompareRuns(prev, run) {
		a.logger.Log(ctx, alert.Level.slogLevel(), strings.ToLower(alert.Title),
			"project", run.ProjectName, "detail", alert.Message)
		if a.notifier == nil {
			continue
		}
		if err := a.notifier.Notify(ctx, alert.Level, alert.Title, alert.Message); err != nil {
			a.logger.Warn("alert not sent", "title", alert.Title, "error", err)
		}
	}
	return nil
}

func (a *RunAlerter) Registration() HandlerRegistration {
	return HandlerRegistration{
		Name:       "RunAlerter",
		Handler:    a.Handle,
		EventTypes: []string{EventTypeScheduleComputed},
	}
}

// LogEvents logs every dispatched event at debug level.
func LogEvents(logger *slog.Logger) HandlerRegistration {
	if logger == nil {
		logger = slog.Default()
	}
	return HandlerRegistration{
		Name:       "EventLogger",
		EventTypes: []string{Wildcard},
		Handler: func(ctx context.Context, event DomainEvent) error {
			logger.DebugContext(ctx, "domain event",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"aggregate_type", event.AggregateType(),
				"occurred_at", event.OccurredAt())
			return nil
		},
	}
}

// LogTransitions logs task status changes at info level.
func LogTransitions(logger *slog.Logger) HandlerRegistration {
	if logger == nil {
		logger = slog.Default()
	}
	return HandlerRegistration{
		Name:       "TransitionLogger",
		EventTypes: []string{EventTypeTaskTransitioned},
		Handler: func(ctx context.Context, event DomainEvent) error {
			if t, ok := event.(*TaskTransitioned); ok {
				logger.InfoContext(ctx, "task status changed",
					"task_id", t.TaskID, "from", t.FromStatus, "to", t.ToStatus)
			}
			return nil
		},
	}
}

func diffPaths(before, after []string) (added, removed []string) {
	old := make(map[string]bool, len(before))
	for _, id := range before {
		old[id] = true
	}
	now := make(map[string]bool, len(after))
	for _, id := range after {
		now[id] = true
		if !old[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !now[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func pathChangeMessage(added, removed []string) string {
	var parts []string
	if len(added) > 0 {
		parts = append(parts, "now critical: "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "no longer critical: "+strings.Join(removed, ", "))
	}
	return strings.Join(parts, "; ")
}

func overallocationMessage(days int) string {
	if days == 1 {
		return "1 resource-day is booked beyond capacity."
	}
	return fmt.Sprintf("%d resource-days are booked beyond capacity.", days)
}
