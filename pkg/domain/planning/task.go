package planning

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
)

// TaskKind determines how effort, duration and resource count interrelate.
type TaskKind string

const (
	// KindEffortDriven tasks shorten as more capacity is assigned.
	KindEffortDriven TaskKind = "effort_driven"
	// KindFixedDuration tasks keep their span regardless of assignments.
	KindFixedDuration TaskKind = "fixed_duration"
	// KindFixedWork tasks keep total work constant; duration floats with capacity.
	KindFixedWork TaskKind = "fixed_work"
)

// IsValid reports whether the kind is known. An empty kind is valid and
// means effort driven.
func (k TaskKind) IsValid() bool {
	switch k {
	case "", KindEffortDriven, KindFixedDuration, KindFixedWork:
		return true
	default:
		return false
	}
}

// OrDefault returns KindEffortDriven for an unset kind.
func (k TaskKind) OrDefault() TaskKind {
	if k == "" {
		return KindEffortDriven
	}
	return k
}

// Dependency is a dependency declared on a task or milestone. The
// predecessor is referenced by identifier only.
type Dependency struct {
	PredecessorID string          `json:"predecessor_id" yaml:"predecessor_id"`
	Kind          dependency.Type `json:"kind,omitempty" yaml:"kind,omitempty"`
	LagDays       float64         `json:"lag_days,omitempty" yaml:"lag_days,omitempty"` // negative = lead
}

// ResourceAssignment books a resource onto a task.
type ResourceAssignment struct {
	ResourceID     string  `json:"resource_id" yaml:"resource_id"`
	AllocatedHours float64 `json:"allocated_hours" yaml:"allocated_hours"`
	// Allocation is the share of the resource's capacity devoted to the task,
	// 0 < Allocation <= 1. Zero means full time.
	Allocation float64 `json:"allocation,omitempty" yaml:"allocation,omitempty"`
}

// Share returns the effective allocation share.
func (a ResourceAssignment) Share() float64 {
	if a.Allocation <= 0 {
		return 1
	}
	return a.Allocation
}

// ProgressEntry records percent complete at a point in time.
type ProgressEntry struct {
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
	Percent    float64   `json:"percent" yaml:"percent"`
	Note       string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// Task is a unit of scheduled work.
type Task struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Kind           TaskKind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	ScheduledStart time.Time  `json:"scheduled_start,omitempty" yaml:"scheduled_start,omitempty"`
	Deadline       time.Time  `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	ActualStart    *time.Time `json:"actual_start,omitempty" yaml:"actual_start,omitempty"`
	ActualEnd      *time.Time `json:"actual_end,omitempty" yaml:"actual_end,omitempty"`
	DurationDays   float64    `json:"duration_days,omitempty" yaml:"duration_days,omitempty"`
	Estimate       string     `json:"estimate,omitempty" yaml:"estimate,omitempty"` // e.g., "3d", "12h"
	Work           float64    `json:"work,omitempty" yaml:"work,omitempty"`         // hours, fixed work
	Budget         float64    `json:"budget,omitempty" yaml:"budget,omitempty"`
	ActualCost     float64    `json:"actual_cost,omitempty" yaml:"actual_cost,omitempty"`
	Status         TaskStatus `json:"status,omitempty" yaml:"status,omitempty"`

	Progress     []ProgressEntry      `json:"progress,omitempty" yaml:"progress,omitempty"`
	Assignments  []ResourceAssignment `json:"assignments,omitempty" yaml:"assignments,omitempty"`
	Dependencies []Dependency         `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// Derived by the scheduler and merged back by the caller.
	IsCriticalPath bool          `json:"is_critical_path,omitempty" yaml:"is_critical_path,omitempty"`
	Slack          time.Duration `json:"slack,omitempty" yaml:"slack,omitempty"`
}

// Validate checks the task's own invariants. References to other entities
// are checked when the dependency graph is built.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTask)
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("%w: %q on task %s", ErrInvalidTaskKind, t.Kind, t.ID)
	}
	if !t.Status.OrDefault().IsValid() {
		return fmt.Errorf("%w: unknown status %q on task %s", ErrInvalidTask, t.Status, t.ID)
	}
	if !t.ScheduledStart.IsZero() && !t.Deadline.IsZero() && t.Deadline.Before(t.ScheduledStart) {
		return fmt.Errorf("%w: task %s", ErrDeadlineBeforeStart, t.ID)
	}
	if t.DurationDays < 0 || t.Work < 0 || t.Budget < 0 || t.ActualCost < 0 {
		return fmt.Errorf("%w: negative duration, work or cost on task %s", ErrInvalidTask, t.ID)
	}
	if t.Estimate != "" {
		e, err := ParseEstimate(t.Estimate)
		if err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		if e.IsNegative() {
			return fmt.Errorf("%w: negative estimate on task %s", ErrInvalidTask, t.ID)
		}
	}
	for _, a := range t.Assignments {
		if a.ResourceID == "" {
			return fmt.Errorf("%w: assignment without resource on task %s", ErrInvalidTask, t.ID)
		}
		if a.AllocatedHours < 0 || a.Allocation < 0 || a.Allocation > 1 {
			return fmt.Errorf("%w: assignment of %s on task %s out of range", ErrInvalidTask, a.ResourceID, t.ID)
		}
	}
	var last ProgressEntry
	for i, p := range t.Progress {
		if p.Percent < 0 || p.Percent > 1 {
			return fmt.Errorf("%w: task %s entry %d", ErrInvalidProgress, t.ID, i)
		}
		if i > 0 && (p.Percent < last.Percent || p.RecordedAt.Before(last.RecordedAt)) {
			return fmt.Errorf("%w: task %s entry %d", ErrProgressRegression, t.ID, i)
		}
		last = p
	}
	return nil
}

// PercentComplete returns the latest recorded progress, 0 when none.
func (t Task) PercentComplete() float64 {
	if len(t.Progress) == 0 {
		return 0
	}
	return t.Progress[len(t.Progress)-1].Percent
}

// PercentCompleteAt returns the progress recorded at or before the given time.
func (t Task) PercentCompleteAt(at time.Time) float64 {
	pct := 0.0
	for _, p := range t.Progress {
		if p.RecordedAt.After(at) {
			break
		}
		pct = p.Percent
	}
	return pct
}

// TotalAllocatedHours sums the hours of all assignments.
func (t Task) TotalAllocatedHours() float64 {
	var total float64
	for _, a := range t.Assignments {
		total += a.AllocatedHours
	}
	return total
}

// Links converts the task's dependencies into graph links.
func (t Task) Links() []dependency.Link {
	return toLinks(t.Dependencies)
}

// RecordProgress appends a progress entry and advances the lifecycle: the
// first positive entry starts the task and reaching 1.0 completes it. The
// history is append-only and never decreases.
func (t *Task) RecordProgress(at time.Time, percent float64, note string) error {
	if percent < 0 || percent > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidProgress, percent)
	}
	if n := len(t.Progress); n > 0 {
		last := t.Progress[n-1]
		if percent < last.Percent {
			return fmt.Errorf("%w: %v is below the recorded %v", ErrProgressRegression, percent, last.Percent)
		}
		if at.Before(last.RecordedAt) {
			return fmt.Errorf("%w: entry at %s precedes the last one at %s", ErrProgressRegression,
				at.Format(time.RFC3339), last.RecordedAt.Format(time.RFC3339))
		}
	}

	status, err := t.advance(at, percent)
	if err != nil {
		return err
	}
	t.Status = status
	t.Progress = append(t.Progress, ProgressEntry{RecordedAt: at, Percent: percent, Note: note})
	return nil
}

func (t *Task) advance(at time.Time, percent float64) (TaskStatus, error) {
	status := t.Status.OrDefault()
	if status.IsCancelled() {
		return status, fmt.Errorf("%w: task %s is cancelled", ErrInvalidTransition, t.ID)
	}

	lc, err := NewLifecycle(t.ID, status, func(event string) bool {
		if event == EventComplete {
			return percent >= 1
		}
		return percent > 0
	})
	if err != nil {
		return status, err
	}

	if status == StatusOnHold && percent > t.PercentComplete() {
		if err := lc.Fire(EventResume); err != nil {
			return status, err
		}
	}
	if lc.Status() == StatusNotStarted && percent > 0 {
		if err := lc.Fire(EventStart); err != nil {
			return status, err
		}
		if t.ActualStart == nil {
			started := at
			t.ActualStart = &started
		}
	}
	if lc.Status() == StatusInProgress && percent >= 1 {
		if err := lc.Fire(EventComplete); err != nil {
			return status, err
		}
		finished := at
		t.ActualEnd = &finished
	}
	return lc.Status(), nil
}

// Apply fires a lifecycle event directly, e.g. to hold or cancel a task.
func (t *Task) Apply(event string) error {
	lc, err := NewLifecycle(t.ID, t.Status, func(ev string) bool {
		return ev != EventComplete || t.PercentComplete() >= 1
	})
	if err != nil {
		return err
	}
	if err := lc.Fire(event); err != nil {
		return err
	}
	t.Status = lc.Status()
	return nil
}

func toLinks(deps []Dependency) []dependency.Link {
	links := make([]dependency.Link, 0, len(deps))
	for _, d := range deps {
		links = append(links, dependency.Link{
			PredecessorID: d.PredecessorID,
			Type:          d.Kind,
			LagDays:       d.LagDays,
		})
	}
	return links
}
