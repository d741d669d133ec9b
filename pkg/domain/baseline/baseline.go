// Package baseline captures an agreed schedule and measures later plans
// against it.
package baseline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/schedule"
)

var (
	ErrBaselineExists   = errors.New("baseline already exists")
	ErrBaselineNotFound = errors.New("baseline not found")
	ErrInvalidBaseline  = errors.New("invalid baseline")
)

// TaskPlan is a task as the schedule had it when the baseline was taken.
// Day offsets are working days from the project start.
type TaskPlan struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Start        time.Time `json:"start" yaml:"start"`
	Finish       time.Time `json:"finish" yaml:"finish"`
	StartDay     float64   `json:"start_day" yaml:"start_day"`
	FinishDay    float64   `json:"finish_day" yaml:"finish_day"`
	DurationDays float64   `json:"duration_days" yaml:"duration_days"`
	Hours        float64   `json:"hours" yaml:"hours"`
	Budget       float64   `json:"budget" yaml:"budget"`
}

// MilestonePlan is a milestone's scheduled date in a baseline.
type MilestonePlan struct {
	ID   string    `json:"id" yaml:"id"`
	Name string    `json:"name" yaml:"name"`
	Date time.Time `json:"date" yaml:"date"`
	Day  float64   `json:"day" yaml:"day"`
}

// Baseline is a named copy of one schedule run.
type Baseline struct {
	Name          string          `json:"name" yaml:"name"`
	CreatedAt     time.Time       `json:"created_at" yaml:"created_at"`
	ProjectFinish time.Time       `json:"project_finish" yaml:"project_finish"`
	DurationDays  float64         `json:"duration_days" yaml:"duration_days"`
	TotalBudget   float64         `json:"total_budget" yaml:"total_budget"`
	TotalHours    float64         `json:"total_hours" yaml:"total_hours"`
	Tasks         []TaskPlan      `json:"tasks" yaml:"tasks"`
	Milestones    []MilestonePlan `json:"milestones,omitempty" yaml:"milestones,omitempty"`
}

// Capture takes a baseline of a schedule run. costs are the run's task
// costs; a task without one has no hours or budget.
func Capture(name string, at time.Time, res *schedule.Result, costs []billing.TaskCost) (*Baseline, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBaseline)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no schedule", ErrInvalidBaseline)
	}

	byTask := make(map[string]billing.TaskCost, len(costs))
	for _, c := range costs {
		byTask[c.TaskID] = c
	}

	cal := res.Calendar
	b := &Baseline{
		Name:          name,
		CreatedAt:     at,
		ProjectFinish: res.ProjectFinish,
		DurationDays:  res.DurationDays,
	}
	for _, tm := range res.OrderedTimings() {
		if tm.IsMilestone {
			b.Milestones = append(b.Milestones, MilestonePlan{
				ID: tm.ID, Name: tm.Name, Date: tm.EarlyFinish, Day: cal.InDays(tm.EF),
			})
			continue
		}
		cost := byTask[tm.ID]
		b.Tasks = append(b.Tasks, TaskPlan{
			ID:           tm.ID,
			Name:         tm.Name,
			Start:        tm.EarlyStart,
			Finish:       tm.EarlyFinish,
			StartDay:     cal.InDays(tm.ES),
			FinishDay:    cal.InDays(tm.EF),
			DurationDays: cal.InDays(tm.Duration),
			Hours:        cost.LaborHours,
			Budget:       cost.Budget,
		})
		b.TotalHours += cost.LaborHours
		b.TotalBudget += cost.Budget
	}
	return b, nil
}

// Task returns the plan of a task.
func (b *Baseline) Task(id string) (TaskPlan, bool) {
	for _, t := range b.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskPlan{}, false
}

func (b *Baseline) milestone(id string) (MilestonePlan, bool) {
	for _, m := range b.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return MilestonePlan{}, false
}

// Add appends b to set. Names are unique.
func Add(set []Baseline, b Baseline) ([]Baseline, error) {
	if _, ok := Find(set, b.Name); ok {
		return set, fmt.Errorf("%w: %s", ErrBaselineExists, b.Name)
	}
	return append(set, b), nil
}

// Find returns the baseline called name. An empty name selects the most
// recently taken one.
func Find(set []Baseline, name string) (*Baseline, bool) {
	if name == "" {
		var latest *Baseline
		for i := range set {
			if latest == nil || !set[i].CreatedAt.Before(latest.CreatedAt) {
				latest = &set[i]
			}
		}
		return latest, latest != nil
	}
	for i := range set {
		if set[i].Name == name {
			return &set[i], true
		}
	}
	return nil, false
}
