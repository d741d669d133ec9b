package baseline

import (
	"math"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
)

// Change classifies how a task moved against its baseline. Schedule changes
// win over cost changes, which win over scope changes.
type Change string

const (
	ChangeNone     Change = "none"
	ChangeSchedule Change = "schedule"
	ChangeCost     Change = "cost"
	ChangeScope    Change = "scope"
	ChangeAdded    Change = "added"
	ChangeRemoved  Change = "removed"
)

// MilestoneStatus rates a milestone's slip.
type MilestoneStatus string

const (
	MilestoneOnTrack MilestoneStatus = "on_track"
	MilestoneAtRisk  MilestoneStatus = "at_risk"
	MilestoneDelayed MilestoneStatus = "delayed"
)

const (
	// dayTolerance absorbs float noise in working-day offsets.
	dayTolerance = 0.005
	// moneyTolerance and hoursTolerance ignore sub-cent and sub-minute drift.
	moneyTolerance = 0.01
	hoursTolerance = 0.01

	// A milestone or task that slips more than this many working days is
	// delayed.
	delayedDays = 5.0
	// A budget increase above this turns the comparison red.
	criticalBudgetIncrease = 1000.0
)

// TaskVariance is the difference between a task's current plan and its
// baseline. Positive values mean later, longer or more expensive.
type TaskVariance struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Change         Change    `json:"change"`
	StartDays      float64   `json:"start_days"`
	FinishDays     float64   `json:"finish_days"`
	DurationDays   float64   `json:"duration_days"`
	BudgetVariance float64   `json:"budget_variance"`
	HoursVariance  float64   `json:"hours_variance"`
	BaselineFinish time.Time `json:"baseline_finish,omitempty"`
	CurrentFinish  time.Time `json:"current_finish,omitempty"`
}

// MilestoneVariance is a milestone that moved.
type MilestoneVariance struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BaselineDate time.Time       `json:"baseline_date"`
	CurrentDate  time.Time       `json:"current_date"`
	VarianceDays float64         `json:"variance_days"`
	Status       MilestoneStatus `json:"status"`
}

// Comparison is the outcome of comparing the current plan with a baseline.
type Comparison struct {
	Baseline           string              `json:"baseline"`
	BaselineFinish     time.Time           `json:"baseline_finish"`
	CurrentFinish      time.Time           `json:"current_finish"`
	FinishVarianceDays float64             `json:"finish_variance_days"`
	BudgetVariance     float64             `json:"budget_variance"`
	HoursVariance      float64             `json:"hours_variance"`
	Tasks              []TaskVariance      `json:"tasks,omitempty"`
	Milestones         []MilestoneVariance `json:"milestones,omitempty"`
	Completed          []TaskPerformance   `json:"completed,omitempty"`
	MilestonesAtRisk   int                 `json:"milestones_at_risk"`
	Health             billing.Health      `json:"health"`
}

// Compare measures current against base. Only tasks and milestones that
// changed are listed, in current plan order followed by removed tasks.
func Compare(base, current *Baseline) *Comparison {
	c := &Comparison{
		Baseline:           base.Name,
		BaselineFinish:     base.ProjectFinish,
		CurrentFinish:      current.ProjectFinish,
		FinishVarianceDays: round(current.DurationDays - base.DurationDays),
		BudgetVariance:     current.TotalBudget - base.TotalBudget,
		HoursVariance:      current.TotalHours - base.TotalHours,
	}

	for _, cur := range current.Tasks {
		was, ok := base.Task(cur.ID)
		if !ok {
			c.Tasks = append(c.Tasks, TaskVariance{
				ID: cur.ID, Name: cur.Name, Change: ChangeAdded,
				BudgetVariance: cur.Budget, HoursVariance: cur.Hours,
				CurrentFinish: cur.Finish,
			})
			continue
		}
		if v := taskVariance(was, cur); v.Change != ChangeNone {
			c.Tasks = append(c.Tasks, v)
		}
	}
	for _, was := range base.Tasks {
		if _, ok := current.Task(was.ID); !ok {
			c.Tasks = append(c.Tasks, TaskVariance{
				ID: was.ID, Name: was.Name, Change: ChangeRemoved,
				BudgetVariance: -was.Budget, HoursVariance: -was.Hours,
				BaselineFinish: was.Finish,
			})
		}
	}

	for _, cur := range current.Milestones {
		was, ok := base.milestone(cur.ID)
		if !ok {
			continue
		}
		slip := round(cur.Day - was.Day)
		if math.Abs(slip) < dayTolerance {
			continue
		}
		m := MilestoneVariance{
			ID: cur.ID, Name: cur.Name,
			BaselineDate: was.Date, CurrentDate: cur.Date,
			VarianceDays: slip, Status: milestoneStatus(slip),
		}
		if m.Status != MilestoneOnTrack {
			c.MilestonesAtRisk++
		}
		c.Milestones = append(c.Milestones, m)
	}

	c.Health = c.health()
	return c
}

func taskVariance(was, cur TaskPlan) TaskVariance {
	v := TaskVariance{
		ID:             cur.ID,
		Name:           cur.Name,
		StartDays:      round(cur.StartDay - was.StartDay),
		FinishDays:     round(cur.FinishDay - was.FinishDay),
		DurationDays:   round(cur.DurationDays - was.DurationDays),
		BudgetVariance: cur.Budget - was.Budget,
		HoursVariance:  cur.Hours - was.Hours,
		BaselineFinish: was.Finish,
		CurrentFinish:  cur.Finish,
	}
	switch {
	case math.Abs(v.StartDays) >= dayTolerance, math.Abs(v.FinishDays) >= dayTolerance, math.Abs(v.DurationDays) >= dayTolerance:
		v.Change = ChangeSchedule
	case math.Abs(v.BudgetVariance) > moneyTolerance:
		v.Change = ChangeCost
	case math.Abs(v.HoursVariance) > hoursTolerance:
		v.Change = ChangeScope
	default:
		v.Change = ChangeNone
	}
	return v
}

// milestoneStatus rates a slip in working days; finishing early is on track.
func milestoneStatus(slip float64) MilestoneStatus {
	switch {
	case slip <= 0:
		return MilestoneOnTrack
	case slip <= delayedDays:
		return MilestoneAtRisk
	default:
		return MilestoneDelayed
	}
}

// health is red for any task slipping more than delayedDays, any budget
// increase above criticalBudgetIncrease or a delayed milestone, and yellow
// for more than three changed tasks or more than one moved milestone.
func (c *Comparison) health() billing.Health {
	for _, t := range c.Tasks {
		if t.FinishDays > delayedDays || t.BudgetVariance > criticalBudgetIncrease {
			return billing.HealthRed
		}
	}
	for _, m := range c.Milestones {
		if m.Status == MilestoneDelayed {
			return billing.HealthRed
		}
	}
	if len(c.Tasks) > 3 || len(c.Milestones) > 1 {
		return billing.HealthYellow
	}
	return billing.HealthGreen
}

// round keeps day offsets to the hundredth so calendar float noise does
// not read as a change.
func round(days float64) float64 {
	return math.Round(days*100) / 100
}
