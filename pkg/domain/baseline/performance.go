package baseline

import (
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

// Performance grades a finished task on its duration and cost overrun.
type Performance string

const (
	PerformanceExcellent  Performance = "excellent"
	PerformanceGood       Performance = "good"
	PerformanceAcceptable Performance = "acceptable"
	PerformancePoor       Performance = "poor"
	PerformanceCritical   Performance = "critical"
)

// DurationVariance compares planned and actual duration and spend. Effort
// is measured in money because actual hours are not recorded.
type DurationVariance struct {
	PlannedDays         float64     `json:"planned_days"`
	ActualDays          float64     `json:"actual_days"`
	VarianceDays        float64     `json:"variance_days"`
	VariancePercent     float64     `json:"variance_percent"`
	PlannedCost         float64     `json:"planned_cost"`
	ActualCost          float64     `json:"actual_cost"`
	CostVariance        float64     `json:"cost_variance"`
	CostVariancePercent float64     `json:"cost_variance_percent"`
	Performance         Performance `json:"performance"`
}

// MeasureDuration computes the variance of one piece of work. Percentages
// are zero when nothing was planned.
func MeasureDuration(plannedDays, actualDays, plannedCost, actualCost float64) DurationVariance {
	v := DurationVariance{
		PlannedDays:  plannedDays,
		ActualDays:   actualDays,
		VarianceDays: round(actualDays - plannedDays),
		PlannedCost:  plannedCost,
		ActualCost:   actualCost,
		CostVariance: actualCost - plannedCost,
	}
	if plannedDays > 0 {
		v.VariancePercent = (actualDays - plannedDays) / plannedDays * 100
	}
	if plannedCost > 0 {
		v.CostVariancePercent = v.CostVariance / plannedCost * 100
	}
	v.Performance = grade(v.VariancePercent, v.CostVariancePercent)
	return v
}

// grade applies the overrun bands: both at least 10% under is excellent,
// then both within 5%, 15% and 25% over.
func grade(durationPct, costPct float64) Performance {
	switch {
	case durationPct <= -10 && costPct <= -10:
		return PerformanceExcellent
	case durationPct <= 5 && costPct <= 5:
		return PerformanceGood
	case durationPct <= 15 && costPct <= 15:
		return PerformanceAcceptable
	case durationPct <= 25 && costPct <= 25:
		return PerformancePoor
	default:
		return PerformanceCritical
	}
}

// TaskPerformance is the duration variance of a finished task against its
// baseline plan.
type TaskPerformance struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	DurationVariance
}

// MeasureCompleted adds the performance of every task that has both an
// actual start and end and a plan in base. Actual duration is the working
// time between the two on cal.
func (c *Comparison) MeasureCompleted(base *Baseline, tasks []planning.Task, cal calendar.Calendar) {
	c.Completed = nil
	for _, t := range tasks {
		if t.ActualStart == nil || t.ActualEnd == nil {
			continue
		}
		plan, ok := base.Task(t.ID)
		if !ok {
			continue
		}
		actual := cal.InDays(cal.WorkingTimeBetween(*t.ActualStart, *t.ActualEnd))
		c.Completed = append(c.Completed, TaskPerformance{
			ID:               t.ID,
			Name:             t.Name,
			DurationVariance: MeasureDuration(plan.DurationDays, round(actual), plan.Budget, t.ActualCost),
		})
	}
}
