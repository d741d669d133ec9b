package billing

import (
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
)

// Health bands for performance indices.
const (
	HealthyIndex = 0.95
	AtRiskIndex  = 0.85
)

// Health classifies a performance index.
type Health string

const (
	HealthGreen   Health = "green"
	HealthYellow  Health = "yellow"
	HealthRed     Health = "red"
	HealthUnknown Health = "unknown"
)

// HealthOf classifies an index; nil is unknown.
func HealthOf(index *float64) Health {
	switch {
	case index == nil:
		return HealthUnknown
	case *index >= HealthyIndex:
		return HealthGreen
	case *index >= AtRiskIndex:
		return HealthYellow
	default:
		return HealthRed
	}
}

// TaskValue is the cost and progress of one scheduled task.
type TaskValue struct {
	TaskID          string
	Budget          float64
	ActualCost      float64
	PercentComplete float64
	Start           time.Time
	Finish          time.Time
}

// EVMInput is everything earned value needs: one entry per task and the
// date the metrics are reported for.
type EVMInput struct {
	Tasks      []TaskValue
	ReportDate time.Time
}

// EVMMetrics are derived earned value figures. CPI, SPI and PercentSpent are
// nil when their divisor is zero.
type EVMMetrics struct {
	ReportDate time.Time `json:"report_date"`

	PlannedValue       float64  `json:"planned_value"`
	EarnedValue        float64  `json:"earned_value"`
	ActualCost         float64  `json:"actual_cost"`
	BudgetAtComplete   float64  `json:"budget_at_completion"`
	CostVariance       float64  `json:"cost_variance"`
	ScheduleVariance   float64  `json:"schedule_variance"`
	CPI                *float64 `json:"cpi"`
	SPI                *float64 `json:"spi"`
	EstimateAtComplete float64  `json:"estimate_at_completion"`
	EstimateToComplete float64  `json:"estimate_to_complete"`
	VarianceAtComplete float64  `json:"variance_at_completion"`

	PercentComplete float64  `json:"percent_complete"`
	PercentSpent    *float64 `json:"percent_spent"`
	ScheduleHealth  Health   `json:"schedule_health"`
	CostHealth      Health   `json:"cost_health"`
}

// CalculateEVM derives earned value metrics. It never fails: undefined
// ratios are left nil and reported as findings.
func CalculateEVM(in EVMInput) (EVMMetrics, []finding.Finding) {
	m := EVMMetrics{ReportDate: in.ReportDate}
	var findings []finding.Finding

	for _, t := range in.Tasks {
		m.BudgetAtComplete += t.Budget
		m.EarnedValue += t.Budget * t.PercentComplete
		m.ActualCost += t.ActualCost
		m.PlannedValue += plannedValue(t, in.ReportDate)
	}

	m.CostVariance = m.EarnedValue - m.ActualCost
	m.ScheduleVariance = m.EarnedValue - m.PlannedValue

	m.CPI = ratio(m.EarnedValue, m.ActualCost)
	if m.CPI == nil {
		findings = append(findings, finding.New(finding.KindEVMGuard, finding.SeverityInfo, "cpi",
			"cost performance index undefined: actual cost is zero"))
	}
	m.SPI = ratio(m.EarnedValue, m.PlannedValue)
	if m.SPI == nil {
		findings = append(findings, finding.New(finding.KindEVMGuard, finding.SeverityInfo, "spi",
			"schedule performance index undefined: planned value is zero"))
	}

	if m.CPI != nil && *m.CPI != 0 {
		m.EstimateAtComplete = m.BudgetAtComplete / *m.CPI
	} else {
		m.EstimateAtComplete = m.BudgetAtComplete + (m.ActualCost - m.EarnedValue)
	}
	m.EstimateToComplete = m.EstimateAtComplete - m.ActualCost
	m.VarianceAtComplete = m.BudgetAtComplete - m.EstimateAtComplete

	if m.BudgetAtComplete > 0 {
		m.PercentComplete = m.EarnedValue / m.BudgetAtComplete * 100
		spent := m.ActualCost / m.BudgetAtComplete * 100
		m.PercentSpent = &spent
	} else {
		findings = append(findings, finding.New(finding.KindEVMGuard, finding.SeverityInfo, "percent_spent",
			"percent spent undefined: budget at completion is zero"))
	}

	m.ScheduleHealth = HealthOf(m.SPI)
	m.CostHealth = HealthOf(m.CPI)
	return m, findings
}

// plannedValue pro-rates a task's budget by the elapsed share of its
// calendar span at the report date.
func plannedValue(t TaskValue, report time.Time) float64 {
	if !report.Before(t.Finish) {
		return t.Budget
	}
	if !report.After(t.Start) {
		return 0
	}
	elapsed := report.Sub(t.Start)
	span := t.Finish.Sub(t.Start)
	return t.Budget * (float64(elapsed) / float64(span))
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}
