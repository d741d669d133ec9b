package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/allocation"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/domain/schedule"
)

// Options configure a single engine run.
type Options struct {
	// DefaultCalendar is used whenever a referenced calendar is missing. A
	// zero value selects calendar.Default().
	DefaultCalendar calendar.Calendar
	// ReportDate overrides the snapshot's report date for earned value.
	ReportDate time.Time
	// Now supplies the report date when neither the options nor the snapshot
	// carry one. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Report is the combined output of one run. The schedule is always present
// on success; allocation and earned value are computed from it.
type Report struct {
	Schedule   *schedule.Result   `json:"schedule"`
	Allocation allocation.Report  `json:"allocation"`
	EVM        billing.EVMMetrics `json:"evm"`
	Costs      []billing.TaskCost `json:"costs"`
	Findings   []finding.Finding  `json:"findings"`
}

// RunEngine schedules the snapshot, checks resource allocation and derives
// earned value. The snapshot is never modified. Structural problems abort the
// run with an error and no report.
func RunEngine(ctx context.Context, snap *project.Snapshot, opts Options) (*Report, error) {
	if snap == nil {
		return nil, project.ErrNoProject
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snap = snap.Clone()

	res, err := schedule.NewScheduler(opts.DefaultCalendar, logger).Schedule(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolver := calendar.NewResolver(snap.Calendars, opts.DefaultCalendar)
	alloc := allocation.Allocate(snap, res, resolver)

	reportDate := resolveReportDate(snap, opts)
	costs, values := costTasks(snap, res, reportDate)
	evm, evmFindings := billing.CalculateEVM(billing.EVMInput{Tasks: values, ReportDate: reportDate})

	report := &Report{
		Schedule:   res,
		Allocation: alloc,
		EVM:        evm,
		Costs:      costs,
	}
	report.Findings = append(report.Findings, res.Findings...)
	report.Findings = append(report.Findings, alloc.Findings...)
	report.Findings = append(report.Findings, evmFindings...)

	logger.Debug("engine run complete",
		"project", snap.Name,
		"finish", res.ProjectFinish,
		"overallocations", len(alloc.Overallocations),
		"findings", len(report.Findings))
	return report, nil
}

func resolveReportDate(snap *project.Snapshot, opts Options) time.Time {
	switch {
	case !opts.ReportDate.IsZero():
		return opts.ReportDate
	case !snap.ReportDate.IsZero():
		return snap.ReportDate
	case opts.Now != nil:
		return opts.Now()
	default:
		return time.Now()
	}
}

// costTasks prices every task on the hours the scheduler booked. Earned
// value counts only progress recorded by asOf. Cancelled tasks carry no
// planned or earned value.
func costTasks(snap *project.Snapshot, res *schedule.Result, asOf time.Time) ([]billing.TaskCost, []billing.TaskValue) {
	resources := snap.ResourceIndex()
	costs := make([]billing.TaskCost, 0, len(snap.Tasks))
	values := make([]billing.TaskValue, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		cost := billing.CostTask(t, res.Hours(t.ID), resources, &snap.Rates)
		costs = append(costs, cost)
		if t.Status.IsCancelled() {
			continue
		}
		tm, _ := res.Timing(t.ID)
		values = append(values, billing.TaskValue{
			TaskID:          t.ID,
			Budget:          cost.Budget,
			ActualCost:      t.ActualCost,
			PercentComplete: t.PercentCompleteAt(asOf),
			Start:           tm.EarlyStart,
			Finish:          tm.EarlyFinish,
		})
	}
	return costs, values
}

// BuildCostReport turns a run's task costs into a report in the project's
// currency, with tax applied when configured.
func BuildCostReport(snap *project.Snapshot, report *Report) *billing.CostReport {
	cr := billing.NewCostReport(snap.Rates.Currency)
	cr.SetTax(snap.Rates.Tax)
	for _, cost := range report.Costs {
		t, _ := snap.Task(cost.TaskID)
		cr.AddEntry(billing.NewCostReportEntry(t.Name, cost, t.ActualCost), snap.Rates.Tax)
	}
	return cr
}
