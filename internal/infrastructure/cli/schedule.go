package cli

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/schedule"
	"github.com/spf13/cobra"
)

// runFlags are the flags every report command accepts.
type runFlags struct {
	json bool
	date string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&f.date, "date", "", "Earned value report date, YYYY-MM-DD or RFC 3339")
}

// runReport loads the services and runs the engine once.
func runReport(cmd *cobra.Command, opts *rootOptions, flags *runFlags, ro application.RunOptions) (*wiring.AppServices, *application.Report, error) {
	reportDate, err := config.ParseReportDate(flags.date)
	if err != nil {
		return nil, nil, NewCLIError("invalid --date", "Use YYYY-MM-DD or RFC 3339", err)
	}
	ro.ReportDate = reportDate

	services, err := opts.loadServices(cmd)
	if err != nil {
		return nil, nil, err
	}
	report, err := services.Schedule.Run(cmd.Context(), ro)
	if err != nil {
		services.Workspace.Close()
		return nil, nil, MapError(err)
	}
	return services, report, nil
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		flags     runFlags
		writeBack bool
		noRecord  bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the schedule, critical path and slack",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, report, err := runReport(cmd, opts, &flags, application.RunOptions{
				WriteBack: writeBack,
				Record:    !noRecord,
			})
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if jsonOutput(cmd, flags.json, services) {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printSchedule(cmd.OutOrStdout(), report.Schedule)
			printFindings(cmd.OutOrStdout(), report.Findings)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&writeBack, "write-back", false, "Store critical flags and slack in project.yaml")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not append the run to the history")
	return cmd
}

func printSchedule(w io.Writer, res *schedule.Result) {
	cal := res.Calendar
	fmt.Fprintf(w, "%s %s -> %s (%.2f working days)\n\n",
		titleStyle.Render("Schedule"), fmtTime(res.ProjectStart), fmtTime(res.ProjectFinish), res.DurationDays)

	fmt.Fprintf(w, "  %-12s %-24s %-16s %-16s %8s %8s\n", "ID", "NAME", "START", "FINISH", "SLACK", "FREE")
	for _, t := range res.OrderedTimings() {
		line := fmt.Sprintf("%-12s %-24s %-16s %-16s %7.2fd %7.2fd",
			t.ID, truncate(t.Name, 24), fmtTime(t.EarlyStart), fmtTime(t.EarlyFinish),
			cal.InDays(t.Slack), cal.InDays(t.FreeFloat))
		if t.Critical {
			fmt.Fprintf(w, "%s %s\n", criticalStyle.Render("*"), criticalStyle.Render(line))
		} else {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintf(w, "\n%s\n", mutedStyle.Render("* critical"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

func newCriticalCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "critical",
		Short: "Show the critical path",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, report, err := runReport(cmd, opts, &flags, application.RunOptions{})
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			res := report.Schedule
			if jsonOutput(cmd, flags.json, services) {
				var chain []schedule.Timing
				for _, id := range res.CriticalPath {
					tm, _ := res.Timing(id)
					chain = append(chain, tm)
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"project_finish": res.ProjectFinish,
					"critical_path":  chain,
				})
			}

			w := cmd.OutOrStdout()
			heading(w, fmt.Sprintf("Critical path (%d)", len(res.CriticalPath)))
			for i, id := range res.CriticalPath {
				tm, _ := res.Timing(id)
				fmt.Fprintf(w, "  %2d. %-12s %-24s %s -> %s\n", i+1, tm.ID, truncate(tm.Name, 24), fmtTime(tm.EarlyStart), fmtTime(tm.EarlyFinish))
			}
			fmt.Fprintf(w, "\nProject finish: %s\n", fmtTime(res.ProjectFinish))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newResourcesCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Show resource utilisation and over-allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, report, err := runReport(cmd, opts, &flags, application.RunOptions{})
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			alloc := report.Allocation
			if jsonOutput(cmd, flags.json, services) {
				return writeJSON(cmd.OutOrStdout(), alloc)
			}

			w := cmd.OutOrStdout()
			heading(w, "Utilisation")
			if len(alloc.Utilisation) == 0 {
				fmt.Fprintln(w, "  (no labor resources)")
			}
			for _, u := range alloc.Utilisation {
				fmt.Fprintf(w, "  %-12s %-20s %8.1fh / %8.1fh  %s\n", u.ResourceID, truncate(u.Name, 20), u.Booked, u.Available, fmtPercent(u.Percent))
			}

			fmt.Fprintln(w)
			if !alloc.IsOverallocated() {
				fmt.Fprintln(w, goodStyle.Render("No resource is booked beyond capacity."))
				return nil
			}
			heading(w, fmt.Sprintf("Over-allocated days (%d)", len(alloc.Overallocations)))
			for _, o := range alloc.Overallocations {
				fmt.Fprintf(w, "  %s %-12s booked %5.1fh of %5.1fh (+%.1fh)\n",
					o.Date.Format("2006-01-02"), o.ResourceID, o.Allocated.Hours(), o.Capacity.Hours(), o.Excess().Hours())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newEVMCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "evm",
		Short: "Show earned value metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, report, err := runReport(cmd, opts, &flags, application.RunOptions{})
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			m := report.EVM
			if jsonOutput(cmd, flags.json, services) {
				return writeJSON(cmd.OutOrStdout(), m)
			}

			w := cmd.OutOrStdout()
			heading(w, "Earned value as of "+fmtTime(m.ReportDate))
			rows := []struct {
				label string
				value string
			}{
				{"Budget at completion (BAC)", fmt.Sprintf("%.2f", m.BudgetAtComplete)},
				{"Planned value (PV)", fmt.Sprintf("%.2f", m.PlannedValue)},
				{"Earned value (EV)", fmt.Sprintf("%.2f", m.EarnedValue)},
				{"Actual cost (AC)", fmt.Sprintf("%.2f", m.ActualCost)},
				{"Cost variance (CV)", fmt.Sprintf("%.2f", m.CostVariance)},
				{"Schedule variance (SV)", fmt.Sprintf("%.2f", m.ScheduleVariance)},
				{"Cost performance (CPI)", healthStyle(m.CostHealth).Render(fmtRatio(m.CPI))},
				{"Schedule performance (SPI)", healthStyle(m.ScheduleHealth).Render(fmtRatio(m.SPI))},
				{"Estimate at completion (EAC)", fmt.Sprintf("%.2f", m.EstimateAtComplete)},
				{"Estimate to complete (ETC)", fmt.Sprintf("%.2f", m.EstimateToComplete)},
				{"Variance at completion (VAC)", fmt.Sprintf("%.2f", m.VarianceAtComplete)},
				{"Percent complete", fmt.Sprintf("%.0f%%", m.PercentComplete*100)},
				{"Percent spent", fmtPercent(m.PercentSpent)},
			}
			for _, r := range rows {
				fmt.Fprintf(w, "  %-30s %s\n", r.label, r.value)
			}
			printFindings(w, report.Findings)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newCostCmd(opts *rootOptions) *cobra.Command {
	var (
		flags runFlags
		csv   bool
	)
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show the budgeted and actual cost per task",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, report, err := runReport(cmd, opts, &flags, application.RunOptions{})
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			snap, err := services.Projects.Snapshot(cmd.Context())
			if err != nil {
				return MapError(err)
			}
			cr := application.BuildCostReport(snap, report)

			w := cmd.OutOrStdout()
			switch {
			case csv:
				_, err := io.WriteString(w, cr.CSV()+"\n")
				return err
			case jsonOutput(cmd, flags.json, services):
				return writeJSON(w, cr)
			}

			heading(w, "Cost report ("+cr.Currency+")")
			fmt.Fprintf(w, "  %-12s %-24s %8s %10s %10s %10s\n", "ID", "NAME", "HOURS", "BUDGET", "ACTUAL", "VARIANCE")
			for _, e := range cr.Entries {
				fmt.Fprintf(w, "  %-12s %-24s %8.1f %10.2f %10.2f %10.2f\n",
					e.TaskID, truncate(e.Name, 24), e.Hours, e.Budget, e.ActualCost, e.CostVariance)
			}
			fmt.Fprintf(w, "\n  %-37s %8.1f %10.2f %10.2f %10.2f\n", "Total", cr.TotalHours, cr.TotalBudget, cr.TotalActual, cr.TotalVariance)
			if cr.TaxName != "" {
				fmt.Fprintf(w, "  %s (%.1f%%): %.2f, total with tax %.2f\n", cr.TaxName, cr.TaxPercent, cr.TotalTax, cr.TotalWithTax)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&csv, "csv", false, "Output in CSV format")
	return cmd
}
