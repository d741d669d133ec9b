package cli

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/cadence/pkg/domain/baseline"
	"github.com/spf13/cobra"
)

func newBaselineCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Take schedule baselines and compare the plan with them",
	}
	cmd.AddCommand(newBaselineCreateCmd(opts), newBaselineListCmd(opts), newBaselineCompareCmd(opts))
	return cmd
}

func newBaselineCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Store the current schedule as a baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			b, err := services.Baselines.Create(cmd.Context(), args[0])
			if err != nil {
				return MapError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created baseline %s: %d task(s), finish %s, budget %.2f\n",
				b.Name, len(b.Tasks), fmtTime(b.ProjectFinish), b.TotalBudget)
			return nil
		},
	}
}

func newBaselineListCmd(opts *rootOptions) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			set, err := services.Baselines.List(cmd.Context())
			if err != nil {
				return MapError(err)
			}
			w := cmd.OutOrStdout()
			if jsonOutput(cmd, jsonFlag, services) {
				return writeJSON(w, set)
			}
			if len(set) == 0 {
				fmt.Fprintln(w, "No baselines. Use 'cadence baseline create <name>' to take one.")
				return nil
			}
			heading(w, fmt.Sprintf("Baselines (%d)", len(set)))
			for _, b := range set {
				fmt.Fprintf(w, "  %-16s taken %s  finish %s  %6.2fd  budget %.2f\n",
					b.Name, fmtTime(b.CreatedAt), fmtTime(b.ProjectFinish), b.DurationDays, b.TotalBudget)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	return cmd
}

func newBaselineCompareCmd(opts *rootOptions) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "compare [name]",
		Short: "Compare the current plan with a baseline (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}

			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			c, err := services.Baselines.Compare(cmd.Context(), name)
			if err != nil {
				return MapError(err)
			}
			if jsonOutput(cmd, jsonFlag, services) {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			printComparison(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	return cmd
}

func printComparison(w io.Writer, c *baseline.Comparison) {
	heading(w, "Compared with baseline "+c.Baseline)
	fmt.Fprintf(w, "  %-20s %s -> %s (%+.2fd)\n", "Finish", fmtTime(c.BaselineFinish), fmtTime(c.CurrentFinish), c.FinishVarianceDays)
	fmt.Fprintf(w, "  %-20s %+.2f\n", "Budget", c.BudgetVariance)
	fmt.Fprintf(w, "  %-20s %+.2f\n", "Hours", c.HoursVariance)
	fmt.Fprintf(w, "  %-20s %s\n", "Health", healthStyle(c.Health).Render(string(c.Health)))

	if len(c.Tasks) > 0 {
		fmt.Fprintln(w)
		heading(w, fmt.Sprintf("Changed tasks (%d)", len(c.Tasks)))
		for _, t := range c.Tasks {
			fmt.Fprintf(w, "  %-12s %-9s start %+6.2fd  finish %+6.2fd  budget %+.2f\n",
				t.ID, t.Change, t.StartDays, t.FinishDays, t.BudgetVariance)
		}
	}

	if len(c.Milestones) > 0 {
		fmt.Fprintln(w)
		heading(w, fmt.Sprintf("Moved milestones (%d)", len(c.Milestones)))
		for _, m := range c.Milestones {
			style := mutedStyle
			switch m.Status {
			case baseline.MilestoneDelayed:
				style = criticalStyle
			case baseline.MilestoneAtRisk:
				style = warnStyle
			}
			fmt.Fprintf(w, "  %-12s %s -> %s (%+.2fd) %s\n",
				m.ID, fmtTime(m.BaselineDate), fmtTime(m.CurrentDate), m.VarianceDays, style.Render(string(m.Status)))
		}
	}

	if len(c.Completed) > 0 {
		fmt.Fprintln(w)
		heading(w, fmt.Sprintf("Finished tasks (%d)", len(c.Completed)))
		for _, t := range c.Completed {
			fmt.Fprintf(w, "  %-12s %5.2fd planned  %5.2fd actual (%+.0f%%)  cost %+.2f  %s\n",
				t.ID, t.PlannedDays, t.ActualDays, t.VariancePercent, t.CostVariance, t.Performance)
		}
	}
}
