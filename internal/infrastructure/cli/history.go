package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		verify   bool
		tasks    bool
		jsonFlag bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded schedule runs and how the finish date moved",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			w := cmd.OutOrStdout()
			history := services.History

			if verify {
				violations, err := history.Verify()
				if err != nil {
					return MapError(err)
				}
				if len(violations) == 0 {
					fmt.Fprintln(w, goodStyle.Render("Event log integrity verified."))
					return nil
				}
				fmt.Fprintln(w, criticalStyle.Render(fmt.Sprintf("Event log integrity violations (%d):", len(violations))))
				for _, v := range violations {
					fmt.Fprintf(w, "  - %s\n", v)
				}
				return NewCLIError("event log has been modified", "Restore .cadence/events.jsonl from version control", nil)
			}

			if tasks {
				progress, err := history.TaskProgress()
				if err != nil {
					return MapError(err)
				}
				if jsonOutput(cmd, jsonFlag, services) {
					return writeJSON(w, progress)
				}
				heading(w, fmt.Sprintf("Task activity (%d)", len(progress)))
				for _, p := range progress {
					fmt.Fprintf(w, "  %-12s %-12s %4.0f%%  %d transition(s)  updated %s\n",
						p.TaskID, p.Status, p.Percent*100, p.Transitions, fmtTime(p.UpdatedAt))
				}
				return nil
			}

			runs, trend, err := history.Runs(limit)
			if err != nil {
				return MapError(err)
			}
			if jsonOutput(cmd, jsonFlag, services) {
				return writeJSON(w, map[string]any{"runs": runs, "trend": trend})
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No recorded runs. Use 'cadence schedule' to record one.")
				return nil
			}

			heading(w, fmt.Sprintf("Schedule runs (%d of %d)", len(runs), trend.Runs))
			for _, r := range runs {
				fmt.Fprintf(w, "  %s  finish %s  %6.2fd  critical %v",
					fmtTime(r.Timestamp), fmtTime(r.ProjectFinish), r.DurationDays, r.CriticalPath)
				if r.Overallocations > 0 {
					fmt.Fprintf(w, "  %s", warnStyle.Render(fmt.Sprintf("%d over-allocated", r.Overallocations)))
				}
				fmt.Fprintln(w)
			}

			if trend.Runs < 2 {
				return nil
			}
			fmt.Fprintln(w)
			switch {
			case trend.SlipDays > 0:
				fmt.Fprintln(w, criticalStyle.Render(fmt.Sprintf("Finish slipped %.2f working days since the previous run.", trend.SlipDays)))
			case trend.SlipDays < 0:
				fmt.Fprintln(w, goodStyle.Render(fmt.Sprintf("Finish pulled in %.2f working days since the previous run.", -trend.SlipDays)))
			default:
				fmt.Fprintln(w, "Finish unchanged since the previous run.")
			}
			if trend.CriticalChanged {
				fmt.Fprintln(w, warnStyle.Render("The critical path changed."))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the event log hash chain")
	cmd.Flags().BoolVar(&tasks, "tasks", false, "Show task activity instead of runs")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	return cmd
}
