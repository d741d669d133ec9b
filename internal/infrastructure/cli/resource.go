package cli

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/spf13/cobra"
)

func newResourceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Manage people and cost items",
	}
	cmd.AddCommand(newResourceAddCmd(opts), newResourceListCmd(opts))
	return cmd
}

func newResourceAddCmd(opts *rootOptions) *cobra.Command {
	var (
		r    planning.Resource
		kind string
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r.ID = args[0]
			if r.Name == "" {
				r.Name = r.ID
			}
			r.Kind = planning.ResourceKind(kind)

			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if err := services.Projects.AddResource(cmd.Context(), r); err != nil {
				return MapError(fmt.Errorf("failed to add resource: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added resource %s (%s)\n", r.ID, r.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&r.Name, "name", "", "Display name (default: the ID)")
	f.StringVar(&kind, "kind", string(planning.ResourceLabor), "Resource kind: labor or flat_cost")
	f.Float64Var(&r.HourlyRate, "hourly-rate", 0, "Own hourly rate; overrides billing rates")
	f.Float64Var(&r.FlatCost, "flat-cost", 0, "Cost charged once per assigned task (flat_cost resources)")
	f.Float64Var(&r.Availability, "availability", 0, "Share of the calendar worked, 0 < a <= 1 (default: full time)")
	f.StringVar(&r.CalendarID, "calendar", "", "Calendar ID (default: the project calendar)")
	f.StringVar(&r.RateID, "rate", "", "Billing rate ID")
	return cmd
}

func newResourceListCmd(opts *rootOptions) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			snap, err := services.Projects.Snapshot(cmd.Context())
			if err != nil {
				return MapError(err)
			}
			if jsonOutput(cmd, jsonFlag, services) {
				return writeJSON(cmd.OutOrStdout(), snap.Resources)
			}

			w := cmd.OutOrStdout()
			heading(w, fmt.Sprintf("Resources (%d)", len(snap.Resources)))
			for _, r := range snap.Resources {
				cal := r.CalendarID
				if cal == "" {
					cal = "-"
				}
				fmt.Fprintf(w, "  %-12s %-20s %-9s %8.2f/h  %3.0f%%  %s\n",
					r.ID, truncate(r.Name, 20), kindLabel(r), r.HourlyRate, r.EffectiveAvailability()*100, cal)
			}
			if len(snap.Resources) == 0 {
				fmt.Fprintln(w, "  (none)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	return cmd
}

func kindLabel(r planning.Resource) string {
	if r.IsLabor() {
		return string(planning.ResourceLabor)
	}
	return string(r.Kind)
}
