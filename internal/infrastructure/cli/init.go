package cli

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var start, calendarID string
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a project in .cadence/",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			startDate, err := config.ParseDate(start)
			if err != nil {
				return NewCLIError("invalid --start", "Use YYYY-MM-DD", err)
			}
			if startDate.IsZero() {
				now := opts.clock()().UTC()
				startDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			}

			if err := services.Projects.Init(cmd.Context(), args[0], startDate, calendarID); err != nil {
				return MapError(fmt.Errorf("failed to initialise project: %w", err))
			}
			if err := config.WriteDefault(services.Workspace.Root); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialised cadence project %s starting %s\n", args[0], startDate.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Project start date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Project calendar ID (default: the configured calendar)")
	return cmd
}
