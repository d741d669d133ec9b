package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/spf13/cobra"
)

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Working-time calendars and date arithmetic",
	}
	cmd.AddCommand(
		newCalendarListCmd(opts),
		newCalendarImportCmd(opts),
		newCalendarAddHoursCmd(opts),
		newCalendarBetweenCmd(opts),
	)
	return cmd
}

func newCalendarListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project calendars",
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
			def, err := services.Schedule.Calendar(cmd.Context(), "")
			if err != nil {
				return MapError(err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Project calendar: %s\n\n", def.Describe())
			heading(w, fmt.Sprintf("Calendars (%d)", len(snap.Calendars)))
			for _, c := range snap.Calendars {
				fmt.Fprintf(w, "  %s\n", c.Describe())
			}
			if len(snap.Calendars) == 0 {
				fmt.Fprintln(w, "  (none, the configured default is used)")
			}
			return nil
		},
	}
}

func newCalendarImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import calendars from a YAML file, or stdin with -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := stdinOrFile(cmd, args[0])
			if err != nil {
				return err
			}

			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			ids, err := services.Projects.ImportCalendars(cmd.Context(), data)
			if err != nil {
				return MapError(fmt.Errorf("failed to import calendars: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d calendar(s): %v\n", len(ids), ids)
			return nil
		},
	}
}

func newCalendarAddHoursCmd(opts *rootOptions) *cobra.Command {
	var calendarID string
	cmd := &cobra.Command{
		Use:   "add-hours <start> <hours>",
		Short: "Add working hours to a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := config.ParseDate(args[0])
			if err != nil {
				return NewCLIError("invalid start", "Use YYYY-MM-DD or RFC 3339", err)
			}
			hours, err := strconv.ParseFloat(args[1], 64)
			if err != nil || hours < 0 {
				return NewCLIError("invalid hours", "Hours must be a non-negative number", err)
			}

			cal, err := calendarFor(cmd, opts, calendarID)
			if err != nil {
				return err
			}
			end := cal.AddWorkingTime(start, calendar.Hours(hours))
			fmt.Fprintf(cmd.OutOrStdout(), "%s + %gh = %s (%s)\n", fmtTime(start), hours, fmtTime(end), end.Weekday())
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Calendar ID (default: the project calendar)")
	return cmd
}

func newCalendarBetweenCmd(opts *rootOptions) *cobra.Command {
	var calendarID string
	cmd := &cobra.Command{
		Use:   "between <start> <end>",
		Short: "Count the working time between two dates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := config.ParseDate(args[0])
			if err != nil {
				return NewCLIError("invalid start", "Use YYYY-MM-DD or RFC 3339", err)
			}
			end, err := config.ParseDate(args[1])
			if err != nil {
				return NewCLIError("invalid end", "Use YYYY-MM-DD or RFC 3339", err)
			}

			cal, err := calendarFor(cmd, opts, calendarID)
			if err != nil {
				return err
			}
			d := cal.WorkingTimeBetween(start, end)
			fmt.Fprintf(cmd.OutOrStdout(), "%.2fh (%.2f working days)\n", d.Hours(), cal.InDays(d))
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "Calendar ID (default: the project calendar)")
	return cmd
}

func calendarFor(cmd *cobra.Command, opts *rootOptions, id string) (calendar.Calendar, error) {
	services, err := opts.loadServices(cmd)
	if err != nil {
		return calendar.Calendar{}, err
	}
	defer services.Workspace.Close()

	cal, err := services.Schedule.Calendar(cmd.Context(), id)
	if err != nil {
		return calendar.Calendar{}, MapError(err)
	}
	return cal, nil
}

func stdinOrFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCLIError(fmt.Sprintf("cannot read %s", path), "Check the file path", err)
	}
	return data, nil
}
