package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/spf13/cobra"
)

func newTaskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(opts),
		newTaskProgressCmd(opts),
		newTaskListCmd(opts),
		createTaskCommand(opts, "hold", "Put a task on hold", planning.EventHold),
		createTaskCommand(opts, "resume", "Resume a task on hold", planning.EventResume),
		createTaskCommand(opts, "cancel", "Cancel a task", planning.EventCancel),
		createTaskCommand(opts, "reopen", "Reopen a completed or cancelled task", planning.EventReopen),
	)
	return cmd
}

func createTaskCommand(opts *rootOptions, use, short, event string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if err := services.Projects.Transition(cmd.Context(), args[0], event); err != nil {
				return MapError(fmt.Errorf("failed to %s task: %w", event, err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s transition '%s' successful.\n", args[0], event)
			return nil
		},
	}
}

func newTaskAddCmd(opts *rootOptions) *cobra.Command {
	var (
		task            planning.Task
		kind            string
		start, deadline string
		after, assign   []string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task.Name = args[0]
			task.Kind = planning.TaskKind(kind)
			var err error
			if task.ScheduledStart, err = config.ParseDate(start); err != nil {
				return NewCLIError("invalid --start", "Use YYYY-MM-DD", err)
			}
			if task.Deadline, err = config.ParseDate(deadline); err != nil {
				return NewCLIError("invalid --deadline", "Use YYYY-MM-DD", err)
			}
			for _, s := range after {
				dep, err := parseDependency(s)
				if err != nil {
					return NewCLIError("invalid --after", "Use ID, ID:TYPE or ID:TYPE:LAG, e.g. design:SS:1", err)
				}
				task.Dependencies = append(task.Dependencies, dep)
			}
			for _, s := range assign {
				a, err := parseAssignment(s)
				if err != nil {
					return NewCLIError("invalid --assign", "Use RESOURCE, RESOURCE:HOURS or RESOURCE:HOURS:SHARE, e.g. dev:24:0.5", err)
				}
				task.Assignments = append(task.Assignments, a)
			}

			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			id, err := services.Projects.AddTask(cmd.Context(), task)
			if err != nil {
				return MapError(fmt.Errorf("failed to add task: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s (%s)\n", id, task.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&task.ID, "id", "", "Task ID (default: generated)")
	f.StringVar(&kind, "kind", string(planning.KindFixedDuration), "Task kind: fixed_duration, effort_driven or fixed_work")
	f.Float64Var(&task.DurationDays, "duration", 0, "Duration in working days")
	f.StringVar(&task.Estimate, "estimate", "", "Estimate such as 3d, 12h or 2w")
	f.Float64Var(&task.Work, "work", 0, "Work in hours (fixed_work tasks)")
	f.Float64Var(&task.Budget, "budget", 0, "Budget; overrides the cost computed from assignments")
	f.StringVar(&start, "start", "", "Start no earlier than this date")
	f.StringVar(&deadline, "deadline", "", "Deadline")
	f.StringArrayVar(&after, "after", nil, "Predecessor as ID[:TYPE[:LAG_DAYS]]; repeatable")
	f.StringArrayVar(&assign, "assign", nil, "Assignment as RESOURCE[:HOURS[:SHARE]]; repeatable")
	return cmd
}

// parseDependency parses ID[:TYPE[:LAG]], e.g. "A", "A:SS" or "A:FS:-1".
func parseDependency(s string) (planning.Dependency, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || parts[0] == "" {
		return planning.Dependency{}, fmt.Errorf("malformed dependency %q", s)
	}
	dep := planning.Dependency{PredecessorID: parts[0], Kind: dependency.FinishToStart}
	if len(parts) > 1 {
		t, ok := dependency.ParseType(parts[1])
		if !ok {
			return planning.Dependency{}, fmt.Errorf("%w: %q", dependency.ErrInvalidDependencyType, parts[1])
		}
		dep.Kind = t
	}
	if len(parts) > 2 {
		lag, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return planning.Dependency{}, fmt.Errorf("lag %q: %w", parts[2], err)
		}
		dep.LagDays = lag
	}
	return dep, nil
}

// parseAssignment parses RESOURCE[:HOURS[:SHARE]].
func parseAssignment(s string) (planning.ResourceAssignment, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || parts[0] == "" {
		return planning.ResourceAssignment{}, fmt.Errorf("malformed assignment %q", s)
	}
	a := planning.ResourceAssignment{ResourceID: parts[0]}
	if len(parts) > 1 {
		h, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || h < 0 {
			return planning.ResourceAssignment{}, fmt.Errorf("hours %q must be a non-negative number", parts[1])
		}
		a.AllocatedHours = h
	}
	if len(parts) > 2 {
		share, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || share <= 0 || share > 1 {
			return planning.ResourceAssignment{}, fmt.Errorf("share %q must be in (0, 1]", parts[2])
		}
		a.Allocation = share
	}
	return a, nil
}

// parsePercent accepts "40%", "0.4" or "40".
func parsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	explicit := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", planning.ErrInvalidProgress, s)
	}
	if explicit || v > 1 {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("%w: %q", planning.ErrInvalidProgress, s)
	}
	return v, nil
}

func newTaskProgressCmd(opts *rootOptions) *cobra.Command {
	var (
		actualCost float64
		note, at   string
	)
	cmd := &cobra.Command{
		Use:   "progress <task-id> <percent>",
		Short: "Record percent complete and actual cost",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := parsePercent(args[1])
			if err != nil {
				return MapError(err)
			}
			recordedAt, err := config.ParseDate(at)
			if err != nil {
				return NewCLIError("invalid --at", "Use YYYY-MM-DD or RFC 3339", err)
			}

			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			if err := services.Projects.RecordProgress(cmd.Context(), args[0], recordedAt, percent, actualCost, note); err != nil {
				return MapError(fmt.Errorf("failed to record progress: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is %.0f%% complete\n", args[0], percent*100)
			return nil
		},
	}
	cmd.Flags().Float64Var(&actualCost, "cost", 0, "Actual cost to date (unchanged when omitted)")
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the entry")
	cmd.Flags().StringVar(&at, "at", "", "When the progress was measured (default: now)")
	return cmd
}

func newTaskListCmd(opts *rootOptions) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in declaration order",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.loadServices(cmd)
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			tasks, err := services.Projects.Tasks(cmd.Context())
			if err != nil {
				return MapError(err)
			}
			if jsonOutput(cmd, jsonFlag, services) {
				return writeJSON(cmd.OutOrStdout(), tasks)
			}

			w := cmd.OutOrStdout()
			heading(w, fmt.Sprintf("Tasks (%d)", len(tasks)))
			for _, t := range tasks {
				size := fmt.Sprintf("%.1fd", t.DurationDays)
				if t.Estimate != "" {
					size = t.Estimate
				}
				line := fmt.Sprintf("%-12s %-24s %-14s %-12s %4.0f%% %6s",
					t.ID, truncate(t.Name, 24), t.Kind.OrDefault(), t.Status.OrDefault(), t.PercentComplete()*100, size)
				if t.IsCriticalPath {
					line = criticalStyle.Render(line + " *")
				}
				fmt.Fprintf(w, "  %s\n", line)
				for _, d := range t.Dependencies {
					lag := ""
					if d.LagDays != 0 {
						lag = fmt.Sprintf(" %+gd", d.LagDays)
					}
					fmt.Fprintf(w, "    %s\n", mutedStyle.Render(fmt.Sprintf("after %s (%s%s)", d.PredecessorID, d.Kind.OrDefault().Short(), lag)))
				}
			}
			if len(tasks) == 0 {
				fmt.Fprintln(w, "  (none)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	return cmd
}
