package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootOptions are the global flags shared by every command.
type rootOptions struct {
	project   string
	logLevel  string
	logFormat string
	// now replaces the clock in tests.
	now func() time.Time
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cadence",
		Version: Version,
		Short:   "Critical path scheduling for projects kept in plain files",
		Long: `Cadence schedules the tasks in .cadence/project.yaml on working-time
calendars. It answers:
1. When will the project finish, and which tasks drive that date?
2. Who is booked beyond capacity?
3. Are we on budget and on schedule?`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.project, "project", "C", "", "Project directory (default: current directory)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	cmd.AddCommand(
		newInitCmd(opts),
		newScheduleCmd(opts),
		newCriticalCmd(opts),
		newResourcesCmd(opts),
		newEVMCmd(opts),
		newCostCmd(opts),
		newTaskCmd(opts),
		newResourceCmd(opts),
		newRateCmd(opts),
		newCalendarCmd(opts),
		newWatchCmd(opts),
		newDashboardCmd(opts),
		newHistoryCmd(opts),
		newBaselineCmd(opts),
		newWebhookCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// Execute runs the CLI and prints mapped errors with their hints.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.ExitCode != 0 {
		return cliErr.ExitCode
	}
	return 1
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", cliErr.Hint)
	}
}

func (o *rootOptions) projectRoot() (string, error) {
	if o.project == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(o.project)
	if err != nil {
		return "", fmt.Errorf("invalid project path %q: %w", o.project, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project path %q: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %q is not a directory", abs)
	}
	return abs, nil
}

// loadServices wires the services for the project directory. Callers must
// Close the workspace so pending webhook deliveries finish.
func (o *rootOptions) loadServices(cmd *cobra.Command) (*wiring.AppServices, error) {
	root, err := o.projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, MapError(err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger, err := wiring.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, NewCLIError("invalid logging flags", "Use --log-level debug|info|warn|error and --log-format text|json", err)
	}
	services, err := wiring.BuildAppServices(root, wiring.BuildOptions{
		Config: cfg,
		Logger: logger,
		Now:    o.now,
	})
	if err != nil {
		return nil, MapError(err)
	}
	return services, nil
}

// jsonOutput reports whether a command should print JSON: the flag wins,
// otherwise the configured output format decides.
func jsonOutput(cmd *cobra.Command, flag bool, services *wiring.AppServices) bool {
	if cmd.Flags().Changed("json") {
		return flag
	}
	return services.Workspace.Config.Output == "json"
}

func (o *rootOptions) clock() func() time.Time {
	if o.now != nil {
		return o.now
	}
	return time.Now
}
