package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/baseline"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/storage"
)

// CLIError is an error the CLI reports with a hint and its own exit code.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CLIError) Unwrap() error { return e.Err }

// NewCLIError returns a CLIError that exits with 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{Message: msg, Hint: hint, Err: err, ExitCode: exitFailure}
}

const (
	exitFailure = 1
	// exitInvalidProject marks structural problems in the project files.
	exitInvalidProject = 2
)

func invalidProject(msg, hint string, err error) *CLIError {
	e := NewCLIError(msg, hint, err)
	e.ExitCode = exitInvalidProject
	return e
}

// known maps sentinel errors to what the user is told. The first match wins.
var known = []struct {
	targets []error
	message string
	hint    string
	code    int
}{
	{[]error{project.ErrNoProject}, "no project found", "Run 'cadence init <name>' to create one", exitFailure},
	{[]error{project.ErrProjectExists}, "project already exists", "Edit .cadence/project.yaml or use another directory", exitFailure},
	{[]error{project.ErrTaskNotFound}, "task not found", "Run 'cadence task list' to see task IDs", exitFailure},
	{[]error{project.ErrTaskExists}, "task already exists", "Pick a different --id", exitFailure},
	{[]error{project.ErrMissingProjectStart}, "project start is required", "Pass --start YYYY-MM-DD", exitFailure},
	{[]error{storage.ErrSchemaViolation}, "project file is invalid", "Fix the listed fields in .cadence/project.yaml", exitInvalidProject},
	{[]error{project.ErrInvalidSnapshot}, "project file is invalid", "Fix the reported entry in .cadence/", exitInvalidProject},
	{[]error{planning.ErrInvalidTask, planning.ErrInvalidTaskKind}, "invalid task", "Check --kind, --duration, --work and --estimate", exitFailure},
	{[]error{planning.ErrInvalidEstimate}, "invalid estimate", "Use a number and a unit such as 3d, 12h or 2w", exitFailure},
	{[]error{planning.ErrInvalidResource}, "invalid resource", "Availability must be within (0, 1] and costs must not be negative", exitFailure},
	{[]error{application.ErrVerifyUnsupported}, "integrity check unavailable", "The event log does not chain hashes", exitFailure},
	{[]error{planning.ErrProgressRegression}, "progress must not decrease", "Record a percentage at least as high as the last one", exitFailure},
	{[]error{planning.ErrInvalidProgress}, "invalid progress", "Give progress as a fraction (0.4) or a percentage (40%)", exitFailure},
	{[]error{calendar.ErrCalendarNotFound}, "calendar not found", "Import it with 'cadence calendar import <file>'", exitFailure},
	{[]error{calendar.ErrInvalidCalendar, calendar.ErrNoWorkingDays}, "invalid calendar", "Check hours_per_day, start_hour and working_days", exitFailure},
	{[]error{application.ErrEmptyCalendarFile}, "no calendars in file", "The file needs an 'id' or a 'calendars:' list", exitFailure},
	{[]error{billing.ErrRateExists}, "rate already exists", "Pick a different rate ID", exitFailure},
	{[]error{billing.ErrRateNotFound}, "rate not found", "Run 'cadence rate list' to see rate IDs", exitFailure},
	{[]error{billing.ErrInvalidRate}, "invalid rate", "Rates need an ID, a name and a non-negative hourly rate", exitFailure},
	{[]error{baseline.ErrBaselineExists}, "baseline already exists", "Pick another name or run 'cadence baseline list'", exitFailure},
	{[]error{baseline.ErrBaselineNotFound}, "baseline not found", "Take one with 'cadence baseline create <name>'", exitFailure},
	{[]error{baseline.ErrInvalidBaseline}, "invalid baseline", "Give the baseline a name", exitFailure},
	{[]error{config.ErrInvalidConfig}, "invalid configuration", "Fix .cadence/config.yaml or the CADENCE_* environment variables", exitFailure},
}

// MapError turns domain errors into CLIErrors carrying a hint. Anything it
// does not recognise is returned unchanged.
func MapError(err error) error {
	var cliErr *CLIError
	if err == nil || errors.As(err, &cliErr) {
		return err
	}
	if mapped := mapTyped(err); mapped != nil {
		return mapped
	}
	for _, k := range known {
		for _, target := range k.targets {
			if errors.Is(err, target) {
				return &CLIError{Message: k.message, Hint: k.hint, Err: err, ExitCode: k.code}
			}
		}
	}
	return err
}

// mapTyped handles the errors whose hint names the offending entry.
func mapTyped(err error) *CLIError {
	var (
		cycle    *dependency.CircularDependencyError
		dangling *dependency.DanglingReferenceError
		dup      *dependency.DuplicateNodeError
		trans    *project.TransitionError
	)
	switch {
	case errors.As(err, &cycle):
		return invalidProject("dependency cycle", "Remove one of the dependencies along the cycle in .cadence/project.yaml", err)
	case errors.As(err, &dangling):
		return invalidProject("unknown dependency",
			fmt.Sprintf("Add %q or remove the reference from %s; 'cadence task list' shows known IDs", dangling.MissingID, dangling.ReferencedBy), err)
	case errors.As(err, &dup):
		return invalidProject("duplicate identifier", fmt.Sprintf("Rename one of the entries called %q", dup.ID), err)
	case errors.As(err, &trans):
		return NewCLIError(trans.Error(),
			fmt.Sprintf("Task '%s' is '%s'; check its status with 'cadence task list'", trans.TaskID, trans.FromStatus), err)
	}
	return nil
}
