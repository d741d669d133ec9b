package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/cadence/internal/infrastructure/config"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/storage"
)

func TestCLIError(t *testing.T) {
	cause := errors.New("root cause")
	tests := []struct {
		err  *CLIError
		want string
	}{
		{NewCLIError("something failed", "try this", cause), "something failed: root cause"},
		{NewCLIError("something failed", "try this", nil), "something failed"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if tt.err.ExitCode != exitFailure {
			t.Errorf("exit code = %d", tt.err.ExitCode)
		}
	}
	if !errors.Is(tests[0].err, cause) {
		t.Error("CLIError must unwrap to its cause")
	}
}

func TestKnownErrorsHaveHints(t *testing.T) {
	for _, k := range known {
		for _, target := range k.targets {
			mapped := MapError(fmt.Errorf("context: %w", target))
			var cliErr *CLIError
			if !errors.As(mapped, &cliErr) || cliErr.Hint == "" {
				t.Errorf("%v is not mapped to a hinted CLIError", target)
				continue
			}
			if cliErr.Message != k.message {
				t.Errorf("%v mapped to %q, want %q", target, cliErr.Message, k.message)
			}
		}
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHint string
		wantCode int
	}{
		{"cycle", &dependency.CircularDependencyError{Cycle: []string{"A", "B", "A"}}, "Remove one of the dependencies", 2},
		{"dangling", &dependency.DanglingReferenceError{MissingID: "ghost", ReferencedBy: "B"}, `Add "ghost"`, 2},
		{"duplicate", &dependency.DuplicateNodeError{ID: "A"}, `"A"`, 2},
		{"schema", fmt.Errorf("load: %w", storage.ErrSchemaViolation), "Fix the listed fields", 2},
		{"no project", project.ErrNoProject, "cadence init", 1},
		{"project exists", project.ErrProjectExists, "another directory", 1},
		{"task not found", fmt.Errorf("wrap: %w", project.ErrTaskNotFound), "cadence task list", 1},
		{"transition", &project.TransitionError{TaskID: "A", FromStatus: "completed", Event: "hold", Err: planning.ErrInvalidTransition}, "Task 'A' is 'completed'", 1},
		{"progress regression", planning.ErrProgressRegression, "at least as high", 1},
		{"calendar not found", calendar.ErrCalendarNotFound, "calendar import", 1},
		{"rate exists", billing.ErrRateExists, "different rate ID", 1},
		{"invalid resource", planning.ErrInvalidResource, "Availability", 1},
		{"invalid config", config.ErrInvalidConfig, "CADENCE_", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			var cliErr *CLIError
			if !errors.As(mapped, &cliErr) {
				t.Fatalf("expected CLIError, got %T", mapped)
			}
			if !strings.Contains(cliErr.Hint, tt.wantHint) {
				t.Errorf("hint = %q, want it to contain %q", cliErr.Hint, tt.wantHint)
			}
			if ExitCode(mapped) != tt.wantCode {
				t.Errorf("exit code = %d, want %d", ExitCode(mapped), tt.wantCode)
			}
			if !errors.Is(mapped, tt.err) {
				t.Error("mapped error must wrap the original")
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		if MapError(nil) != nil {
			t.Fatal("expected nil")
		}
	})

	t.Run("unknown passes through", func(t *testing.T) {
		err := errors.New("boom")
		if MapError(err) != err {
			t.Fatal("unmapped errors must be returned unchanged")
		}
	})

	t.Run("CLIError passes through", func(t *testing.T) {
		err := NewCLIError("already mapped", "", nil)
		if MapError(err) != err {
			t.Fatal("CLIErrors must not be wrapped again")
		}
	})
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil error must exit 0")
	}
	if ExitCode(errors.New("plain")) != 1 {
		t.Error("plain error must exit 1")
	}
}

func TestPrintError(t *testing.T) {
	var b strings.Builder
	printError(&b, NewCLIError("no project found", "Run 'cadence init <name>'", nil))
	if !strings.Contains(b.String(), "Error: no project found") || !strings.Contains(b.String(), "Hint: Run 'cadence init <name>'") {
		t.Errorf("unexpected output:\n%s", b.String())
	}
}
