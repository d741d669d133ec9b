package project

import "errors"

// Domain errors for project coordination.
var (
	// ErrNoProject indicates no project has been initialised.
	ErrNoProject = errors.New("no project found")

	// ErrProjectExists indicates a project is already initialised.
	ErrProjectExists = errors.New("project already exists")

	// ErrTaskNotFound indicates the task does not exist in the project.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskExists indicates a task or milestone with the same ID already exists.
	ErrTaskExists = errors.New("task already exists")

	// ErrInvalidSnapshot indicates the snapshot fails validation.
	ErrInvalidSnapshot = errors.New("invalid project snapshot")

	// ErrMissingProjectStart indicates the project has no start date.
	ErrMissingProjectStart = errors.New("project start date is required")
)

// TransitionError provides details about an invalid lifecycle change.
type TransitionError struct {
	TaskID     string
	FromStatus string
	Event      string
	Err        error
}

func (e *TransitionError) Error() string {
	return "cannot apply " + e.Event + " to task " + e.TaskID + " in status " + e.FromStatus + ": " + e.Err.Error()
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
