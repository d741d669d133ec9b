package planning

import "errors"

// Planning domain errors.
var (
	// ErrInvalidTask indicates a task fails structural validation.
	ErrInvalidTask = errors.New("invalid task")
	// ErrDeadlineBeforeStart indicates a task deadline precedes its scheduled start.
	ErrDeadlineBeforeStart = errors.New("deadline before scheduled start")
	// ErrInvalidTaskKind indicates an unknown task kind.
	ErrInvalidTaskKind = errors.New("invalid task kind")
	// ErrInvalidProgress indicates a percent complete outside 0.0 to 1.0.
	ErrInvalidProgress = errors.New("progress must be between 0 and 1")
	// ErrProgressRegression indicates progress lower than, or recorded before, the last entry.
	ErrProgressRegression = errors.New("progress must not decrease")
	// ErrInvalidTransition indicates a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidResource indicates a resource fails structural validation.
	ErrInvalidResource = errors.New("invalid resource")
	// ErrInvalidEstimate indicates an estimate string cannot be parsed.
	ErrInvalidEstimate = errors.New("invalid estimate")
)
