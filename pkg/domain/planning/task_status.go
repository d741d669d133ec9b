package planning

import "fmt"

// TaskStatus is the lifecycle state of a task. The empty status reads as
// not started.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusOnHold     TaskStatus = "on_hold"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Lifecycle events.
const (
	EventStart    = "start"
	EventHold     = "hold"
	EventResume   = "resume"
	EventComplete = "complete"
	EventCancel   = "cancel"
	EventReopen   = "reopen"
)

type edge struct {
	from  TaskStatus
	event string
	to    TaskStatus
}

// edges is the whole lifecycle. Reopening a cancelled task starts it over;
// reopening a completed one puts it back in progress.
var edges = []edge{
	{StatusNotStarted, EventStart, StatusInProgress},
	{StatusNotStarted, EventCancel, StatusCancelled},
	{StatusInProgress, EventHold, StatusOnHold},
	{StatusInProgress, EventComplete, StatusCompleted},
	{StatusInProgress, EventCancel, StatusCancelled},
	{StatusOnHold, EventResume, StatusInProgress},
	{StatusOnHold, EventCancel, StatusCancelled},
	{StatusCompleted, EventReopen, StatusInProgress},
	{StatusCancelled, EventReopen, StatusNotStarted},
}

func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{StatusNotStarted, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled}
}

func (s TaskStatus) IsValid() bool {
	for _, known := range AllTaskStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

func (s TaskStatus) OrDefault() TaskStatus {
	if s == "" {
		return StatusNotStarted
	}
	return s
}

func (s TaskStatus) IsCancelled() bool {
	return s == StatusCancelled
}

func (s TaskStatus) String() string {
	return string(s.OrDefault())
}

// outgoing returns the edges leaving s, in table order.
func (s TaskStatus) outgoing() []edge {
	from := s.OrDefault()
	var out []edge
	for _, e := range edges {
		if e.from == from {
			out = append(out, e)
		}
	}
	return out
}

// Events lists the events s accepts.
func (s TaskStatus) Events() []string {
	out := s.outgoing()
	names := make([]string, len(out))
	for i, e := range out {
		names[i] = e.event
	}
	return names
}

// Next returns the status event leads to from s.
func (s TaskStatus) Next(event string) (TaskStatus, error) {
	for _, e := range s.outgoing() {
		if e.event == event {
			return e.to, nil
		}
	}
	return s, fmt.Errorf("%w: %s is not allowed from %s", ErrInvalidTransition, event, s)
}
