package planning

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// guardedEvents need the progress guard's approval.
var guardedEvents = map[string]bool{
	EventStart:    true,
	EventComplete: true,
}

// ProgressGuard decides whether a guarded event may fire.
type ProgressGuard func(event string) bool

type lifecycleContext struct {
	guard ProgressGuard
}

// Lifecycle runs one task through the status machine built from edges.
type Lifecycle struct {
	taskID string
	interp *statekit.Interpreter[lifecycleContext]
}

// NewLifecycle positions a machine at initial. A nil guard allows every
// event.
func NewLifecycle(taskID string, initial TaskStatus, guard ProgressGuard) (*Lifecycle, error) {
	initial = initial.OrDefault()
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: task %s has unknown status %q", ErrInvalidTransition, taskID, initial)
	}
	if guard == nil {
		guard = func(string) bool { return true }
	}

	builder := statekit.NewMachine[lifecycleContext]("task-" + taskID).
		WithInitial(statekit.StateID(initial)).
		WithContext(lifecycleContext{guard: guard}).
		WithGuard("progress", func(ctx lifecycleContext, e statekit.Event) bool {
			return ctx.guard(string(e.Type))
		})

	for _, status := range AllTaskStatuses() {
		out := status.outgoing()
		tb := builder.State(statekit.StateID(status)).
			On(statekit.EventType(out[0].event)).Target(statekit.StateID(out[0].to))
		if guardedEvents[out[0].event] {
			tb = tb.Guard("progress")
		}
		for _, e := range out[1:] {
			tb = tb.On(statekit.EventType(e.event)).Target(statekit.StateID(e.to))
			if guardedEvents[e.event] {
				tb = tb.Guard("progress")
			}
		}
		tb.Done()
	}

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle for task %s: %w", taskID, err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &Lifecycle{taskID: taskID, interp: interp}, nil
}

// Fire sends event to the machine. Events the current status does not
// accept, or that the guard rejects, leave the status unchanged and fail.
func (l *Lifecycle) Fire(event string) error {
	before := l.Status()
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	if l.Status() != before {
		return nil
	}
	return fmt.Errorf("%w: cannot %s task %s while it is %s", ErrInvalidTransition, event, l.taskID, before)
}

// Status returns the current status.
func (l *Lifecycle) Status() TaskStatus {
	return TaskStatus(l.interp.State().Value)
}
