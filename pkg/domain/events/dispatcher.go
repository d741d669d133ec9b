package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// EventHandlerFunc reacts to one published event.
type EventHandlerFunc func(ctx context.Context, event DomainEvent) error

// HandlerRegistration names a handler and the event types it receives.
type HandlerRegistration struct {
	Name       string
	EventTypes []string
	Handler    EventHandlerFunc
}

func (r HandlerRegistration) accepts(eventType string) bool {
	return slices.Contains(r.EventTypes, eventType) || slices.Contains(r.EventTypes, Wildcard)
}

// HandlerError reports a failed handler.
type HandlerError struct {
	Handler   string
	EventType string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for %s: %v", e.Handler, e.EventType, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// EventDispatcher delivers events to handlers in registration order. Every
// matching handler runs even when an earlier one fails.
type EventDispatcher struct {
	mu   sync.RWMutex
	regs []HandlerRegistration
}

func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{}
}

// Register adds a handler. Registrations without event types are ignored.
func (d *EventDispatcher) Register(reg HandlerRegistration) {
	if reg.Handler == nil || len(reg.EventTypes) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs = append(d.regs, reg)
}

// RegisterHandler registers fn under name for the given event types.
func (d *EventDispatcher) RegisterHandler(name string, fn EventHandlerFunc, eventTypes ...string) {
	d.Register(HandlerRegistration{Name: name, EventTypes: eventTypes, Handler: fn})
}

// Dispatch runs every handler that accepts the event. The result joins one
// *HandlerError per failed handler.
func (d *EventDispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	d.mu.RLock()
	regs := slices.Clone(d.regs)
	d.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if !reg.accepts(event.EventType()) {
			continue
		}
		if err := reg.Handler(ctx, event); err != nil {
			errs = append(errs, &HandlerError{Handler: reg.Name, EventType: event.EventType(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// HandlerCount returns how many handlers receive events of the given type.
func (d *EventDispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, reg := range d.regs {
		if reg.accepts(eventType) {
			n++
		}
	}
	return n
}

// Bus records events in a store and then hands them to a dispatcher.
// Handler failures are logged, never returned: the event is already durable.
type Bus struct {
	store      EventStore
	dispatcher *EventDispatcher
	logger     *slog.Logger
}

// NewBus creates a bus. store and dispatcher may be nil.
func NewBus(store EventStore, dispatcher *EventDispatcher, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{store: store, dispatcher: dispatcher, logger: logger}
}

// Publish appends the event and dispatches it.
func (b *Bus) Publish(ctx context.Context, event Recorder) error {
	if b.store != nil {
		if err := b.store.Append(event.Record()); err != nil {
			return fmt.Errorf("append %s: %w", event.EventType(), err)
		}
	}
	if b.dispatcher == nil {
		return nil
	}
	if err := b.dispatcher.Dispatch(ctx, event); err != nil {
		var herr *HandlerError
		for _, e := range unjoin(err) {
			if errors.As(e, &herr) {
				b.logger.Warn("event handler failed",
					"handler", herr.Handler,
					"event_type", herr.EventType,
					"aggregate_id", event.AggregateID(),
					"error", herr.Err)
			}
		}
	}
	return nil
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
