package application

import (
	"context"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
)

// BusEventPublisher adapts an events.Bus to project.EventPublisher.
type BusEventPublisher struct {
	bus   *events.Bus
	actor string
	now   func() time.Time
}

// NewBusEventPublisher creates a new adapter. actor is recorded on every event.
func NewBusEventPublisher(bus *events.Bus, actor string) *BusEventPublisher {
	return &BusEventPublisher{bus: bus, actor: actor, now: time.Now}
}

// PublishTaskAdded implements project.EventPublisher.
func (p *BusEventPublisher) PublishTaskAdded(ctx context.Context, taskID string) error {
	return p.bus.Publish(ctx, events.NewTaskAdded(taskID, p.actor, p.now()))
}

// PublishProgressRecorded implements project.EventPublisher.
func (p *BusEventPublisher) PublishProgressRecorded(ctx context.Context, taskID string, percent float64, status string) error {
	return p.bus.Publish(ctx, events.NewProgressRecorded(taskID, percent, status, p.actor, p.now()))
}

// PublishTaskStatusChanged implements project.EventPublisher.
func (p *BusEventPublisher) PublishTaskStatusChanged(ctx context.Context, taskID, from, to string) error {
	return p.bus.Publish(ctx, events.NewTaskTransitioned(taskID, from, to, p.actor, p.now()))
}

// NewProjectCoordinator creates a Coordinator over the repository. Events are
// published only when a bus is given.
func NewProjectCoordinator(repo project.Repository, bus *events.Bus, actor string) *project.Coordinator {
	var publisher project.EventPublisher
	if bus != nil {
		publisher = NewBusEventPublisher(bus, actor)
	}
	return project.NewCoordinator(repo, publisher)
}

var _ project.EventPublisher = (*BusEventPublisher)(nil)
