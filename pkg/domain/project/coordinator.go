// Package project coordinates changes to a project snapshot and hands out
// stable copies for scheduling runs.
package project

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

// Repository defines the interface for snapshot persistence.
type Repository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	PublishTaskAdded(ctx context.Context, taskID string) error
	PublishProgressRecorded(ctx context.Context, taskID string, percent float64, status string) error
	PublishTaskStatusChanged(ctx context.Context, taskID, from, to string) error
}

// Coordinator serialises edits to the stored snapshot. Readers get deep
// copies, so a scheduling run never observes a concurrent edit.
type Coordinator struct {
	mu        sync.RWMutex
	repo      Repository
	publisher EventPublisher
}

// NewCoordinator creates a new Coordinator. publisher may be nil.
func NewCoordinator(repo Repository, publisher EventPublisher) *Coordinator {
	return &Coordinator{
		repo:      repo,
		publisher: publisher,
	}
}

// Snapshot returns a copy of the stored snapshot.
func (c *Coordinator) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

// Init stores the first snapshot of a project.
func (c *Coordinator) Init(ctx context.Context, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.repo.Load(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrProjectExists
	}
	if err := checkStructure(snap); err != nil {
		return err
	}
	return c.repo.Save(ctx, snap)
}

// Update applies fn to a copy of the stored snapshot and saves the result if
// the project is still valid and acyclic.
func (c *Coordinator) Update(ctx context.Context, fn func(*Snapshot) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	next := snap.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := checkStructure(next); err != nil {
		return err
	}
	return c.repo.Save(ctx, next)
}

// AddTask appends a task after checking that the project stays valid and
// acyclic with it.
func (c *Coordinator) AddTask(ctx context.Context, task planning.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	if snap.HasNode(task.ID) {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}

	next := snap.Clone()
	next.Tasks = append(next.Tasks, task)
	if err := checkStructure(next); err != nil {
		return err
	}
	if err := c.repo.Save(ctx, next); err != nil {
		return err
	}

	if c.publisher != nil {
		_ = c.publisher.PublishTaskAdded(ctx, task.ID)
	}
	return nil
}

// RecordProgress appends a progress entry to a task and advances its status.
// A positive actual cost replaces the task's recorded actual cost.
func (c *Coordinator) RecordProgress(ctx context.Context, taskID string, at time.Time, percent, actualCost float64, note string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	task := findTask(snap, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	from := task.Status.OrDefault()
	if err := task.RecordProgress(at, percent, note); err != nil {
		return err
	}
	if actualCost > 0 {
		task.ActualCost = actualCost
	}
	if err := c.repo.Save(ctx, snap); err != nil {
		return err
	}

	if c.publisher != nil {
		_ = c.publisher.PublishProgressRecorded(ctx, taskID, percent, string(task.Status))
		if task.Status != from {
			_ = c.publisher.PublishTaskStatusChanged(ctx, taskID, string(from), string(task.Status))
		}
	}
	return nil
}

// TransitionTask fires a lifecycle event such as hold, resume or cancel.
func (c *Coordinator) TransitionTask(ctx context.Context, taskID, event string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	task := findTask(snap, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	from := task.Status.OrDefault()
	if err := task.Apply(event); err != nil {
		return &TransitionError{TaskID: taskID, FromStatus: string(from), Event: event, Err: err}
	}
	if err := c.repo.Save(ctx, snap); err != nil {
		return err
	}

	if c.publisher != nil {
		_ = c.publisher.PublishTaskStatusChanged(ctx, taskID, string(from), string(task.Status))
	}
	return nil
}

// WriteBack merges derived scheduling fields into the stored snapshot.
func (c *Coordinator) WriteBack(ctx context.Context, critical map[string]bool, slack map[string]time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	return c.repo.Save(ctx, snap.ApplyDerived(critical, slack))
}

func (c *Coordinator) load(ctx context.Context) (*Snapshot, error) {
	snap, err := c.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoProject
	}
	return snap, nil
}

func checkStructure(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	_, err := dependency.Build(snap.Nodes())
	return err
}

func findTask(snap *Snapshot, taskID string) *planning.Task {
	for i := range snap.Tasks {
		if snap.Tasks[i].ID == taskID {
			return &snap.Tasks[i]
		}
	}
	return nil
}
