package project

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

// Mock implementations for testing

type mockRepo struct {
	mu    sync.Mutex
	snap  *Snapshot
	err   error
	saves int
}

func (m *mockRepo) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), m.err
}

func (m *mockRepo) Save(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	m.saves++
	return m.err
}

type mockPublisher struct {
	events []string
}

func (m *mockPublisher) PublishTaskAdded(ctx context.Context, taskID string) error {
	m.events = append(m.events, "task.added:"+taskID)
	return nil
}

func (m *mockPublisher) PublishProgressRecorded(ctx context.Context, taskID string, percent float64, status string) error {
	m.events = append(m.events, "task.progress:"+taskID)
	return nil
}

func (m *mockPublisher) PublishTaskStatusChanged(ctx context.Context, taskID, from, to string) error {
	m.events = append(m.events, "task.status:"+taskID+":"+from+"->"+to)
	return nil
}

var start = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

func createTestSnapshot() *Snapshot {
	return &Snapshot{
		Name:         "demo",
		ProjectStart: start,
		Tasks: []planning.Task{
			{ID: "task-1", Name: "First Task", DurationDays: 3},
			{ID: "task-2", Name: "Second Task", DurationDays: 2, Dependencies: []planning.Dependency{{PredecessorID: "task-1"}}},
		},
		Resources: []planning.Resource{{ID: "dev", HourlyRate: 100}},
	}
}

func TestCoordinator_Snapshot(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	coord := NewCoordinator(repo, nil)

	snap, err := coord.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	snap.Tasks[0].Name = "changed"

	again, _ := coord.Snapshot(context.Background())
	if again.Tasks[0].Name != "First Task" {
		t.Error("mutating a returned snapshot must not affect the store")
	}
}

func TestCoordinator_Snapshot_NoProject(t *testing.T) {
	coord := NewCoordinator(&mockRepo{}, nil)
	if _, err := coord.Snapshot(context.Background()); !errors.Is(err, ErrNoProject) {
		t.Errorf("Expected ErrNoProject, got: %v", err)
	}
}

func TestCoordinator_AddTask(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	publisher := &mockPublisher{}
	coord := NewCoordinator(repo, publisher)

	task := planning.Task{ID: "task-3", Name: "Third", DurationDays: 1,
		Dependencies: []planning.Dependency{{PredecessorID: "task-2"}}}
	if err := coord.AddTask(context.Background(), task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if len(repo.snap.Tasks) != 3 {
		t.Errorf("Expected 3 tasks, got %d", len(repo.snap.Tasks))
	}
	if len(publisher.events) != 1 || publisher.events[0] != "task.added:task-3" {
		t.Errorf("unexpected events: %v", publisher.events)
	}
}

func TestCoordinator_AddTask_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		task    planning.Task
		wantErr error
	}{
		{"duplicate", planning.Task{ID: "task-1"}, ErrTaskExists},
		{"dangling dependency", planning.Task{ID: "x", Dependencies: []planning.Dependency{{PredecessorID: "ghost"}}}, dependency.ErrDanglingReference},
		{"unknown resource", planning.Task{ID: "x", Assignments: []planning.ResourceAssignment{{ResourceID: "ghost", AllocatedHours: 1}}}, dependency.ErrDanglingReference},
		{"invalid task", planning.Task{ID: "x", Kind: "weird"}, planning.ErrInvalidTaskKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{snap: createTestSnapshot()}
			coord := NewCoordinator(repo, nil)

			err := coord.AddTask(context.Background(), tt.task)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if repo.saves != 0 {
				t.Error("a rejected task must not be saved")
			}
		})
	}
}

func TestCoordinator_RecordProgress(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	publisher := &mockPublisher{}
	coord := NewCoordinator(repo, publisher)

	if err := coord.RecordProgress(context.Background(), "task-1", start, 0.5, 1200, "halfway"); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}

	task, _ := repo.snap.Task("task-1")
	if task.PercentComplete() != 0.5 || task.ActualCost != 1200 {
		t.Errorf("unexpected task after progress: %+v", task)
	}
	if task.Status != planning.StatusInProgress {
		t.Errorf("expected in_progress, got %s", task.Status)
	}

	want := []string{"task.progress:task-1", "task.status:task-1:not_started->in_progress"}
	if len(publisher.events) != 2 || publisher.events[0] != want[0] || publisher.events[1] != want[1] {
		t.Errorf("events = %v, want %v", publisher.events, want)
	}
}

func TestCoordinator_RecordProgress_UnknownTask(t *testing.T) {
	coord := NewCoordinator(&mockRepo{snap: createTestSnapshot()}, nil)
	err := coord.RecordProgress(context.Background(), "nope", start, 0.1, 0, "")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got: %v", err)
	}
}

func TestCoordinator_TransitionTask(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	coord := NewCoordinator(repo, nil)

	if err := coord.TransitionTask(context.Background(), "task-1", planning.EventCancel); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	task, _ := repo.snap.Task("task-1")
	if task.Status != planning.StatusCancelled {
		t.Errorf("expected cancelled, got %s", task.Status)
	}

	err := coord.TransitionTask(context.Background(), "task-1", planning.EventHold)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.FromStatus != "cancelled" || !errors.Is(err, planning.ErrInvalidTransition) {
		t.Errorf("unexpected transition error: %v", err)
	}
}

func TestCoordinator_Init(t *testing.T) {
	repo := &mockRepo{}
	coord := NewCoordinator(repo, nil)

	if err := coord.Init(context.Background(), createTestSnapshot()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if repo.saves != 1 {
		t.Errorf("expected 1 save, got %d", repo.saves)
	}
	if err := coord.Init(context.Background(), createTestSnapshot()); !errors.Is(err, ErrProjectExists) {
		t.Errorf("expected ErrProjectExists, got %v", err)
	}
}

func TestCoordinator_Init_RejectsCycle(t *testing.T) {
	repo := &mockRepo{}
	coord := NewCoordinator(repo, nil)

	snap := createTestSnapshot()
	snap.Tasks[0].Dependencies = []planning.Dependency{{PredecessorID: "task-2"}}
	var cycle *dependency.CircularDependencyError
	if err := coord.Init(context.Background(), snap); !errors.As(err, &cycle) {
		t.Fatalf("expected CircularDependencyError, got %v", err)
	}
	if repo.saves != 0 {
		t.Error("an invalid project must not be saved")
	}
}

func TestCoordinator_Update(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	coord := NewCoordinator(repo, nil)

	err := coord.Update(context.Background(), func(s *Snapshot) error {
		s.Resources = append(s.Resources, planning.Resource{ID: "qa", HourlyRate: 80})
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(repo.snap.Resources) != 2 {
		t.Errorf("expected 2 resources, got %d", len(repo.snap.Resources))
	}

	// A failing change leaves the stored snapshot untouched.
	err = coord.Update(context.Background(), func(s *Snapshot) error {
		s.Resources = append(s.Resources, planning.Resource{ID: "qa"})
		return nil
	})
	var dup *dependency.DuplicateNodeError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateNodeError, got %v", err)
	}
	if repo.saves != 1 || len(repo.snap.Resources) != 2 {
		t.Errorf("rejected update must not be saved: saves=%d resources=%d", repo.saves, len(repo.snap.Resources))
	}

	boom := errors.New("boom")
	if err := coord.Update(context.Background(), func(*Snapshot) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestCoordinator_WriteBack(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	coord := NewCoordinator(repo, nil)

	err := coord.WriteBack(context.Background(),
		map[string]bool{"task-1": true},
		map[string]time.Duration{"task-1": 0, "task-2": 8 * time.Hour})
	if err != nil {
		t.Fatalf("WriteBack failed: %v", err)
	}

	t1, _ := repo.snap.Task("task-1")
	t2, _ := repo.snap.Task("task-2")
	if !t1.IsCriticalPath || t2.IsCriticalPath {
		t.Errorf("unexpected critical flags: %v %v", t1.IsCriticalPath, t2.IsCriticalPath)
	}
	if t2.Slack != 8*time.Hour {
		t.Errorf("expected 8h slack, got %v", t2.Slack)
	}
}

func TestCoordinator_ConcurrentAccess(t *testing.T) {
	repo := &mockRepo{snap: createTestSnapshot()}
	coord := NewCoordinator(repo, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			at := start.Add(time.Duration(i) * time.Minute)
			_ = coord.RecordProgress(context.Background(), "task-2", at, float64(i)/10, 0, "")
		}(i)
		go func() {
			defer wg.Done()
			if _, err := coord.Snapshot(context.Background()); err != nil {
				t.Errorf("Snapshot failed: %v", err)
			}
		}()
	}
	wg.Wait()

	task, _ := repo.snap.Task("task-2")
	if err := task.Validate(); err != nil {
		t.Errorf("progress history must stay monotonic under concurrency: %v", err)
	}
}
