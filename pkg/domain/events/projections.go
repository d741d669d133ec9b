package events

import (
	"sort"
	"time"
)

// RunHistory collects recorded schedule runs in log order.
type RunHistory struct {
	runs []*ScheduleComputed
}

// RunTrend compares the latest run with the one before it.
type RunTrend struct {
	Runs            int
	Latest          *ScheduleComputed
	SlipDays        float64
	CriticalChanged bool
}

func NewRunHistory() *RunHistory {
	return &RunHistory{}
}

// Apply implements Projection. Events other than schedule.computed are
// ignored.
func (h *RunHistory) Apply(event *BaseEvent) error {
	if run, ok := ScheduleComputedFrom(event); ok {
		h.runs = append(h.runs, run)
	}
	return nil
}

// Runs returns the newest limit runs, oldest first. limit <= 0 returns all.
func (h *RunHistory) Runs(limit int) []*ScheduleComputed {
	runs := h.runs
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	return append([]*ScheduleComputed(nil), runs...)
}

// Latest returns the most recent run, nil when there is none.
func (h *RunHistory) Latest() *ScheduleComputed {
	if len(h.runs) == 0 {
		return nil
	}
	return h.runs[len(h.runs)-1]
}

// Trend reports how the finish and critical path moved between the last
// two runs.
func (h *RunHistory) Trend() RunTrend {
	t := RunTrend{Runs: len(h.runs), Latest: h.Latest()}
	if len(h.runs) < 2 {
		return t
	}
	prev := h.runs[len(h.runs)-2]
	t.SlipDays = t.Latest.DurationDays - prev.DurationDays
	added, removed := diffPaths(prev.CriticalPath, t.Latest.CriticalPath)
	t.CriticalChanged = len(added) > 0 || len(removed) > 0
	return t
}

// TaskProgress is the projected activity of one task.
type TaskProgress struct {
	TaskID      string
	Status      string
	Percent     float64
	AddedAt     *time.Time
	UpdatedAt   time.Time
	Transitions int
}

// TaskActivity folds task events into the latest status and progress of
// each task.
type TaskActivity struct {
	tasks map[string]*TaskProgress
}

func NewTaskActivity() *TaskActivity {
	return &TaskActivity{tasks: make(map[string]*TaskProgress)}
}

// Apply implements Projection.
func (a *TaskActivity) Apply(event *BaseEvent) error {
	taskID := stringMetadata(event.Metadata, "task_id")
	if taskID == "" {
		return nil
	}

	switch event.Type {
	case EventTypeTaskAdded:
		tp := a.task(taskID)
		at := event.Timestamp
		tp.AddedAt = &at
		tp.UpdatedAt = at
	case EventTypeProgressRecorded:
		tp := a.task(taskID)
		tp.Percent = numberMetadata(event.Metadata, "percent")
		if status := stringMetadata(event.Metadata, "status"); status != "" {
			tp.Status = status
		}
		tp.UpdatedAt = event.Timestamp
	case EventTypeTaskTransitioned:
		tp := a.task(taskID)
		if to := stringMetadata(event.Metadata, "to_status"); to != "" {
			tp.Status = to
		}
		tp.Transitions++
		tp.UpdatedAt = event.Timestamp
	}
	return nil
}

func (a *TaskActivity) task(id string) *TaskProgress {
	tp, ok := a.tasks[id]
	if !ok {
		tp = &TaskProgress{TaskID: id, Status: "not_started"}
		a.tasks[id] = tp
	}
	return tp
}

// Get returns a copy of the activity of one task.
func (a *TaskActivity) Get(taskID string) (TaskProgress, bool) {
	tp, ok := a.tasks[taskID]
	if !ok {
		return TaskProgress{}, false
	}
	return *tp, true
}

// All returns every task seen in the log, ordered by ID.
func (a *TaskActivity) All() []TaskProgress {
	out := make([]TaskProgress, 0, len(a.tasks))
	for _, tp := range a.tasks {
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

var (
	_ Projection = (*RunHistory)(nil)
	_ Projection = (*TaskActivity)(nil)
)
