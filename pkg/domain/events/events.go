// Package events defines domain events for the project event log.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	EventTypeTaskAdded        = "task.added"
	EventTypeProgressRecorded = "task.progress_recorded"
	EventTypeTaskTransitioned = "task.transitioned"
	EventTypeScheduleComputed = "schedule.computed"
	EventTypeFileChanged      = "file.changed"
	EventTypeBaselineCreated  = "baseline.created"
)

const (
	AggregateTypeProject  = "project"
	AggregateTypeTask     = "task"
	AggregateTypeSchedule = "schedule"
)

// DomainEvent is what handlers receive.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
}

// BaseEvent is the stored form of every event. Typed events embed it and
// mirror their fields into Metadata so the log stays readable on its own.
type BaseEvent struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	AggregateID_   string         `json:"aggregate_id"`
	AggregateType_ string         `json:"aggregate_type"`
	Timestamp      time.Time      `json:"timestamp"`
	Actor          string         `json:"actor"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	PrevHash       string         `json:"prev_hash,omitempty"`
	Hash           string         `json:"hash,omitempty"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) AggregateID() string   { return e.AggregateID_ }
func (e BaseEvent) AggregateType() string { return e.AggregateType_ }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// Record returns the stored form of the event.
func (e *BaseEvent) Record() *BaseEvent { return e }

// CalculateHash hashes every field but Hash, including the previous hash,
// so editing or dropping a stored event breaks the chain.
func (e *BaseEvent) CalculateHash() string {
	// Map keys marshal in sorted order, which keeps the encoding stable.
	body, _ := json.Marshal(struct {
		Prev      string         `json:"p"`
		ID        string         `json:"i"`
		Timestamp string         `json:"t"`
		Type      string         `json:"y"`
		Aggregate string         `json:"a"`
		Kind      string         `json:"k"`
		Actor     string         `json:"u"`
		Metadata  map[string]any `json:"m"`
	}{e.PrevHash, e.ID, e.Timestamp.Format(time.RFC3339Nano), e.Type, e.AggregateID_, e.AggregateType_, e.Actor, e.Metadata})
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Recorder is implemented by every typed event.
type Recorder interface {
	DomainEvent
	Record() *BaseEvent
}

func newBase(eventType, aggregateType, aggregateID, actor string, at time.Time, metadata map[string]any) BaseEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return BaseEvent{
		Type:           eventType,
		AggregateType_: aggregateType,
		AggregateID_:   aggregateID,
		Timestamp:      at,
		Actor:          actor,
		Metadata:       metadata,
	}
}

// TaskAdded is emitted when a task joins the project.
type TaskAdded struct {
	BaseEvent
	TaskID string `json:"task_id"`
}

func NewTaskAdded(taskID, actor string, at time.Time) *TaskAdded {
	return &TaskAdded{
		BaseEvent: newBase(EventTypeTaskAdded, AggregateTypeTask, taskID, actor, at, map[string]any{
			"task_id": taskID,
		}),
		TaskID: taskID,
	}
}

// ProgressRecorded is emitted when percent complete is recorded on a task.
type ProgressRecorded struct {
	BaseEvent
	TaskID  string  `json:"task_id"`
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`
}

func NewProgressRecorded(taskID string, percent float64, status, actor string, at time.Time) *ProgressRecorded {
	return &ProgressRecorded{
		BaseEvent: newBase(EventTypeProgressRecorded, AggregateTypeTask, taskID, actor, at, map[string]any{
			"task_id": taskID,
			"percent": percent,
			"status":  status,
		}),
		TaskID:  taskID,
		Percent: percent,
		Status:  status,
	}
}

// TaskTransitioned is emitted for any status change.
type TaskTransitioned struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

func NewTaskTransitioned(taskID, from, to, actor string, at time.Time) *TaskTransitioned {
	return &TaskTransitioned{
		BaseEvent: newBase(EventTypeTaskTransitioned, AggregateTypeTask, taskID, actor, at, map[string]any{
			"task_id":     taskID,
			"from_status": from,
			"to_status":   to,
		}),
		TaskID:     taskID,
		FromStatus: from,
		ToStatus:   to,
	}
}

// ScheduleComputed is emitted after every successful engine run.
type ScheduleComputed struct {
	BaseEvent
	ProjectName     string    `json:"project_name"`
	DurationDays    float64   `json:"duration_days"`
	ProjectFinish   time.Time `json:"project_finish"`
	CriticalPath    []string  `json:"critical_path"`
	Overallocations int       `json:"overallocations"`
	Findings        int       `json:"findings"`
}

func NewScheduleComputed(project string, durationDays float64, finish time.Time, critical []string, overallocations, findings int, at time.Time) *ScheduleComputed {
	path := make([]any, len(critical))
	for i, id := range critical {
		path[i] = id
	}
	return &ScheduleComputed{
		BaseEvent: newBase(EventTypeScheduleComputed, AggregateTypeSchedule, project, "engine", at, map[string]any{
			"duration_days":   durationDays,
			"project_finish":  finish.Format(time.RFC3339),
			"critical_path":   path,
			"overallocations": overallocations,
			"findings":        findings,
		}),
		ProjectName:     project,
		DurationDays:    durationDays,
		ProjectFinish:   finish,
		CriticalPath:    append([]string(nil), critical...),
		Overallocations: overallocations,
		Findings:        findings,
	}
}

// ScheduleComputedFrom rebuilds a ScheduleComputed event from its stored
// form. Numbers read back from JSON arrive as float64.
func ScheduleComputedFrom(e *BaseEvent) (*ScheduleComputed, bool) {
	if e == nil || e.Type != EventTypeScheduleComputed {
		return nil, false
	}
	sc := &ScheduleComputed{
		BaseEvent:       *e,
		ProjectName:     e.AggregateID_,
		DurationDays:    numberMetadata(e.Metadata, "duration_days"),
		Overallocations: int(numberMetadata(e.Metadata, "overallocations")),
		Findings:        int(numberMetadata(e.Metadata, "findings")),
	}
	if s := stringMetadata(e.Metadata, "project_finish"); s != "" {
		sc.ProjectFinish, _ = time.Parse(time.RFC3339, s)
	}
	switch path := e.Metadata["critical_path"].(type) {
	case []any:
		for _, v := range path {
			if id, ok := v.(string); ok {
				sc.CriticalPath = append(sc.CriticalPath, id)
			}
		}
	case []string:
		sc.CriticalPath = append(sc.CriticalPath, path...)
	}
	return sc, true
}

// BaselineCreated is emitted when a baseline of the schedule is taken.
type BaselineCreated struct {
	BaseEvent
	Name          string    `json:"name"`
	ProjectFinish time.Time `json:"project_finish"`
	TotalBudget   float64   `json:"total_budget"`
	Tasks         int       `json:"tasks"`
}

func NewBaselineCreated(project, name string, finish time.Time, budget float64, tasks int, actor string, at time.Time) *BaselineCreated {
	return &BaselineCreated{
		BaseEvent: newBase(EventTypeBaselineCreated, AggregateTypeProject, project, actor, at, map[string]any{
			"name":           name,
			"project_finish": finish.Format(time.RFC3339),
			"total_budget":   budget,
			"tasks":          tasks,
		}),
		Name:          name,
		ProjectFinish: finish,
		TotalBudget:   budget,
		Tasks:         tasks,
	}
}

// FileChanged is emitted when a watched project file is modified.
type FileChanged struct {
	BaseEvent
	FilePath   string `json:"file_path"`
	ChangeType string `json:"change_type"`
}

func NewFileChanged(path, changeType string, at time.Time) *FileChanged {
	return &FileChanged{
		BaseEvent: newBase(EventTypeFileChanged, AggregateTypeProject, path, "watcher", at, map[string]any{
			"file_path":   path,
			"change_type": changeType,
		}),
		FilePath:   path,
		ChangeType: changeType,
	}
}

func numberMetadata(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func stringMetadata(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
