package schedule

import (
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

// Timing is the CPM timing of one task or milestone. Offsets are working
// time on the project calendar measured from the project start.
type Timing struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	IsMilestone bool          `json:"is_milestone,omitempty"`
	Duration    time.Duration `json:"duration"`

	ES time.Duration `json:"es"`
	EF time.Duration `json:"ef"`
	LS time.Duration `json:"ls"`
	LF time.Duration `json:"lf"`

	Slack     time.Duration `json:"slack"`
	FreeFloat time.Duration `json:"free_float"`
	Critical  bool          `json:"critical"`

	EarlyStart  time.Time `json:"early_start"`
	EarlyFinish time.Time `json:"early_finish"`
	LateStart   time.Time `json:"late_start"`
	LateFinish  time.Time `json:"late_finish"`
}

// Result is the outcome of a scheduling run. It is a fresh value owned by
// the caller; nothing in it aliases the input snapshot.
type Result struct {
	ProjectStart  time.Time         `json:"project_start"`
	ProjectFinish time.Time         `json:"project_finish"`
	Calendar      calendar.Calendar `json:"calendar"`
	Duration      time.Duration     `json:"duration"`
	DurationDays  float64           `json:"duration_days"`

	// CriticalPath lists every zero-slack node ordered by early start,
	// early finish and topological position.
	CriticalPath []string                 `json:"critical_path"`
	Slack        map[string]time.Duration `json:"slack"`
	FreeFloat    map[string]time.Duration `json:"free_float"`
	Timings      map[string]Timing        `json:"timings"`
	// Order is the topological order the passes ran in.
	Order []string `json:"order"`

	// Resolutions holds each task's resolved duration and booked hours.
	Resolutions map[string]planning.Resolution `json:"-"`
	Findings    []finding.Finding              `json:"findings,omitempty"`
}

// CriticalSet returns the critical path as a set.
func (r *Result) CriticalSet() map[string]bool {
	set := make(map[string]bool, len(r.CriticalPath))
	for _, id := range r.CriticalPath {
		set[id] = true
	}
	return set
}

// Timing returns the timing of a node.
func (r *Result) Timing(id string) (Timing, bool) {
	t, ok := r.Timings[id]
	return t, ok
}

// OrderedTimings returns timings in topological order.
func (r *Result) OrderedTimings() []Timing {
	out := make([]Timing, 0, len(r.Order))
	for _, id := range r.Order {
		out = append(out, r.Timings[id])
	}
	return out
}

// Hours returns the booked hours per resource for a task.
func (r *Result) Hours(taskID string) map[string]float64 {
	return r.Resolutions[taskID].Hours
}
