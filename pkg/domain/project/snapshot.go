package project

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

// Snapshot is a consistent, self-contained view of a project. The engine
// only ever reads snapshots; every stage works on a copy.
type Snapshot struct {
	Name         string    `json:"name" yaml:"name"`
	ProjectStart time.Time `json:"project_start" yaml:"project_start"`
	ReportDate   time.Time `json:"report_date,omitempty" yaml:"report_date,omitempty"`
	// CalendarID names the project calendar among Calendars. Empty selects
	// the configured default calendar.
	CalendarID string `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`

	Tasks      []planning.Task      `json:"tasks" yaml:"tasks"`
	Milestones []planning.Milestone `json:"milestones,omitempty" yaml:"milestones,omitempty"`
	Resources  []planning.Resource  `json:"resources,omitempty" yaml:"-"`
	Calendars  []calendar.Calendar  `json:"calendars,omitempty" yaml:"-"`
	Rates      billing.RateConfig   `json:"rates" yaml:"-"`
}

// Clone returns a deep copy so callers can hand a stable view to the engine
// while the original keeps changing.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s

	c.Tasks = make([]planning.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		c.Tasks[i] = cloneTask(t)
	}
	c.Milestones = make([]planning.Milestone, len(s.Milestones))
	for i, m := range s.Milestones {
		m.Dependencies = append([]planning.Dependency(nil), m.Dependencies...)
		c.Milestones[i] = m
	}
	c.Resources = append([]planning.Resource(nil), s.Resources...)
	c.Calendars = make([]calendar.Calendar, len(s.Calendars))
	for i, cal := range s.Calendars {
		cal.WorkingDays = append([]calendar.Weekday(nil), cal.WorkingDays...)
		cal.Holidays = append([]calendar.Holiday(nil), cal.Holidays...)
		cal.Exceptions = append([]calendar.Exception(nil), cal.Exceptions...)
		c.Calendars[i] = cal
	}
	c.Rates.Rates = append([]billing.Rate(nil), s.Rates.Rates...)
	if s.Rates.Tax != nil {
		tax := *s.Rates.Tax
		c.Rates.Tax = &tax
	}
	return &c
}

func cloneTask(t planning.Task) planning.Task {
	if t.ActualStart != nil {
		v := *t.ActualStart
		t.ActualStart = &v
	}
	if t.ActualEnd != nil {
		v := *t.ActualEnd
		t.ActualEnd = &v
	}
	t.Progress = append([]planning.ProgressEntry(nil), t.Progress...)
	t.Assignments = append([]planning.ResourceAssignment(nil), t.Assignments...)
	t.Dependencies = append([]planning.Dependency(nil), t.Dependencies...)
	return t
}

// Task returns the task with the given ID.
func (s *Snapshot) Task(id string) (planning.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return planning.Task{}, false
}

// Milestone returns the milestone with the given ID.
func (s *Snapshot) Milestone(id string) (planning.Milestone, bool) {
	for _, m := range s.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return planning.Milestone{}, false
}

// HasNode reports whether a task or milestone uses the ID.
func (s *Snapshot) HasNode(id string) bool {
	if _, ok := s.Task(id); ok {
		return true
	}
	_, ok := s.Milestone(id)
	return ok
}

// ResourceIndex maps resource IDs to resources.
func (s *Snapshot) ResourceIndex() map[string]planning.Resource {
	idx := make(map[string]planning.Resource, len(s.Resources))
	for _, r := range s.Resources {
		idx[r.ID] = r
	}
	return idx
}

// Nodes lists tasks then milestones as dependency graph declarations.
func (s *Snapshot) Nodes() []dependency.NodeSpec {
	nodes := make([]dependency.NodeSpec, 0, len(s.Tasks)+len(s.Milestones))
	for _, t := range s.Tasks {
		nodes = append(nodes, dependency.NodeSpec{ID: t.ID, Dependencies: t.Links()})
	}
	for _, m := range s.Milestones {
		nodes = append(nodes, dependency.NodeSpec{ID: m.ID, Dependencies: m.Links()})
	}
	return nodes
}

// Validate checks every entity's own invariants and every reference from an
// assignment to a resource. Graph references and cycles are left to the
// dependency graph builder.
func (s *Snapshot) Validate() error {
	if s.ProjectStart.IsZero() && (len(s.Tasks) > 0 || len(s.Milestones) > 0) {
		return ErrMissingProjectStart
	}
	for _, t := range s.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}
	for _, m := range s.Milestones {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}

	resources := make(map[string]bool, len(s.Resources))
	for _, r := range s.Resources {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		if resources[r.ID] {
			return &dependency.DuplicateNodeError{ID: r.ID}
		}
		resources[r.ID] = true
	}
	for _, t := range s.Tasks {
		for _, a := range t.Assignments {
			if !resources[a.ResourceID] {
				return &dependency.DanglingReferenceError{MissingID: a.ResourceID, ReferencedBy: t.ID}
			}
		}
	}

	if err := s.Rates.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return nil
}

// ApplyDerived returns a copy with the scheduler's derived fields merged
// onto tasks and milestones. IDs missing from critical are not critical;
// tasks missing from slack keep their previous slack.
func (s *Snapshot) ApplyDerived(critical map[string]bool, slack map[string]time.Duration) *Snapshot {
	c := s.Clone()
	for i := range c.Tasks {
		t := &c.Tasks[i]
		t.IsCriticalPath = critical[t.ID]
		if v, ok := slack[t.ID]; ok {
			t.Slack = v
		}
	}
	for i := range c.Milestones {
		c.Milestones[i].IsCriticalPath = critical[c.Milestones[i].ID]
	}
	return c
}
