package planning

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
)

// Milestone is a zero-duration checkpoint. It takes part in the dependency
// graph exactly like a task without work.
type Milestone struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	TargetDate   time.Time    `json:"target_date,omitempty" yaml:"target_date,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	IsCriticalPath bool `json:"is_critical_path,omitempty" yaml:"is_critical_path,omitempty"`
}

// Validate checks the milestone's own invariants.
func (m Milestone) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: milestone id is required", ErrInvalidTask)
	}
	return nil
}

// Links converts the milestone's dependencies into graph links.
func (m Milestone) Links() []dependency.Link {
	return toLinks(m.Dependencies)
}

// IsLate reports whether a scheduled date misses the target. Milestones
// without a target are never late.
func (m Milestone) IsLate(scheduled time.Time) bool {
	if m.TargetDate.IsZero() {
		return false
	}
	return scheduled.After(endOfDay(m.TargetDate))
}

// endOfDay returns the first instant after the date of t when t is at
// midnight, so a date-only target covers the whole day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if t.Equal(midnight) {
		return midnight.AddDate(0, 0, 1)
	}
	return t
}
