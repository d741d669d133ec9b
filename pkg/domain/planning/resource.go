package planning

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
)

// ResourceKind distinguishes people billed by the hour from fixed costs.
type ResourceKind string

const (
	ResourceLabor    ResourceKind = "labor"
	ResourceFlatCost ResourceKind = "flat_cost"
)

// Resource is a person or cost that can be assigned to tasks.
type Resource struct {
	ID         string       `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`
	Kind       ResourceKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	HourlyRate float64      `json:"hourly_rate,omitempty" yaml:"hourly_rate,omitempty"`
	FlatCost   float64      `json:"flat_cost,omitempty" yaml:"flat_cost,omitempty"`
	// Availability is the share of the calendar the resource works, 0 < a <= 1.
	// Zero means fully available.
	Availability float64 `json:"availability,omitempty" yaml:"availability,omitempty"`
	CalendarID   string  `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`
	RateID       string  `json:"rate_id,omitempty" yaml:"rate_id,omitempty"`
}

// IsLabor reports whether the resource contributes working capacity.
func (r Resource) IsLabor() bool {
	return r.Kind == "" || r.Kind == ResourceLabor
}

// EffectiveAvailability returns the availability with the default applied.
func (r Resource) EffectiveAvailability() float64 {
	if r.Availability <= 0 {
		return 1
	}
	return r.Availability
}

// DailyCapacity is the working time the resource offers on a standard day
// of its calendar. Flat-cost resources have none.
func (r Resource) DailyCapacity(cal calendar.Calendar) time.Duration {
	if !r.IsLabor() {
		return 0
	}
	return time.Duration(float64(cal.DailyHours()) * r.EffectiveAvailability())
}

// CapacityOn is the working time the resource offers on a specific date.
func (r Resource) CapacityOn(cal calendar.Calendar, date time.Time) time.Duration {
	if !r.IsLabor() {
		return 0
	}
	return time.Duration(float64(cal.HoursOn(date)) * r.EffectiveAvailability())
}

// Validate checks the resource's own invariants.
func (r Resource) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidResource)
	}
	switch r.Kind {
	case "", ResourceLabor, ResourceFlatCost:
	default:
		return fmt.Errorf("%w: unknown kind %q on %s", ErrInvalidResource, r.Kind, r.ID)
	}
	if r.Availability < 0 || r.Availability > 1 {
		return fmt.Errorf("%w: availability of %s must be within (0, 1]", ErrInvalidResource, r.ID)
	}
	if r.HourlyRate < 0 || r.FlatCost < 0 {
		return fmt.Errorf("%w: negative cost on %s", ErrInvalidResource, r.ID)
	}
	return nil
}
