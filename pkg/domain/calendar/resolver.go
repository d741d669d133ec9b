package calendar

import (
	"fmt"

	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
)

// Resolver looks up calendars by ID and falls back to a default calendar when
// a reference is missing or the referenced calendar is unusable.
type Resolver struct {
	calendars map[string]Calendar
	fallback  Calendar
}

// NewResolver creates a resolver over the given calendars. The fallback is
// used for empty, unknown or invalid references; if it is itself invalid the
// built-in Default calendar is used.
func NewResolver(calendars []Calendar, fallback Calendar) *Resolver {
	if fallback.Validate() != nil {
		fallback = Default()
	}
	byID := make(map[string]Calendar, len(calendars))
	for _, c := range calendars {
		byID[c.ID] = c
	}
	return &Resolver{calendars: byID, fallback: fallback}
}

// Default returns the fallback calendar.
func (r *Resolver) Default() Calendar {
	return r.fallback
}

// Lookup returns the calendar with the given ID.
func (r *Resolver) Lookup(id string) (Calendar, error) {
	c, ok := r.calendars[id]
	if !ok {
		return Calendar{}, fmt.Errorf("%w: %s", ErrCalendarNotFound, id)
	}
	if err := c.Validate(); err != nil {
		return Calendar{}, fmt.Errorf("calendar %s: %w", id, err)
	}
	return c, nil
}

// Resolve returns the calendar for a reference. An empty reference silently
// yields the default calendar; an unresolvable one yields the default plus a
// calendar_fallback finding about the subject.
func (r *Resolver) Resolve(subject, id string) (Calendar, []finding.Finding) {
	if id == "" {
		return r.fallback, nil
	}
	c, err := r.Lookup(id)
	if err != nil {
		return r.fallback, []finding.Finding{finding.New(
			finding.KindCalendarFallback, finding.SeverityWarning, subject,
			"using calendar %q: %v", r.fallback.ID, err,
		)}
	}
	return c, nil
}
