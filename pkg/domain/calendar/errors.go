package calendar

import "errors"

// Calendar domain errors.
var (
	// ErrInvalidCalendar indicates calendar settings that cannot describe working time.
	ErrInvalidCalendar = errors.New("invalid calendar")
	// ErrNoWorkingDays indicates a calendar without any working weekday.
	ErrNoWorkingDays = errors.New("calendar has no working days")
	// ErrCalendarNotFound indicates a calendar reference could not be resolved.
	ErrCalendarNotFound = errors.New("calendar not found")
)
