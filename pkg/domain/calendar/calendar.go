package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a time.Weekday that reads and writes as a day name in YAML and JSON.
type Weekday time.Weekday

// MarshalText renders the weekday as a lower-case name.
func (w Weekday) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(time.Weekday(w).String())), nil
}

// UnmarshalText accepts full ("monday") or short ("mon") day names.
func (w *Weekday) UnmarshalText(text []byte) error {
	d, ok := ParseWeekday(string(text))
	if !ok {
		return fmt.Errorf("%w: unknown weekday %q", ErrInvalidCalendar, string(text))
	}
	*w = Weekday(d)
	return nil
}

// ParseWeekday parses a day name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// Holiday is a non-working date. Recurring holidays match on month and day every year.
type Holiday struct {
	Name      string    `yaml:"name" json:"name"`
	Date      time.Time `yaml:"date" json:"date"`
	Recurring bool      `yaml:"recurring,omitempty" json:"recurring,omitempty"`
}

// ExceptionType overrides the normal working pattern for one date.
type ExceptionType string

const (
	ExceptionWorking    ExceptionType = "working"
	ExceptionNonWorking ExceptionType = "non_working"
	ExceptionHalfDay    ExceptionType = "half_day"
)

// Exception overrides a single date.
type Exception struct {
	Date        time.Time     `yaml:"date" json:"date"`
	Type        ExceptionType `yaml:"type" json:"type"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
}

// Calendar describes working time: which weekdays are worked, for how many
// hours starting at which hour, and which dates are excluded.
type Calendar struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name,omitempty" json:"name,omitempty"`
	HoursPerDay float64     `yaml:"hours_per_day" json:"hours_per_day"`
	StartHour   int         `yaml:"start_hour" json:"start_hour"`
	WorkingDays []Weekday   `yaml:"working_days" json:"working_days"`
	Holidays    []Holiday   `yaml:"holidays,omitempty" json:"holidays,omitempty"`
	Exceptions  []Exception `yaml:"exceptions,omitempty" json:"exceptions,omitempty"`
}

const (
	DefaultID          = "default"
	DefaultHoursPerDay = 8.0
	DefaultStartHour   = 9
)

// Default returns a Monday to Friday calendar of 8 hours starting at 09:00.
func Default() Calendar {
	return Calendar{
		ID:          DefaultID,
		Name:        "Default",
		HoursPerDay: DefaultHoursPerDay,
		StartHour:   DefaultStartHour,
		WorkingDays: []Weekday{
			Weekday(time.Monday),
			Weekday(time.Tuesday),
			Weekday(time.Wednesday),
			Weekday(time.Thursday),
			Weekday(time.Friday),
		},
	}
}

// Validate reports whether the calendar can be used for working-time arithmetic.
func (c Calendar) Validate() error {
	if c.HoursPerDay <= 0 || c.HoursPerDay > 24 {
		return fmt.Errorf("%w: hours_per_day must be in (0, 24], got %v", ErrInvalidCalendar, c.HoursPerDay)
	}
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("%w: start_hour must be in [0, 23], got %d", ErrInvalidCalendar, c.StartHour)
	}
	if float64(c.StartHour)+c.HoursPerDay > 24 {
		return fmt.Errorf("%w: working day starting at %02d:00 exceeds midnight", ErrInvalidCalendar, c.StartHour)
	}
	if len(c.WorkingDays) == 0 {
		return fmt.Errorf("%w: at least one working day is required", ErrNoWorkingDays)
	}
	for _, d := range c.WorkingDays {
		if d < Weekday(time.Sunday) || d > Weekday(time.Saturday) {
			return fmt.Errorf("%w: invalid weekday %d", ErrInvalidCalendar, int(d))
		}
	}
	return nil
}

// DailyHours returns the standard working time of a full working day.
func (c Calendar) DailyHours() time.Duration {
	return hoursToDuration(c.HoursPerDay)
}

// IsHoliday reports whether the date is a holiday.
func (c Calendar) IsHoliday(date time.Time) bool {
	for _, h := range c.Holidays {
		if h.Recurring {
			if h.Date.Month() == date.Month() && h.Date.Day() == date.Day() {
				return true
			}
			continue
		}
		if sameDate(h.Date, date) {
			return true
		}
	}
	return false
}

func (c Calendar) exception(date time.Time) (Exception, bool) {
	for _, e := range c.Exceptions {
		if sameDate(e.Date, date) {
			return e, true
		}
	}
	return Exception{}, false
}

func (c Calendar) isWorkingWeekday(d time.Weekday) bool {
	for _, w := range c.WorkingDays {
		if time.Weekday(w) == d {
			return true
		}
	}
	return false
}

// IsWorkingDay reports whether any working time falls on the date.
// Exceptions take precedence over holidays, holidays over the weekly pattern.
func (c Calendar) IsWorkingDay(date time.Time) bool {
	if e, ok := c.exception(date); ok {
		return e.Type != ExceptionNonWorking
	}
	if c.IsHoliday(date) {
		return false
	}
	return c.isWorkingWeekday(date.Weekday())
}

// HoursOn returns the working time available on the date.
func (c Calendar) HoursOn(date time.Time) time.Duration {
	if !c.IsWorkingDay(date) {
		return 0
	}
	if e, ok := c.exception(date); ok && e.Type == ExceptionHalfDay {
		return c.DailyHours() / 2
	}
	return c.DailyHours()
}

// window returns the working interval on the date of t. ok is false on
// non-working dates.
func (c Calendar) window(t time.Time) (open, close time.Time, ok bool) {
	hours := c.HoursOn(t)
	if hours <= 0 {
		return time.Time{}, time.Time{}, false
	}
	day := dateOf(t)
	open = day.Add(time.Duration(c.StartHour) * time.Hour)
	return open, open.Add(hours), true
}

// Describe returns a short human-readable summary of the calendar.
func (c Calendar) Describe() string {
	days := make([]string, 0, len(c.WorkingDays))
	for _, d := range c.WorkingDays {
		days = append(days, time.Weekday(d).String()[:3])
	}
	return fmt.Sprintf("%s: %s, %gh from %02d:00, %d holidays",
		c.ID, strings.Join(days, "/"), c.HoursPerDay, c.StartHour, len(c.Holidays))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func nextDate(t time.Time) time.Time {
	return dateOf(t).AddDate(0, 0, 1)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
