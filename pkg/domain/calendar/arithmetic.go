package calendar

import (
	"math"
	"time"
)

// maxScanDays bounds every day-by-day walk so a calendar whose working days
// are all excluded cannot loop forever.
const maxScanDays = 366 * 100

// AddWorkingTime returns the instant reached after consuming d of working time
// from start, skipping non-working weekdays, holidays and hours outside the
// working window. The result is the moment the last unit is consumed, so a
// full day ends at closing time rather than the next morning. A zero duration
// returns start unchanged; a negative one walks backwards.
func (c Calendar) AddWorkingTime(start time.Time, d time.Duration) time.Time {
	if d == 0 {
		return start
	}
	if d < 0 {
		return c.SubtractWorkingTime(start, -d)
	}

	remaining := d
	day := dateOf(start)
	for i := 0; i < maxScanDays; i++ {
		if open, close, ok := c.window(day); ok {
			from := later(open, start)
			if from.Before(close) {
				avail := close.Sub(from)
				if remaining <= avail {
					return from.Add(remaining)
				}
				remaining -= avail
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// SubtractWorkingTime is the mirror of AddWorkingTime: it returns the instant
// from which d of working time elapses before reaching end.
func (c Calendar) SubtractWorkingTime(end time.Time, d time.Duration) time.Time {
	if d == 0 {
		return end
	}
	if d < 0 {
		return c.AddWorkingTime(end, -d)
	}

	remaining := d
	day := dateOf(end)
	for i := 0; i < maxScanDays; i++ {
		if open, close, ok := c.window(day); ok {
			to := earlier(close, end)
			if to.After(open) {
				avail := to.Sub(open)
				if remaining <= avail {
					return to.Add(-remaining)
				}
				remaining -= avail
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// WorkingTimeBetween returns the working time elapsed between start and end.
// It is negative when end precedes start.
func (c Calendar) WorkingTimeBetween(start, end time.Time) time.Duration {
	if end.Before(start) {
		return -c.WorkingTimeBetween(end, start)
	}
	var total time.Duration
	c.EachWorkingDay(start, end, func(_ time.Time, worked time.Duration) {
		total += worked
	})
	return total
}

// EachWorkingDay calls fn for every date in [start, end] that overlaps working
// time, with the amount of working time inside the interval on that date.
func (c Calendar) EachWorkingDay(start, end time.Time, fn func(day time.Time, worked time.Duration)) {
	if !end.After(start) {
		return
	}
	day := dateOf(start)
	for i := 0; i < maxScanDays && !day.After(end); i++ {
		if open, close, ok := c.window(day); ok {
			from := later(open, start)
			to := earlier(close, end)
			if to.After(from) {
				fn(day, to.Sub(from))
			}
		}
		day = day.AddDate(0, 0, 1)
	}
}

// StartAt returns the first working instant at or after t. A task that starts
// at closing time therefore starts the next working morning.
func (c Calendar) StartAt(t time.Time) time.Time {
	day := dateOf(t)
	for i := 0; i < maxScanDays; i++ {
		if open, close, ok := c.window(day); ok {
			from := later(open, t)
			if from.Before(close) {
				return from
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return t
}

// HasWorkingTime reports whether [start, end] contains any working time.
func (c Calendar) HasWorkingTime(start, end time.Time) bool {
	return c.WorkingTimeBetween(start, end) > 0
}

// Days converts a number of working days into working time using the
// calendar's standard day, rounded up to the minute.
func (c Calendar) Days(days float64) time.Duration {
	return RoundUp(time.Duration(days*float64(c.DailyHours())), time.Minute)
}

// InDays expresses working time as a number of standard working days.
func (c Calendar) InDays(d time.Duration) float64 {
	daily := c.DailyHours()
	if daily <= 0 {
		return 0
	}
	return float64(d) / float64(daily)
}

// Hours converts fractional hours into a duration rounded up to the minute.
func Hours(h float64) time.Duration {
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return RoundUp(hoursToDuration(h), time.Minute)
}

// RoundUp rounds d up to a multiple of unit.
func RoundUp(d, unit time.Duration) time.Duration {
	if unit <= 0 || d%unit == 0 {
		return d
	}
	if d < 0 {
		return d - d%unit
	}
	return d - d%unit + unit
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
