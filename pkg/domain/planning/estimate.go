package planning

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
)

// DaysPerWeek is the number of working days in an estimated week.
const DaysPerWeek = 5

// Unit is the suffix an estimate is written with.
type Unit byte

const (
	Minutes Unit = 'm'
	Hours   Unit = 'h'
	Days    Unit = 'd'
	Weeks   Unit = 'w'
)

// Estimate is an amount of working time such as "4h" or "2d". Minutes
// and hours become days through a calendar's hours per day, so "12h" is
// 1.5 days on an 8-hour calendar and 2 days on a 6-hour one.
type Estimate struct {
	Amount float64
	Unit   Unit
}

// ParseEstimate reads "<number><m|h|d|w>". Blank input is the zero
// estimate. A sign is allowed so the same syntax expresses leads ("-1d").
func ParseEstimate(s string) (Estimate, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Estimate{}, nil
	}
	unit := Unit(s[len(s)-1])
	switch unit {
	case Minutes, Hours, Days, Weeks:
	default:
		return Estimate{}, fmt.Errorf("%w: %q needs a unit of m, h, d or w", ErrInvalidEstimate, s)
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return Estimate{}, fmt.Errorf("%w: %q has no usable number", ErrInvalidEstimate, s)
	}
	return Estimate{Amount: amount, Unit: unit}, nil
}

func (e Estimate) String() string {
	if e.IsZero() {
		return ""
	}
	return strconv.FormatFloat(e.Amount, 'f', -1, 64) + string(e.Unit)
}

func (e Estimate) IsZero() bool { return e.Unit == 0 }

// IsNegative reports whether the estimate is a lead.
func (e Estimate) IsNegative() bool { return e.Amount < 0 }

// Days converts the estimate to working days of cal.
func (e Estimate) Days(cal calendar.Calendar) float64 {
	switch e.Unit {
	case Minutes:
		return cal.InDays(time.Duration(e.Amount * float64(time.Minute)))
	case Hours:
		return cal.InDays(time.Duration(e.Amount * float64(time.Hour)))
	case Days:
		return e.Amount
	case Weeks:
		return e.Amount * DaysPerWeek
	}
	return 0
}

// WorkingTime is the estimate as working time on cal, rounded up to the
// minute.
func (e Estimate) WorkingTime(cal calendar.Calendar) time.Duration {
	days := e.Days(cal)
	if days < 0 {
		return -cal.Days(-days)
	}
	return cal.Days(days)
}
