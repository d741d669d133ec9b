package planning_test

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

func estimate(t *testing.T, s string) planning.Estimate {
	t.Helper()
	e, err := planning.ParseEstimate(s)
	if err != nil {
		t.Fatalf("ParseEstimate(%q): %v", s, err)
	}
	return e
}

func TestParseEstimate(t *testing.T) {
	cal := calendar.Default()

	tests := []struct {
		in   string
		want planning.Estimate
		days float64
	}{
		{"4h", planning.Estimate{Amount: 4, Unit: planning.Hours}, 0.5},
		{"30m", planning.Estimate{Amount: 30, Unit: planning.Minutes}, 0.0625},
		{"2d", planning.Estimate{Amount: 2, Unit: planning.Days}, 2},
		{"1w", planning.Estimate{Amount: 1, Unit: planning.Weeks}, 5},
		{"  1.5 D ", planning.Estimate{Amount: 1.5, Unit: planning.Days}, 1.5},
		{"-1d", planning.Estimate{Amount: -1, Unit: planning.Days}, -1},
		{"", planning.Estimate{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e := estimate(t, tt.in)
			if e != tt.want {
				t.Errorf("ParseEstimate(%q) = %+v, want %+v", tt.in, e, tt.want)
			}
			if got := e.Days(cal); got != tt.days {
				t.Errorf("Days() = %v, want %v", got, tt.days)
			}
		})
	}
}

func TestParseEstimate_Invalid(t *testing.T) {
	for _, in := range []string{"4x", "h", "4", "twod", "NaNd", "infh"} {
		if _, err := planning.ParseEstimate(in); !errors.Is(err, planning.ErrInvalidEstimate) {
			t.Errorf("ParseEstimate(%q) = %v, want ErrInvalidEstimate", in, err)
		}
	}
}

func TestEstimate_WorkingTimeUsesCalendarHours(t *testing.T) {
	short := calendar.Default()
	short.HoursPerDay = 6

	tests := []struct {
		in   string
		cal  calendar.Calendar
		want time.Duration
	}{
		{"2d", calendar.Default(), 16 * time.Hour},
		{"2d", short, 12 * time.Hour},
		{"12h", short, 12 * time.Hour},
		{"-1d", short, -6 * time.Hour},
	}
	for _, tt := range tests {
		if got := estimate(t, tt.in).WorkingTime(tt.cal); got != tt.want {
			t.Errorf("%s on %gh days = %v, want %v", tt.in, tt.cal.HoursPerDay, got, tt.want)
		}
	}
}

func TestEstimate_String(t *testing.T) {
	for in, want := range map[string]string{"4h": "4h", " 1.50D": "1.5d", "-2w": "-2w", "": ""} {
		if got := estimate(t, in).String(); got != want {
			t.Errorf("String() of %q = %q, want %q", in, got, want)
		}
	}
	if !estimate(t, "").IsZero() || estimate(t, "0d").IsZero() {
		t.Error("only the blank estimate is zero")
	}
	if !estimate(t, "-1d").IsNegative() {
		t.Error("-1d is a lead")
	}
}
