package calendar

import (
	"testing"

	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
)

func TestResolver_Resolve(t *testing.T) {
	fourDay := Default()
	fourDay.ID = "four-day"
	fourDay.WorkingDays = fourDay.WorkingDays[:4]

	broken := Default()
	broken.ID = "broken"
	broken.HoursPerDay = 0

	r := NewResolver([]Calendar{fourDay, broken}, Default())

	tests := []struct {
		name         string
		ref          string
		wantID       string
		wantFindings int
	}{
		{"empty reference uses default", "", DefaultID, 0},
		{"known calendar", "four-day", "four-day", 0},
		{"unknown calendar falls back", "missing", DefaultID, 1},
		{"invalid calendar falls back", "broken", DefaultID, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, findings := r.Resolve("dev-1", tt.ref)
			if c.ID != tt.wantID {
				t.Errorf("calendar: want %s, got %s", tt.wantID, c.ID)
			}
			if len(findings) != tt.wantFindings {
				t.Fatalf("findings: want %d, got %d", tt.wantFindings, len(findings))
			}
			for _, f := range findings {
				if f.Kind != finding.KindCalendarFallback || f.Subject != "dev-1" {
					t.Errorf("unexpected finding: %+v", f)
				}
			}
		})
	}
}

func TestNewResolver_InvalidFallback(t *testing.T) {
	bad := Default()
	bad.WorkingDays = nil
	r := NewResolver(nil, bad)
	if err := r.Default().Validate(); err != nil {
		t.Errorf("expected valid fallback, got %v", err)
	}
}
