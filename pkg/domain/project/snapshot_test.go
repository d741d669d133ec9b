package project

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
)

func TestSnapshot_CloneIsDeep(t *testing.T) {
	at := start
	snap := createTestSnapshot()
	snap.Tasks[0].ActualStart = &at
	snap.Tasks[0].Progress = []planning.ProgressEntry{{RecordedAt: start, Percent: 0.1}}
	snap.Calendars = []calendar.Calendar{calendar.Default()}
	snap.Rates = billing.RateConfig{Rates: []billing.Rate{{ID: "std", Name: "Std", HourlyRate: 10}}, Tax: &billing.TaxConfig{Percent: 5}}

	c := snap.Clone()
	c.Tasks[0].Progress[0].Percent = 0.9
	*c.Tasks[0].ActualStart = start.AddDate(1, 0, 0)
	c.Tasks[1].Dependencies[0].PredecessorID = "other"
	c.Calendars[0].WorkingDays[0] = calendar.Weekday(time.Sunday)
	c.Rates.Rates[0].HourlyRate = 99
	c.Rates.Tax.Percent = 50

	if snap.Tasks[0].Progress[0].Percent != 0.1 ||
		!snap.Tasks[0].ActualStart.Equal(start) ||
		snap.Tasks[1].Dependencies[0].PredecessorID != "task-1" ||
		snap.Calendars[0].WorkingDays[0] != calendar.Weekday(time.Monday) ||
		snap.Rates.Rates[0].HourlyRate != 10 ||
		snap.Rates.Tax.Percent != 5 {
		t.Error("clone shares state with the original")
	}

	var nilSnap *Snapshot
	if nilSnap.Clone() != nil {
		t.Error("cloning nil must return nil")
	}
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Snapshot)
		wantErr error
	}{
		{"valid", func(s *Snapshot) {}, nil},
		{"missing start", func(s *Snapshot) { s.ProjectStart = time.Time{} }, ErrMissingProjectStart},
		{"invalid task", func(s *Snapshot) { s.Tasks[0].Work = -1 }, ErrInvalidSnapshot},
		{"duplicate resource", func(s *Snapshot) { s.Resources = append(s.Resources, s.Resources[0]) }, dependency.ErrDuplicateNode},
		{"missing resource", func(s *Snapshot) {
			s.Tasks[0].Assignments = []planning.ResourceAssignment{{ResourceID: "ghost"}}
		}, dependency.ErrDanglingReference},
		{"invalid rates", func(s *Snapshot) { s.Rates.Rates = []billing.Rate{{ID: "x"}} }, ErrInvalidSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := createTestSnapshot()
			tt.mutate(snap)
			err := snap.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSnapshot_EmptyProjectNeedsNoStart(t *testing.T) {
	if err := (&Snapshot{Name: "empty"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSnapshot_Nodes(t *testing.T) {
	snap := createTestSnapshot()
	snap.Milestones = []planning.Milestone{{ID: "ship", Dependencies: []planning.Dependency{{PredecessorID: "task-2"}}}}

	nodes := snap.Nodes()
	if len(nodes) != 3 || nodes[2].ID != "ship" {
		t.Fatalf("expected tasks then milestones, got %+v", nodes)
	}
	if nodes[1].Dependencies[0].PredecessorID != "task-1" {
		t.Errorf("unexpected links: %+v", nodes[1].Dependencies)
	}
	if !snap.HasNode("ship") || snap.HasNode("nope") {
		t.Error("HasNode mismatch")
	}
}

func TestSnapshot_ApplyDerivedReturnsCopy(t *testing.T) {
	snap := createTestSnapshot()
	snap.Milestones = []planning.Milestone{{ID: "ship"}}

	derived := snap.ApplyDerived(map[string]bool{"task-1": true, "ship": true}, map[string]time.Duration{"task-2": time.Hour})

	if snap.Tasks[0].IsCriticalPath {
		t.Error("the original snapshot must stay untouched")
	}
	if !derived.Tasks[0].IsCriticalPath || !derived.Milestones[0].IsCriticalPath {
		t.Error("expected critical flags on the copy")
	}
	if derived.Tasks[1].Slack != time.Hour {
		t.Errorf("expected slack 1h, got %v", derived.Tasks[1].Slack)
	}
}
