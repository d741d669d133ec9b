package planning

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
)

func TestResolveDuration(t *testing.T) {
	project := calendar.Default()
	monday := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	wednesday := time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC)

	full := map[string]time.Duration{"dev": 8 * time.Hour, "qa": 8 * time.Hour, "half": 4 * time.Hour, "lic": 0}

	tests := []struct {
		name        string
		task        Task
		want        time.Duration
		wantFinding finding.Kind
	}{
		{
			name: "unassigned duration days",
			task: Task{ID: "a", DurationDays: 3},
			want: 24 * time.Hour,
		},
		{
			name: "unassigned estimate",
			task: Task{ID: "a", Estimate: "2d"},
			want: 16 * time.Hour,
		},
		{
			name: "unassigned span to inclusive deadline",
			task: Task{ID: "a", ScheduledStart: monday, Deadline: wednesday},
			want: 24 * time.Hour,
		},
		{
			name:        "span over a weekend",
			task:        Task{ID: "a", ScheduledStart: saturday, Deadline: saturday.AddDate(0, 0, 1)},
			want:        0,
			wantFinding: finding.KindEmptySpan,
		},
		{
			name: "nothing to go on",
			task: Task{ID: "a"},
			want: 0,
		},
		{
			name: "effort driven shares work",
			task: Task{ID: "a", Assignments: []ResourceAssignment{
				{ResourceID: "dev", AllocatedHours: 16},
				{ResourceID: "qa", AllocatedHours: 16},
			}},
			want: 16 * time.Hour,
		},
		{
			name: "effort driven partial allocation",
			task: Task{ID: "a", Assignments: []ResourceAssignment{
				{ResourceID: "dev", AllocatedHours: 16, Allocation: 0.5},
			}},
			want: 32 * time.Hour,
		},
		{
			name: "effort driven without capacity",
			task: Task{ID: "a", DurationDays: 1, Assignments: []ResourceAssignment{
				{ResourceID: "lic", AllocatedHours: 10},
			}},
			want:        8 * time.Hour,
			wantFinding: finding.KindZeroCapacity,
		},
		{
			name: "unknown resource treated as unassigned",
			task: Task{ID: "a", DurationDays: 2, Assignments: []ResourceAssignment{
				{ResourceID: "ghost", AllocatedHours: 100},
			}},
			want: 16 * time.Hour,
		},
		{
			name: "fixed duration ignores assignments",
			task: Task{ID: "a", Kind: KindFixedDuration, DurationDays: 2, Assignments: []ResourceAssignment{
				{ResourceID: "dev", AllocatedHours: 40},
			}},
			want: 16 * time.Hour,
		},
		{
			name: "fixed duration from span",
			task: Task{ID: "a", Kind: KindFixedDuration, ScheduledStart: monday, Deadline: wednesday},
			want: 24 * time.Hour,
		},
		{
			name: "fixed work divided by capacity",
			task: Task{ID: "a", Kind: KindFixedWork, Work: 48, Assignments: []ResourceAssignment{
				{ResourceID: "dev", AllocatedHours: 10},
				{ResourceID: "half", AllocatedHours: 10},
			}},
			want: 32 * time.Hour,
		},
		{
			name: "fixed work unassigned",
			task: Task{ID: "a", Kind: KindFixedWork, Work: 12},
			want: 12 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveDuration(tt.task, project, full)
			if res.Duration != tt.want {
				t.Errorf("Duration = %v, want %v", res.Duration, tt.want)
			}
			if tt.wantFinding == "" {
				if len(res.Findings) != 0 {
					t.Errorf("unexpected findings: %v", res.Findings)
				}
				return
			}
			if len(finding.Filter(res.Findings, tt.wantFinding)) != 1 {
				t.Errorf("expected one %s finding, got %v", tt.wantFinding, res.Findings)
			}
		})
	}
}

func TestResolveDuration_FixedWorkRedistributesHours(t *testing.T) {
	task := Task{ID: "a", Kind: KindFixedWork, Work: 48, Assignments: []ResourceAssignment{
		{ResourceID: "dev", AllocatedHours: 10},
		{ResourceID: "half", AllocatedHours: 10},
	}}
	capacity := map[string]time.Duration{"dev": 8 * time.Hour, "half": 4 * time.Hour}

	res := ResolveDuration(task, calendar.Default(), capacity)
	if res.Hours["dev"] != 32 || res.Hours["half"] != 16 {
		t.Errorf("expected 32/16 split, got %v", res.Hours)
	}
}

func TestResolveDuration_EffortKeepsAssignedHours(t *testing.T) {
	task := Task{ID: "a", Assignments: []ResourceAssignment{
		{ResourceID: "dev", AllocatedHours: 12},
		{ResourceID: "dev", AllocatedHours: 4},
	}}
	res := ResolveDuration(task, calendar.Default(), map[string]time.Duration{"dev": 8 * time.Hour})
	if res.Hours["dev"] != 16 {
		t.Errorf("expected 16 hours booked, got %v", res.Hours["dev"])
	}
	// Two assignments of the same full-time resource double its daily capacity.
	if res.Duration != 8*time.Hour {
		t.Errorf("expected one day, got %v", res.Duration)
	}
}

func TestResolveDuration_RoundsUpToTheMinute(t *testing.T) {
	task := Task{ID: "a", Assignments: []ResourceAssignment{{ResourceID: "dev", AllocatedHours: 10}}}
	res := ResolveDuration(task, calendar.Default(), map[string]time.Duration{"dev": 3 * time.Hour})
	// 10h / 3h per day = 3.333... days of 8h = 26h40m.
	if res.Duration != 26*time.Hour+40*time.Minute {
		t.Errorf("expected 26h40m, got %v", res.Duration)
	}
}
