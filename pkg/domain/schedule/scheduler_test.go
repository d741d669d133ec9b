package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
)

// Monday.
var monday = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

func day(d int, hour int) time.Time {
	return time.Date(2025, time.January, 6+d, hour, 0, 0, 0, time.UTC)
}

func fs(pred string) []planning.Dependency {
	return []planning.Dependency{{PredecessorID: pred, Kind: dependency.FinishToStart}}
}

func newScheduler() *Scheduler {
	return NewScheduler(calendar.Default(), nil)
}

func abSnapshot() *project.Snapshot {
	return &project.Snapshot{
		Name:         "ab",
		ProjectStart: monday,
		Tasks: []planning.Task{
			{ID: "A", Name: "A", Kind: planning.KindFixedDuration, DurationDays: 3},
			{ID: "B", Name: "B", Kind: planning.KindFixedDuration, DurationDays: 2, Dependencies: fs("A")},
		},
	}
}

func TestSchedule_TwoTaskChain(t *testing.T) {
	res, err := newScheduler().Schedule(context.Background(), abSnapshot())
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	a, b := res.Timings["A"], res.Timings["B"]
	if !a.EarlyStart.Equal(day(0, 9)) || !a.EarlyFinish.Equal(day(2, 17)) {
		t.Errorf("A: got %s - %s", a.EarlyStart, a.EarlyFinish)
	}
	if !b.EarlyStart.Equal(day(3, 9)) || !b.EarlyFinish.Equal(day(4, 17)) {
		t.Errorf("B: got %s - %s", b.EarlyStart, b.EarlyFinish)
	}
	if res.DurationDays != 5 {
		t.Errorf("expected 5 working days, got %v", res.DurationDays)
	}
	if !res.ProjectFinish.Equal(day(4, 17)) {
		t.Errorf("expected finish Friday 17:00, got %s", res.ProjectFinish)
	}
	if len(res.CriticalPath) != 2 || res.CriticalPath[0] != "A" || res.CriticalPath[1] != "B" {
		t.Errorf("expected critical path [A B], got %v", res.CriticalPath)
	}
	if res.Slack["A"] != 0 || res.Slack["B"] != 0 {
		t.Errorf("expected zero slack, got %v", res.Slack)
	}
}

func TestSchedule_ParallelTaskHasSlack(t *testing.T) {
	snap := abSnapshot()
	snap.Tasks = append(snap.Tasks, planning.Task{
		ID: "C", Name: "C", Kind: planning.KindFixedDuration, DurationDays: 1,
		Deadline: monday.AddDate(1, 0, 0),
	})

	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	want := res.Timings["B"].EF - res.Timings["C"].EF
	if res.Slack["C"] != want || want != 32*time.Hour {
		t.Errorf("expected C slack %v (32h), got %v", want, res.Slack["C"])
	}
	if res.FreeFloat["C"] != want {
		t.Errorf("expected C free float %v, got %v", want, res.FreeFloat["C"])
	}
	if res.CriticalSet()["C"] {
		t.Error("C must not be critical")
	}
	if res.Timings["C"].Critical {
		t.Error("C timing must not be marked critical")
	}
}

func TestSchedule_DependencyTypes(t *testing.T) {
	tests := []struct {
		name   string
		kind   dependency.Type
		lag    float64
		wantES time.Duration
	}{
		{"finish to start", dependency.FinishToStart, 0, 24 * time.Hour},
		{"finish to start with lag", dependency.FinishToStart, 1, 32 * time.Hour},
		{"finish to start with lead", dependency.FinishToStart, -1, 16 * time.Hour},
		{"start to start", dependency.StartToStart, 0, 0},
		{"start to start with lag", dependency.StartToStart, 2, 16 * time.Hour},
		{"finish to finish", dependency.FinishToFinish, 0, 8 * time.Hour},
		{"start to finish", dependency.StartToFinish, 0, 0},
		{"start to finish with lag", dependency.StartToFinish, 3, 8 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &project.Snapshot{
				ProjectStart: monday,
				Tasks: []planning.Task{
					{ID: "pred", DurationDays: 3},
					{ID: "succ", DurationDays: 2, Dependencies: []planning.Dependency{
						{PredecessorID: "pred", Kind: tt.kind, LagDays: tt.lag},
					}},
				},
			}
			res, err := newScheduler().Schedule(context.Background(), snap)
			if err != nil {
				t.Fatalf("Schedule failed: %v", err)
			}
			if got := res.Timings["succ"].ES; got != tt.wantES {
				t.Errorf("ES = %v, want %v", got, tt.wantES)
			}
			for id, tm := range res.Timings {
				if tm.Slack < 0 || tm.ES > tm.EF || tm.LS > tm.LF {
					t.Errorf("%s: inconsistent timing %+v", id, tm)
				}
			}
		})
	}
}

func TestSchedule_BackwardPassMirrorsForward(t *testing.T) {
	// pred runs 3 days, succ finishes with pred (FF) and takes 1 day, so
	// succ can start as late as day 2 without moving anything.
	snap := &project.Snapshot{
		ProjectStart: monday,
		Tasks: []planning.Task{
			{ID: "pred", DurationDays: 3},
			{ID: "succ", DurationDays: 1, Dependencies: []planning.Dependency{
				{PredecessorID: "pred", Kind: dependency.FinishToFinish},
			}},
			{ID: "side", DurationDays: 1, Dependencies: []planning.Dependency{
				{PredecessorID: "pred", Kind: dependency.StartToStart},
			}},
		},
	}
	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	succ := res.Timings["succ"]
	if succ.ES != 16*time.Hour || succ.LS != 16*time.Hour {
		t.Errorf("succ: ES %v LS %v", succ.ES, succ.LS)
	}
	side := res.Timings["side"]
	if side.ES != 0 || side.Slack != 16*time.Hour {
		t.Errorf("side: ES %v slack %v", side.ES, side.Slack)
	}
	want := []string{"pred", "succ"}
	if len(res.CriticalPath) != 2 || res.CriticalPath[0] != want[0] || res.CriticalPath[1] != want[1] {
		t.Errorf("critical path = %v, want %v", res.CriticalPath, want)
	}
}

func TestSchedule_ScheduledStartIsAFloor(t *testing.T) {
	snap := &project.Snapshot{
		ProjectStart: monday,
		Tasks: []planning.Task{
			{ID: "late", DurationDays: 1, ScheduledStart: day(2, 0)},
			{ID: "early", DurationDays: 1, ScheduledStart: monday.AddDate(0, 0, -7)},
		},
	}
	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if res.Timings["late"].ES != 16*time.Hour {
		t.Errorf("late: expected ES 16h, got %v", res.Timings["late"].ES)
	}
	if res.Timings["early"].ES != 0 {
		t.Errorf("early: expected ES clamped to 0, got %v", res.Timings["early"].ES)
	}
}

func TestSchedule_Milestones(t *testing.T) {
	snap := abSnapshot()
	snap.Milestones = []planning.Milestone{
		{ID: "ship", Name: "Ship", TargetDate: day(3, 0), Dependencies: fs("B")},
		{ID: "review", Name: "Review", TargetDate: day(2, 0), Dependencies: fs("A")},
	}

	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	ship := res.Timings["ship"]
	if !ship.IsMilestone || ship.Duration != 0 || ship.ES != ship.EF {
		t.Errorf("ship should be a zero-length milestone: %+v", ship)
	}
	if !ship.EarlyStart.Equal(day(4, 17)) {
		t.Errorf("ship expected at Friday 17:00, got %s", ship.EarlyStart)
	}
	if !res.CriticalSet()["ship"] {
		t.Error("ship closes the critical chain")
	}

	late := finding.Filter(res.Findings, finding.KindMilestoneLate)
	if len(late) != 1 || late[0].Subject != "ship" {
		t.Errorf("expected one late finding for ship, got %v", late)
	}
}

func TestSchedule_EffortDrivenUsesCapacity(t *testing.T) {
	snap := &project.Snapshot{
		ProjectStart: monday,
		Resources: []planning.Resource{
			{ID: "alice", HourlyRate: 100},
			{ID: "bob", HourlyRate: 80, Availability: 0.5},
		},
		Tasks: []planning.Task{
			{ID: "build", Assignments: []planning.ResourceAssignment{
				{ResourceID: "alice", AllocatedHours: 24},
				{ResourceID: "bob", AllocatedHours: 12},
			}},
		},
	}
	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	// 36 hours of effort over 12 hours of daily capacity.
	if res.Timings["build"].Duration != 24*time.Hour {
		t.Errorf("expected 3 days, got %v", res.Timings["build"].Duration)
	}
	if res.Hours("build")["alice"] != 24 {
		t.Errorf("unexpected booked hours: %v", res.Hours("build"))
	}
}

func TestSchedule_CalendarFallback(t *testing.T) {
	snap := abSnapshot()
	snap.CalendarID = "missing"
	snap.Resources = []planning.Resource{{ID: "r", CalendarID: "gone"}}

	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	fallbacks := finding.Filter(res.Findings, finding.KindCalendarFallback)
	if len(fallbacks) != 2 {
		t.Fatalf("expected two fallback findings, got %v", fallbacks)
	}
	if res.Calendar.ID != calendar.DefaultID {
		t.Errorf("expected default calendar, got %s", res.Calendar.ID)
	}
}

func TestSchedule_ProjectCalendar(t *testing.T) {
	fourDay := calendar.Default()
	fourDay.ID = "short-week"
	fourDay.WorkingDays = fourDay.WorkingDays[:4]

	snap := abSnapshot()
	snap.CalendarID = "short-week"
	snap.Calendars = []calendar.Calendar{fourDay}

	res, err := newScheduler().Schedule(context.Background(), snap)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	// Friday is off, so B's second day lands on the following Monday.
	if !res.ProjectFinish.Equal(day(7, 17)) {
		t.Errorf("expected finish next Monday 17:00, got %s", res.ProjectFinish)
	}
}

func TestSchedule_Empty(t *testing.T) {
	res, err := newScheduler().Schedule(context.Background(), &project.Snapshot{})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if res.Duration != 0 || len(res.CriticalPath) != 0 || len(res.Timings) != 0 {
		t.Errorf("expected an empty result, got %+v", res)
	}
}

func TestSchedule_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []planning.Task
		wantErr error
	}{
		{"cycle", []planning.Task{
			{ID: "A", DurationDays: 1, Dependencies: fs("B")},
			{ID: "B", DurationDays: 1, Dependencies: fs("A")},
		}, dependency.ErrCyclicDependency},
		{"dangling", []planning.Task{
			{ID: "A", DurationDays: 1, Dependencies: fs("ghost")},
		}, dependency.ErrDanglingReference},
		{"duplicate", []planning.Task{{ID: "A"}, {ID: "A"}}, dependency.ErrDuplicateNode},
		{"invalid", []planning.Task{{ID: "A", Kind: "sometimes"}}, planning.ErrInvalidTaskKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &project.Snapshot{ProjectStart: monday, Tasks: tt.tasks}
			res, err := newScheduler().Schedule(context.Background(), snap)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if res != nil {
				t.Error("no result may accompany a structural error")
			}
		})
	}

	var cyc *dependency.CircularDependencyError
	_, err := newScheduler().Schedule(context.Background(), &project.Snapshot{ProjectStart: monday, Tasks: tests[0].tasks})
	if !errors.As(err, &cyc) || len(cyc.Cycle) != 3 || cyc.Cycle[0] != "A" {
		t.Errorf("expected cycle [A B A], got %v", err)
	}
}

func TestSchedule_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newScheduler().Schedule(ctx, abSnapshot()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSchedule_DoesNotMutateSnapshot(t *testing.T) {
	snap := abSnapshot()
	before := snap.Clone()
	if _, err := newScheduler().Schedule(context.Background(), snap); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if snap.Tasks[0].IsCriticalPath || snap.Tasks[1].Slack != before.Tasks[1].Slack {
		t.Error("derived fields must only be written back by the caller")
	}
}
