package application_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/baseline"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/events"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/storage"
)

type workspace struct {
	repo      *storage.FilesystemRepository
	store     *storage.EventLog
	bus       *events.Bus
	projects  *application.ProjectService
	schedule  *application.ScheduleService
	history   *application.HistoryService
	baselines *application.BaselineService
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	repo := storage.NewFilesystemRepository(root)
	store, err := storage.OpenEventLog(filepath.Join(root, storage.CadenceDir))
	if err != nil {
		t.Fatalf("OpenEventLog: %v", err)
	}
	bus := events.NewBus(store, events.NewEventDispatcher(), nil)
	coord := application.NewProjectCoordinator(repo, bus, "tester")
	sched := application.NewScheduleService(coord, bus, runOpts())
	return &workspace{
		repo:      repo,
		store:     store,
		bus:       bus,
		projects:  application.NewProjectService(coord, nil),
		schedule:  sched,
		history:   application.NewHistoryService(store),
		baselines: application.NewBaselineService(repo, sched, bus, "tester"),
	}
}

func (w *workspace) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := w.projects.Init(ctx, "abc", monday, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := w.projects.AddResource(ctx, planning.Resource{ID: "dev", Name: "Developer", HourlyRate: 100}); err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	for _, task := range abcSnapshot().Tasks {
		if _, err := w.projects.AddTask(ctx, task); err != nil {
			t.Fatalf("AddTask %s: %v", task.ID, err)
		}
	}
}

func TestProjectService_Init(t *testing.T) {
	w := newWorkspace(t)
	ctx := context.Background()

	if err := w.projects.Init(ctx, "", monday, ""); !errors.Is(err, project.ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot for empty name, got %v", err)
	}
	if err := w.projects.Init(ctx, "demo", monday, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !w.repo.IsInitialized() {
		t.Error("project file should exist after Init")
	}
	if err := w.projects.Init(ctx, "demo", monday, ""); !errors.Is(err, project.ErrProjectExists) {
		t.Errorf("expected ErrProjectExists, got %v", err)
	}
}

func TestProjectService_AddTask(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	id, err := w.projects.AddTask(ctx, planning.Task{Name: "Review", DurationDays: 1,
		Dependencies: []planning.Dependency{{PredecessorID: "B"}}})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if !strings.HasPrefix(id, "task-") {
		t.Errorf("generated id = %q", id)
	}

	tasks, err := w.projects.Tasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 4 || tasks[3].ID != id || tasks[3].Kind != planning.KindFixedDuration {
		t.Errorf("tasks = %+v", tasks)
	}

	_, err = w.projects.AddTask(ctx, planning.Task{ID: "D", DurationDays: 1,
		Dependencies: []planning.Dependency{{PredecessorID: "nope"}}})
	var dangling *dependency.DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Errorf("expected DanglingReferenceError, got %v", err)
	}
}

func TestProjectService_ProgressAndTransitions(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	if err := w.projects.RecordProgress(ctx, "A", day(1, 12), 0.5, 1200, "half way"); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if err := w.projects.Transition(ctx, "A", planning.EventHold); err != nil {
		t.Fatalf("hold: %v", err)
	}

	snap, _ := w.projects.Snapshot(ctx)
	a, _ := snap.Task("A")
	if a.Status != planning.StatusOnHold || a.ActualCost != 1200 || a.PercentComplete() != 0.5 {
		t.Errorf("task A = %+v", a)
	}

	var te *project.TransitionError
	if err := w.projects.Transition(ctx, "C", planning.EventResume); !errors.As(err, &te) {
		t.Errorf("expected TransitionError, got %v", err)
	}

	progress, err := w.history.TaskProgress()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, p := range progress {
		if p.TaskID == "A" {
			found = true
			if p.Status != string(planning.StatusOnHold) || p.Percent != 0.5 {
				t.Errorf("projected A = %+v", p)
			}
		}
	}
	if !found {
		t.Error("task A missing from the progress projection")
	}
}

func TestProjectService_ImportCalendars(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	list := `calendars:
  - id: four-day
    hours_per_day: 8
    start_hour: 9
    working_days: [mon, tue, wed, thu]
  - id: part-time
    hours_per_day: 4
    start_hour: 9
    working_days: [monday, wednesday]
`
	ids, err := w.projects.ImportCalendars(ctx, []byte(list))
	if err != nil {
		t.Fatalf("ImportCalendars: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v", ids)
	}

	single := "id: four-day\nhours_per_day: 10\nstart_hour: 7\nworking_days: [mon, tue, wed, thu]\n"
	if _, err := w.projects.ImportCalendars(ctx, []byte(single)); err != nil {
		t.Fatalf("ImportCalendars single: %v", err)
	}

	snap, _ := w.projects.Snapshot(ctx)
	if len(snap.Calendars) != 2 || snap.Calendars[0].HoursPerDay != 10 {
		t.Errorf("calendars = %+v", snap.Calendars)
	}

	bad := "id: broken\nhours_per_day: 30\nstart_hour: 9\nworking_days: [mon]\n"
	if _, err := w.projects.ImportCalendars(ctx, []byte(bad)); !errors.Is(err, calendar.ErrInvalidCalendar) {
		t.Errorf("expected ErrInvalidCalendar, got %v", err)
	}
	if _, err := w.projects.ImportCalendars(ctx, []byte("name: nothing\n")); !errors.Is(err, application.ErrEmptyCalendarFile) {
		t.Errorf("expected ErrEmptyCalendarFile, got %v", err)
	}
}

func TestProjectService_AddRate(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	if err := w.projects.AddRate(ctx, billing.Rate{ID: "std", Name: "Standard", HourlyRate: 90, IsDefault: true}); err != nil {
		t.Fatalf("AddRate: %v", err)
	}
	if err := w.projects.AddRate(ctx, billing.Rate{ID: "std", Name: "Again", HourlyRate: 95}); !errors.Is(err, billing.ErrRateExists) {
		t.Errorf("expected ErrRateExists, got %v", err)
	}
	snap, _ := w.projects.Snapshot(ctx)
	if r, ok := snap.Rates.Default(); !ok || r.ID != "std" {
		t.Error("default rate was not stored")
	}
}

func TestProjectService_ConfigureBilling(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	if err := w.projects.ConfigureBilling(ctx, "eur", &billing.TaxConfig{Name: "VAT", Percent: 20}); err != nil {
		t.Fatalf("ConfigureBilling: %v", err)
	}
	if err := w.projects.ConfigureBilling(ctx, "", nil); err != nil {
		t.Fatal(err)
	}
	snap, _ := w.projects.Snapshot(ctx)
	if snap.Rates.Currency != "EUR" || snap.Rates.Tax == nil || snap.Rates.Tax.Percent != 20 {
		t.Errorf("rates = %+v", snap.Rates)
	}
	if err := w.projects.ConfigureBilling(ctx, "", &billing.TaxConfig{Percent: -1}); !errors.Is(err, billing.ErrInvalidRate) {
		t.Errorf("expected ErrInvalidRate, got %v", err)
	}
}

func TestScheduleService_Run(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	report, err := w.schedule.Run(ctx, application.RunOptions{WriteBack: true, Record: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Schedule.CriticalPath) != 2 {
		t.Errorf("critical path = %v", report.Schedule.CriticalPath)
	}

	snap, _ := w.projects.Snapshot(ctx)
	a, _ := snap.Task("A")
	c, _ := snap.Task("C")
	if !a.IsCriticalPath || c.IsCriticalPath || c.Slack == 0 {
		t.Errorf("derived fields not written back: A=%v C=%v/%v", a.IsCriticalPath, c.IsCriticalPath, c.Slack)
	}

	latest, err := w.history.LatestRun()
	if err != nil || latest == nil {
		t.Fatalf("LatestRun: %v, %v", latest, err)
	}
	if latest.DurationDays != 5 || latest.ProjectName != "abc" {
		t.Errorf("recorded run = %+v", latest)
	}
}

func TestScheduleService_RunWithoutSideEffects(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	if _, err := w.schedule.Run(ctx, application.RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap, _ := w.projects.Snapshot(ctx)
	if a, _ := snap.Task("A"); a.IsCriticalPath {
		t.Error("a plain run must not write back")
	}
	if run, _ := w.history.LatestRun(); run != nil {
		t.Error("a plain run must not be recorded")
	}
}

func TestScheduleService_NoProject(t *testing.T) {
	w := newWorkspace(t)
	if _, err := w.schedule.Run(context.Background(), application.RunOptions{}); !errors.Is(err, project.ErrNoProject) {
		t.Errorf("expected ErrNoProject, got %v", err)
	}
}

func TestHistoryService_Trend(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	if _, err := w.schedule.Run(ctx, application.RunOptions{Record: true}); err != nil {
		t.Fatal(err)
	}
	// A two-day successor of B makes the second run finish two days later.
	if _, err := w.projects.AddTask(ctx, planning.Task{ID: "E", DurationDays: 2,
		Dependencies: []planning.Dependency{{PredecessorID: "B"}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.schedule.Run(ctx, application.RunOptions{Record: true}); err != nil {
		t.Fatal(err)
	}

	runs, trend, err := w.history.Runs(0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || trend.SlipDays != 2 || !trend.CriticalChanged {
		t.Errorf("runs=%d trend=%+v", len(runs), trend)
	}

	violations, err := w.history.Verify()
	if err != nil || len(violations) != 0 {
		t.Errorf("Verify: %v %v", violations, err)
	}
}

func TestBusEventPublisher_RecordsTaskEvents(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)

	added, err := w.store.Read(events.Query{Types: []string{events.EventTypeTaskAdded}})
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 3 {
		t.Fatalf("expected 3 task.added events, got %d", len(added))
	}
	if added[0].Actor != "tester" || added[0].AggregateID_ != "A" {
		t.Errorf("first event = %+v", added[0])
	}
}

func TestScheduleService_Calendar(t *testing.T) {
	w := newWorkspace(t)
	ctx := context.Background()

	cal, err := w.schedule.Calendar(ctx, "")
	if err != nil || cal.ID != calendar.DefaultID {
		t.Fatalf("calendar without a project = %+v, %v", cal, err)
	}

	w.seed(t)
	if _, err := w.projects.ImportCalendars(ctx, []byte("id: four-day\nhours_per_day: 8\nstart_hour: 9\nworking_days: [mon, tue, wed, thu]\n")); err != nil {
		t.Fatal(err)
	}
	cal, err = w.schedule.Calendar(ctx, "four-day")
	if err != nil || len(cal.WorkingDays) != 4 {
		t.Errorf("four-day = %+v, %v", cal, err)
	}
	if _, err := w.schedule.Calendar(ctx, "nope"); !errors.Is(err, calendar.ErrCalendarNotFound) {
		t.Errorf("expected ErrCalendarNotFound, got %v", err)
	}
}

func TestBaselineService_CreateAndCompare(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	ctx := context.Background()

	b, err := w.baselines.Create(ctx, "kickoff")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(b.Tasks) != 3 || b.DurationDays != 5 {
		t.Errorf("baseline = %+v", b)
	}
	if _, err := w.baselines.Create(ctx, "kickoff"); !errors.Is(err, baseline.ErrBaselineExists) {
		t.Errorf("expected ErrBaselineExists, got %v", err)
	}

	created, err := w.store.Read(events.Query{Types: []string{events.EventTypeBaselineCreated}})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].Actor != "tester" || created[0].Metadata["name"] != "kickoff" {
		t.Errorf("baseline events = %+v", created)
	}

	// E pushes the finish out by two days; A runs two days over its plan.
	if _, err := w.projects.AddTask(ctx, planning.Task{ID: "E", DurationDays: 2,
		Dependencies: []planning.Dependency{{PredecessorID: "B"}}}); err != nil {
		t.Fatal(err)
	}
	if err := w.projects.RecordProgress(ctx, "A", day(0, 9), 0.5, 1000, ""); err != nil {
		t.Fatal(err)
	}
	if err := w.projects.RecordProgress(ctx, "A", day(4, 17), 1, 2600, ""); err != nil {
		t.Fatal(err)
	}

	c, err := w.baselines.Compare(ctx, "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c.Baseline != "kickoff" || c.FinishVarianceDays != 2 {
		t.Errorf("comparison = %+v", c)
	}
	var added bool
	for _, v := range c.Tasks {
		if v.ID == "E" && v.Change == baseline.ChangeAdded {
			added = true
		}
	}
	if !added {
		t.Errorf("E not reported as added: %+v", c.Tasks)
	}
	if len(c.Completed) != 1 || c.Completed[0].ID != "A" {
		t.Fatalf("completed = %+v", c.Completed)
	}
	if a := c.Completed[0]; a.PlannedDays != 3 || a.ActualDays != 5 || a.ActualCost != 2600 {
		t.Errorf("A variance = %+v", a)
	}

	if _, err := w.baselines.Compare(ctx, "v9"); !errors.Is(err, baseline.ErrBaselineNotFound) {
		t.Errorf("expected ErrBaselineNotFound, got %v", err)
	}
	list, err := w.baselines.List(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestBaselineService_CompareWithoutBaseline(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)
	if _, err := w.baselines.Compare(context.Background(), ""); !errors.Is(err, baseline.ErrBaselineNotFound) {
		t.Errorf("expected ErrBaselineNotFound, got %v", err)
	}
}
