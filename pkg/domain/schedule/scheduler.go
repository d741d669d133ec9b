// Package schedule computes CPM timings, float and the critical path for a
// project snapshot.
package schedule

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
)

// Scheduler runs the forward and backward passes over a snapshot.
type Scheduler struct {
	defaultCalendar calendar.Calendar
	logger          *slog.Logger
}

// NewScheduler creates a scheduler. The default calendar is used for the
// project and for every resource whose calendar cannot be resolved.
func NewScheduler(defaultCalendar calendar.Calendar, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{defaultCalendar: defaultCalendar, logger: logger}
}

// node is the per-index working state of one run.
type node struct {
	id        string
	name      string
	milestone bool
	duration  time.Duration
	floor     time.Duration
	es, ef    time.Duration
	ls, lf    time.Duration
}

// Schedule computes the timeline. Structural problems (invalid entities,
// dangling references, cycles) are returned as errors and nothing else is
// produced; everything advisory is reported as findings on the result.
func (s *Scheduler) Schedule(ctx context.Context, snap *project.Snapshot) (*Result, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	g, err := dependency.Build(snap.Nodes())
	if err != nil {
		return nil, err
	}

	resolver := calendar.NewResolver(snap.Calendars, s.defaultCalendar)
	cal, findings := resolver.Resolve("project", snap.CalendarID)

	capacity := make(map[string]time.Duration, len(snap.Resources))
	for _, r := range snap.Resources {
		rc, ff := resolver.Resolve(r.ID, r.CalendarID)
		findings = append(findings, ff...)
		capacity[r.ID] = r.DailyCapacity(rc)
	}

	res := &Result{
		ProjectStart: snap.ProjectStart,
		Calendar:     cal,
		Slack:        make(map[string]time.Duration, g.Len()),
		FreeFloat:    make(map[string]time.Duration, g.Len()),
		Timings:      make(map[string]Timing, g.Len()),
		Resolutions:  make(map[string]planning.Resolution, len(snap.Tasks)),
	}

	nodes := make([]node, g.Len())
	for i, t := range snap.Tasks {
		r := planning.ResolveDuration(t, cal, capacity)
		res.Resolutions[t.ID] = r
		findings = append(findings, r.Findings...)
		nodes[i] = node{
			id:       t.ID,
			name:     t.Name,
			duration: r.Duration,
			floor:    startFloor(cal, snap.ProjectStart, t.ScheduledStart),
		}
	}
	for j, m := range snap.Milestones {
		nodes[len(snap.Tasks)+j] = node{id: m.ID, name: m.Name, milestone: true}
	}

	order := g.TopologicalOrder()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	finish := forwardPass(g, cal, order, nodes)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	backwardPass(g, cal, order, nodes, finish)

	position := make([]int, len(nodes))
	for pos, i := range order {
		position[i] = pos
		res.Order = append(res.Order, nodes[i].id)
	}

	var critical []int
	for _, i := range order {
		n := nodes[i]
		slack := n.ls - n.es
		ff := freeFloat(g, cal, i, nodes, finish)
		if ff > slack {
			ff = slack
		}
		res.Slack[n.id] = slack
		res.FreeFloat[n.id] = ff
		res.Timings[n.id] = timing(n, slack, ff, cal, snap.ProjectStart)
		if slack == 0 {
			critical = append(critical, i)
		}
	}
	sort.SliceStable(critical, func(a, b int) bool {
		na, nb := nodes[critical[a]], nodes[critical[b]]
		if na.es != nb.es {
			return na.es < nb.es
		}
		if na.ef != nb.ef {
			return na.ef < nb.ef
		}
		return position[critical[a]] < position[critical[b]]
	})
	for _, i := range critical {
		res.CriticalPath = append(res.CriticalPath, nodes[i].id)
	}

	for _, m := range snap.Milestones {
		at := res.Timings[m.ID].EarlyFinish
		if m.IsLate(at) {
			findings = append(findings, finding.New(finding.KindMilestoneLate, finding.SeverityWarning, m.ID,
				"scheduled %s, after target %s", at.Format(time.DateOnly), m.TargetDate.Format(time.DateOnly)))
		}
	}

	res.Duration = finish
	res.DurationDays = cal.InDays(finish)
	res.ProjectFinish = cal.AddWorkingTime(snap.ProjectStart, finish)
	res.Findings = findings

	s.logger.Debug("schedule computed",
		"nodes", len(nodes),
		"edges", g.EdgeCount(),
		"duration_days", res.DurationDays,
		"critical", len(res.CriticalPath),
		"findings", len(findings))
	return res, nil
}

// startFloor converts a task's own scheduled start into an offset. Starts
// before the project start clamp to zero.
func startFloor(cal calendar.Calendar, projectStart, scheduled time.Time) time.Duration {
	if scheduled.IsZero() || !scheduled.After(projectStart) {
		return 0
	}
	return cal.WorkingTimeBetween(projectStart, cal.StartAt(scheduled))
}

// lag converts a dependency lag in working days to working time.
func lag(cal calendar.Calendar, e dependency.Edge) time.Duration {
	if e.LagDays == 0 {
		return 0
	}
	return cal.Days(e.LagDays)
}

// forwardPass fills ES and EF in topological order and returns the project
// finish offset.
func forwardPass(g *dependency.Graph, cal calendar.Calendar, order []int, nodes []node) time.Duration {
	var finish time.Duration
	for _, i := range order {
		n := &nodes[i]
		es := n.floor
		for _, e := range g.Incoming(i) {
			p := nodes[e.From]
			l := lag(cal, e)
			var c time.Duration
			switch e.Type.OrDefault() {
			case dependency.StartToStart:
				c = p.es + l
			case dependency.FinishToFinish:
				c = p.ef + l - n.duration
			case dependency.StartToFinish:
				c = p.es + l - n.duration
			default:
				c = p.ef + l
			}
			if c > es {
				es = c
			}
		}
		n.es = es
		n.ef = es + n.duration
		if n.ef > finish {
			finish = n.ef
		}
	}
	return finish
}

// backwardPass fills LF and LS in reverse topological order, anchored at
// the project finish.
func backwardPass(g *dependency.Graph, cal calendar.Calendar, order []int, nodes []node, finish time.Duration) {
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		n := &nodes[i]
		lf := finish
		for _, e := range g.Outgoing(i) {
			sc := nodes[e.To]
			l := lag(cal, e)
			var c time.Duration
			switch e.Type.OrDefault() {
			case dependency.StartToStart:
				c = sc.ls - l + n.duration
			case dependency.FinishToFinish:
				c = sc.lf - l
			case dependency.StartToFinish:
				c = sc.lf - l + n.duration
			default:
				c = sc.ls - l
			}
			if c < lf {
				lf = c
			}
		}
		n.lf = lf
		n.ls = lf - n.duration
	}
}

// freeFloat is the delay a node absorbs without moving any successor's early
// dates. Nodes without successors measure against the project finish.
func freeFloat(g *dependency.Graph, cal calendar.Calendar, i int, nodes []node, finish time.Duration) time.Duration {
	n := nodes[i]
	ff := finish - n.ef
	for _, e := range g.Outgoing(i) {
		sc := nodes[e.To]
		l := lag(cal, e)
		var gap time.Duration
		switch e.Type.OrDefault() {
		case dependency.StartToStart:
			gap = sc.es - (n.es + l)
		case dependency.FinishToFinish:
			gap = sc.ef - (n.ef + l)
		case dependency.StartToFinish:
			gap = sc.ef - (n.es + l)
		default:
			gap = sc.es - (n.ef + l)
		}
		if gap < ff {
			ff = gap
		}
	}
	if ff < 0 {
		return 0
	}
	return ff
}

func timing(n node, slack, ff time.Duration, cal calendar.Calendar, start time.Time) Timing {
	t := Timing{
		ID:          n.id,
		Name:        n.name,
		IsMilestone: n.milestone,
		Duration:    n.duration,
		ES:          n.es,
		EF:          n.ef,
		LS:          n.ls,
		LF:          n.lf,
		Slack:       slack,
		FreeFloat:   ff,
		Critical:    slack == 0,
		EarlyFinish: cal.AddWorkingTime(start, n.ef),
		LateFinish:  cal.AddWorkingTime(start, n.lf),
	}
	// A zero-length node happens at the instant its predecessors finish; a
	// node with work starts at the next working moment.
	if n.duration == 0 {
		t.EarlyStart = t.EarlyFinish
		t.LateStart = t.LateFinish
	} else {
		t.EarlyStart = cal.StartAt(cal.AddWorkingTime(start, n.es))
		t.LateStart = cal.StartAt(cal.AddWorkingTime(start, n.ls))
	}
	return t
}
