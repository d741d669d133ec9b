package planning

import (
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
)

// Resolution is the outcome of resolving a task's duration.
type Resolution struct {
	// Duration is working time on the project calendar.
	Duration time.Duration
	// Hours is the effective booked hours per resource. Fixed-work tasks
	// redistribute their work by capacity share; other kinds keep the
	// hours as assigned.
	Hours    map[string]float64
	Findings []finding.Finding
}

// ResolveDuration derives a task's duration from its kind. capacity maps
// resource IDs to daily capacity on the resource's own calendar; an
// assignment to a resource absent from the map is treated as unassigned.
// Tasks without assignments get a calendar-only duration.
func ResolveDuration(t Task, project calendar.Calendar, capacity map[string]time.Duration) Resolution {
	res := Resolution{Hours: make(map[string]float64)}

	var effort float64
	var daily time.Duration
	assigned := false
	for _, a := range t.Assignments {
		c, ok := capacity[a.ResourceID]
		if !ok {
			continue
		}
		assigned = true
		effort += a.AllocatedHours
		daily += time.Duration(float64(c) * a.Share())
		res.Hours[a.ResourceID] += a.AllocatedHours
	}

	switch t.Kind.OrDefault() {
	case KindFixedDuration:
		if t.DurationDays > 0 {
			res.Duration = project.Days(t.DurationDays)
			return res
		}
		res.Duration = calendarOnly(t, project, &res)

	case KindFixedWork:
		work := t.Work
		if work <= 0 {
			work = effort
		}
		switch {
		case work <= 0:
			res.Duration = calendarOnly(t, project, &res)
		case !assigned:
			res.Duration = calendar.Hours(work)
		case daily <= 0:
			res.Findings = append(res.Findings, zeroCapacity(t))
			res.Duration = calendar.Hours(work)
		default:
			res.Duration = project.Days(work / daily.Hours())
			redistribute(t, capacity, daily, work, res.Hours)
		}

	default:
		switch {
		case !assigned || effort <= 0:
			res.Duration = calendarOnly(t, project, &res)
		case daily <= 0:
			res.Findings = append(res.Findings, zeroCapacity(t))
			res.Duration = calendarOnly(t, project, &res)
		default:
			res.Duration = project.Days(effort / daily.Hours())
		}
	}
	return res
}

// calendarOnly resolves a duration without looking at resources: an explicit
// day count, then an estimate, then the span from scheduled start to deadline.
func calendarOnly(t Task, project calendar.Calendar, res *Resolution) time.Duration {
	if t.DurationDays > 0 {
		return project.Days(t.DurationDays)
	}
	if e, err := ParseEstimate(t.Estimate); err == nil && !e.IsZero() && !e.IsNegative() {
		return e.WorkingTime(project)
	}
	if t.ScheduledStart.IsZero() || t.Deadline.IsZero() {
		return 0
	}
	span := project.WorkingTimeBetween(project.StartAt(t.ScheduledStart), endOfDay(t.Deadline))
	if span <= 0 {
		res.Findings = append(res.Findings, finding.New(finding.KindEmptySpan, finding.SeverityWarning, t.ID,
			"span %s to %s contains no working time", t.ScheduledStart.Format(time.DateOnly), t.Deadline.Format(time.DateOnly)))
		return 0
	}
	return span
}

func redistribute(t Task, capacity map[string]time.Duration, daily time.Duration, work float64, hours map[string]float64) {
	for id := range hours {
		delete(hours, id)
	}
	for _, a := range t.Assignments {
		c, ok := capacity[a.ResourceID]
		if !ok {
			continue
		}
		hours[a.ResourceID] += work * float64(c) * a.Share() / float64(daily)
	}
}

func zeroCapacity(t Task) finding.Finding {
	return finding.New(finding.KindZeroCapacity, finding.SeverityWarning, t.ID,
		"assigned resources provide no working capacity; using calendar-only duration")
}
