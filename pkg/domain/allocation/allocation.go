// Package allocation reports resource over-allocation against a computed
// schedule. It never moves tasks.
package allocation

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/domain/calendar"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/domain/schedule"
)

// Overallocation is one resource booked beyond its capacity on one date.
type Overallocation struct {
	ResourceID string        `json:"resource_id"`
	Date       time.Time     `json:"date"`
	Allocated  time.Duration `json:"allocated"`
	Capacity   time.Duration `json:"capacity"`
}

// Excess is the booked time beyond capacity.
func (o Overallocation) Excess() time.Duration {
	return o.Allocated - o.Capacity
}

// Utilisation summarises one labor resource over the project span.
type Utilisation struct {
	ResourceID string  `json:"resource_id"`
	Name       string  `json:"name"`
	Booked     float64 `json:"booked_hours"`
	Available  float64 `json:"available_hours"`
	// Percent is nil when the resource has no available hours.
	Percent *float64 `json:"percent"`
	// PeakDay is the date with the highest booking.
	PeakDay time.Time `json:"peak_day,omitempty"`
}

// Report is the outcome of an allocation check.
type Report struct {
	Overallocations []Overallocation  `json:"overallocations"`
	Utilisation     []Utilisation     `json:"utilisation"`
	Findings        []finding.Finding `json:"findings,omitempty"`
}

// IsOverallocated reports whether any resource is booked beyond capacity.
func (r Report) IsOverallocated() bool {
	return len(r.Overallocations) > 0
}

// ForResource returns the over-allocated dates of one resource.
func (r Report) ForResource(id string) []Overallocation {
	var out []Overallocation
	for _, o := range r.Overallocations {
		if o.ResourceID == id {
			out = append(out, o)
		}
	}
	return out
}

// Allocate spreads each task's booked hours over the task's working days,
// pro rata to the working time on each day, and compares the daily sum per
// resource with the resource's own calendar capacity.
func Allocate(snap *project.Snapshot, res *schedule.Result, resolver *calendar.Resolver) Report {
	var report Report
	resources := snap.ResourceIndex()
	load := make(map[string]map[time.Time]time.Duration)

	for _, id := range res.Order {
		tm := res.Timings[id]
		if tm.IsMilestone {
			continue
		}
		hours := res.Hours(id)
		if len(hours) == 0 {
			continue
		}
		spread(res.Calendar, tm, hours, resources, load)
	}

	ids := make([]string, 0, len(snap.Resources))
	for _, r := range snap.Resources {
		if r.IsLabor() {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)

	for _, rid := range ids {
		r := resources[rid]
		cal, _ := resolver.Resolve(rid, r.CalendarID)
		days := load[rid]

		dates := make([]time.Time, 0, len(days))
		for d := range days {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		u := Utilisation{ResourceID: rid, Name: r.Name}
		var peak time.Duration
		for _, d := range dates {
			booked := days[d].Round(time.Minute)
			u.Booked += booked.Hours()
			if booked > peak {
				peak = booked
				u.PeakDay = d
			}
			capacity := r.CapacityOn(cal, d)
			if booked <= capacity {
				continue
			}
			o := Overallocation{ResourceID: rid, Date: d, Allocated: booked, Capacity: capacity}
			report.Overallocations = append(report.Overallocations, o)
			report.Findings = append(report.Findings, finding.New(
				finding.KindOverallocation, finding.SeverityWarning, rid,
				"booked %s on %s against a capacity of %s",
				formatHours(booked), d.Format(time.DateOnly), formatHours(capacity)))
		}

		var available time.Duration
		cal.EachWorkingDay(res.ProjectStart, res.ProjectFinish, func(_ time.Time, worked time.Duration) {
			available += time.Duration(float64(worked) * r.EffectiveAvailability())
		})
		u.Available = available.Hours()
		if available > 0 {
			pct := u.Booked / u.Available * 100
			u.Percent = &pct
		}
		report.Utilisation = append(report.Utilisation, u)
	}

	sort.SliceStable(report.Overallocations, func(i, j int) bool {
		a, b := report.Overallocations[i], report.Overallocations[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ResourceID < b.ResourceID
	})
	return report
}

// spread distributes a task's hours over its working days on the project
// calendar.
func spread(cal calendar.Calendar, tm schedule.Timing, hours map[string]float64, resources map[string]planning.Resource, load map[string]map[time.Time]time.Duration) {
	total := cal.WorkingTimeBetween(tm.EarlyStart, tm.EarlyFinish)
	if total <= 0 {
		return
	}
	cal.EachWorkingDay(tm.EarlyStart, tm.EarlyFinish, func(day time.Time, worked time.Duration) {
		share := float64(worked) / float64(total)
		for rid, h := range hours {
			r, ok := resources[rid]
			if !ok || !r.IsLabor() || h <= 0 {
				continue
			}
			if load[rid] == nil {
				load[rid] = make(map[time.Time]time.Duration)
			}
			load[rid][day] += time.Duration(float64(calendar.Hours(h)) * share)
		}
	})
}

func formatHours(d time.Duration) string {
	return d.Truncate(time.Minute).String()
}
