package schedule

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/felixgeelhaar/cadence/pkg/domain/dependency"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"pgregory.net/rapid"
)

// drawProject draws an acyclic project: dependencies only point at tasks
// declared earlier.
func drawProject(rt *rapid.T) *project.Snapshot {
	n := rapid.IntRange(1, 15).Draw(rt, "tasks")
	snap := &project.Snapshot{Name: "drawn", ProjectStart: monday}
	for i := 0; i < n; i++ {
		t := planning.Task{
			ID:           fmt.Sprintf("t%02d", i),
			Kind:         planning.KindFixedDuration,
			DurationDays: float64(rapid.IntRange(0, 5).Draw(rt, "days")),
		}
		for j := 0; j < i; j++ {
			if !rapid.Bool().Draw(rt, "edge") {
				continue
			}
			t.Dependencies = append(t.Dependencies, planning.Dependency{
				PredecessorID: fmt.Sprintf("t%02d", j),
				Kind:          rapid.SampledFrom(dependency.AllTypes()).Draw(rt, "type"),
				LagDays:       float64(rapid.IntRange(-2, 3).Draw(rt, "lag")),
			})
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	return snap
}

func TestProperty_TimingsAreConsistent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		res, err := newScheduler().Schedule(context.Background(), drawProject(rt))
		if err != nil {
			rt.Fatalf("Schedule failed: %v", err)
		}
		for id, tm := range res.Timings {
			if tm.ES > tm.EF || tm.LS > tm.LF {
				rt.Fatalf("%s: ES %v EF %v LS %v LF %v", id, tm.ES, tm.EF, tm.LS, tm.LF)
			}
			if tm.Slack < 0 {
				rt.Fatalf("%s: negative slack %v", id, tm.Slack)
			}
			if tm.FreeFloat < 0 || tm.FreeFloat > tm.Slack {
				rt.Fatalf("%s: free float %v outside [0, %v]", id, tm.FreeFloat, tm.Slack)
			}
			if tm.EF > res.Duration || tm.LF > res.Duration {
				rt.Fatalf("%s: finishes after the project", id)
			}
		}
	})
}

// Every critical node either finishes the project or drives a critical
// successor, so the critical chain always reaches the project finish.
func TestProperty_CriticalChainReachesFinish(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		snap := drawProject(rt)
		res, err := newScheduler().Schedule(context.Background(), snap)
		if err != nil {
			rt.Fatalf("Schedule failed: %v", err)
		}
		if len(res.CriticalPath) == 0 {
			rt.Fatalf("a non-empty project has a critical path")
		}

		g, err := dependency.Build(snap.Nodes())
		if err != nil {
			rt.Fatalf("Build failed: %v", err)
		}
		critical := res.CriticalSet()
		reachesFinish := false
		for _, id := range res.CriticalPath {
			tm := res.Timings[id]
			if tm.EF == res.Duration {
				reachesFinish = true
				continue
			}
			driven := false
			for _, succ := range g.Successors(id) {
				if critical[succ] {
					driven = true
					break
				}
			}
			if !driven {
				rt.Fatalf("critical %s ends at %v before %v without a critical successor", id, tm.EF, res.Duration)
			}
		}
		if !reachesFinish {
			rt.Fatalf("no critical node finishes the project")
		}
	})
}

func TestProperty_ScheduleIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		snap := drawProject(rt)
		first, err := newScheduler().Schedule(context.Background(), snap)
		if err != nil {
			rt.Fatalf("Schedule failed: %v", err)
		}
		second, err := newScheduler().Schedule(context.Background(), snap.ApplyDerived(first.CriticalSet(), first.Slack))
		if err != nil {
			rt.Fatalf("Schedule failed: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			rt.Fatalf("scheduling twice gave different results")
		}
	})
}
