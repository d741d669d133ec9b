package billing

import "github.com/felixgeelhaar/cadence/pkg/domain/planning"

// TaskCost is the budgeted cost of a single task.
type TaskCost struct {
	TaskID     string  `json:"task_id"`
	LaborHours float64 `json:"labor_hours"`
	LaborCost  float64 `json:"labor_cost"`
	FlatCost   float64 `json:"flat_cost"`
	// Budget is the explicit task budget when set, otherwise labor plus flat cost.
	Budget     float64 `json:"budget"`
	Overridden bool    `json:"overridden,omitempty"`
}

// CostTask computes a task's budgeted cost. hours holds the effective booked
// hours per resource; nil means the hours as assigned. Labor is priced at the
// resource's own hourly rate or its billing rate; each flat-cost assignment
// adds the resource's flat cost once.
func CostTask(t planning.Task, hours map[string]float64, resources map[string]planning.Resource, rates *RateConfig) TaskCost {
	cost := TaskCost{TaskID: t.ID}

	if hours == nil {
		hours = make(map[string]float64, len(t.Assignments))
		for _, a := range t.Assignments {
			hours[a.ResourceID] += a.AllocatedHours
		}
	}

	seen := make(map[string]bool, len(t.Assignments))
	for _, a := range t.Assignments {
		if seen[a.ResourceID] {
			if r, ok := resources[a.ResourceID]; ok && !r.IsLabor() {
				cost.FlatCost += r.FlatCost
			}
			continue
		}
		seen[a.ResourceID] = true

		r, ok := resources[a.ResourceID]
		if !ok {
			continue
		}
		if !r.IsLabor() {
			cost.FlatCost += r.FlatCost
			continue
		}
		h := hours[a.ResourceID]
		cost.LaborHours += h
		cost.LaborCost += h * rates.Resolve(r.HourlyRate, r.RateID)
	}

	cost.Budget = cost.LaborCost + cost.FlatCost
	if t.Budget > 0 {
		cost.Budget = t.Budget
		cost.Overridden = true
	}
	return cost
}
