package billing

import (
	"fmt"
	"strings"
	"time"
)

type CostReportEntry struct {
	TaskID       string  `json:"task_id"`
	Name         string  `json:"name"`
	Hours        float64 `json:"hours"`
	LaborCost    float64 `json:"labor_cost"`
	FlatCost     float64 `json:"flat_cost"`
	Budget       float64 `json:"budget"`
	ActualCost   float64 `json:"actual_cost"`
	CostVariance float64 `json:"cost_variance"` // budget - actual
	Currency     string  `json:"currency"`
	Tax          float64 `json:"tax,omitempty"`
	TotalWithTax float64 `json:"total_with_tax,omitempty"`
}

// NewCostReportEntry builds a report line from a computed task cost.
func NewCostReportEntry(name string, cost TaskCost, actual float64) CostReportEntry {
	return CostReportEntry{
		TaskID:       cost.TaskID,
		Name:         name,
		Hours:        cost.LaborHours,
		LaborCost:    cost.LaborCost,
		FlatCost:     cost.FlatCost,
		Budget:       cost.Budget,
		ActualCost:   actual,
		CostVariance: cost.Budget - actual,
	}
}

type CostReport struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Currency      string            `json:"currency"`
	TaxName       string            `json:"tax_name,omitempty"`
	TaxPercent    float64           `json:"tax_percent,omitempty"`
	Entries       []CostReportEntry `json:"entries"`
	TotalHours    float64           `json:"total_hours"`
	TotalBudget   float64           `json:"total_budget"`
	TotalActual   float64           `json:"total_actual"`
	TotalVariance float64           `json:"total_variance"`
	TotalTax      float64           `json:"total_tax"`
	TotalWithTax  float64           `json:"total_with_tax"`
}

func NewCostReport(currency string) *CostReport {
	return &CostReport{
		GeneratedAt: time.Now(),
		Currency:    currency,
		Entries:     []CostReportEntry{},
	}
}

func (cr *CostReport) SetTax(tax *TaxConfig) {
	if tax == nil {
		return
	}
	cr.TaxName = tax.Name
	cr.TaxPercent = tax.Percent
}

// AddEntry appends a line and updates the totals. Tax is charged on the
// budget unless the rates already include it.
func (cr *CostReport) AddEntry(entry CostReportEntry, tax *TaxConfig) {
	entry.Currency = cr.Currency
	cr.TotalHours += entry.Hours
	cr.TotalBudget += entry.Budget
	cr.TotalActual += entry.ActualCost
	cr.TotalVariance += entry.CostVariance

	if owed := tax.Charge(entry.Budget); owed > 0 {
		entry.Tax = owed
		entry.TotalWithTax = entry.Budget + owed
		cr.TotalTax += owed
		cr.TotalWithTax += entry.TotalWithTax
	}

	cr.Entries = append(cr.Entries, entry)
}

func (cr *CostReport) CSV() string {
	hasTax := cr.TotalTax > 0
	header := "Task ID,Name,Hours,Labor,Flat,Budget,Actual,Variance"
	if hasTax {
		header += ",Tax,Total"
	}
	lines := []string{header}
	for _, e := range cr.Entries {
		line := fmt.Sprintf("%s,%s,%.2f,%.2f,%.2f,%.2f,%.2f,%.2f",
			e.TaskID, e.Name, e.Hours, e.LaborCost, e.FlatCost, e.Budget, e.ActualCost, e.CostVariance)
		if hasTax {
			line += fmt.Sprintf(",%.2f,%.2f", e.Tax, e.TotalWithTax)
		}
		lines = append(lines, line)
	}
	total := fmt.Sprintf("TOTAL,,%.2f,,,%.2f,%.2f,%.2f", cr.TotalHours, cr.TotalBudget, cr.TotalActual, cr.TotalVariance)
	if hasTax {
		total += fmt.Sprintf(",%.2f,%.2f", cr.TotalTax, cr.TotalWithTax)
	}
	lines = append(lines, total)
	return strings.Join(lines, "\n")
}
