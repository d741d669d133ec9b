package billing

import (
	"strings"
	"testing"
)

func TestNewCostReport(t *testing.T) {
	report := NewCostReport("USD")
	if report.Currency != "USD" {
		t.Errorf("expected USD but got %s", report.Currency)
	}
	if report.TotalBudget != 0 || len(report.Entries) != 0 {
		t.Errorf("expected an empty report, got %+v", report)
	}
}

func TestCostReport_SetTax(t *testing.T) {
	report := NewCostReport("USD")
	report.SetTax(&TaxConfig{Name: "VAT", Percent: 20})

	if report.TaxName != "VAT" || report.TaxPercent != 20 {
		t.Errorf("expected VAT 20%%, got %s %v", report.TaxName, report.TaxPercent)
	}

	report.SetTax(nil)
	if report.TaxName != "VAT" {
		t.Error("a nil tax must leave the report unchanged")
	}
}

func TestCostReport_AddEntry(t *testing.T) {
	report := NewCostReport("EUR")
	cost := TaskCost{TaskID: "task-1", LaborHours: 10, LaborCost: 1500, Budget: 1500}
	report.AddEntry(NewCostReportEntry("Feature A", cost, 1800), nil)

	if len(report.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(report.Entries))
	}
	e := report.Entries[0]
	if e.Currency != "EUR" || e.CostVariance != -300 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if report.TotalHours != 10 || report.TotalBudget != 1500 || report.TotalActual != 1800 || report.TotalVariance != -300 {
		t.Errorf("unexpected totals: %+v", report)
	}
}

func TestCostReport_AddEntryWithTax(t *testing.T) {
	report := NewCostReport("EUR")
	tax := &TaxConfig{Name: "VAT", Percent: 20}
	report.AddEntry(NewCostReportEntry("A", TaskCost{TaskID: "a", Budget: 1000}, 0), tax)

	if report.Entries[0].Tax != 200 || report.Entries[0].TotalWithTax != 1200 {
		t.Errorf("unexpected tax: %+v", report.Entries[0])
	}

	included := &TaxConfig{Name: "VAT", Percent: 20, Included: true}
	report.AddEntry(NewCostReportEntry("B", TaskCost{TaskID: "b", Budget: 1000}, 0), included)
	if report.Entries[1].Tax != 0 {
		t.Errorf("included tax must not be added again: %+v", report.Entries[1])
	}
	if report.TotalTax != 200 {
		t.Errorf("expected total tax 200, got %v", report.TotalTax)
	}
}

func TestCostReport_CSV(t *testing.T) {
	report := NewCostReport("USD")
	report.AddEntry(NewCostReportEntry("Build", TaskCost{TaskID: "build", LaborHours: 8, LaborCost: 800, Budget: 800}, 400), nil)

	csv := report.CSV()
	lines := strings.Split(csv, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, entry and total, got %d lines:\n%s", len(lines), csv)
	}
	if lines[0] != "Task ID,Name,Hours,Labor,Flat,Budget,Actual,Variance" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "build,Build,8.00,800.00,0.00,800.00,400.00,400.00" {
		t.Errorf("unexpected entry %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "TOTAL,,8.00") {
		t.Errorf("unexpected total %q", lines[2])
	}
}
