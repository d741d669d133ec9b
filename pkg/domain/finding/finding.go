// Package finding defines advisory findings that accompany a successful
// scheduling run. Findings are never errors: callers may display or ignore them.
package finding

import "fmt"

// Kind classifies a finding.
type Kind string

const (
	// KindCalendarFallback indicates a resource referenced a missing or invalid
	// calendar and the default calendar was used instead.
	KindCalendarFallback Kind = "calendar_fallback"
	// KindEmptySpan indicates a task span contains no working time.
	KindEmptySpan Kind = "empty_span"
	// KindZeroCapacity indicates a task's assigned resources provide no daily capacity.
	KindZeroCapacity Kind = "zero_capacity"
	// KindOverallocation indicates a resource is booked beyond capacity on a day.
	KindOverallocation Kind = "overallocation"
	// KindMilestoneLate indicates a milestone is scheduled after its target date.
	KindMilestoneLate Kind = "milestone_late"
	// KindEVMGuard indicates an earned value ratio was undefined and omitted.
	KindEVMGuard Kind = "evm_guard"
)

// Severity ranks how much attention a finding deserves.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Finding is a single advisory observation about a run.
type Finding struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	// Subject is the identifier the finding is about (task, resource, metric).
	Subject string `json:"subject" yaml:"subject"`
	Message string `json:"message" yaml:"message"`
}

// New creates a finding with a formatted message.
func New(kind Kind, severity Severity, subject, format string, args ...any) Finding {
	return Finding{
		Kind:     kind,
		Severity: severity,
		Subject:  subject,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Subject, f.Message)
}

// Filter returns the findings of the given kind.
func Filter(findings []Finding, kind Kind) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
