package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/finding"
)

// Styles. lipgloss drops the colours when output is not a terminal.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	goodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const timeLayout = "2006-01-02 15:04"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, strings.Repeat("-", lipgloss.Width(title)))
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func fmtRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *v*100)
}

func healthStyle(h billing.Health) lipgloss.Style {
	switch h {
	case billing.HealthGreen:
		return goodStyle
	case billing.HealthYellow:
		return warnStyle
	case billing.HealthRed:
		return criticalStyle
	default:
		return mutedStyle
	}
}

func printFindings(w io.Writer, findings []finding.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintln(w)
	heading(w, fmt.Sprintf("Findings (%d)", len(findings)))
	for _, f := range findings {
		style := mutedStyle
		if f.Severity == finding.SeverityWarning {
			style = warnStyle
		}
		fmt.Fprintf(w, "  %s\n", style.Render(f.String()))
	}
}
