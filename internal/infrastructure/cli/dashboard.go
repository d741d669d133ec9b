package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
	"github.com/felixgeelhaar/cadence/pkg/domain/schedule"
	"github.com/spf13/cobra"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive schedule dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, report, err := runReport(cmd, opts, &flags, application.RunOptions{})
			if err != nil {
				return err
			}
			defer services.Workspace.Close()

			snap, err := services.Projects.Snapshot(cmd.Context())
			if err != nil {
				return MapError(err)
			}
			reload := func() (*project.Snapshot, *application.Report, error) {
				report, err := services.Schedule.Run(cmd.Context(), application.RunOptions{})
				if err != nil {
					return nil, nil, err
				}
				snap, err := services.Projects.Snapshot(cmd.Context())
				return snap, report, err
			}

			if os.Getenv("CADENCE_SKIP_DASHBOARD_RUN") == "true" {
				fmt.Fprint(cmd.OutOrStdout(), newDashboardModel(snap, report, reload).View())
				return nil
			}
			p := tea.NewProgram(newDashboardModel(snap, report, reload), tea.WithOutput(cmd.OutOrStdout()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard run failed: %w", err)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

var (
	frameStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	bannerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4"))
)

// The first column marks critical tasks.
var dashboardColumns = []table.Column{
	{Title: "", Width: 1},
	{Title: "ID", Width: 12},
	{Title: "Task", Width: 28},
	{Title: "Status", Width: 11},
	{Title: "Done", Width: 5},
	{Title: "Start", Width: 16},
	{Title: "Finish", Width: 16},
	{Title: "Slack", Width: 7},
}

const dashboardKeys = "[q] Quit  [r] Reschedule  [Up/Down] Navigate"

type reloadFunc func() (*project.Snapshot, *application.Report, error)

type reloadedMsg struct {
	snap   *project.Snapshot
	report *application.Report
	err    error
}

// dashboardModel is the bubbletea model behind 'cadence dashboard'. It keeps
// the rendered header lines and replaces them on every reload.
type dashboardModel struct {
	table    table.Model
	title    string
	summary  []string
	overload int
	findings []string
	reload   reloadFunc
	err      error
}

func newDashboardModel(snap *project.Snapshot, report *application.Report, reload reloadFunc) dashboardModel {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229"))

	m := dashboardModel{
		table:  table.New(table.WithColumns(dashboardColumns), table.WithFocused(true), table.WithHeight(12)),
		reload: reload,
	}
	m.table.SetStyles(styles)
	m.show(snap, report)
	return m
}

func taskRow(snap *project.Snapshot, res *schedule.Result, tm schedule.Timing) table.Row {
	mark, status, done := "", planning.StatusNotStarted, 0.0
	if tm.Critical {
		mark = "*"
	}
	if task, ok := snap.Task(tm.ID); ok {
		status, done = task.Status.OrDefault(), task.PercentComplete()
	}
	return table.Row{
		mark, tm.ID, tm.Name, string(status),
		fmt.Sprintf("%.0f%%", done*100),
		fmtTime(tm.EarlyStart), fmtTime(tm.EarlyFinish),
		fmt.Sprintf("%.1fd", res.Calendar.InDays(tm.Slack)),
	}
}

func (m *dashboardModel) show(snap *project.Snapshot, report *application.Report) {
	res, e := report.Schedule, report.EVM

	rows := make([]table.Row, 0, len(res.Timings))
	for _, tm := range res.OrderedTimings() {
		rows = append(rows, taskRow(snap, res, tm))
	}
	m.table.SetRows(rows)

	m.title = snap.Name
	m.summary = []string{
		fmt.Sprintf("Finish %s  (%.2f working days, %d critical)", fmtTime(res.ProjectFinish), res.DurationDays, len(res.CriticalPath)),
		fmt.Sprintf("EV %.0f / PV %.0f / AC %.0f   CPI %s %s   SPI %s %s",
			e.EarnedValue, e.PlannedValue, e.ActualCost,
			fmtRatio(e.CPI), healthStyle(e.CostHealth).Render(string(e.CostHealth)),
			fmtRatio(e.SPI), healthStyle(e.ScheduleHealth).Render(string(e.ScheduleHealth))),
	}
	m.overload = len(report.Allocation.Overallocations)
	m.findings = nil
	for _, f := range report.Findings {
		m.findings = append(m.findings, f.String())
	}
	m.err = nil
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reloadedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.show(msg.snap, msg.report)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.reschedule()
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// reschedule runs the reload off the UI loop; nil when there is nothing
// to reload with.
func (m dashboardModel) reschedule() tea.Cmd {
	reload := m.reload
	if reload == nil {
		return nil
	}
	return func() tea.Msg {
		snap, report, err := reload()
		return reloadedMsg{snap: snap, report: report, err: err}
	}
}

func (m dashboardModel) View() string {
	lines := append([]string{bannerStyle.Render(m.title)}, m.summary...)
	lines = append(lines, "", m.table.View())

	if m.err != nil {
		lines = append(lines, criticalStyle.Render("Reload failed: "+m.err.Error()))
	}
	if m.overload > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%d over-allocated resource day(s)", m.overload)))
	} else {
		lines = append(lines, goodStyle.Render("No over-allocation"))
	}
	for _, f := range m.findings {
		lines = append(lines, "- "+mutedStyle.Render(f))
	}
	lines = append(lines, "", dashboardKeys)

	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}
