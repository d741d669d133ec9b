// Package dashboard serves a read-only web view of the schedule.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/application"
	"github.com/felixgeelhaar/cadence/pkg/domain/billing"
	"github.com/felixgeelhaar/cadence/pkg/domain/planning"
	"github.com/felixgeelhaar/cadence/pkg/domain/project"
)

//go:embed templates/*
var templatesFS embed.FS

// DataProvider schedules the current project.
type DataProvider interface {
	Report(ctx context.Context) (*project.Snapshot, *application.Report, error)
}

// ProviderFunc adapts a function to DataProvider.
type ProviderFunc func(ctx context.Context) (*project.Snapshot, *application.Report, error)

func (f ProviderFunc) Report(ctx context.Context) (*project.Snapshot, *application.Report, error) {
	return f(ctx)
}

// Server is the dashboard HTTP server.
type Server struct {
	addr     string
	provider DataProvider
	stream   http.Handler
	logger   *slog.Logger
	server   *http.Server
	tmpl     *template.Template
}

// NewServer parses the page templates and prepares a server on addr.
// stream serves /events and may be nil.
func NewServer(addr string, provider DataProvider, stream http.Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"statusClass": statusClass,
		"healthClass": healthClass,
		"formatTime":  formatTime,
		"ratio":       formatRatio,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{addr: addr, provider: provider, stream: stream, logger: logger, tmpl: tmpl}
	s.server = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 15 * time.Second}
	return s, nil
}

// view picks the part of a report a JSON endpoint returns.
type view func(*project.Snapshot, *application.Report) any

var apiViews = map[string]view{
	"report":   func(_ *project.Snapshot, r *application.Report) any { return r },
	"schedule": func(_ *project.Snapshot, r *application.Report) any { return r.Schedule },
	"evm":      func(_ *project.Snapshot, r *application.Report) any { return r.EVM },
	"costs":    func(snap *project.Snapshot, r *application.Report) any { return application.BuildCostReport(snap, r) },
}

// Handler returns the dashboard routes: the page, one JSON endpoint per
// report view and, when configured, the event stream.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	for name, pick := range apiViews {
		mux.Handle("GET /api/"+name, s.api(pick))
	}
	if s.stream != nil {
		mux.Handle("GET /events", s.stream)
	}
	return mux
}

func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", s.addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// PageData is what index.html renders.
type PageData struct {
	Title    string
	Project  string
	Report   *application.Report
	Tasks    []TaskView
	Summary  Summary
	Findings []string
	Error    string
}

// TaskView is one row of the task table.
type TaskView struct {
	ID        string
	Name      string
	Status    planning.TaskStatus
	Percent   float64
	Start     time.Time
	Finish    time.Time
	SlackDays float64
	Critical  bool
}

// StatusCount is the number of tasks in one status.
type StatusCount struct {
	Status planning.TaskStatus
	Tasks  int
}

// Summary is the header line of the page.
type Summary struct {
	Tasks             int
	ByStatus          []StatusCount
	OverallocatedDays int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := PageData{Title: "Schedule"}
	if snap, report, err := s.provider.Report(r.Context()); err != nil {
		page.Error = err.Error()
	} else {
		page.Project = snap.Name
		page.Report = report
		page.Tasks = taskViews(snap, report)
		page.Summary = summarize(snap, report)
		for _, f := range report.Findings {
			page.Findings = append(page.Findings, f.String())
		}
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", page); err != nil {
		s.logger.Error("render index", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) api(pick view) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, report, err := s.provider.Report(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(pick(snap, report)); err != nil {
			s.logger.Warn("encode response", "path", r.URL.Path, "error", err)
		}
	})
}

// summarize counts tasks per status, in lifecycle order.
func summarize(snap *project.Snapshot, report *application.Report) Summary {
	counts := make(map[planning.TaskStatus]int, len(snap.Tasks))
	for _, task := range snap.Tasks {
		counts[task.Status.OrDefault()]++
	}
	sum := Summary{Tasks: len(snap.Tasks), OverallocatedDays: len(report.Allocation.Overallocations)}
	for _, status := range planning.AllTaskStatuses() {
		sum.ByStatus = append(sum.ByStatus, StatusCount{Status: status, Tasks: counts[status]})
	}
	return sum
}

func taskViews(snap *project.Snapshot, report *application.Report) []TaskView {
	res := report.Schedule
	rows := make([]TaskView, 0, len(res.Timings))
	for _, tm := range res.OrderedTimings() {
		row := TaskView{
			ID:        tm.ID,
			Name:      tm.Name,
			Status:    planning.StatusNotStarted,
			Start:     tm.EarlyStart,
			Finish:    tm.EarlyFinish,
			SlackDays: res.Calendar.InDays(tm.Slack),
			Critical:  tm.Critical,
		}
		if task, ok := snap.Task(tm.ID); ok {
			row.Status = task.Status.OrDefault()
			row.Percent = task.PercentComplete() * 100
		}
		rows = append(rows, row)
	}
	return rows
}

var statusClasses = map[planning.TaskStatus]string{
	planning.StatusNotStarted: "status-pending",
	planning.StatusInProgress: "status-progress",
	planning.StatusCompleted:  "status-done",
	planning.StatusOnHold:     "status-blocked",
	planning.StatusCancelled:  "status-blocked",
}

func statusClass(status planning.TaskStatus) string {
	if class, ok := statusClasses[status]; ok {
		return class
	}
	return "status-unknown"
}

func healthClass(h billing.Health) string {
	return "health-" + string(h)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func formatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
