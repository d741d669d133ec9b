package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/cadence/pkg/application"
)

func TestDashboardServer(t *testing.T) {
	dir := newABCProject(t)
	services := watchServices(t, dir)

	server, stream, err := newDashboardServer("127.0.0.1:0", services)
	if err != nil {
		t.Fatal(err)
	}
	services.Workspace.Dispatcher.Register(stream.Registration())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Design") {
		t.Fatalf("index = %d:\n%s", rec.Code, rec.Body.String())
	}

	// Recorded runs reach the stream's dispatcher registration.
	if services.Workspace.Dispatcher.HandlerCount("schedule.computed") != 3 {
		t.Errorf("handler count = %d, want 3", services.Workspace.Dispatcher.HandlerCount("schedule.computed"))
	}
	if _, err := services.Schedule.Run(context.Background(), application.RunOptions{Record: true}); err != nil {
		t.Fatal(err)
	}
}
