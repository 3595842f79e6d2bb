package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/config"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/notify"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/observability"

	"github.com/rs/zerolog"
)

type nopBroker struct{}

func (nopBroker) Dispatch(context.Context, notify.Notification) error { return nil }

func newTestServer(t *testing.T, out io.Writer) *Server {
	t.Helper()
	cfg := config.Config{JWTSecret: "secret", ServerPort: ":0", ConflictSuggestions: 2}
	return NewServer(cfg, nil, nil, zerolog.New(out), Backends{Broker: nopBroker{}})
}

func TestHealthRoute(t *testing.T) {
	var logs bytes.Buffer
	s := newTestServer(t, &logs)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status")
	}
	if !strings.Contains(logs.String(), `"path":"/health"`) {
		t.Fatalf("expected request log line, got %q", logs.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, io.Discard)
	observability.RecordScheduleConflict()

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %v %v", resp.StatusCode, err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "activity_engine_schedule_conflicts_total") {
		t.Fatalf("expected engine metrics to be exported")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, io.Discard)

	for _, path := range []string{"/activities", "/activities/a1/registrations", "/attendance/a1/token", "/storage/evidence-uploads"} {
		resp, err := s.App.Test(httptest.NewRequest(http.MethodPost, path, nil))
		if err != nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v %v", path, resp.StatusCode, err)
		}
	}
}
