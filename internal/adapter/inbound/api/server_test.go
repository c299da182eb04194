package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/plutodesk/plutodesk/internal/adapter/outbound/desktop"
)

type countStub int

func (c countStub) Count() int { return int(c) }

func TestServer_Health(t *testing.T) {
	broker := desktop.NewBroker(testLogger())
	srv := NewServer(NewHandler(nil),
		WithHealthChecker(NewHealthChecker(countStub(3), broker, "1.2.3")),
		WithServerLogger(testLogger()))
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Checks["sessions"] != "ok: 3 loaded" {
		t.Errorf("sessions check = %q", resp.Checks["sessions"])
	}
}

func TestServer_MetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newAPIEnv(t)
	srv := NewServer(NewHandler(env.sessions, WithLogger(testLogger())), WithRegistry(reg), WithServerLogger(testLogger()))
	h := srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), localRequest(http.MethodGet, "/api/sessions", nil))
	h.ServeHTTP(httptest.NewRecorder(), localRequest(http.MethodDelete, "/api/sessions/nope", nil))

	if got := testutil.ToFloat64(srv.metrics.RequestsTotal.WithLabelValues(http.MethodGet, "ok")); got != 1 {
		t.Errorf("ok requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `plutodesk_requests_total{method="DELETE",status="error"} 1`) {
		t.Errorf("metrics output missing error counter:\n%s", rec.Body.String())
	}
}

func TestServer_RejectsForeignOrigin(t *testing.T) {
	srv := NewServer(NewHandler(nil), WithAllowedOrigins([]string{"tauri://localhost"}), WithServerLogger(testLogger()))
	h := srv.Handler()

	req := localRequest(http.MethodGet, "/api/sessions/active", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
