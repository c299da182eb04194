package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
)

// HealthResponse is the JSON response from the /healthz endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// SessionCounter reports how many sessions are loaded.
type SessionCounter interface {
	Count() int
}

// EventStats reports event broker state.
type EventStats interface {
	Subscribers() int
	Dropped() int64
}

// HealthChecker verifies component health.
type HealthChecker struct {
	sessions SessionCounter
	events   EventStats
	version  string
}

// NewHealthChecker creates a HealthChecker. Pass nil for components that
// aren't available.
func NewHealthChecker(sessions SessionCounter, events EventStats, version string) *HealthChecker {
	return &HealthChecker{sessions: sessions, events: events, version: version}
}

// Check reports component state.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)

	if h.sessions != nil {
		checks["sessions"] = fmt.Sprintf("ok: %d loaded", h.sessions.Count())
	} else {
		checks["sessions"] = "not configured"
	}

	if h.events != nil {
		checks["events"] = fmt.Sprintf("ok: %d subscribers", h.events.Subscribers())
		if drops := h.events.Dropped(); drops > 0 {
			checks["event_drops"] = fmt.Sprintf("%d dropped", drops)
		}
	} else {
		checks["events"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	return HealthResponse{Status: "ok", Checks: checks, Version: h.version}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(h.Check())
	})
}
