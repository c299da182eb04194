package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the services.
// A nil *Metrics records nothing.
type Metrics struct {
	Sessions         prometheus.Gauge
	ActiveSession    prometheus.Gauge
	Operations       *prometheus.CounterVec
	PersistFailures  prometheus.Counter
	ScreenshotsSaved prometheus.Counter
}

// NewMetrics creates and registers the service metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Sessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "plutodesk",
				Name:      "sessions",
				Help:      "Number of stored sessions",
			},
		),
		ActiveSession: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "plutodesk",
				Name:      "active_session",
				Help:      "1 if a session is active, 0 otherwise",
			},
		),
		Operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plutodesk",
				Name:      "session_operations_total",
				Help:      "Session operations by outcome",
			},
			[]string{"op", "result"}, // result=ok/error
		),
		PersistFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "plutodesk",
				Name:      "session_persist_failures_total",
				Help:      "Session changes kept in memory but not written to disk",
			},
		),
		ScreenshotsSaved: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "plutodesk",
				Name:      "screenshots_saved_total",
				Help:      "Screenshots filed under a session",
			},
		),
	}
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setState(count int, active bool) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(count))
	if active {
		m.ActiveSession.Set(1)
	} else {
		m.ActiveSession.Set(0)
	}
}

func (m *Metrics) persistFailed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) screenshotSaved() {
	if m == nil {
		return
	}
	m.ScreenshotsSaved.Inc()
}
