package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/formstep/internal/engine"
)

// Metrics are the server's Prometheus collectors. Each Metrics owns its
// registry so several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted *prometheus.CounterVec
	navigation      *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formstep",
			Name:      "sessions_started_total",
			Help:      "Form sessions started, by form.",
		}, []string{"form"}),
		navigation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formstep",
			Name:      "navigation_total",
			Help:      "Navigation attempts, by form and outcome.",
		}, []string{"form", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formstep",
			Name:      "submissions_total",
			Help:      "Completed submissions handed to the sink, by form and result.",
		}, []string{"form", "result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "formstep",
			Name:      "active_sessions",
			Help:      "Sessions started and not yet completed or abandoned.",
		}),
	}

	m.registry.MustRegister(
		m.sessionsStarted,
		m.navigation,
		m.submissions,
		m.activeSessions,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) sessionStarted(formID string) {
	m.sessionsStarted.WithLabelValues(formID).Inc()
	m.activeSessions.Inc()
}

func (m *Metrics) sessionEnded() {
	m.activeSessions.Dec()
}

func (m *Metrics) navigated(formID string, outcome engine.Outcome) {
	m.navigation.WithLabelValues(formID, string(outcome)).Inc()
}

func (m *Metrics) retreated(formID string, moved bool) {
	outcome := "retreated"
	if !moved {
		outcome = "retreat_noop"
	}
	m.navigation.WithLabelValues(formID, outcome).Inc()
}

func (m *Metrics) submitted(formID string, err error) {
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	m.submissions.WithLabelValues(formID, result).Inc()
}
