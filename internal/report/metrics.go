package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are per-run counters kept in a private registry.
// The process is short-lived, so they are exported with WriteTextfile
// for the node_exporter textfile collector instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	fatalErrors     *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	lastExitCode    prometheus.Gauge
}

// NewMetrics creates and registers the run metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msmtp_retry_attempts_total",
				Help: "Mail command invocations by result",
			},
			[]string{"result"}, // "success", "failure"
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msmtp_retry_decisions_total",
				Help: "Answers given to the retry prompt",
			},
			[]string{"decision"}, // "retry", "decline"
		),
		fatalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msmtp_retry_fatal_errors_total",
				Help: "Local errors that aborted the run",
			},
			[]string{"kind"}, // "launch", "write", "wait", "terminal"
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "msmtp_retry_attempt_duration_seconds",
				Help:    "Wall time of one mail command invocation",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		lastExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "msmtp_retry_last_exit_code",
				Help: "Exit code of the most recent invocation",
			},
		),
	}

	m.registry.MustRegister(m.attempts, m.decisions, m.fatalErrors, m.attemptDuration, m.lastExitCode)
	return m
}

// RecordAttempt updates counters from a finished attempt
func (m *Metrics) RecordAttempt(a *Attempt) {
	if a.Succeeded() {
		m.attempts.WithLabelValues("success").Inc()
	} else {
		m.attempts.WithLabelValues("failure").Inc()
	}
	m.attemptDuration.Observe(a.Duration.Seconds())
	m.lastExitCode.Set(float64(a.ExitCode))
}

// RecordDecision counts a retry or decline answer
func (m *Metrics) RecordDecision(d Decision) {
	if d == DecisionRetry || d == DecisionDecline {
		m.decisions.WithLabelValues(string(d)).Inc()
	}
}

// RecordFatal counts a local error by kind
func (m *Metrics) RecordFatal(kind string) {
	m.fatalErrors.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying gatherer
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in Prometheus text format to path.
// The write is atomic (temp file + rename).
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
