package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cortex"

// Connection states as exported on the state gauge
var connectionStates = []string{"connecting", "ready", "broken", "closed"}

type moduleMetrics struct {
	gateValidations *prometheus.CounterVec

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	connectionState  *prometheus.GaugeVec
	registryTools    prometheus.Gauge

	oracleDuration  *prometheus.HistogramVec
	stepsTotal      *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	activeSessions  prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			gateValidations: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "gate_validations_total",
					Help:      "Validation gate results by pipeline and outcome.",
				},
				[]string{"pipeline", "outcome"},
			),
			dispatchTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "dispatch_total",
					Help:      "Tool dispatches by tool and status.",
				},
				[]string{"tool", "status"},
			),
			dispatchDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "dispatch_duration_seconds",
					Help:      "Tool dispatch duration in seconds by tool.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			connectionState: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "provider_connection_state",
					Help:      "Provider connection state (1 for the current state).",
				},
				[]string{"provider", "state"},
			),
			registryTools: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "registry_tools",
					Help:      "Number of tools in the merged registry.",
				},
			),
			oracleDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "oracle_duration_seconds",
					Help:      "Plan generation duration in seconds by oracle and status.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"oracle", "status"},
			),
			stepsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "agent_steps_total",
					Help:      "Agent steps by verdict.",
				},
				[]string{"verdict"},
			),
			retriesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "agent_retries_total",
					Help:      "Retry budget consumption by failure kind.",
				},
				[]string{"kind"},
			),
			sessionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "agent_sessions_total",
					Help:      "Finished session runs by outcome.",
				},
				[]string{"outcome"},
			),
			sessionDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "agent_session_duration_seconds",
					Help:      "Session run duration in seconds.",
					Buckets:   prometheus.DefBuckets,
				},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "agent_active_sessions",
					Help:      "Session runs in progress.",
				},
			),
		}

		prometheus.MustRegister(
			m.gateValidations,
			m.dispatchTotal,
			m.dispatchDuration,
			m.connectionState,
			m.registryTools,
			m.oracleDuration,
			m.stepsTotal,
			m.retriesTotal,
			m.sessionsTotal,
			m.sessionDuration,
			m.activeSessions,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordValidation counts a gate result; outcome is pass, blocked or rejected
func RecordValidation(pipeline string, ok, blocked bool) {
	outcome := "pass"
	switch {
	case blocked:
		outcome = "blocked"
	case !ok:
		outcome = "rejected"
	}
	getMetrics().gateValidations.WithLabelValues(pipeline, outcome).Inc()
}

func RecordDispatch(tool, status string, duration time.Duration) {
	m := getMetrics()
	m.dispatchTotal.WithLabelValues(tool, status).Inc()
	m.dispatchDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetConnectionState sets the gauge for state to 1 and the others to 0
func SetConnectionState(provider, state string) {
	m := getMetrics()
	for _, s := range connectionStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		m.connectionState.WithLabelValues(provider, s).Set(value)
	}
}

func SetRegistryTools(count int) {
	getMetrics().registryTools.Set(float64(count))
}

func RecordOracle(oracle string, duration time.Duration, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	getMetrics().oracleDuration.WithLabelValues(oracle, status).Observe(duration.Seconds())
}

func RecordStep(verdict string) {
	getMetrics().stepsTotal.WithLabelValues(verdict).Inc()
}

func RecordRetry(kind string) {
	getMetrics().retriesTotal.WithLabelValues(kind).Inc()
}

func RecordSession(outcome string, duration time.Duration) {
	m := getMetrics()
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	m.sessionDuration.Observe(duration.Seconds())
}

func SessionStarted() {
	getMetrics().activeSessions.Inc()
}

func SessionFinished() {
	getMetrics().activeSessions.Dec()
}
