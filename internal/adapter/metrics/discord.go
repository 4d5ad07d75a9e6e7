package metrics

import "github.com/prometheus/client_golang/prometheus"

// DiscordMetrics holds Prometheus metrics for calls against the Discord REST API.
type DiscordMetrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RefreshesTotal      *prometheus.CounterVec
	BreakerState        prometheus.Gauge
	BreakerStateChanges *prometheus.CounterVec
}

// NewDiscordMetrics creates and registers Discord metrics on the given registry.
func NewDiscordMetrics(reg prometheus.Registerer) *DiscordMetrics {
	m := &DiscordMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "requests_total",
			Help:      "Total number of Discord REST requests, by operation and status.",
		}, []string{"operation", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "request_duration_seconds",
			Help:      "Duration of Discord REST requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "directory_refreshes_total",
			Help:      "Total number of guild directory refreshes, by result.",
		}, []string{"result"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of circuit breaker state transitions, by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.RefreshesTotal, m.BreakerState, m.BreakerStateChanges)
	return m
}

// SetBreakerState records a breaker transition to state.
func (m *DiscordMetrics) SetBreakerState(state string) {
	m.BreakerStateChanges.WithLabelValues(state).Inc()
	m.BreakerState.Set(breakerStateValue(state))
}
