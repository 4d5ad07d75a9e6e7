package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Action outcomes used as the outcome label.
const (
	OutcomeSuccess = "success"
)

// ActionMetrics holds Prometheus metrics for dashboard actions.
type ActionMetrics struct {
	ActionsTotal   *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	ChannelsTotal  *prometheus.CounterVec
}

// NewActionMetrics creates and registers action metrics on the given registry.
func NewActionMetrics(reg prometheus.Registerer) *ActionMetrics {
	m := &ActionMetrics{
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of dashboard actions, by action and outcome.",
		}, []string{"action", "outcome"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of dashboard actions in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"action"}),
		ChannelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_channels_created_total",
			Help:      "Total number of channels created by actions.",
		}, []string{"action"}),
	}

	reg.MustRegister(m.ActionsTotal, m.ActionDuration, m.ChannelsTotal)
	return m
}

// RecordAction records one finished action. An empty outcome means success;
// otherwise it is the error type.
func (m *ActionMetrics) RecordAction(action, outcome string, channels int, duration time.Duration) {
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(duration.Seconds())
	if channels > 0 {
		m.ChannelsTotal.WithLabelValues(action).Add(float64(channels))
	}
}
