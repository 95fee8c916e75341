package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ActionMetrics tracks executed file actions.
type ActionMetrics struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
}

// NewActionMetrics creates and registers action metrics with the provided registry.
func NewActionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ActionMetrics {
	am := &ActionMetrics{
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "actions_total",
				Help:      "Total number of retention actions executed",
			},
			[]string{"action", "status"},
		),

		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "action_duration_seconds",
				Help:      "Duration of retention actions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(am.actionsTotal, am.actionDuration)

	return am
}

// Record records one action outcome.
func (am *ActionMetrics) Record(action, status string, duration time.Duration) {
	am.actionsTotal.WithLabelValues(action, status).Inc()
	am.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}
