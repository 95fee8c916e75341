package metrics

import (
	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks policy imports and retention assignments.
type PolicyMetrics struct {
	importsTotal    *prometheus.CounterVec
	changesTotal    *prometheus.CounterVec
	retentionsTotal *prometheus.CounterVec
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_imports_total",
				Help:      "Total number of policy file imports",
			},
			[]string{"result"},
		),

		changesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_changes_total",
				Help:      "Total number of policies created or updated by imports",
			},
			[]string{"change"},
		),

		retentionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retentions_total",
				Help:      "Total number of file retentions set or removed",
			},
			[]string{"policy", "operation"},
		),
	}

	registry.MustRegister(pm.importsTotal, pm.changesTotal, pm.retentionsTotal)

	return pm
}

// RecordImport records one import attempt.
func (pm *PolicyMetrics) RecordImport(created, updated int, importErr error) {
	if importErr != nil {
		pm.importsTotal.WithLabelValues("error").Inc()
		return
	}
	pm.importsTotal.WithLabelValues("success").Inc()
	if created > 0 {
		pm.changesTotal.WithLabelValues("created").Add(float64(created))
	}
	if updated > 0 {
		pm.changesTotal.WithLabelValues("updated").Add(float64(updated))
	}
}

// RecordRetention records a retention operation under a policy.
func (pm *PolicyMetrics) RecordRetention(policy, operation string) {
	pm.retentionsTotal.WithLabelValues(policy, operation).Inc()
}
