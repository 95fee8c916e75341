package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks expiry scans and notification passes.
type ScanMetrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	itemsTotal    *prometheus.CounterVec
	lastRun       prometheus.Gauge
	notifications *prometheus.CounterVec
}

// NewScanMetrics creates and registers scan metrics with the provided registry.
func NewScanMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScanMetrics {
	sm := &ScanMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_runs_total",
				Help:      "Total number of expiry scans",
			},
			[]string{"mode"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_duration_seconds",
				Help:      "Duration of expiry scans in seconds",
				Buckets:   cfg.ScanDurationBuckets,
			},
			[]string{"mode"},
		),

		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_items_total",
				Help:      "Total number of retention records handled by scans",
			},
			[]string{"outcome"},
		),

		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_last_run_timestamp_seconds",
				Help:      "Unix time of the last finished scan",
			},
		),

		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "notifications_total",
				Help:      "Total number of expiry notifications",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		sm.runsTotal,
		sm.runDuration,
		sm.itemsTotal,
		sm.lastRun,
		sm.notifications,
	)

	return sm
}

func scanMode(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "live"
}

// RecordRun records a finished scan.
func (sm *ScanMetrics) RecordRun(dryRun bool, duration time.Duration, finished time.Time) {
	mode := scanMode(dryRun)
	sm.runsTotal.WithLabelValues(mode).Inc()
	sm.runDuration.WithLabelValues(mode).Observe(duration.Seconds())
	sm.lastRun.Set(float64(finished.Unix()))
}

// RecordItems adds n items with the given outcome.
func (sm *ScanMetrics) RecordItems(outcome string, n int) {
	if n <= 0 {
		return
	}
	sm.itemsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordNotifications adds sent and failed notification counts.
func (sm *ScanMetrics) RecordNotifications(sent, failed int) {
	if sent > 0 {
		sm.notifications.WithLabelValues("sent").Add(float64(sent))
	}
	if failed > 0 {
		sm.notifications.WithLabelValues("failed").Add(float64(failed))
	}
}
