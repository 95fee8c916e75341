package metrics

import (
	"strconv"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// otherLabel replaces label values once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns every Prometheus metric Custodian exports and the registry
// they live in. Recording methods are no-ops when metrics are disabled or
// the collector is nil.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	actionMetrics *ActionMetrics
	scanMetrics   *ScanMetrics
	policyMetrics *PolicyMetrics

	// Folder labels are bounded by this limiter.
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "custodian",
//		Subsystem: "retention",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.ScanDurationBuckets) == 0 {
		cfg.ScanDurationBuckets = append([]float64(nil), config.DefaultScanDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}

	c.actionMetrics = NewActionMetrics(cfg, registry)
	c.scanMetrics = NewScanMetrics(cfg, registry)
	c.policyMetrics = NewPolicyMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordAction records one executed file action.
//
// Parameters:
//   - action: "move", "archive" or "delete"
//   - status: "success", "failed" or "dry_run"
//   - duration: time spent executing the action
func (c *Collector) RecordAction(action, status string, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.actionMetrics.Record(action, status, duration)
}

// RecordScan records a finished scan run together with its item counts.
func (c *Collector) RecordScan(dryRun bool, duration time.Duration, processed, failed, skipped int) {
	if !c.enabled() {
		return
	}

	c.scanMetrics.RecordRun(dryRun, duration, time.Now())
	c.scanMetrics.RecordItems("processed", processed)
	c.scanMetrics.RecordItems("failed", failed)
	c.scanMetrics.RecordItems("skipped", skipped)
}

// RecordNotifications records the outcome of one notification pass.
func (c *Collector) RecordNotifications(sent, failed int) {
	if !c.enabled() {
		return
	}

	c.scanMetrics.RecordNotifications(sent, failed)
}

// RecordPolicyImport records a policy file import. A nil importErr counts
// as "success".
func (c *Collector) RecordPolicyImport(created, updated int, importErr error) {
	if !c.enabled() {
		return
	}

	c.policyMetrics.RecordImport(created, updated, importErr)
}

// RecordRetentionSet records a retention being set under policyID.
func (c *Collector) RecordRetentionSet(policyID int64) {
	if !c.enabled() {
		return
	}

	c.policyMetrics.RecordRetention(c.policyLabel(policyID), "set")
}

// RecordRetentionRemoved records a retention of policyID being removed.
func (c *Collector) RecordRetentionRemoved(policyID int64) {
	if !c.enabled() {
		return
	}

	c.policyMetrics.RecordRetention(c.policyLabel(policyID), "remove")
}

func (c *Collector) policyLabel(policyID int64) string {
	label := strconv.FormatInt(policyID, 10)
	if !c.cardinalityLimiter.Allow(label) {
		return otherLabel
	}
	return label
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
