// Package metrics provides Prometheus metrics collection for Custodian.
//
// # Overview
//
// The collector tracks the retention lifecycle: files placed under
// retention, scan runs and their outcomes, individual move, archive and
// delete actions, expiry notifications, and policy file imports.
//
// # Metrics
//
//   - actions_total{action,status}: executed file actions
//   - action_duration_seconds{action}: time spent per file action
//   - scan_runs_total{mode}: completed scans, mode is "live" or "dry_run"
//   - scan_duration_seconds{mode}: scan run duration
//   - scan_items_total{outcome}: records seen by scans per outcome
//   - scan_last_run_timestamp_seconds: unix time of the last finished scan
//   - notifications_total{status}: expiry notifications sent or failed
//   - policy_imports_total{result}: policy file imports
//   - policy_changes_total{change}: policies created or updated by imports
//   - retentions_total{policy,operation}: retentions set or removed
//
// Names are prefixed with the configured namespace and subsystem, which
// default to custodian_retention_.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordAction("delete", "success", 40*time.Millisecond)
//	http.Handle("/metrics", collector.Handler())
//
// A nil *Collector is valid and records nothing, so components can take
// one as an optional dependency.
package metrics
