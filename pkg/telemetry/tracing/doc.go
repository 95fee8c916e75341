// Package tracing provides OpenTelemetry tracing for Custodian.
//
// # Overview
//
// Scans and file actions are traced so a slow or failing retention run can
// be followed from the scheduler tick down to the individual copy and
// delete calls against the file tree. Spans are exported over OTLP/gRPC to
// any OpenTelemetry collector (Jaeger, Tempo, Zipkin via the collector).
//
// # Span Layout
//
//	scanner.process            custodian.run_id, custodian.dry_run
//	  executor.move            custodian.file.id, custodian.policy.id, custodian.action
//	  executor.delete
//	scanner.notify
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    sampler: ratio
//	    sample_ratio: 0.25
//
// When tracing is disabled New installs nothing and components fall back
// to the global no-op provider.
//
// # Sampling Strategies
//
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces
//   - ratio: Sample a share of traces by trace id
//
// All samplers are parent based.
package tracing
