// Package telemetry groups the observability packages used by custodian.
//
// # Components
//
//   - logging: slog setup with context fields and credential redaction
//   - metrics: Prometheus collector for actions, scans, notices and policies
//   - tracing: OpenTelemetry tracer setup with an OTLP/gRPC exporter
//   - health: liveness and readiness checks served by the ops server
//
// # Usage
//
//	if _, err := logging.Setup(&cfg.Telemetry.Logging, os.Stderr); err != nil {
//	    return err
//	}
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package telemetry
