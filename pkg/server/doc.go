// Package server provides the ops HTTP server of custodian.
//
// The server only exposes operational endpoints, there is no user-facing
// API:
//
//   - /health, /ready, /version from pkg/telemetry/health
//   - the Prometheus scrape endpoint at the configured metrics path
//
// Requests pass through panic recovery, trace context extraction and
// request logging.
//
//	srv := server.NewServer(&cfg.Server, checker, collector.Handler(), cfg.Telemetry.Metrics.Path, build)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
