// Package audit records the outcome of every executed retention action.
//
// Each real (non dry-run) attempt of the expiry scanner produces exactly one
// append-only ProcessingLogEntry, whether the action succeeded or failed.
// Logger persists the entry, mirrors it to the structured log and counts it
// in Prometheus. Entries are never updated or deleted except by the cascade
// that removes their policy.
//
// # Export
//
// The processing log can be exported as CSV or JSON for review outside the
// CLI:
//
//	exporter, err := audit.NewExporter("csv")
//	entries, _ := store.Logs(ctx, 500)
//	err = exporter.Export(ctx, entries, os.Stdout)
package audit
