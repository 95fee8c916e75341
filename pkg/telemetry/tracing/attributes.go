package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "custodian.*" namespace.
const (
	AttrRunID  = "custodian.run_id"
	AttrDryRun = "custodian.dry_run"

	AttrFileID   = "custodian.file.id"
	AttrPolicyID = "custodian.policy.id"
	AttrAction   = "custodian.action"

	AttrOriginalPath = "custodian.path.original"
	AttrFinalPath    = "custodian.path.final"

	AttrProcessed = "custodian.scan.processed"
	AttrFailed    = "custodian.scan.failed"
)

// RetentionAttributes returns the attributes identifying one retention record.
func RetentionAttributes(fileID, policyID int64, action string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrFileID, fileID),
		attribute.Int64(AttrPolicyID, policyID),
		attribute.String(AttrAction, action),
	}
}

// SetPathAttributes records where an item came from and where it ended up.
// An empty final path is omitted.
func SetPathAttributes(span trace.Span, originalPath, finalPath string) {
	span.SetAttributes(attribute.String(AttrOriginalPath, originalPath))
	if finalPath != "" {
		span.SetAttributes(attribute.String(AttrFinalPath, finalPath))
	}
}

// SetScanAttributes sets the attributes of a scan span.
func SetScanAttributes(span trace.Span, runID string, dryRun bool) {
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.Bool(AttrDryRun, dryRun),
	)
}

// SetScanResult records the counts of a finished scan.
func SetScanResult(span trace.Span, processed, failed int) {
	span.SetAttributes(
		attribute.Int(AttrProcessed, processed),
		attribute.Int(AttrFailed, failed),
	)
}

// AddEvent adds an event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
