package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// Exporter writes processing log entries in some format.
type Exporter interface {
	Export(ctx context.Context, entries []*retention.ProcessingLogEntry, w io.Writer) error
}

// ExportError represents an error during log export.
type ExportError struct {
	Format     string // Export format ("json", "csv")
	EntryCount int    // Number of entries being exported
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, entry_count=%d]: %v", e.Format, e.EntryCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExporter returns the exporter for format: "csv" or "json".
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "csv":
		return NewCSVExporter(true), nil
	case "json":
		return NewJSONExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q: must be 'csv' or 'json'", format)
	}
}

// CSVExporter exports log entries to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"id", "run_id", "created_at", "file_id", "policy_id",
	"action", "status", "original_path", "final_path", "message",
}

// Export writes entries to w, one row per entry.
func (e *CSVExporter) Export(ctx context.Context, entries []*retention.ProcessingLogEntry, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return &ExportError{Format: "csv", EntryCount: len(entries), Cause: err}
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(entryToRow(entry)); err != nil {
			return &ExportError{Format: "csv", EntryCount: len(entries), Cause: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &ExportError{Format: "csv", EntryCount: len(entries), Cause: err}
	}
	return nil
}

func entryToRow(e *retention.ProcessingLogEntry) []string {
	created := ""
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.RunID,
		created,
		strconv.FormatInt(e.FileID, 10),
		strconv.FormatInt(e.PolicyID, 10),
		string(e.Action),
		string(e.Status),
		e.OriginalPath,
		e.FinalPath,
		e.Message,
	}
}

// JSONExporter exports log entries as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes entries to w. An empty slice is written as [].
func (e *JSONExporter) Export(ctx context.Context, entries []*retention.ProcessingLogEntry, w io.Writer) error {
	if entries == nil {
		entries = []*retention.ProcessingLogEntry{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(entries); err != nil {
		return &ExportError{Format: "json", EntryCount: len(entries), Cause: err}
	}
	return nil
}
