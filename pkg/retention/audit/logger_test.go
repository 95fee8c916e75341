package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/storage"
	"mercator-hq/custodian/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRetention() *retention.FileRetention {
	return &retention.FileRetention{ID: 1, FileID: 42, PolicyID: 3, Action: retention.ActionArchive}
}

// failingRepo rejects every append.
type failingRepo struct{}

func (failingRepo) AppendLog(ctx context.Context, e *retention.ProcessingLogEntry) error {
	return errors.New("disk full")
}

func (failingRepo) Logs(ctx context.Context, limit int) ([]*retention.ProcessingLogEntry, error) {
	return nil, nil
}

// TestLogger_Success tests a successful action is appended
func TestLogger_Success(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	logger := NewLogger(store, nil).WithClock(func() time.Time { return fixedNow })

	err := logger.Success(ctx, "run-1", sampleRetention(), "/__groupfolders/1/a.txt", "/archive/archive_2024-03-01/a.txt", time.Millisecond)
	if err != nil {
		t.Fatalf("Success() failed: %v", err)
	}

	logs, err := store.Logs(ctx, 10)
	if err != nil {
		t.Fatalf("Logs() failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(logs))
	}
	e := logs[0]
	if e.Status != retention.LogSuccess || e.RunID != "run-1" || e.FileID != 42 || e.PolicyID != 3 {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if e.FinalPath != "/archive/archive_2024-03-01/a.txt" {
		t.Errorf("Expected final path to be kept, got %q", e.FinalPath)
	}
	if !strings.HasPrefix(e.Message, "archived to ") {
		t.Errorf("Unexpected message %q", e.Message)
	}
	if !e.CreatedAt.Equal(fixedNow) {
		t.Errorf("Expected created at %v, got %v", fixedNow, e.CreatedAt)
	}
}

// TestLogger_Failure tests failures keep the cause and no final path
func TestLogger_Failure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	logger := NewLogger(store, nil)

	cause := retention.NewActionError(sampleRetention(), "copy", errors.New("size mismatch"))
	if err := logger.Failure(ctx, "run-2", sampleRetention(), "/a.txt", cause, 0); err != nil {
		t.Fatalf("Failure() failed: %v", err)
	}

	logs, _ := store.Logs(ctx, 10)
	if len(logs) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(logs))
	}
	if logs[0].Status != retention.LogFailed {
		t.Errorf("Expected failed status, got %s", logs[0].Status)
	}
	if logs[0].FinalPath != "" {
		t.Errorf("Expected empty final path, got %q", logs[0].FinalPath)
	}
	if !strings.Contains(logs[0].Message, "size mismatch") {
		t.Errorf("Expected cause in message, got %q", logs[0].Message)
	}
}

// TestLogger_TruncatesMessage tests long messages are bounded
func TestLogger_TruncatesMessage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	logger := NewLogger(store, nil)

	e := &retention.ProcessingLogEntry{
		FileID:  1,
		Action:  retention.ActionDelete,
		Status:  retention.LogFailed,
		Message: strings.Repeat("ü", MaxMessageLength+50),
	}
	if err := logger.Record(ctx, e, 0); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if n := len([]rune(e.Message)); n != MaxMessageLength {
		t.Errorf("Expected %d runes, got %d", MaxMessageLength, n)
	}
	if !strings.HasSuffix(e.Message, "...") {
		t.Error("Expected truncated message to end with ...")
	}
}

// TestLogger_AppendFailure tests errors from the repository are returned
func TestLogger_AppendFailure(t *testing.T) {
	logger := NewLogger(failingRepo{}, nil)

	err := logger.Success(context.Background(), "run", sampleRetention(), "/a", "/b", 0)
	if err == nil {
		t.Fatal("Expected error from failing repository")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected cause in error, got %v", err)
	}
}

// TestLogger_Metrics tests every record is counted
func TestLogger_Metrics(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, registry)
	logger := NewLogger(storage.NewMemoryStore(), collector)

	r := sampleRetention()
	logger.Success(ctx, "run", r, "/a", "/b", time.Millisecond)
	logger.Failure(ctx, "run", r, "/a", errors.New("boom"), time.Millisecond)
	logger.Failure(ctx, "run", r, "/a", errors.New("boom"), time.Millisecond)

	expected := `
# HELP test_retention_actions_total Total number of retention actions executed
# TYPE test_retention_actions_total counter
test_retention_actions_total{action="archive",status="failed"} 2
test_retention_actions_total{action="archive",status="success"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_retention_actions_total"); err != nil {
		t.Errorf("Unexpected metrics: %v", err)
	}
}

func sampleEntries() []*retention.ProcessingLogEntry {
	return []*retention.ProcessingLogEntry{
		{ID: 2, RunID: "r", FileID: 5, PolicyID: 1, Action: retention.ActionMove, Status: retention.LogSuccess,
			Message: "moved to /t/a.txt", OriginalPath: "/a.txt", FinalPath: "/t/a.txt", CreatedAt: fixedNow},
		{ID: 1, RunID: "r", FileID: 6, PolicyID: 1, Action: retention.ActionDelete, Status: retention.LogFailed,
			Message: "node not found, file \"b,c\"", OriginalPath: "/b", CreatedAt: fixedNow},
	}
}

// TestCSVExporter_Export tests CSV output with header and quoting
func TestCSVExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), sampleEntries(), &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[0][len(rows[0])-1] != "message" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][2] != "2024-03-01T12:00:00Z" {
		t.Errorf("Unexpected timestamp %q", rows[1][2])
	}
	if rows[2][9] != "node not found, file \"b,c\"" {
		t.Errorf("Message did not round trip: %q", rows[2][9])
	}
}

// TestJSONExporter_Export tests JSON array output
func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), sampleEntries(), &buf); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	var decoded []retention.ProcessingLogEntry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].FinalPath != "/t/a.txt" {
		t.Errorf("Unexpected decoded entries: %+v", decoded)
	}

	buf.Reset()
	if err := NewJSONExporter(false).Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export(nil) failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Expected empty array, got %q", buf.String())
	}
}

func TestNewExporter(t *testing.T) {
	for _, format := range []string{"csv", "json"} {
		if _, err := NewExporter(format); err != nil {
			t.Errorf("NewExporter(%q) failed: %v", format, err)
		}
	}
	if _, err := NewExporter("xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
