package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// MaxMessageLength bounds the stored message of a log entry.
const MaxMessageLength = 1000

// Logger appends processing log entries.
type Logger struct {
	repo    retention.LogRepository
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time
}

// NewLogger creates a logger writing to repo. collector may be nil.
func NewLogger(repo retention.LogRepository, collector *metrics.Collector) *Logger {
	return &Logger{
		repo:    repo,
		metrics: collector,
		logger:  slog.Default().With("component", "retention.audit"),
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source. Used by tests.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

// Success records a successful action.
func (l *Logger) Success(ctx context.Context, runID string, r *retention.FileRetention, originalPath, finalPath string, elapsed time.Duration) error {
	return l.Record(ctx, &retention.ProcessingLogEntry{
		RunID:        runID,
		FileID:       r.FileID,
		PolicyID:     r.PolicyID,
		Action:       r.Action,
		Status:       retention.LogSuccess,
		Message:      successMessage(r.Action, finalPath),
		OriginalPath: originalPath,
		FinalPath:    finalPath,
	}, elapsed)
}

// Failure records a failed action together with its cause.
func (l *Logger) Failure(ctx context.Context, runID string, r *retention.FileRetention, originalPath string, cause error, elapsed time.Duration) error {
	return l.Record(ctx, &retention.ProcessingLogEntry{
		RunID:        runID,
		FileID:       r.FileID,
		PolicyID:     r.PolicyID,
		Action:       r.Action,
		Status:       retention.LogFailed,
		Message:      cause.Error(),
		OriginalPath: originalPath,
	}, elapsed)
}

// Record appends e, setting its id and creation time. elapsed is the time
// the action took and only feeds metrics. A failed append is logged and
// returned; the entry is still counted.
func (l *Logger) Record(ctx context.Context, e *retention.ProcessingLogEntry, elapsed time.Duration) error {
	e.Message = truncate(e.Message, MaxMessageLength)
	e.CreatedAt = l.now().UTC()

	l.metrics.RecordAction(string(e.Action), string(e.Status), elapsed)

	attrs := []any{
		"run_id", e.RunID,
		"file_id", e.FileID,
		"policy_id", e.PolicyID,
		"action", e.Action,
		"status", e.Status,
		"original_path", e.OriginalPath,
	}
	if e.Status == retention.LogSuccess {
		l.logger.Info("retention action succeeded", append(attrs, "final_path", e.FinalPath)...)
	} else {
		l.logger.Warn("retention action failed", append(attrs, "error", e.Message)...)
	}

	if err := l.repo.AppendLog(ctx, e); err != nil {
		l.logger.Error("failed to append processing log",
			"file_id", e.FileID,
			"policy_id", e.PolicyID,
			"error", err,
		)
		return fmt.Errorf("append processing log for file %d: %w", e.FileID, err)
	}
	return nil
}

func successMessage(action retention.Action, finalPath string) string {
	switch action {
	case retention.ActionDelete:
		return "deleted"
	case retention.ActionArchive:
		return "archived to " + finalPath
	default:
		return "moved to " + finalPath
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
