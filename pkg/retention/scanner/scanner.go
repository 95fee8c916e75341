package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/executor"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// DefaultClaimTTL is how long a claim is honored when none is configured.
const DefaultClaimTTL = time.Hour

// Repository is the part of the store a scan needs.
type Repository interface {
	DueRetentions(ctx context.Context, asOf, staleBefore time.Time) ([]*retention.FileRetention, error)
	ClaimRetention(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	CompleteRetention(ctx context.Context, id int64, now time.Time) error
	ReleaseRetention(ctx context.Context, id int64, now time.Time) error
	PendingNotifications(ctx context.Context) ([]*retention.FileRetention, error)
	MarkNotified(ctx context.Context, id int64, now time.Time) error
}

// Executor performs retention actions.
type Executor interface {
	Execute(ctx context.Context, r *retention.FileRetention) (*executor.Outcome, error)
	Describe(r *retention.FileRetention) string
}

// Auditor records the outcome of real attempts.
type Auditor interface {
	Success(ctx context.Context, runID string, r *retention.FileRetention, originalPath, finalPath string, elapsed time.Duration) error
	Failure(ctx context.Context, runID string, r *retention.FileRetention, originalPath string, cause error, elapsed time.Duration) error
}

// Progress receives per-record progress of a scan. Update reports how many
// records are done with the running counts. Finish is called once the batch
// is over, also when it was interrupted.
type Progress interface {
	Start(total int, dryRun bool)
	Update(done, processed, failed, skipped int)
	Finish(processed, failed, skipped int)
}

// Item is a record that was processed, or would be in a dry run.
type Item struct {
	RetentionID  int64            `json:"retention_id"`
	FileID       int64            `json:"file_id"`
	PolicyID     int64            `json:"policy_id"`
	Action       retention.Action `json:"action"`
	ExpireDate   time.Time        `json:"expire_date"`
	OriginalPath string           `json:"original_path,omitempty"`
	FinalPath    string           `json:"final_path,omitempty"`
	Description  string           `json:"description,omitempty"`
}

// ItemError is a record that could not be processed.
type ItemError struct {
	RetentionID int64            `json:"retention_id,omitempty"`
	FileID      int64            `json:"file_id,omitempty"`
	PolicyID    int64            `json:"policy_id,omitempty"`
	Action      retention.Action `json:"action,omitempty"`
	Error       string           `json:"error"`
}

// Summary is the result of one scan.
type Summary struct {
	RunID          string      `json:"run_id"`
	ProcessedCount int         `json:"processed_count"`
	FailedCount    int         `json:"failed_count"`
	SkippedCount   int         `json:"skipped_count"`
	Processed      []Item      `json:"processed"`
	Errors         []ItemError `json:"errors"`
	DryRun         bool        `json:"dry_run"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Scanner processes expired retention records.
type Scanner struct {
	repo     Repository
	exec     Executor
	audit    Auditor
	metrics  *metrics.Collector
	notifier Notifier
	progress Progress
	claimTTL time.Duration
	timeout  time.Duration
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClaimTTL sets how long a claim is honored before it counts as stale.
func WithClaimTTL(ttl time.Duration) Option {
	return func(s *Scanner) {
		if ttl > 0 {
			s.claimTTL = ttl
		}
	}
}

// WithTimeout bounds a single run. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.timeout = d }
}

// WithMetrics records scan metrics into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scanner) { s.metrics = c }
}

// WithNotifier replaces the default log notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Scanner) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithProgress reports the position within each batch to p.
func WithProgress(p Progress) Option {
	return func(s *Scanner) { s.progress = p }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l.With("component", "retention.scanner")
		}
	}
}

// New creates a scanner.
func New(repo Repository, exec Executor, audit Auditor, opts ...Option) *Scanner {
	s := &Scanner{
		repo:     repo,
		exec:     exec,
		audit:    audit,
		claimTTL: DefaultClaimTTL,
		tracer:   tracing.ComponentTracer("scanner"),
		logger:   slog.Default().With("component", "retention.scanner"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	return s
}

// ProcessRetentionActions runs one scan. It never fails; errors are
// reported in the summary.
func (s *Scanner) ProcessRetentionActions(ctx context.Context, dryRun bool) *Summary {
	start := s.now()
	summary := &Summary{
		RunID:     uuid.NewString(),
		Processed: []Item{},
		Errors:    []ItemError{},
		DryRun:    dryRun,
		Timestamp: start.UTC(),
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "scanner.process")
	tracing.SetScanAttributes(span, summary.RunID, dryRun)
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := s.logger.With("run_id", summary.RunID, "dry_run", dryRun)

	defer func() {
		tracing.SetScanResult(span, summary.ProcessedCount, summary.FailedCount)
		tracing.End(span, nil)
		s.metrics.RecordScan(dryRun, s.now().Sub(start), summary.ProcessedCount, summary.FailedCount, summary.SkippedCount)
	}()

	due, err := s.repo.DueRetentions(ctx, start, start.Add(-s.claimTTL))
	if err != nil {
		logger.Error("failed to select due retentions", "error", err)
		summary.Errors = append(summary.Errors, ItemError{Error: fmt.Sprintf("select due retentions: %v", err)})
		summary.FailedCount = 1
		return summary
	}

	logger.Info("retention scan started", "due", len(due))
	if s.progress != nil {
		s.progress.Start(len(due), dryRun)
		defer func() {
			s.progress.Finish(summary.ProcessedCount, summary.FailedCount, summary.SkippedCount)
		}()
	}

	for i, r := range due {
		if s.progress != nil && i > 0 {
			s.progress.Update(i, summary.ProcessedCount, summary.FailedCount, summary.SkippedCount)
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("retention scan interrupted", "remaining", len(due)-i, "error", err)
			summary.Errors = append(summary.Errors, ItemError{Error: fmt.Sprintf("scan interrupted with %d records left: %v", len(due)-i, err)})
			break
		}

		if dryRun {
			summary.Processed = append(summary.Processed, Item{
				RetentionID: r.ID,
				FileID:      r.FileID,
				PolicyID:    r.PolicyID,
				Action:      r.Action,
				ExpireDate:  r.ExpireDate,
				Description: s.exec.Describe(r),
			})
			summary.ProcessedCount++
			continue
		}

		s.processOne(ctx, logger, summary, r)
	}

	logger.Info("retention scan finished",
		"processed", summary.ProcessedCount,
		"failed", summary.FailedCount,
		"skipped", summary.SkippedCount,
		"duration", s.now().Sub(start),
	)
	return summary
}

// processOne claims, executes and settles a single record.
func (s *Scanner) processOne(ctx context.Context, logger *slog.Logger, summary *Summary, r *retention.FileRetention) {
	logger = logger.With("file_id", r.FileID, "policy_id", r.PolicyID, "action", r.Action)
	fail := func(err error) {
		summary.FailedCount++
		summary.Errors = append(summary.Errors, ItemError{
			RetentionID: r.ID,
			FileID:      r.FileID,
			PolicyID:    r.PolicyID,
			Action:      r.Action,
			Error:       err.Error(),
		})
	}

	now := s.now()
	won, err := s.repo.ClaimRetention(ctx, r.ID, now, now.Add(-s.claimTTL))
	if err != nil {
		logger.Error("failed to claim retention", "error", err)
		fail(fmt.Errorf("claim retention %d: %w", r.ID, err))
		return
	}
	if !won {
		logger.Debug("retention claimed by another scan")
		summary.SkippedCount++
		return
	}

	began := s.now()
	out, execErr := s.exec.Execute(ctx, r)
	elapsed := s.now().Sub(began)

	var originalPath, finalPath string
	if out != nil {
		originalPath, finalPath = out.OriginalPath, out.FinalPath
	}

	if execErr != nil {
		logger.Warn("retention action failed", "path", originalPath, "error", execErr)
		if err := s.audit.Failure(ctx, summary.RunID, r, originalPath, execErr, elapsed); err != nil {
			logger.Error("failed to record failure", "error", err)
		}
		if err := s.repo.ReleaseRetention(ctx, r.ID, s.now()); err != nil {
			logger.Error("failed to release retention", "error", err)
		}
		fail(execErr)
		return
	}

	if err := s.audit.Success(ctx, summary.RunID, r, originalPath, finalPath, elapsed); err != nil {
		logger.Error("failed to record success", "error", err)
	}
	if err := s.repo.CompleteRetention(ctx, r.ID, s.now()); err != nil {
		// The action is done; a stale claim will surface the record again
		// and the executor will report the item as gone.
		logger.Error("action succeeded but retention could not be completed", "error", err)
		fail(fmt.Errorf("complete retention %d: %w", r.ID, err))
		return
	}

	summary.ProcessedCount++
	summary.Processed = append(summary.Processed, Item{
		RetentionID:  r.ID,
		FileID:       r.FileID,
		PolicyID:     r.PolicyID,
		Action:       r.Action,
		ExpireDate:   r.ExpireDate,
		OriginalPath: originalPath,
		FinalPath:    finalPath,
	})
}
