package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// Notifier delivers an upcoming-expiry notice.
type Notifier interface {
	Notify(ctx context.Context, r *retention.FileRetention, daysLeft int) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, r *retention.FileRetention, daysLeft int) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, r *retention.FileRetention, daysLeft int) error {
	return f(ctx, r, daysLeft)
}

// LogNotifier writes notices to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging to logger, or slog.Default when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, r *retention.FileRetention, daysLeft int) error {
	n.logger.InfoContext(ctx, "retention expires soon",
		"file_id", r.FileID,
		"policy_id", r.PolicyID,
		"action", r.Action,
		"expire_date", retention.FormatDate(r.ExpireDate),
		"days_left", daysLeft,
		"created_by", r.CreatedBy,
	)
	return nil
}

// NotifyResult counts the notices of one run.
type NotifyResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// NotifyUpcoming notifies every pending record whose lead time has been
// reached and marks it notified. A failed notice is retried next run.
func (s *Scanner) NotifyUpcoming(ctx context.Context) (result *NotifyResult, err error) {
	ctx, span := s.tracer.Start(ctx, "scanner.notify")
	result = &NotifyResult{}
	defer func() {
		tracing.End(span, err)
		s.metrics.RecordNotifications(result.Sent, result.Failed)
	}()

	pending, err := s.repo.PendingNotifications(ctx)
	if err != nil {
		return result, fmt.Errorf("select pending notifications: %w", err)
	}

	now := s.now()
	today := retention.TruncateDate(now)
	for _, r := range pending {
		if !due(r, today) {
			continue
		}
		daysLeft := int(retention.TruncateDate(r.ExpireDate).Sub(today) / (24 * time.Hour))

		if err := s.notifier.Notify(ctx, r, daysLeft); err != nil {
			s.logger.Warn("failed to send notification", "file_id", r.FileID, "policy_id", r.PolicyID, "error", err)
			result.Failed++
			continue
		}
		if err := s.repo.MarkNotified(ctx, r.ID, now); err != nil {
			s.logger.Error("failed to mark notified", "file_id", r.FileID, "error", err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	if result.Sent > 0 || result.Failed > 0 {
		s.logger.Info("notifications sent", "sent", result.Sent, "failed", result.Failed)
	}
	return result, nil
}

// due reports whether the notice window of r has opened by today.
func due(r *retention.FileRetention, today time.Time) bool {
	opens := retention.TruncateDate(r.ExpireDate).AddDate(0, 0, -r.NotifyBeforeDays)
	return !opens.After(today)
}
