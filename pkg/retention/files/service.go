package files

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/hierarchy"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// DefaultLogLimit is the number of log entries ProcessingLogs returns when
// no limit is given.
const DefaultLogLimit = 100

// Repository is the persistence the service needs.
type Repository interface {
	retention.RetentionRepository
	retention.LogRepository
}

// PolicyFinder resolves the governing policy of an item.
type PolicyFinder interface {
	FindPolicyForFile(ctx context.Context, fileID int64) (*retention.Policy, error)
}

// AncestorChecker finds an ancestor whose retention covers an item.
type AncestorChecker interface {
	BlockingAncestor(ctx context.Context, fileID int64) (*hierarchy.PathStatus, error)
}

// Request carries the user's choice when setting a retention.
type Request struct {
	RetentionPeriod int    `json:"retention_period"`
	RetentionUnit   string `json:"retention_unit"`
	TargetPath      string `json:"target_path,omitempty"` // overrides the policy default
	Justification   string `json:"justification,omitempty"`
	UserID          string `json:"user_id"`
}

// Service manages per-item retention records.
type Service struct {
	repo      Repository
	policies  PolicyFinder
	ancestors AncestorChecker
	metrics   *metrics.Collector
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a service. ancestors may be nil, in which case the
// covering-ancestor check is skipped.
func NewService(repo Repository, policies PolicyFinder, ancestors AncestorChecker) *Service {
	return &Service{
		repo:      repo,
		policies:  policies,
		ancestors: ancestors,
		now:       time.Now,
		logger:    slog.Default().With("component", "retention.files"),
	}
}

// WithMetrics counts retention changes in c.
func (s *Service) WithMetrics(c *metrics.Collector) *Service {
	s.metrics = c
	return s
}

// WithClock replaces the time source. It is used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SetFileRetention binds the governing policy's terms to an item. An
// existing record for the item is overwritten and returned to active.
func (s *Service) SetFileRetention(ctx context.Context, fileID int64, req Request) (*retention.FileRetention, error) {
	policy, err := s.policies.FindPolicyForFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	unit, err := s.validate(policy, &req)
	if err != nil {
		s.logger.Info("retention rejected",
			"file_id", fileID,
			"policy_id", policy.ID,
			"error", err,
		)
		return nil, err
	}

	if s.ancestors != nil {
		blocker, err := s.ancestors.BlockingAncestor(ctx, fileID)
		if err != nil {
			return nil, err
		}
		if blocker != nil {
			return nil, retention.NewValidationError("file_id",
				fmt.Sprintf("covered by the retention of %s", blocker.BlockingPath))
		}
	}

	target := req.TargetPath
	if target == "" {
		target = policy.DefaultTargetPath
	}

	r := &retention.FileRetention{
		FileID:           fileID,
		PolicyID:         policy.ID,
		RetentionPeriod:  req.RetentionPeriod,
		RetentionUnit:    unit,
		ExpireDate:       retention.CalculateExpireDate(req.RetentionPeriod, unit, s.now()),
		Action:           policy.DefaultAction,
		TargetPath:       target,
		Justification:    req.Justification,
		NotifyBeforeDays: policy.NotifyBeforeDays,
		Status:           retention.StatusActive,
		CreatedBy:        req.UserID,
	}
	if err := s.repo.UpsertRetention(ctx, r); err != nil {
		return nil, err
	}

	s.metrics.RecordRetentionSet(policy.ID)
	s.logger.Info("retention set",
		"file_id", fileID,
		"policy_id", policy.ID,
		"action", r.Action,
		"expire_date", retention.FormatDate(r.ExpireDate),
		"user_id", req.UserID,
	)
	return r, nil
}

// validate checks a request against the policy and returns the
// normalized unit.
func (s *Service) validate(policy *retention.Policy, req *Request) (retention.Unit, error) {
	req.Justification = strings.TrimSpace(req.Justification)
	req.TargetPath = strings.TrimSpace(req.TargetPath)

	err := validation.ValidateStruct(req,
		validation.Field(&req.RetentionPeriod, validation.Required, validation.Min(1)),
		validation.Field(&req.RetentionUnit, validation.Required, validation.By(validUnit)),
		validation.Field(&req.Justification,
			validation.When(policy.RequireJustification,
				validation.Required.Error("is required by the policy"),
			),
		),
	)
	if err != nil {
		return "", retention.FromValidation(err)
	}
	unit, _ := retention.ParseUnit(req.RetentionUnit)

	if !policy.AllowsPeriod(req.RetentionPeriod, unit) {
		return "", retention.NewValidationError("retention_period",
			fmt.Sprintf("%s is not allowed by policy %q (allowed: %s)",
				retention.FormatPeriod(req.RetentionPeriod, unit),
				policy.Name,
				strings.Join(policy.AllowedPeriods, ", ")))
	}

	if policy.DefaultAction.RequiresTarget() && req.TargetPath == "" && policy.DefaultTargetPath == "" {
		return "", retention.NewValidationError("target_path",
			fmt.Sprintf("action %s needs a target path", policy.DefaultAction))
	}
	return unit, nil
}

func validUnit(value any) error {
	s, _ := value.(string)
	_, err := retention.ParseUnit(s)
	return err
}

// RemoveFileRetention deletes an item's record. It reports false when the
// item had none.
func (s *Service) RemoveFileRetention(ctx context.Context, fileID int64) (bool, error) {
	existing, err := s.repo.GetRetention(ctx, fileID)
	if retention.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed, err := s.repo.DeleteRetention(ctx, fileID)
	if err != nil {
		return false, err
	}
	if removed {
		s.metrics.RecordRetentionRemoved(existing.PolicyID)
		s.logger.Info("retention removed", "file_id", fileID, "policy_id", existing.PolicyID)
	}
	return removed, nil
}

// GetFileRetention returns an item's record.
func (s *Service) GetFileRetention(ctx context.Context, fileID int64) (*retention.FileRetention, error) {
	return s.repo.GetRetention(ctx, fileID)
}

// UserRetentionOverview lists the records a user created, by expiry date.
func (s *Service) UserRetentionOverview(ctx context.Context, userID string) ([]*retention.RetentionOverview, error) {
	return s.repo.RetentionsByUser(ctx, userID)
}

// UpcomingActions lists active records expiring within daysAhead days.
func (s *Service) UpcomingActions(ctx context.Context, daysAhead int) ([]*retention.FileRetention, error) {
	if daysAhead < 0 {
		return nil, retention.NewValidationError("days_ahead", "must not be negative")
	}
	before := retention.TruncateDate(s.now()).AddDate(0, 0, daysAhead)
	return s.repo.UpcomingRetentions(ctx, before)
}

// ProcessingLogs returns the newest log entries. A limit of zero or less
// returns DefaultLogLimit entries.
func (s *Service) ProcessingLogs(ctx context.Context, limit int) ([]*retention.ProcessingLogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.repo.Logs(ctx, limit)
}
