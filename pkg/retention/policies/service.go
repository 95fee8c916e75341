package policies

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// MaxNameLength is the longest accepted policy name.
const MaxNameLength = 255

// Service implements policy administration over a PolicyRepository.
type Service struct {
	repo    retention.PolicyRepository
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewService creates a policy service. A nil logger uses slog.Default().
func NewService(repo retention.PolicyRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger.With("component", "retention.policies"),
	}
}

// WithMetrics counts policy file imports in c.
func (s *Service) WithMetrics(c *metrics.Collector) *Service {
	s.metrics = c
	return s
}

// Validate checks a policy and normalizes its allowed periods to the
// canonical "N units" form.
func Validate(p *retention.Policy) error {
	if p == nil {
		return retention.NewValidationError("policy", "is required")
	}
	p.Name = strings.TrimSpace(p.Name)

	err := validation.ValidateStruct(p,
		validation.Field(&p.Name,
			validation.Required,
			validation.Length(1, MaxNameLength),
		),
		validation.Field(&p.DefaultAction,
			validation.Required,
			validation.In(retention.ActionMove, retention.ActionDelete, retention.ActionArchive),
		),
		validation.Field(&p.NotifyBeforeDays, validation.Min(0)),
		validation.Field(&p.AllowedPeriods, validation.Each(validation.By(validPeriod))),
	)
	if err != nil {
		return retention.FromValidation(err)
	}

	for i, s := range p.AllowedPeriods {
		n, u, _ := retention.ParsePeriod(s)
		p.AllowedPeriods[i] = retention.FormatPeriod(n, u)
	}
	return nil
}

func validPeriod(value any) error {
	s, _ := value.(string)
	_, _, err := retention.ParsePeriod(s)
	return err
}

// Create validates and stores a new policy.
func (s *Service) Create(ctx context.Context, p *retention.Policy) (int64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	id, err := s.repo.CreatePolicy(ctx, p)
	if err != nil {
		return 0, err
	}
	s.logger.Info("policy created", "policy_id", id, "name", p.Name, "action", p.DefaultAction)
	return id, nil
}

// Update overwrites every field of an existing policy.
func (s *Service) Update(ctx context.Context, id int64, p *retention.Policy) error {
	if err := Validate(p); err != nil {
		return err
	}
	p.ID = id
	if err := s.repo.UpdatePolicy(ctx, p); err != nil {
		return err
	}
	s.logger.Info("policy updated", "policy_id", id, "name", p.Name)
	return nil
}

// Delete removes a policy with its assignments, retentions and logs.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeletePolicy(ctx, id); err != nil {
		return err
	}
	s.logger.Info("policy deleted", "policy_id", id)
	return nil
}

// Toggle activates or deactivates a policy.
func (s *Service) Toggle(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetPolicyActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info("policy toggled", "policy_id", id, "active", active)
	return nil
}

// Get returns one policy with its folders.
func (s *Service) Get(ctx context.Context, id int64) (*retention.Policy, error) {
	return s.repo.GetPolicy(ctx, id)
}

// ListAll returns every policy with its folders.
func (s *Service) ListAll(ctx context.Context) ([]*retention.Policy, error) {
	return s.repo.ListPolicies(ctx)
}

// AssignFolders replaces the folder set of a policy.
func (s *Service) AssignFolders(ctx context.Context, policyID int64, folderIDs []int64) error {
	for _, id := range folderIDs {
		if id <= 0 {
			return retention.NewValidationError("folder_ids", fmt.Sprintf("invalid folder id %d", id))
		}
	}
	if err := s.repo.ReplaceAssignments(ctx, policyID, folderIDs); err != nil {
		return err
	}
	s.logger.Info("policy folders assigned", "policy_id", policyID, "folders", len(folderIDs))
	return nil
}

// FoldersForPolicy returns the folders a policy is assigned to.
func (s *Service) FoldersForPolicy(ctx context.Context, policyID int64) ([]int64, error) {
	return s.repo.FoldersForPolicy(ctx, policyID)
}

// PoliciesForFolder returns the active policies of a folder by name, then id.
func (s *Service) PoliciesForFolder(ctx context.Context, folderID int64) ([]*retention.Policy, error) {
	return s.repo.ActivePoliciesForFolder(ctx, folderID)
}
