package policies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mercator-hq/custodian/pkg/retention"
)

// MaxFileSize is the largest policy file LoadFile accepts.
const MaxFileSize = 1 << 20

// PolicyFile is the YAML document applied by Import.
type PolicyFile struct {
	Policies []PolicyEntry `yaml:"policies"`
}

// PolicyEntry declares one policy in a policy file.
type PolicyEntry struct {
	Name                 string   `yaml:"name"`
	Description          string   `yaml:"description"`
	Action               string   `yaml:"action"`
	TargetPath           string   `yaml:"target_path"`
	NotifyBeforeDays     int      `yaml:"notify_before_days"`
	AutoProcess          bool     `yaml:"auto_process"`
	AllowedPeriods       []string `yaml:"allowed_periods"`
	RequireJustification bool     `yaml:"require_justification"`
	Active               *bool    `yaml:"active"` // defaults to true
	Folders              []int64  `yaml:"folders"`
}

// Policy converts the entry into a retention policy.
func (e *PolicyEntry) Policy() *retention.Policy {
	active := true
	if e.Active != nil {
		active = *e.Active
	}
	periods := make([]string, len(e.AllowedPeriods))
	copy(periods, e.AllowedPeriods)
	return &retention.Policy{
		Name:                 e.Name,
		Description:          e.Description,
		IsActive:             active,
		DefaultAction:        retention.Action(e.Action),
		DefaultTargetPath:    e.TargetPath,
		NotifyBeforeDays:     e.NotifyBeforeDays,
		AutoProcess:          e.AutoProcess,
		AllowedPeriods:       periods,
		RequireJustification: e.RequireJustification,
	}
}

// LoadError reports a policy file that could not be read or parsed.
type LoadError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("policy file %s: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("policy file %s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// LoadFile reads and parses a policy file.
func LoadFile(path string) (*PolicyFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	file, err := ParseFile(data)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "YAML parsing failed", Cause: err}
	}
	return file, nil
}

// ParseFile parses a policy document. Unknown keys are rejected.
func ParseFile(data []byte) (*PolicyFile, error) {
	var file PolicyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &file, nil
}

// ImportResult counts the changes applied by Import.
type ImportResult struct {
	Created   int
	Updated   int
	Unchanged int
}

// Import applies a policy file. Every entry is validated before anything
// is written; a duplicate name within the file is rejected.
func (s *Service) Import(ctx context.Context, file *PolicyFile) (*ImportResult, error) {
	result, err := s.apply(ctx, file)
	var created, updated int
	if result != nil {
		created, updated = result.Created, result.Updated
	}
	s.metrics.RecordPolicyImport(created, updated, err)
	return result, err
}

func (s *Service) apply(ctx context.Context, file *PolicyFile) (*ImportResult, error) {
	seen := make(map[string]bool, len(file.Policies))
	desired := make([]*retention.Policy, len(file.Policies))
	for i := range file.Policies {
		entry := &file.Policies[i]
		p := entry.Policy()
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("policy %d (%q): %w", i, entry.Name, err)
		}
		if seen[p.Name] {
			return nil, retention.NewValidationError("name", fmt.Sprintf("duplicate policy %q in file", p.Name))
		}
		seen[p.Name] = true
		desired[i] = p
	}

	existing, err := s.repo.ListPolicies(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*retention.Policy, len(existing))
	for _, p := range existing {
		// ListPolicies is ordered by id, so the lowest id wins.
		if _, ok := byName[p.Name]; !ok {
			byName[p.Name] = p
		}
	}

	result := &ImportResult{}
	for i, p := range desired {
		folders := file.Policies[i].Folders
		current, ok := byName[p.Name]
		if !ok {
			id, err := s.Create(ctx, p)
			if err != nil {
				return result, err
			}
			if err := s.AssignFolders(ctx, id, folders); err != nil {
				return result, err
			}
			result.Created++
			continue
		}

		if samePolicy(current, p) && sameFolders(current.FolderIDs, folders) {
			result.Unchanged++
			continue
		}
		if err := s.Update(ctx, current.ID, p); err != nil {
			return result, err
		}
		if err := s.AssignFolders(ctx, current.ID, folders); err != nil {
			return result, err
		}
		result.Updated++
	}

	s.logger.Info("policy file imported",
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
	)
	return result, nil
}

func samePolicy(a, b *retention.Policy) bool {
	if a.Description != b.Description ||
		a.IsActive != b.IsActive ||
		a.DefaultAction != b.DefaultAction ||
		a.DefaultTargetPath != b.DefaultTargetPath ||
		a.NotifyBeforeDays != b.NotifyBeforeDays ||
		a.AutoProcess != b.AutoProcess ||
		a.RequireJustification != b.RequireJustification ||
		len(a.AllowedPeriods) != len(b.AllowedPeriods) {
		return false
	}
	for i := range a.AllowedPeriods {
		if a.AllowedPeriods[i] != b.AllowedPeriods[i] {
			return false
		}
	}
	return true
}

func sameFolders(stored, declared []int64) bool {
	set := make(map[int64]bool, len(declared))
	for _, id := range declared {
		set[id] = true
	}
	if len(set) != len(stored) {
		return false
	}
	for _, id := range stored {
		if !set[id] {
			return false
		}
	}
	return true
}
