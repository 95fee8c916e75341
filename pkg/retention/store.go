package retention

import (
	"context"
	"time"
)

// PolicyRepository persists policies and their folder assignments.
type PolicyRepository interface {
	// CreatePolicy inserts p and returns the new id.
	CreatePolicy(ctx context.Context, p *Policy) (int64, error)

	// UpdatePolicy overwrites every stored field of p.ID.
	// Returns NotFoundError if the policy does not exist.
	UpdatePolicy(ctx context.Context, p *Policy) error

	// GetPolicy returns the policy with its assigned folders resolved.
	GetPolicy(ctx context.Context, id int64) (*Policy, error)

	// ListPolicies returns every policy ordered by id, folders resolved.
	ListPolicies(ctx context.Context) ([]*Policy, error)

	// SetPolicyActive toggles is_active.
	SetPolicyActive(ctx context.Context, id int64, active bool) error

	// DeletePolicy removes the policy together with its assignments,
	// file retentions and processing logs inside one transaction.
	DeletePolicy(ctx context.Context, id int64) error

	// ReplaceAssignments deletes every assignment of the policy and inserts
	// folderIDs, atomically.
	ReplaceAssignments(ctx context.Context, policyID int64, folderIDs []int64) error

	// FoldersForPolicy returns the folder ids assigned to the policy.
	FoldersForPolicy(ctx context.Context, policyID int64) ([]int64, error)

	// ActivePoliciesForFolder returns active policies assigned to the folder
	// ordered by name, then id.
	ActivePoliciesForFolder(ctx context.Context, folderID int64) ([]*Policy, error)
}

// RetentionRepository persists per-item retention records.
type RetentionRepository interface {
	// UpsertRetention inserts r, or overwrites the existing row for
	// r.FileID. r.ID is set on return.
	UpsertRetention(ctx context.Context, r *FileRetention) error

	// GetRetention returns the record for fileID or NotFoundError.
	GetRetention(ctx context.Context, fileID int64) (*FileRetention, error)

	// RetentionsForFiles batch-fetches the records of the given items.
	RetentionsForFiles(ctx context.Context, fileIDs []int64) ([]*FileRetention, error)

	// DeleteRetention hard-deletes the record for fileID. It reports
	// whether a row existed.
	DeleteRetention(ctx context.Context, fileID int64) (bool, error)

	// RetentionsByUser returns records created by userID ordered by
	// expire date.
	RetentionsByUser(ctx context.Context, userID string) ([]*RetentionOverview, error)

	// UpcomingRetentions returns active records expiring on or before the
	// given day, ordered by expire date.
	UpcomingRetentions(ctx context.Context, before time.Time) ([]*FileRetention, error)

	// DueRetentions returns records eligible for unattended processing:
	// expired on or before asOf, governed by an auto-process policy, and
	// either active or held by a claim older than staleBefore.
	DueRetentions(ctx context.Context, asOf time.Time, staleBefore time.Time) ([]*FileRetention, error)

	// ClaimRetention moves the record into StatusProcessing if it is still
	// active or its claim is older than staleBefore. It reports whether
	// this caller won the claim.
	ClaimRetention(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)

	// CompleteRetention marks a claimed record processed.
	CompleteRetention(ctx context.Context, id int64, now time.Time) error

	// ReleaseRetention returns a claimed record to StatusActive.
	ReleaseRetention(ctx context.Context, id int64, now time.Time) error

	// PendingNotifications returns active records with a notification lead
	// time whose notice has not been sent yet.
	PendingNotifications(ctx context.Context) ([]*FileRetention, error)

	// MarkNotified records that the upcoming-expiry notice went out.
	MarkNotified(ctx context.Context, id int64, now time.Time) error
}

// LogRepository persists the append-only processing log.
type LogRepository interface {
	// AppendLog inserts e and sets e.ID.
	AppendLog(ctx context.Context, e *ProcessingLogEntry) error

	// Logs returns at most limit entries, newest first.
	Logs(ctx context.Context, limit int) ([]*ProcessingLogEntry, error)
}

// FolderRepository maps group folders to their mount points.
type FolderRepository interface {
	// UpsertFolder registers or renames a group folder.
	UpsertFolder(ctx context.Context, f *Folder) error

	// ListFolders returns every registered folder ordered by id.
	ListFolders(ctx context.Context) ([]*Folder, error)

	// FolderIDByMountPoint resolves a mount point name to its folder id.
	FolderIDByMountPoint(ctx context.Context, mountPoint string) (int64, error)
}

// Store is the complete persistence layer of the retention engine.
type Store interface {
	PolicyRepository
	RetentionRepository
	LogRepository
	FolderRepository

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}
