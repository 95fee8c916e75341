package retention

import (
	"fmt"
	"time"
)

// Action is the operation performed on an item once its retention expires.
type Action string

const (
	ActionMove    Action = "move"
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionMove, ActionDelete, ActionArchive:
		return true
	}
	return false
}

// RequiresTarget reports whether the action needs a destination path.
func (a Action) RequiresTarget() bool {
	return a == ActionMove || a == ActionArchive
}

// Status is the processing state of a FileRetention.
type Status string

const (
	StatusActive     Status = "active"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
)

// LogStatus is the outcome recorded in the processing log.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
)

// Policy is an administrator-defined retention rule.
type Policy struct {
	ID                   int64     `json:"id" yaml:"id"`
	Name                 string    `json:"name" yaml:"name"`
	Description          string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive             bool      `json:"is_active" yaml:"is_active"`
	DefaultAction        Action    `json:"default_action" yaml:"default_action"`
	DefaultTargetPath    string    `json:"default_target_path,omitempty" yaml:"default_target_path,omitempty"`
	NotifyBeforeDays     int       `json:"notify_before_days" yaml:"notify_before_days"`
	AutoProcess          bool      `json:"auto_process" yaml:"auto_process"`
	AllowedPeriods       []string  `json:"allowed_retention_periods" yaml:"allowed_retention_periods"`
	RequireJustification bool      `json:"require_justification" yaml:"require_justification"`
	CreatedAt            time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" yaml:"updated_at"`

	// FolderIDs is populated on read with the group folders the policy is
	// assigned to. It is ignored on write; use AssignFolders.
	FolderIDs []int64 `json:"folder_ids" yaml:"folder_ids"`
}

// AllowsPeriod reports whether the "N unit" combination is permitted.
// An empty allow list permits every period.
func (p *Policy) AllowsPeriod(period int, unit Unit) bool {
	if len(p.AllowedPeriods) == 0 {
		return true
	}
	want := FormatPeriod(period, unit)
	for _, allowed := range p.AllowedPeriods {
		n, u, err := ParsePeriod(allowed)
		if err != nil {
			continue
		}
		if FormatPeriod(n, u) == want {
			return true
		}
	}
	return false
}

// FileRetention binds a policy's terms to one file or folder.
type FileRetention struct {
	ID               int64     `json:"id"`
	FileID           int64     `json:"file_id"`
	PolicyID         int64     `json:"policy_id"`
	RetentionPeriod  int       `json:"retention_period"`
	RetentionUnit    Unit      `json:"retention_unit"`
	ExpireDate       time.Time `json:"expire_date"`
	Action           Action    `json:"action"`
	TargetPath       string    `json:"target_path,omitempty"`
	Justification    string    `json:"justification,omitempty"`
	NotifyBeforeDays int       `json:"notify_before_days"`
	Status           Status    `json:"status"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// ClaimedAt is set while a scan holds the record in StatusProcessing.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	// NotifiedAt is set once the upcoming-expiry notification went out.
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
}

// Blocking reports whether the record prevents descendants from acquiring
// their own retention.
func (r *FileRetention) Blocking() bool {
	return r.Status == StatusActive || r.Status == StatusProcessing
}

// NotifyDate returns the day from which an upcoming-expiry notice is due.
func (r *FileRetention) NotifyDate() time.Time {
	return r.ExpireDate.AddDate(0, 0, -r.NotifyBeforeDays)
}

// String returns a short description used in log messages.
func (r *FileRetention) String() string {
	return fmt.Sprintf("retention[id=%d file=%d policy=%d action=%s expires=%s]",
		r.ID, r.FileID, r.PolicyID, r.Action, FormatDate(r.ExpireDate))
}

// RetentionOverview is a FileRetention joined with its policy name.
type RetentionOverview struct {
	FileRetention
	PolicyName string `json:"policy_name"`
}

// ProcessingLogEntry is an append-only record of one executed action.
type ProcessingLogEntry struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	FileID       int64     `json:"file_id"`
	PolicyID     int64     `json:"policy_id"`
	Action       Action    `json:"action"`
	Status       LogStatus `json:"status"`
	Message      string    `json:"message"`
	OriginalPath string    `json:"original_path"`
	FinalPath    string    `json:"final_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Folder maps a group folder id to the mount point name shown in user paths.
type Folder struct {
	ID         int64  `json:"id" db:"id"`
	MountPoint string `json:"mount_point" db:"mount_point"`
}
