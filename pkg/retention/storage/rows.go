package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// timeLayouts are the encodings SQLite drivers use for TIMESTAMP columns.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	retention.DateLayout,
}

// dbTime scans a nullable timestamp from any supported driver.
type dbTime struct {
	T     time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.T, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.T, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.T, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// Value implements driver.Valuer.
func (t dbTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.T.UTC(), nil
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.T
	return &v
}

// dbDate scans a calendar day stored as DATE (postgres) or TEXT (sqlite).
type dbDate struct {
	T time.Time
}

// Scan implements sql.Scanner.
func (d *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.T = retention.TruncateDate(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	}
	return fmt.Errorf("cannot scan %T into date", src)
}

func (d *dbDate) parse(s string) error {
	if len(s) > len(retention.DateLayout) {
		s = s[:len(retention.DateLayout)]
	}
	t, err := retention.ParseDate(s)
	if err != nil {
		return fmt.Errorf("cannot parse date %q: %w", s, err)
	}
	d.T = t
	return nil
}

type policyRow struct {
	ID                   int64  `db:"id"`
	Name                 string `db:"name"`
	Description          string `db:"description"`
	IsActive             bool   `db:"is_active"`
	DefaultAction        string `db:"default_action"`
	DefaultTargetPath    string `db:"default_target_path"`
	NotifyBeforeDays     int    `db:"notify_before_days"`
	AutoProcess          bool   `db:"auto_process"`
	AllowedPeriods       string `db:"allowed_periods"`
	RequireJustification bool   `db:"require_justification"`
	CreatedAt            dbTime `db:"created_at"`
	UpdatedAt            dbTime `db:"updated_at"`
}

func (r *policyRow) toPolicy() (*retention.Policy, error) {
	p := &retention.Policy{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		IsActive:             r.IsActive,
		DefaultAction:        retention.Action(r.DefaultAction),
		DefaultTargetPath:    r.DefaultTargetPath,
		NotifyBeforeDays:     r.NotifyBeforeDays,
		AutoProcess:          r.AutoProcess,
		RequireJustification: r.RequireJustification,
		CreatedAt:            r.CreatedAt.T,
		UpdatedAt:            r.UpdatedAt.T,
	}
	if r.AllowedPeriods != "" {
		if err := json.Unmarshal([]byte(r.AllowedPeriods), &p.AllowedPeriods); err != nil {
			return nil, fmt.Errorf("decode allowed periods of policy %d: %w", r.ID, err)
		}
	}
	return p, nil
}

func encodePeriods(periods []string) (string, error) {
	if periods == nil {
		periods = []string{}
	}
	b, err := json.Marshal(periods)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type retentionRow struct {
	ID               int64  `db:"id"`
	FileID           int64  `db:"file_id"`
	PolicyID         int64  `db:"policy_id"`
	RetentionPeriod  int    `db:"retention_period"`
	RetentionUnit    string `db:"retention_unit"`
	ExpireDate       dbDate `db:"expire_date"`
	Action           string `db:"action"`
	TargetPath       string `db:"target_path"`
	Justification    string `db:"justification"`
	NotifyBeforeDays int    `db:"notify_before_days"`
	Status           string `db:"status"`
	CreatedBy        string `db:"created_by"`
	CreatedAt        dbTime `db:"created_at"`
	UpdatedAt        dbTime `db:"updated_at"`
	ClaimedAt        dbTime `db:"claimed_at"`
	NotifiedAt       dbTime `db:"notified_at"`
}

func (r *retentionRow) toRetention() *retention.FileRetention {
	return &retention.FileRetention{
		ID:               r.ID,
		FileID:           r.FileID,
		PolicyID:         r.PolicyID,
		RetentionPeriod:  r.RetentionPeriod,
		RetentionUnit:    retention.Unit(r.RetentionUnit),
		ExpireDate:       r.ExpireDate.T,
		Action:           retention.Action(r.Action),
		TargetPath:       r.TargetPath,
		Justification:    r.Justification,
		NotifyBeforeDays: r.NotifyBeforeDays,
		Status:           retention.Status(r.Status),
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt.T,
		UpdatedAt:        r.UpdatedAt.T,
		ClaimedAt:        r.ClaimedAt.ptr(),
		NotifiedAt:       r.NotifiedAt.ptr(),
	}
}

type overviewRow struct {
	retentionRow
	PolicyName string `db:"policy_name"`
}

type logRow struct {
	ID           int64  `db:"id"`
	RunID        string `db:"run_id"`
	FileID       int64  `db:"file_id"`
	PolicyID     int64  `db:"policy_id"`
	Action       string `db:"action"`
	Status       string `db:"status"`
	Message      string `db:"message"`
	OriginalPath string `db:"original_path"`
	FinalPath    string `db:"final_path"`
	CreatedAt    dbTime `db:"created_at"`
}

func (r *logRow) toEntry() *retention.ProcessingLogEntry {
	return &retention.ProcessingLogEntry{
		ID:           r.ID,
		RunID:        r.RunID,
		FileID:       r.FileID,
		PolicyID:     r.PolicyID,
		Action:       retention.Action(r.Action),
		Status:       retention.LogStatus(r.Status),
		Message:      r.Message,
		OriginalPath: r.OriginalPath,
		FinalPath:    r.FinalPath,
		CreatedAt:    r.CreatedAt.T,
	}
}
