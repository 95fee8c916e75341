package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"mercator-hq/custodian/pkg/retention"
)

// Config contains configuration for the SQL storage backend.
type Config struct {
	// Driver selects the database driver: "sqlite3" (mattn, default),
	// "sqlite" (modernc, pure Go) or "pgx" (PostgreSQL).
	Driver string

	// DSN is the database file path for SQLite or the connection string
	// for PostgreSQL.
	DSN string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for SQLite.
	WALMode bool

	// BusyTimeout is the duration SQLite waits when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// AutoMigrate applies pending migrations when the store is opened.
	AutoMigrate bool
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:       driverMattn,
		DSN:          "data/custodian.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		AutoMigrate:  true,
	}
}

func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	def := DefaultConfig()
	if out.Driver == "" {
		out.Driver = def.Driver
	}
	if out.DSN == "" {
		out.DSN = def.DSN
	}
	if out.MaxOpenConns <= 0 {
		out.MaxOpenConns = def.MaxOpenConns
	}
	if out.MaxIdleConns <= 0 {
		out.MaxIdleConns = def.MaxIdleConns
	}
	if out.BusyTimeout <= 0 {
		out.BusyTimeout = def.BusyTimeout
	}
	return &out
}

// NewStorageError creates a retention.StorageError for a database backend.
func NewStorageError(backend, operation string, cause error) *retention.StorageError {
	return retention.NewStorageError(backend, operation, cause)
}

// SQLStore implements retention.Store on top of sqlx.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	logger  *slog.Logger
}

// Open connects to the configured database and, if AutoMigrate is set,
// brings the schema up to date.
func Open(cfg *Config) (*SQLStore, error) {
	cfg = cfg.withDefaults()
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "retention.storage."+d.backend)

	if cfg.AutoMigrate {
		if err := Migrate(cfg); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(d.driver, d.dsn(cfg))
	if err != nil {
		return nil, NewStorageError(d.backend, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStorageError(d.backend, "ping", err)
	}

	logger.Info("retention storage initialized",
		"driver", d.driver,
		"wal_mode", cfg.WALMode && d.backend == backendSQLite,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// DB exposes the underlying handle for collaborators that share the
// database, such as the file node index.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.err("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) err(operation string, cause error) error {
	return NewStorageError(s.dialect.backend, operation, cause)
}

func (s *SQLStore) q(query string) string {
	return s.db.Rebind(query)
}

// withTx runs fn inside a transaction, rolling back on any error.
func (s *SQLStore) withTx(ctx context.Context, operation string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.err(operation+"_begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.err(operation+"_commit", err)
	}
	return nil
}

const policyColumns = `id, name, description, is_active, default_action, default_target_path,
	notify_before_days, auto_process, allowed_periods, require_justification, created_at, updated_at`

// CreatePolicy inserts a policy and returns its id.
func (s *SQLStore) CreatePolicy(ctx context.Context, p *retention.Policy) (int64, error) {
	periods, err := encodePeriods(p.AllowedPeriods)
	if err != nil {
		return 0, s.err("create_policy", err)
	}
	now := time.Now().UTC()

	var id int64
	err = s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO retention_policies (
			name, description, is_active, default_action, default_target_path,
			notify_before_days, auto_process, allowed_periods, require_justification,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		p.Name, p.Description, p.IsActive, string(p.DefaultAction), p.DefaultTargetPath,
		p.NotifyBeforeDays, p.AutoProcess, periods, p.RequireJustification,
		now, now,
	).Scan(&id)
	if err != nil {
		return 0, s.err("create_policy", err)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

// UpdatePolicy overwrites every field of an existing policy.
func (s *SQLStore) UpdatePolicy(ctx context.Context, p *retention.Policy) error {
	periods, err := encodePeriods(p.AllowedPeriods)
	if err != nil {
		return s.err("update_policy", err)
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE retention_policies SET
			name = ?, description = ?, is_active = ?, default_action = ?,
			default_target_path = ?, notify_before_days = ?, auto_process = ?,
			allowed_periods = ?, require_justification = ?, updated_at = ?
		WHERE id = ?`),
		p.Name, p.Description, p.IsActive, string(p.DefaultAction),
		p.DefaultTargetPath, p.NotifyBeforeDays, p.AutoProcess,
		periods, p.RequireJustification, now,
		p.ID,
	)
	if err != nil {
		return s.err("update_policy", err)
	}
	if err := requireRow(res, "policy", p.ID); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// GetPolicy returns one policy with its folders.
func (s *SQLStore) GetPolicy(ctx context.Context, id int64) (*retention.Policy, error) {
	var row policyRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+policyColumns+` FROM retention_policies WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, retention.NewNotFoundError("policy", id, "")
	}
	if err != nil {
		return nil, s.err("get_policy", err)
	}

	p, err := row.toPolicy()
	if err != nil {
		return nil, s.err("get_policy", err)
	}
	if p.FolderIDs, err = s.FoldersForPolicy(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPolicies returns every policy ordered by id, with folders resolved.
func (s *SQLStore) ListPolicies(ctx context.Context) ([]*retention.Policy, error) {
	var rows []policyRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+policyColumns+` FROM retention_policies ORDER BY id`); err != nil {
		return nil, s.err("list_policies", err)
	}

	var assignments []struct {
		PolicyID int64 `db:"policy_id"`
		FolderID int64 `db:"folder_id"`
	}
	if err := s.db.SelectContext(ctx, &assignments,
		`SELECT policy_id, folder_id FROM policy_folder_assignments ORDER BY policy_id, folder_id`); err != nil {
		return nil, s.err("list_assignments", err)
	}
	folders := make(map[int64][]int64)
	for _, a := range assignments {
		folders[a.PolicyID] = append(folders[a.PolicyID], a.FolderID)
	}

	policies := make([]*retention.Policy, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toPolicy()
		if err != nil {
			return nil, s.err("list_policies", err)
		}
		p.FolderIDs = folders[p.ID]
		if p.FolderIDs == nil {
			p.FolderIDs = []int64{}
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// SetPolicyActive toggles a policy.
func (s *SQLStore) SetPolicyActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE retention_policies SET is_active = ?, updated_at = ? WHERE id = ?`),
		active, time.Now().UTC(), id)
	if err != nil {
		return s.err("toggle_policy", err)
	}
	return requireRow(res, "policy", id)
}

// DeletePolicy removes a policy and everything that references it.
// Dependents go first so that foreign keys hold at every step.
func (s *SQLStore) DeletePolicy(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete_policy", func(tx *sqlx.Tx) error {
		steps := []struct {
			operation string
			query     string
		}{
			{"delete_assignments", `DELETE FROM policy_folder_assignments WHERE policy_id = ?`},
			{"delete_file_retentions", `DELETE FROM file_retentions WHERE policy_id = ?`},
			{"delete_processing_logs", `DELETE FROM processing_logs WHERE policy_id = ?`},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, tx.Rebind(step.query), id); err != nil {
				return s.err(step.operation, err)
			}
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM retention_policies WHERE id = ?`), id)
		if err != nil {
			return s.err("delete_policy", err)
		}
		return requireRow(res, "policy", id)
	})
}

// ReplaceAssignments swaps the folder set of a policy atomically.
func (s *SQLStore) ReplaceAssignments(ctx context.Context, policyID int64, folderIDs []int64) error {
	return s.withTx(ctx, "assign_folders", func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM retention_policies WHERE id = ?`), policyID)
		if err != nil {
			return s.err("assign_folders", err)
		}
		if exists == 0 {
			return retention.NewNotFoundError("policy", policyID, "")
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM policy_folder_assignments WHERE policy_id = ?`), policyID); err != nil {
			return s.err("delete_assignments", err)
		}
		if len(folderIDs) == 0 {
			return nil
		}

		rows := make([]map[string]any, 0, len(folderIDs))
		for _, folderID := range uniqueIDs(folderIDs) {
			rows = append(rows, map[string]any{"policy_id": policyID, "folder_id": folderID})
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO policy_folder_assignments (policy_id, folder_id) VALUES (:policy_id, :folder_id)`, rows); err != nil {
			return s.err("insert_assignments", err)
		}
		return nil
	})
}

// FoldersForPolicy returns the folder ids assigned to a policy.
func (s *SQLStore) FoldersForPolicy(ctx context.Context, policyID int64) ([]int64, error) {
	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids,
		s.q(`SELECT folder_id FROM policy_folder_assignments WHERE policy_id = ? ORDER BY folder_id`), policyID); err != nil {
		return nil, s.err("folders_for_policy", err)
	}
	return ids, nil
}

// ActivePoliciesForFolder returns the active policies of a folder by name.
func (s *SQLStore) ActivePoliciesForFolder(ctx context.Context, folderID int64) ([]*retention.Policy, error) {
	var rows []policyRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT p.id, p.name, p.description, p.is_active, p.default_action, p.default_target_path,
			p.notify_before_days, p.auto_process, p.allowed_periods, p.require_justification,
			p.created_at, p.updated_at
		FROM retention_policies p
		JOIN policy_folder_assignments a ON a.policy_id = p.id
		WHERE a.folder_id = ? AND p.is_active = ?
		ORDER BY p.name, p.id`), folderID, true)
	if err != nil {
		return nil, s.err("policies_for_folder", err)
	}

	policies := make([]*retention.Policy, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toPolicy()
		if err != nil {
			return nil, s.err("policies_for_folder", err)
		}
		if p.FolderIDs, err = s.FoldersForPolicy(ctx, p.ID); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

const retentionColumns = `id, file_id, policy_id, retention_period, retention_unit, expire_date, action,
	target_path, justification, notify_before_days, status, created_by, created_at, updated_at,
	claimed_at, notified_at`

// UpsertRetention inserts or overwrites the record of r.FileID. The status
// is taken from r and claim and notification markers are cleared. A record
// claimed by a running scan is not overwritten.
func (s *SQLStore) UpsertRetention(ctx context.Context, r *retention.FileRetention) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	var id int64
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO file_retentions (
			file_id, policy_id, retention_period, retention_unit, expire_date, action,
			target_path, justification, notify_before_days, status, created_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (file_id) DO UPDATE SET
			policy_id = excluded.policy_id,
			retention_period = excluded.retention_period,
			retention_unit = excluded.retention_unit,
			expire_date = excluded.expire_date,
			action = excluded.action,
			target_path = excluded.target_path,
			justification = excluded.justification,
			notify_before_days = excluded.notify_before_days,
			status = excluded.status,
			created_by = excluded.created_by,
			updated_at = excluded.updated_at,
			claimed_at = NULL,
			notified_at = NULL
		WHERE file_retentions.status <> 'processing'
		RETURNING id`),
		r.FileID, r.PolicyID, r.RetentionPeriod, string(r.RetentionUnit), s.dialect.dateArg(r.ExpireDate),
		string(r.Action), r.TargetPath, r.Justification, r.NotifyBeforeDays, string(r.Status), r.CreatedBy,
		r.CreatedAt, r.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return retentionClaimed(r.FileID)
	}
	if err != nil {
		return s.err("upsert_retention", err)
	}
	r.ID = id
	r.ClaimedAt = nil
	r.NotifiedAt = nil
	return nil
}

// GetRetention returns the record of one item.
func (s *SQLStore) GetRetention(ctx context.Context, fileID int64) (*retention.FileRetention, error) {
	var row retentionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+retentionColumns+` FROM file_retentions WHERE file_id = ?`), fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, retention.NewNotFoundError("file_retention", fileID, "")
	}
	if err != nil {
		return nil, s.err("get_retention", err)
	}
	return row.toRetention(), nil
}

// RetentionsForFiles batch-fetches records by item id.
func (s *SQLStore) RetentionsForFiles(ctx context.Context, fileIDs []int64) ([]*retention.FileRetention, error) {
	if len(fileIDs) == 0 {
		return []*retention.FileRetention{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+retentionColumns+` FROM file_retentions WHERE file_id IN (?) ORDER BY file_id`, fileIDs)
	if err != nil {
		return nil, s.err("retentions_for_files", err)
	}
	return s.selectRetentions(ctx, "retentions_for_files", s.q(query), args...)
}

// DeleteRetention hard-deletes the record of an item.
func (s *SQLStore) DeleteRetention(ctx context.Context, fileID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM file_retentions WHERE file_id = ?`), fileID)
	if err != nil {
		return false, s.err("delete_retention", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.err("delete_retention", err)
	}
	return n > 0, nil
}

// RetentionsByUser returns a user's records joined with their policy names.
func (s *SQLStore) RetentionsByUser(ctx context.Context, userID string) ([]*retention.RetentionOverview, error) {
	var rows []overviewRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT r.id, r.file_id, r.policy_id, r.retention_period, r.retention_unit, r.expire_date,
			r.action, r.target_path, r.justification, r.notify_before_days, r.status, r.created_by,
			r.created_at, r.updated_at, r.claimed_at, r.notified_at, p.name AS policy_name
		FROM file_retentions r
		JOIN retention_policies p ON p.id = r.policy_id
		WHERE r.created_by = ?
		ORDER BY r.expire_date, r.id`), userID)
	if err != nil {
		return nil, s.err("retentions_by_user", err)
	}

	out := make([]*retention.RetentionOverview, 0, len(rows))
	for i := range rows {
		out = append(out, &retention.RetentionOverview{
			FileRetention: *rows[i].toRetention(),
			PolicyName:    rows[i].PolicyName,
		})
	}
	return out, nil
}

// UpcomingRetentions returns active records expiring on or before a day.
func (s *SQLStore) UpcomingRetentions(ctx context.Context, before time.Time) ([]*retention.FileRetention, error) {
	return s.selectRetentions(ctx, "upcoming_retentions", s.q(`
		SELECT `+retentionColumns+` FROM file_retentions
		WHERE status = ? AND expire_date <= ?
		ORDER BY expire_date, id`),
		string(retention.StatusActive), s.dialect.dateArg(before))
}

// DueRetentions returns records the scanner may process.
func (s *SQLStore) DueRetentions(ctx context.Context, asOf, staleBefore time.Time) ([]*retention.FileRetention, error) {
	return s.selectRetentions(ctx, "due_retentions", s.q(`
		SELECT r.id, r.file_id, r.policy_id, r.retention_period, r.retention_unit, r.expire_date,
			r.action, r.target_path, r.justification, r.notify_before_days, r.status, r.created_by,
			r.created_at, r.updated_at, r.claimed_at, r.notified_at
		FROM file_retentions r
		JOIN retention_policies p ON p.id = r.policy_id
		WHERE r.expire_date <= ?
			AND p.auto_process = ?
			AND (r.status = ? OR (r.status = ? AND r.claimed_at < ?))
		ORDER BY r.expire_date, r.id`),
		s.dialect.dateArg(asOf), true,
		string(retention.StatusActive), string(retention.StatusProcessing), staleBefore.UTC())
}

// ClaimRetention performs the conditional active to processing transition.
func (s *SQLStore) ClaimRetention(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE file_retentions SET status = ?, claimed_at = ?, updated_at = ?
		WHERE id = ? AND (status = ? OR (status = ? AND claimed_at < ?))`),
		string(retention.StatusProcessing), now.UTC(), now.UTC(),
		id, string(retention.StatusActive), string(retention.StatusProcessing), staleBefore.UTC())
	if err != nil {
		return false, s.err("claim_retention", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.err("claim_retention", err)
	}
	return n == 1, nil
}

// CompleteRetention marks a claimed record processed.
func (s *SQLStore) CompleteRetention(ctx context.Context, id int64, now time.Time) error {
	return s.transition(ctx, "complete_retention", id, retention.StatusProcessed, now)
}

// ReleaseRetention hands a claimed record back to the active pool.
func (s *SQLStore) ReleaseRetention(ctx context.Context, id int64, now time.Time) error {
	return s.transition(ctx, "release_retention", id, retention.StatusActive, now)
}

func (s *SQLStore) transition(ctx context.Context, operation string, id int64, to retention.Status, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE file_retentions SET status = ?, claimed_at = NULL, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(to), now.UTC(), id, string(retention.StatusProcessing))
	if err != nil {
		return s.err(operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.err(operation, err)
	}
	if n == 0 {
		return s.err(operation, fmt.Errorf("retention %d is not claimed", id))
	}
	return nil
}

// PendingNotifications returns active records still owed a notice.
func (s *SQLStore) PendingNotifications(ctx context.Context) ([]*retention.FileRetention, error) {
	return s.selectRetentions(ctx, "pending_notifications", s.q(`
		SELECT `+retentionColumns+` FROM file_retentions
		WHERE status = ? AND notify_before_days > 0 AND notified_at IS NULL
		ORDER BY expire_date, id`),
		string(retention.StatusActive))
}

// MarkNotified stamps notified_at.
func (s *SQLStore) MarkNotified(ctx context.Context, id int64, now time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE file_retentions SET notified_at = ? WHERE id = ?`), now.UTC(), id)
	if err != nil {
		return s.err("mark_notified", err)
	}
	return requireRow(res, "file_retention", id)
}

func (s *SQLStore) selectRetentions(ctx context.Context, operation, query string, args ...any) ([]*retention.FileRetention, error) {
	var rows []retentionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.err(operation, err)
	}
	out := make([]*retention.FileRetention, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toRetention())
	}
	return out, nil
}

// AppendLog inserts a processing log entry.
func (s *SQLStore) AppendLog(ctx context.Context, e *retention.ProcessingLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO processing_logs (
			run_id, file_id, policy_id, action, status, message, original_path, final_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		e.RunID, e.FileID, e.PolicyID, string(e.Action), string(e.Status), e.Message,
		e.OriginalPath, e.FinalPath, e.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return s.err("append_log", err)
	}
	e.ID = id
	return nil
}

// Logs returns the newest entries first.
func (s *SQLStore) Logs(ctx context.Context, limit int) ([]*retention.ProcessingLogEntry, error) {
	var rows []logRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT id, run_id, file_id, policy_id, action, status, message, original_path, final_path, created_at
		FROM processing_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, s.err("logs", err)
	}
	out := make([]*retention.ProcessingLogEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntry())
	}
	return out, nil
}

// UpsertFolder registers a group folder mount point.
func (s *SQLStore) UpsertFolder(ctx context.Context, f *retention.Folder) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO group_folders (id, mount_point) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET mount_point = excluded.mount_point`),
		f.ID, f.MountPoint)
	if err != nil {
		return s.err("upsert_folder", err)
	}
	return nil
}

// ListFolders returns every registered folder.
func (s *SQLStore) ListFolders(ctx context.Context) ([]*retention.Folder, error) {
	folders := []*retention.Folder{}
	if err := s.db.SelectContext(ctx, &folders, `SELECT id, mount_point FROM group_folders ORDER BY id`); err != nil {
		return nil, s.err("list_folders", err)
	}
	return folders, nil
}

// FolderIDByMountPoint resolves a mount point name.
func (s *SQLStore) FolderIDByMountPoint(ctx context.Context, mountPoint string) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.q(`SELECT id FROM group_folders WHERE mount_point = ?`), mountPoint)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, retention.NewNotFoundError("group_folder", mountPoint, "")
	}
	if err != nil {
		return 0, s.err("folder_by_mount_point", err)
	}
	return id, nil
}

func requireRow(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return retention.NewNotFoundError(resource, id, "")
	}
	return nil
}

// retentionClaimed is returned when a record cannot change while a scan
// processes it.
func retentionClaimed(fileID int64) error {
	return retention.NewValidationError("file_id",
		fmt.Sprintf("retention of file %d is being processed", fileID))
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var _ retention.Store = (*SQLStore)(nil)
