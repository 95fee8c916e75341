package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/retention"
)

// MemoryStore implements retention.Store in process memory.
// It is intended for tests and dry evaluation; nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	policies    map[int64]*retention.Policy
	assignments map[int64]map[int64]bool // policy id -> folder ids
	retentions  map[int64]*retention.FileRetention
	logs        []*retention.ProcessingLogEntry
	folders     map[int64]*retention.Folder

	nextPolicyID    int64
	nextRetentionID int64
	nextLogID       int64
	closed          bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies:    make(map[int64]*retention.Policy),
		assignments: make(map[int64]map[int64]bool),
		retentions:  make(map[int64]*retention.FileRetention),
		folders:     make(map[int64]*retention.Folder),
	}
}

func (m *MemoryStore) check() error {
	if m.closed {
		return NewStorageError("memory", "access", fmt.Errorf("store is closed"))
	}
	return nil
}

// CreatePolicy inserts a policy.
func (m *MemoryStore) CreatePolicy(ctx context.Context, p *retention.Policy) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}

	m.nextPolicyID++
	now := time.Now().UTC()
	p.ID = m.nextPolicyID
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := copyPolicy(p)
	stored.FolderIDs = nil
	m.policies[p.ID] = stored
	return p.ID, nil
}

// UpdatePolicy overwrites a policy.
func (m *MemoryStore) UpdatePolicy(ctx context.Context, p *retention.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	existing, ok := m.policies[p.ID]
	if !ok {
		return retention.NewNotFoundError("policy", p.ID, "")
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	stored := copyPolicy(p)
	stored.FolderIDs = nil
	m.policies[p.ID] = stored
	return nil
}

// GetPolicy returns a copy of a policy with its folders.
func (m *MemoryStore) GetPolicy(ctx context.Context, id int64) (*retention.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	p, ok := m.policies[id]
	if !ok {
		return nil, retention.NewNotFoundError("policy", id, "")
	}
	return m.resolved(p), nil
}

// ListPolicies returns every policy ordered by id.
func (m *MemoryStore) ListPolicies(ctx context.Context) ([]*retention.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	out := make([]*retention.Policy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, m.resolved(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetPolicyActive toggles a policy.
func (m *MemoryStore) SetPolicyActive(ctx context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	p, ok := m.policies[id]
	if !ok {
		return retention.NewNotFoundError("policy", id, "")
	}
	p.IsActive = active
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// DeletePolicy removes a policy and its dependents.
func (m *MemoryStore) DeletePolicy(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	if _, ok := m.policies[id]; !ok {
		return retention.NewNotFoundError("policy", id, "")
	}
	delete(m.assignments, id)
	for fileID, r := range m.retentions {
		if r.PolicyID == id {
			delete(m.retentions, fileID)
		}
	}
	kept := m.logs[:0]
	for _, e := range m.logs {
		if e.PolicyID != id {
			kept = append(kept, e)
		}
	}
	m.logs = kept
	delete(m.policies, id)
	return nil
}

// ReplaceAssignments swaps a policy's folder set.
func (m *MemoryStore) ReplaceAssignments(ctx context.Context, policyID int64, folderIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	if _, ok := m.policies[policyID]; !ok {
		return retention.NewNotFoundError("policy", policyID, "")
	}
	set := make(map[int64]bool, len(folderIDs))
	for _, id := range folderIDs {
		set[id] = true
	}
	m.assignments[policyID] = set
	return nil
}

// FoldersForPolicy returns a policy's folder ids in ascending order.
func (m *MemoryStore) FoldersForPolicy(ctx context.Context, policyID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	return m.folderIDs(policyID), nil
}

// ActivePoliciesForFolder returns active policies of a folder by name, then id.
func (m *MemoryStore) ActivePoliciesForFolder(ctx context.Context, folderID int64) ([]*retention.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	var out []*retention.Policy
	for policyID, folders := range m.assignments {
		p := m.policies[policyID]
		if p == nil || !p.IsActive || !folders[folderID] {
			continue
		}
		out = append(out, m.resolved(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertRetention inserts or overwrites the record of r.FileID unless a
// scan has claimed it.
func (m *MemoryStore) UpsertRetention(ctx context.Context, r *retention.FileRetention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if existing, ok := m.retentions[r.FileID]; ok {
		if existing.Status == retention.StatusProcessing {
			return retentionClaimed(r.FileID)
		}
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		m.nextRetentionID++
		r.ID = m.nextRetentionID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}
	r.UpdatedAt = now
	r.ClaimedAt = nil
	r.NotifiedAt = nil

	stored := *r
	m.retentions[r.FileID] = &stored
	return nil
}

// GetRetention returns a copy of one item's record.
func (m *MemoryStore) GetRetention(ctx context.Context, fileID int64) (*retention.FileRetention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	r, ok := m.retentions[fileID]
	if !ok {
		return nil, retention.NewNotFoundError("file_retention", fileID, "")
	}
	return copyRetention(r), nil
}

// RetentionsForFiles batch-fetches records.
func (m *MemoryStore) RetentionsForFiles(ctx context.Context, fileIDs []int64) ([]*retention.FileRetention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	out := []*retention.FileRetention{}
	for _, id := range uniqueIDs(fileIDs) {
		if r, ok := m.retentions[id]; ok {
			out = append(out, copyRetention(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out, nil
}

// DeleteRetention hard-deletes an item's record.
func (m *MemoryStore) DeleteRetention(ctx context.Context, fileID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}

	if _, ok := m.retentions[fileID]; !ok {
		return false, nil
	}
	delete(m.retentions, fileID)
	return true, nil
}

// RetentionsByUser returns a user's records with policy names.
func (m *MemoryStore) RetentionsByUser(ctx context.Context, userID string) ([]*retention.RetentionOverview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	out := []*retention.RetentionOverview{}
	for _, r := range m.filter(func(r *retention.FileRetention) bool { return r.CreatedBy == userID }) {
		name := ""
		if p := m.policies[r.PolicyID]; p != nil {
			name = p.Name
		}
		out = append(out, &retention.RetentionOverview{FileRetention: *r, PolicyName: name})
	}
	return out, nil
}

// UpcomingRetentions returns active records expiring on or before a day.
func (m *MemoryStore) UpcomingRetentions(ctx context.Context, before time.Time) ([]*retention.FileRetention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	day := retention.TruncateDate(before)
	return m.filter(func(r *retention.FileRetention) bool {
		return r.Status == retention.StatusActive && !r.ExpireDate.After(day)
	}), nil
}

// DueRetentions returns records eligible for unattended processing.
func (m *MemoryStore) DueRetentions(ctx context.Context, asOf, staleBefore time.Time) ([]*retention.FileRetention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	day := retention.TruncateDate(asOf)
	return m.filter(func(r *retention.FileRetention) bool {
		p := m.policies[r.PolicyID]
		if p == nil || !p.AutoProcess || r.ExpireDate.After(day) {
			return false
		}
		return claimable(r, staleBefore)
	}), nil
}

// ClaimRetention performs the conditional active to processing transition.
func (m *MemoryStore) ClaimRetention(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}

	r := m.byID(id)
	if r == nil || !claimable(r, staleBefore) {
		return false, nil
	}
	claimed := now.UTC()
	r.Status = retention.StatusProcessing
	r.ClaimedAt = &claimed
	r.UpdatedAt = claimed
	return true, nil
}

// CompleteRetention marks a claimed record processed.
func (m *MemoryStore) CompleteRetention(ctx context.Context, id int64, now time.Time) error {
	return m.transition(id, retention.StatusProcessed, now)
}

// ReleaseRetention hands a claimed record back to the active pool.
func (m *MemoryStore) ReleaseRetention(ctx context.Context, id int64, now time.Time) error {
	return m.transition(id, retention.StatusActive, now)
}

func (m *MemoryStore) transition(id int64, to retention.Status, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	r := m.byID(id)
	if r == nil || r.Status != retention.StatusProcessing {
		return NewStorageError("memory", "transition", fmt.Errorf("retention %d is not claimed", id))
	}
	r.Status = to
	r.ClaimedAt = nil
	r.UpdatedAt = now.UTC()
	return nil
}

// PendingNotifications returns active records still owed a notice.
func (m *MemoryStore) PendingNotifications(ctx context.Context) ([]*retention.FileRetention, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	return m.filter(func(r *retention.FileRetention) bool {
		return r.Status == retention.StatusActive && r.NotifyBeforeDays > 0 && r.NotifiedAt == nil
	}), nil
}

// MarkNotified stamps the notification time.
func (m *MemoryStore) MarkNotified(ctx context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	r := m.byID(id)
	if r == nil {
		return retention.NewNotFoundError("file_retention", id, "")
	}
	notified := now.UTC()
	r.NotifiedAt = &notified
	return nil
}

// AppendLog appends a processing log entry.
func (m *MemoryStore) AppendLog(ctx context.Context, e *retention.ProcessingLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	m.nextLogID++
	e.ID = m.nextLogID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	stored := *e
	m.logs = append(m.logs, &stored)
	return nil
}

// Logs returns at most limit entries, newest first.
func (m *MemoryStore) Logs(ctx context.Context, limit int) ([]*retention.ProcessingLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	out := make([]*retention.ProcessingLogEntry, 0, len(m.logs))
	for _, e := range m.logs {
		c := *e
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertFolder registers a group folder.
func (m *MemoryStore) UpsertFolder(ctx context.Context, f *retention.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	for id, existing := range m.folders {
		if id != f.ID && existing.MountPoint == f.MountPoint {
			return NewStorageError("memory", "upsert_folder",
				fmt.Errorf("mount point %q already used by folder %d", f.MountPoint, id))
		}
	}
	c := *f
	m.folders[f.ID] = &c
	return nil
}

// ListFolders returns registered folders by id.
func (m *MemoryStore) ListFolders(ctx context.Context) ([]*retention.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	out := make([]*retention.Folder, 0, len(m.folders))
	for _, f := range m.folders {
		c := *f
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FolderIDByMountPoint resolves a mount point name.
func (m *MemoryStore) FolderIDByMountPoint(ctx context.Context, mountPoint string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return 0, err
	}

	for id, f := range m.folders {
		if f.MountPoint == mountPoint {
			return id, nil
		}
	}
	return 0, retention.NewNotFoundError("group_folder", mountPoint, "")
}

// Ping reports whether the store is open.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check()
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) resolved(p *retention.Policy) *retention.Policy {
	c := copyPolicy(p)
	c.FolderIDs = m.folderIDs(p.ID)
	return c
}

func (m *MemoryStore) folderIDs(policyID int64) []int64 {
	ids := make([]int64, 0, len(m.assignments[policyID]))
	for id := range m.assignments[policyID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *MemoryStore) byID(id int64) *retention.FileRetention {
	for _, r := range m.retentions {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// filter returns copies of matching records ordered by expire date, then id.
func (m *MemoryStore) filter(keep func(*retention.FileRetention) bool) []*retention.FileRetention {
	out := []*retention.FileRetention{}
	for _, r := range m.retentions {
		if keep(r) {
			out = append(out, copyRetention(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpireDate.Equal(out[j].ExpireDate) {
			return out[i].ExpireDate.Before(out[j].ExpireDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func claimable(r *retention.FileRetention, staleBefore time.Time) bool {
	switch r.Status {
	case retention.StatusActive:
		return true
	case retention.StatusProcessing:
		return r.ClaimedAt != nil && r.ClaimedAt.Before(staleBefore)
	}
	return false
}

func copyPolicy(p *retention.Policy) *retention.Policy {
	c := *p
	c.AllowedPeriods = append([]string(nil), p.AllowedPeriods...)
	c.FolderIDs = append([]int64(nil), p.FolderIDs...)
	return &c
}

func copyRetention(r *retention.FileRetention) *retention.FileRetention {
	c := *r
	if r.ClaimedAt != nil {
		t := *r.ClaimedAt
		c.ClaimedAt = &t
	}
	if r.NotifiedAt != nil {
		t := *r.NotifiedAt
		c.NotifiedAt = &t
	}
	return &c
}

var _ retention.Store = (*MemoryStore)(nil)
