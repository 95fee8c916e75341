package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"mercator-hq/custodian/pkg/filetree"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/retention/audit"
	"mercator-hq/custodian/pkg/retention/executor"
	"mercator-hq/custodian/pkg/retention/files"
	"mercator-hq/custodian/pkg/retention/hierarchy"
	"mercator-hq/custodian/pkg/retention/policies"
	"mercator-hq/custodian/pkg/retention/storage"
)

var (
	scanNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	setAt   = time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC) // one day retention expires 2024-03-09
)

type fixture struct {
	store    *storage.MemoryStore
	tree     *filetree.AferoTree
	files    *files.Service
	policies *policies.Service
	exec     *executor.Executor
	audit    *audit.Logger
}

// newFixture builds group folder 10 with /docs/report.pdf and /docs/old.txt.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemoryStore()
	tree := filetree.NewAferoTree(afero.NewMemMapFs(), nil)
	for _, p := range []string{"/__groupfolders", "/__groupfolders/10", "/__groupfolders/10/docs"} {
		if _, err := tree.CreateFolder(ctx, p); err != nil {
			t.Fatalf("CreateFolder(%s) failed: %v", p, err)
		}
	}
	for p, content := range map[string]string{
		"/__groupfolders/10/docs/report.pdf": "pdf",
		"/__groupfolders/10/docs/old.txt":    "old",
	} {
		if _, err := tree.CreateFile(ctx, p, []byte(content)); err != nil {
			t.Fatalf("CreateFile(%s) failed: %v", p, err)
		}
	}

	policySvc := policies.NewService(store, nil)
	matcher := policies.NewMatcher(tree, store, policySvc)
	fileSvc := files.NewService(store, matcher, hierarchy.NewResolver(tree, store)).
		WithClock(func() time.Time { return setAt })

	return &fixture{
		store:    store,
		tree:     tree,
		files:    fileSvc,
		policies: policySvc,
		exec:     executor.NewExecutor(tree).WithClock(func() time.Time { return scanNow }),
		audit:    audit.NewLogger(store, nil).WithClock(func() time.Time { return scanNow }),
	}
}

func (f *fixture) policy(t *testing.T, p *retention.Policy) int64 {
	t.Helper()
	ctx := context.Background()
	p.IsActive = true
	id, err := f.policies.Create(ctx, p)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := f.policies.AssignFolders(ctx, id, []int64{10}); err != nil {
		t.Fatalf("AssignFolders() failed: %v", err)
	}
	return id
}

func (f *fixture) retain(t *testing.T, p string, period int) *retention.FileRetention {
	t.Helper()
	ctx := context.Background()
	n, err := f.tree.Stat(ctx, p)
	if err != nil {
		t.Fatalf("Stat(%s) failed: %v", p, err)
	}
	r, err := f.files.SetFileRetention(ctx, n.ID, files.Request{
		RetentionPeriod: period,
		RetentionUnit:   "days",
		UserID:          "alice",
	})
	if err != nil {
		t.Fatalf("SetFileRetention() failed: %v", err)
	}
	return r
}

func (f *fixture) scanner(opts ...Option) *Scanner {
	opts = append([]Option{WithClock(func() time.Time { return scanNow })}, opts...)
	return New(f.store, f.exec, f.audit, opts...)
}

// TestProcessRetentionActions_EndToEnd tests an expired delete retention
// is executed, logged and completed.
func TestProcessRetentionActions_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	policyID := f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	r := f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)

	summary := f.scanner().ProcessRetentionActions(ctx, false)

	if summary.ProcessedCount != 1 || summary.FailedCount != 0 {
		t.Fatalf("Expected 1 processed and 0 failed, got %+v", summary)
	}
	if summary.RunID == "" || summary.DryRun || !summary.Timestamp.Equal(scanNow) {
		t.Errorf("Unexpected summary header: %+v", summary)
	}
	item := summary.Processed[0]
	if item.FileID != r.FileID || item.PolicyID != policyID || item.OriginalPath != "/__groupfolders/10/docs/report.pdf" {
		t.Errorf("Unexpected processed item: %+v", item)
	}

	if ok, _ := f.tree.Exists(ctx, "/__groupfolders/10/docs/report.pdf"); ok {
		t.Error("Expected report.pdf to be deleted")
	}
	stored, err := f.store.GetRetention(ctx, r.FileID)
	if err != nil {
		t.Fatalf("GetRetention() failed: %v", err)
	}
	if stored.Status != retention.StatusProcessed {
		t.Errorf("Expected status processed, got %s", stored.Status)
	}

	logs, err := f.store.Logs(ctx, 10)
	if err != nil {
		t.Fatalf("Logs() failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logs))
	}
	if logs[0].Status != retention.LogSuccess || logs[0].FileID != r.FileID || logs[0].RunID != summary.RunID {
		t.Errorf("Unexpected log entry: %+v", logs[0])
	}

	// A second run has nothing left to do.
	again := f.scanner().ProcessRetentionActions(ctx, false)
	if again.ProcessedCount != 0 || again.FailedCount != 0 {
		t.Errorf("Expected empty second run, got %+v", again)
	}
}

// TestProcessRetentionActions_DryRun tests a dry run changes nothing
func TestProcessRetentionActions_DryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	r := f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)

	summary := f.scanner().ProcessRetentionActions(ctx, true)

	if !summary.DryRun || summary.ProcessedCount != 1 {
		t.Fatalf("Unexpected dry run summary: %+v", summary)
	}
	if !strings.Contains(summary.Processed[0].Description, "delete") {
		t.Errorf("Expected a delete description, got %q", summary.Processed[0].Description)
	}
	if ok, _ := f.tree.Exists(ctx, "/__groupfolders/10/docs/report.pdf"); !ok {
		t.Error("Expected report.pdf to survive a dry run")
	}
	stored, _ := f.store.GetRetention(ctx, r.FileID)
	if stored.Status != retention.StatusActive || stored.ClaimedAt != nil {
		t.Errorf("Expected untouched record, got %+v", stored)
	}
	if logs, _ := f.store.Logs(ctx, 10); len(logs) != 0 {
		t.Errorf("Expected no log entries, got %d", len(logs))
	}
}

// readOnlyTree fails the test on any mutating call.
type readOnlyTree struct {
	filetree.Tree
	t *testing.T
}

func (r readOnlyTree) CreateFolder(ctx context.Context, p string) (*filetree.Node, error) {
	r.t.Errorf("CreateFolder(%s) called during a dry run", p)
	return nil, errors.New("read only")
}

func (r readOnlyTree) CreateFile(ctx context.Context, p string, content []byte) (*filetree.Node, error) {
	r.t.Errorf("CreateFile(%s) called during a dry run", p)
	return nil, errors.New("read only")
}

func (r readOnlyTree) Delete(ctx context.Context, n *filetree.Node) error {
	r.t.Errorf("Delete(%s) called during a dry run", n.Path)
	return errors.New("read only")
}

// TestProcessRetentionActions_DryRunRelocations tests that move and archive
// records are only described during a dry run.
func TestProcessRetentionActions_DryRunRelocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	policyID := f.policy(t, &retention.Policy{
		Name:              "Relocate",
		DefaultAction:     retention.ActionMove,
		DefaultTargetPath: "/archive",
		AutoProcess:       true,
	})

	for p, action := range map[string]retention.Action{
		"/__groupfolders/10/docs/report.pdf": retention.ActionMove,
		"/__groupfolders/10/docs/old.txt":    retention.ActionArchive,
	} {
		n, err := f.tree.Stat(ctx, p)
		if err != nil {
			t.Fatalf("Stat(%s) failed: %v", p, err)
		}
		if err := f.store.UpsertRetention(ctx, &retention.FileRetention{
			FileID:          n.ID,
			PolicyID:        policyID,
			RetentionPeriod: 1,
			RetentionUnit:   retention.UnitDays,
			ExpireDate:      retention.TruncateDate(setAt),
			Action:          action,
			TargetPath:      "/archive",
			Status:          retention.StatusActive,
			CreatedBy:       "alice",
		}); err != nil {
			t.Fatalf("UpsertRetention() failed: %v", err)
		}
	}

	exec := executor.NewExecutor(readOnlyTree{Tree: f.tree, t: t}).WithClock(func() time.Time { return scanNow })
	s := New(f.store, exec, f.audit, WithClock(func() time.Time { return scanNow }))

	summary := s.ProcessRetentionActions(ctx, true)
	if !summary.DryRun || summary.ProcessedCount != 2 || summary.FailedCount != 0 {
		t.Fatalf("Unexpected dry run summary: %+v", summary)
	}
	var descriptions []string
	for _, item := range summary.Processed {
		descriptions = append(descriptions, item.Description)
	}
	joined := strings.Join(descriptions, "; ")
	if !strings.Contains(joined, "move") || !strings.Contains(joined, "archive") {
		t.Errorf("Expected move and archive descriptions, got %q", joined)
	}
	if ok, _ := f.tree.Exists(ctx, "/archive"); ok {
		t.Error("Expected no destination folder after a dry run")
	}
	if logs, _ := f.store.Logs(ctx, 10); len(logs) != 0 {
		t.Errorf("Expected no log entries, got %d", len(logs))
	}
}

// TestProcessRetentionActions_Selection tests which records are due
func TestProcessRetentionActions_Selection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})

	// Expires 2024-03-18, after the scan date.
	f.retain(t, "/__groupfolders/10/docs/old.txt", 10)

	summary := f.scanner().ProcessRetentionActions(ctx, false)
	if summary.ProcessedCount != 0 || len(summary.Errors) != 0 {
		t.Errorf("Expected nothing due, got %+v", summary)
	}

	manual := newFixture(t)
	manual.policy(t, &retention.Policy{Name: "Manual", DefaultAction: retention.ActionDelete, AutoProcess: false})
	manual.retain(t, "/__groupfolders/10/docs/old.txt", 1)

	summary = manual.scanner().ProcessRetentionActions(ctx, false)
	if summary.ProcessedCount != 0 {
		t.Errorf("Expected manual policy to be skipped, got %+v", summary)
	}
	if ok, _ := manual.tree.Exists(ctx, "/__groupfolders/10/docs/old.txt"); !ok {
		t.Error("Expected old.txt to survive")
	}
}

// TestProcessRetentionActions_Failure tests a failed action is released
// and logged while the batch continues.
func TestProcessRetentionActions_Failure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	gone := f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)
	kept := f.retain(t, "/__groupfolders/10/docs/old.txt", 1)

	// Remove the item behind the scanner's back.
	n, _ := f.tree.GetByID(ctx, gone.FileID)
	if err := f.tree.Delete(ctx, n); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	summary := f.scanner().ProcessRetentionActions(ctx, false)

	if summary.ProcessedCount != 1 || summary.FailedCount != 1 {
		t.Fatalf("Expected 1 processed and 1 failed, got %+v", summary)
	}
	if summary.Errors[0].FileID != gone.FileID || summary.Errors[0].Action != retention.ActionDelete {
		t.Errorf("Unexpected error item: %+v", summary.Errors[0])
	}
	if summary.Processed[0].FileID != kept.FileID {
		t.Errorf("Expected old.txt to be processed, got %+v", summary.Processed[0])
	}

	stored, _ := f.store.GetRetention(ctx, gone.FileID)
	if stored.Status != retention.StatusActive || stored.ClaimedAt != nil {
		t.Errorf("Expected failed record back to active, got %+v", stored)
	}

	logs, _ := f.store.Logs(ctx, 10)
	statuses := map[int64]retention.LogStatus{}
	for _, e := range logs {
		statuses[e.FileID] = e.Status
	}
	if statuses[gone.FileID] != retention.LogFailed || statuses[kept.FileID] != retention.LogSuccess {
		t.Errorf("Unexpected log statuses: %v", statuses)
	}
}

// TestProcessRetentionActions_StaleClaim tests claim expiry
func TestProcessRetentionActions_StaleClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	r := f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)

	claimedAt := scanNow.Add(-10 * time.Minute)
	if ok, err := f.store.ClaimRetention(ctx, r.ID, claimedAt, claimedAt.Add(-time.Hour)); err != nil || !ok {
		t.Fatalf("ClaimRetention() = %v, %v", ok, err)
	}

	summary := f.scanner(WithClaimTTL(time.Hour)).ProcessRetentionActions(ctx, false)
	if summary.ProcessedCount != 0 {
		t.Fatalf("Expected a fresh claim to be honored, got %+v", summary)
	}

	summary = f.scanner(WithClaimTTL(5 * time.Minute)).ProcessRetentionActions(ctx, false)
	if summary.ProcessedCount != 1 {
		t.Fatalf("Expected a stale claim to be reclaimed, got %+v", summary)
	}
	stored, _ := f.store.GetRetention(ctx, r.FileID)
	if stored.Status != retention.StatusProcessed {
		t.Errorf("Expected status processed, got %s", stored.Status)
	}
}

// contendedStore loses every claim.
type contendedStore struct {
	*storage.MemoryStore
}

func (s contendedStore) ClaimRetention(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return false, nil
}

// countingExecutor records how often Execute is called.
type countingExecutor struct {
	calls int
	err   error
}

func (e *countingExecutor) Execute(ctx context.Context, r *retention.FileRetention) (*executor.Outcome, error) {
	e.calls++
	return &executor.Outcome{OriginalPath: "/x"}, e.err
}

func (e *countingExecutor) Describe(r *retention.FileRetention) string {
	return "noop"
}

// TestProcessRetentionActions_ClaimLost tests a record claimed elsewhere is skipped
func TestProcessRetentionActions_ClaimLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)

	exec := &countingExecutor{}
	s := New(contendedStore{f.store}, exec, f.audit, WithClock(func() time.Time { return scanNow }))
	summary := s.ProcessRetentionActions(ctx, false)

	if summary.SkippedCount != 1 || summary.ProcessedCount != 0 || summary.FailedCount != 0 {
		t.Errorf("Expected 1 skipped, got %+v", summary)
	}
	if exec.calls != 0 {
		t.Errorf("Expected no executions, got %d", exec.calls)
	}
}

// brokenStore fails every selection.
type brokenStore struct {
	*storage.MemoryStore
}

func (s brokenStore) DueRetentions(ctx context.Context, asOf, staleBefore time.Time) ([]*retention.FileRetention, error) {
	return nil, errors.New("database is locked")
}

// TestProcessRetentionActions_SelectionFailure tests a failed selection is reported in the summary
func TestProcessRetentionActions_SelectionFailure(t *testing.T) {
	f := newFixture(t)
	s := New(brokenStore{f.store}, &countingExecutor{}, f.audit)

	summary := s.ProcessRetentionActions(context.Background(), false)
	if summary == nil {
		t.Fatal("Expected a summary")
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0].Error, "database is locked") {
		t.Errorf("Expected a single selection error, got %+v", summary.Errors)
	}
	if summary.ProcessedCount != 0 {
		t.Errorf("Expected nothing processed, got %d", summary.ProcessedCount)
	}
}

// TestProcessRetentionActions_Cancelled tests a cancelled context stops the batch
func TestProcessRetentionActions_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &countingExecutor{}
	summary := New(f.store, exec, f.audit, WithClock(func() time.Time { return scanNow })).
		ProcessRetentionActions(ctx, false)

	if exec.calls != 0 {
		t.Errorf("Expected no executions after cancel, got %d", exec.calls)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0].Error, "interrupted") {
		t.Errorf("Expected an interruption error, got %+v", summary.Errors)
	}
}

type recordingProgress struct {
	total    int
	dryRun   bool
	updates  []int
	final    [3]int
	finished bool
}

func (p *recordingProgress) Start(total int, dryRun bool) { p.total, p.dryRun = total, dryRun }

func (p *recordingProgress) Update(done, processed, failed, skipped int) {
	p.updates = append(p.updates, done)
}

func (p *recordingProgress) Finish(processed, failed, skipped int) {
	p.finished = true
	p.final = [3]int{processed, failed, skipped}
}

// TestProcessRetentionActions_Progress tests progress reporting over a batch.
func TestProcessRetentionActions_Progress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.policy(t, &retention.Policy{Name: "Short", DefaultAction: retention.ActionDelete, AutoProcess: true})
	f.retain(t, "/__groupfolders/10/docs/report.pdf", 1)
	f.retain(t, "/__groupfolders/10/docs/old.txt", 1)

	progress := &recordingProgress{}
	summary := f.scanner(WithProgress(progress)).ProcessRetentionActions(ctx, true)

	if summary.ProcessedCount != 2 {
		t.Fatalf("Expected 2 processed, got %+v", summary)
	}
	if progress.total != 2 || !progress.dryRun {
		t.Errorf("Expected a dry run of 2, got total %d dry run %v", progress.total, progress.dryRun)
	}
	if len(progress.updates) != 1 || progress.updates[0] != 1 {
		t.Errorf("Expected a single update at 1, got %v", progress.updates)
	}
	if !progress.finished || progress.final != [3]int{2, 0, 0} {
		t.Errorf("Expected Finish with 2 processed, got %v (finished %v)", progress.final, progress.finished)
	}
}
