package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/filetree"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/logging"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 15, 0, time.UTC)

const root = "/__groupfolders/3"

// newTree builds a group folder with a few files:
//
//	/__groupfolders/3/docs/report.pdf   "quarterly"
//	/__groupfolders/3/docs/notes/a.txt  "a"
//	/__groupfolders/3/docs/notes/b.txt  "bb"
func newTree(t *testing.T) *filetree.AferoTree {
	t.Helper()
	ctx := context.Background()
	tree := filetree.NewAferoTree(afero.NewMemMapFs(), nil)

	for _, dir := range []string{"/__groupfolders", root, root + "/docs", root + "/docs/notes"} {
		if _, err := tree.CreateFolder(ctx, dir); err != nil {
			t.Fatalf("CreateFolder(%s) failed: %v", dir, err)
		}
	}
	files := map[string]string{
		root + "/docs/report.pdf":  "quarterly",
		root + "/docs/notes/a.txt": "a",
		root + "/docs/notes/b.txt": "bb",
	}
	for p, content := range files {
		if _, err := tree.CreateFile(ctx, p, []byte(content)); err != nil {
			t.Fatalf("CreateFile(%s) failed: %v", p, err)
		}
	}
	return tree
}

func retentionFor(t *testing.T, tree filetree.Tree, p string, action retention.Action, target string) *retention.FileRetention {
	t.Helper()
	n, err := tree.Stat(context.Background(), p)
	if err != nil {
		t.Fatalf("Stat(%s) failed: %v", p, err)
	}
	return &retention.FileRetention{ID: 1, FileID: n.ID, PolicyID: 9, Action: action, TargetPath: target}
}

func assertExists(t *testing.T, tree filetree.Tree, p string, want bool) {
	t.Helper()
	ok, err := tree.Exists(context.Background(), p)
	if err != nil {
		t.Fatalf("Exists(%s) failed: %v", p, err)
	}
	if ok != want {
		t.Errorf("Exists(%s) = %v, want %v", p, ok, want)
	}
}

func assertContent(t *testing.T, tree filetree.Tree, p, want string) {
	t.Helper()
	ctx := context.Background()
	n, err := tree.Stat(ctx, p)
	if err != nil {
		t.Fatalf("Stat(%s) failed: %v", p, err)
	}
	got, err := tree.ReadContent(ctx, n)
	if err != nil {
		t.Fatalf("ReadContent(%s) failed: %v", p, err)
	}
	if string(got) != want {
		t.Errorf("Content of %s = %q, want %q", p, got, want)
	}
}

// TestExecute_Delete tests deleting a file
func TestExecute_Delete(t *testing.T) {
	tree := newTree(t)
	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionDelete, "")

	out, err := NewExecutor(tree).Execute(context.Background(), r)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if out.OriginalPath != root+"/docs/report.pdf" || out.FinalPath != "" {
		t.Errorf("Unexpected outcome: %+v", out)
	}
	assertExists(t, tree, root+"/docs/report.pdf", false)
}

// TestExecute_DeleteMissing tests a vanished item is a storage error
func TestExecute_DeleteMissing(t *testing.T) {
	tree := newTree(t)
	r := &retention.FileRetention{FileID: 999, PolicyID: 9, Action: retention.ActionDelete}

	_, err := NewExecutor(tree).Execute(context.Background(), r)
	if retention.KindOf(err) != retention.KindStorage {
		t.Fatalf("Expected storage error, got %v", err)
	}
	var serr *retention.StorageError
	if !errors.As(err, &serr) || serr.FileID != 999 || serr.Operation != "get" {
		t.Errorf("Unexpected error context: %+v", serr)
	}
}

// TestExecute_MoveTargets tests target path resolution
func TestExecute_MoveTargets(t *testing.T) {
	tests := []struct {
		name   string
		prep   []string // folders created before the move
		target string
		want   string
	}{
		{
			name:   "trailing slash keeps name",
			target: "/__groupfolders/3/old/",
			want:   "/__groupfolders/3/old/report.pdf",
		},
		{
			name:   "existing folder keeps name",
			prep:   []string{root + "/kept"},
			target: root + "/kept",
			want:   root + "/kept/report.pdf",
		},
		{
			name:   "segment without extension is a directory",
			target: root + "/Archive/2024",
			want:   root + "/Archive/2024/report.pdf",
		},
		{
			name:   "explicit file name renames",
			target: root + "/renamed/final.pdf",
			want:   root + "/renamed/final.pdf",
		},
		{
			name:   "relative target resolves in group folder",
			target: "Old Reports/",
			want:   root + "/Old Reports/report.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			tree := newTree(t)
			for _, p := range tt.prep {
				if _, err := tree.CreateFolder(ctx, p); err != nil {
					t.Fatalf("CreateFolder(%s) failed: %v", p, err)
				}
			}
			r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, tt.target)

			out, err := NewExecutor(tree).Execute(ctx, r)
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if out.FinalPath != tt.want {
				t.Errorf("FinalPath = %q, want %q", out.FinalPath, tt.want)
			}
			assertContent(t, tree, tt.want, "quarterly")
			assertExists(t, tree, root+"/docs/report.pdf", false)
		})
	}
}

// TestExecute_MoveCollision tests collision free naming
func TestExecute_MoveCollision(t *testing.T) {
	ctx := context.Background()
	tree := newTree(t)
	tree.CreateFolder(ctx, root+"/old")
	tree.CreateFile(ctx, root+"/old/report.pdf", []byte("older"))
	tree.CreateFile(ctx, root+"/old/report_1.pdf", []byte("oldest"))

	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, root+"/old/")
	out, err := NewExecutor(tree).Execute(ctx, r)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if out.FinalPath != root+"/old/report_2.pdf" {
		t.Errorf("FinalPath = %q, want report_2.pdf", out.FinalPath)
	}
	assertContent(t, tree, root+"/old/report.pdf", "older")
	assertContent(t, tree, root+"/old/report_2.pdf", "quarterly")
}

// TestFreeName_Exhausted tests the attempt bound
func TestFreeName_Exhausted(t *testing.T) {
	ctx := context.Background()
	tree := newTree(t)
	tree.CreateFolder(ctx, "/full")
	tree.CreateFile(ctx, "/full/x.txt", nil)
	for i := 1; i <= MaxNameAttempts; i++ {
		if _, err := tree.CreateFile(ctx, fmt.Sprintf("/full/x_%d.txt", i), nil); err != nil {
			t.Fatalf("CreateFile() failed: %v", err)
		}
	}

	_, err := NewExecutor(tree).freeName(ctx, "/full", "x.txt", true)
	if !errors.Is(err, ErrNoFreeName) {
		t.Errorf("Expected ErrNoFreeName, got %v", err)
	}
}

// TestExecute_MoveFolder tests recursive folder moves
func TestExecute_MoveFolder(t *testing.T) {
	ctx := context.Background()
	tree := newTree(t)
	r := retentionFor(t, tree, root+"/docs/notes", retention.ActionMove, "/cold/storage/")

	out, err := NewExecutor(tree).Execute(ctx, r)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if out.FinalPath != "/cold/storage/notes" {
		t.Errorf("FinalPath = %q", out.FinalPath)
	}
	assertContent(t, tree, "/cold/storage/notes/a.txt", "a")
	assertContent(t, tree, "/cold/storage/notes/b.txt", "bb")
	assertExists(t, tree, root+"/docs/notes", false)
	assertExists(t, tree, root+"/docs/report.pdf", true)
}

// TestExecute_MoveFolderIntoItself tests moves below the source are refused
func TestExecute_MoveFolderIntoItself(t *testing.T) {
	tree := newTree(t)
	r := retentionFor(t, tree, root+"/docs", retention.ActionMove, root+"/docs/notes/")

	_, err := NewExecutor(tree).Execute(context.Background(), r)
	if !errors.Is(err, ErrIntoItself) {
		t.Fatalf("Expected ErrIntoItself, got %v", err)
	}
	assertExists(t, tree, root+"/docs/report.pdf", true)
}

// TestExecute_MoveWithoutTarget tests move needs a target
func TestExecute_MoveWithoutTarget(t *testing.T) {
	tree := newTree(t)
	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, "")

	_, err := NewExecutor(tree).Execute(context.Background(), r)
	if !errors.Is(err, ErrNoTarget) {
		t.Fatalf("Expected ErrNoTarget, got %v", err)
	}
	assertExists(t, tree, root+"/docs/report.pdf", true)
}

// TestExecute_TargetSegmentIsFile tests a file in the target chain fails
func TestExecute_TargetSegmentIsFile(t *testing.T) {
	tree := newTree(t)
	r := retentionFor(t, tree, root+"/docs/notes/a.txt", retention.ActionMove, root+"/docs/report.pdf/inner/")

	_, err := NewExecutor(tree).Execute(context.Background(), r)
	if !errors.Is(err, ErrNotAFolder) {
		t.Fatalf("Expected ErrNotAFolder, got %v", err)
	}
	assertExists(t, tree, root+"/docs/notes/a.txt", true)
}

// TestExecute_Archive tests archive naming
func TestExecute_Archive(t *testing.T) {
	ctx := context.Background()
	tree := newTree(t)
	exec := NewExecutor(tree).WithClock(func() time.Time { return fixedNow })

	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionArchive, "/archive")
	out, err := exec.Execute(ctx, r)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	want := "/archive/archive_2024-05-17/2024-05-17_09-30-15_report.pdf"
	if out.FinalPath != want {
		t.Errorf("FinalPath = %q, want %q", out.FinalPath, want)
	}
	assertContent(t, tree, want, "quarterly")
	assertExists(t, tree, root+"/docs/report.pdf", false)

	// Same second, same name: the collision suffix applies.
	tree.CreateFile(ctx, root+"/docs/report.pdf", []byte("again"))
	r = retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionArchive, "/archive")
	out, err = exec.Execute(ctx, r)
	if err != nil {
		t.Fatalf("second Execute() failed: %v", err)
	}
	if out.FinalPath != "/archive/archive_2024-05-17/2024-05-17_09-30-15_report_1.pdf" {
		t.Errorf("Unexpected second archive path %q", out.FinalPath)
	}
}

// truncatingTree drops the last byte of every file it creates.
type truncatingTree struct {
	*filetree.AferoTree
}

func (t truncatingTree) CreateFile(ctx context.Context, p string, content []byte) (*filetree.Node, error) {
	if len(content) > 0 {
		content = content[:len(content)-1]
	}
	return t.AferoTree.CreateFile(ctx, p, content)
}

// TestExecute_SizeMismatch tests the source survives a bad copy
func TestExecute_SizeMismatch(t *testing.T) {
	ctx := context.Background()
	base := newTree(t)
	tree := truncatingTree{base}
	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, "/dest/")

	_, err := NewExecutor(tree).Execute(ctx, r)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Expected ErrSizeMismatch, got %v", err)
	}
	var serr *retention.StorageError
	if !errors.As(err, &serr) || serr.Operation != "copy" || serr.Action != retention.ActionMove {
		t.Errorf("Unexpected error context: %+v", serr)
	}
	assertContent(t, tree, root+"/docs/report.pdf", "quarterly")
	assertExists(t, tree, "/dest/report.pdf", false)
}

// TestExecute_FolderSizeMismatch tests a failed folder copy is rolled back
func TestExecute_FolderSizeMismatch(t *testing.T) {
	tree := truncatingTree{newTree(t)}
	r := retentionFor(t, tree, root+"/docs/notes", retention.ActionArchive, "/archive")

	_, err := NewExecutor(tree).WithClock(func() time.Time { return fixedNow }).Execute(context.Background(), r)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Expected ErrSizeMismatch, got %v", err)
	}
	assertExists(t, tree, "/archive/archive_2024-05-17/2024-05-17_09-30-15_notes", false)
	assertContent(t, tree, root+"/docs/notes/a.txt", "a")
	assertContent(t, tree, root+"/docs/notes/b.txt", "bb")
}

// stuckCopyTree truncates copies and refuses to delete them again.
type stuckCopyTree struct {
	truncatingTree
}

func (t stuckCopyTree) Delete(ctx context.Context, n *filetree.Node) error {
	return errors.New("permission denied")
}

// TestExecute_PartialCopyLogCarriesRunID tests the cleanup warning is
// logged with the run id of the context
func TestExecute_PartialCopyLogCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	tree := stuckCopyTree{truncatingTree{newTree(t)}}
	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, "/dest/")

	e := NewExecutor(tree)
	e.logger = logger
	ctx := logging.WithRunID(context.Background(), "run-42")
	if _, err := e.Execute(ctx, r); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Expected ErrSizeMismatch, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "failed to remove partial copy") {
		t.Fatalf("Expected cleanup warning, got %q", out)
	}
	if !strings.Contains(out, `"run_id":"run-42"`) {
		t.Errorf("Expected run_id on the warning, got %q", out)
	}
}

// stickyTree refuses every delete.
type stickyTree struct {
	*filetree.AferoTree
}

func (t stickyTree) Delete(ctx context.Context, n *filetree.Node) error {
	return errors.New("permission denied")
}

// TestExecute_SourceDeleteFails tests a verified copy is reported
func TestExecute_SourceDeleteFails(t *testing.T) {
	tree := stickyTree{newTree(t)}
	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, "/dest/")

	out, err := NewExecutor(tree).Execute(context.Background(), r)
	var serr *retention.StorageError
	if !errors.As(err, &serr) || serr.Operation != "delete_source" {
		t.Fatalf("Expected delete_source error, got %v", err)
	}
	if out == nil || out.FinalPath != "/dest/report.pdf" {
		t.Errorf("Expected final path of the copy, got %+v", out)
	}
	assertContent(t, tree, "/dest/report.pdf", "quarterly")
	assertContent(t, tree, root+"/docs/report.pdf", "quarterly")
}

// loopTree lists a folder as its own child.
type loopTree struct {
	*filetree.AferoTree
}

func (t loopTree) ListChildren(ctx context.Context, folder *filetree.Node) ([]*filetree.Node, error) {
	children, err := t.AferoTree.ListChildren(ctx, folder)
	if err != nil {
		return nil, err
	}
	return append(children, folder), nil
}

// TestCopyFolder_Cycle tests the visited set stops self references
func TestCopyFolder_Cycle(t *testing.T) {
	tree := loopTree{newTree(t)}
	r := retentionFor(t, tree, root+"/docs/notes", retention.ActionMove, "/dest/")

	_, err := NewExecutor(tree).Execute(context.Background(), r)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("Expected ErrCycle, got %v", err)
	}
	assertExists(t, tree, "/dest/notes", false)
	assertExists(t, tree, root+"/docs/notes/a.txt", true)
}

// TestExecute_Spans tests an action span carries the retention attributes
func TestExecute_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	tree := newTree(t)
	exec := NewExecutor(tree)
	r := retentionFor(t, tree, root+"/docs/report.pdf", retention.ActionMove, "/dest/")
	if _, err := exec.Execute(context.Background(), r); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if _, err := exec.Execute(context.Background(), r); err == nil {
		t.Fatal("Expected second Execute() to fail")
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "executor.move" {
		t.Errorf("Unexpected span name %q", spans[0].Name())
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[tracing.AttrFinalPath] != "/dest/report.pdf" {
		t.Errorf("Expected final path attribute, got %v", attrs)
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("Expected error status on failed span, got %v", spans[1].Status())
	}
}

func TestDescribe(t *testing.T) {
	e := NewExecutor(nil)
	r := &retention.FileRetention{FileID: 4, Action: retention.ActionArchive, TargetPath: "/archive"}
	if got := e.Describe(r); got != "archive file 4 to /archive" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestGroupFolderRoot(t *testing.T) {
	tests := map[string]string{
		"/__groupfolders/3/docs/a.txt": "/__groupfolders/3",
		"/__groupfolders/3":            "/__groupfolders/3",
		"/__groupfolders":              "/",
		"/alice/files/a.txt":           "/",
	}
	for in, want := range tests {
		if got := groupFolderRoot(in); got != want {
			t.Errorf("groupFolderRoot(%q) = %q, want %q", in, got, want)
		}
	}
}
