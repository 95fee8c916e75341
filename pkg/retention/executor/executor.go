package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/filetree"
	"mercator-hq/custodian/pkg/retention"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// MaxNameAttempts bounds the search for a collision free destination name.
const MaxNameAttempts = 1000

const (
	archiveDirLayout    = "2006-01-02"
	archivePrefixLayout = "2006-01-02_15-04-05"
)

var (
	// ErrSizeMismatch is returned when a copy differs in size from its source.
	ErrSizeMismatch = errors.New("copy size does not match source")

	// ErrNoFreeName is returned when MaxNameAttempts names are all taken.
	ErrNoFreeName = errors.New("no free destination name")

	// ErrNoTarget is returned for move and archive without a target path.
	ErrNoTarget = errors.New("target path is required")

	// ErrNotAFolder is returned when a destination segment is a file.
	ErrNotAFolder = errors.New("destination segment is not a folder")

	// ErrIntoItself is returned when a folder would be copied below itself.
	ErrIntoItself = errors.New("destination is inside the source")

	// ErrCycle is returned when a folder copy visits a node twice.
	ErrCycle = errors.New("folder contains a cycle")
)

// Outcome describes a finished action.
type Outcome struct {
	OriginalPath string `json:"original_path"`
	FinalPath    string `json:"final_path,omitempty"`
}

// Executor runs retention actions against a file tree.
type Executor struct {
	tree   filetree.Tree
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// NewExecutor creates an executor over tree.
func NewExecutor(tree filetree.Tree) *Executor {
	return &Executor{
		tree:   tree,
		tracer: tracing.ComponentTracer("executor"),
		logger: slog.Default().With("component", "retention.executor"),
		now:    time.Now,
	}
}

// WithClock overrides the time used for archive names. Used by tests.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// Describe returns a human readable description of what Execute would do
// with r, without touching the tree.
func (e *Executor) Describe(r *retention.FileRetention) string {
	switch r.Action {
	case retention.ActionDelete:
		return fmt.Sprintf("delete file %d", r.FileID)
	case retention.ActionArchive:
		return fmt.Sprintf("archive file %d to %s", r.FileID, r.TargetPath)
	default:
		return fmt.Sprintf("move file %d to %s", r.FileID, r.TargetPath)
	}
}

// Execute performs r's action. Every failure is a *retention.StorageError
// carrying the file id, policy id and action; the Outcome is returned even
// on failure once the source path is known.
func (e *Executor) Execute(ctx context.Context, r *retention.FileRetention) (out *Outcome, err error) {
	ctx, span := e.tracer.Start(ctx, "executor."+string(r.Action),
		trace.WithAttributes(tracing.RetentionAttributes(r.FileID, r.PolicyID, string(r.Action))...))
	defer func() {
		if out != nil {
			tracing.SetPathAttributes(span, out.OriginalPath, out.FinalPath)
		}
		tracing.End(span, err)
	}()

	node, err := e.tree.GetByID(ctx, r.FileID)
	if err != nil {
		return nil, retention.NewActionError(r, "get", err)
	}
	out = &Outcome{OriginalPath: node.Path}

	switch r.Action {
	case retention.ActionDelete:
		err = e.delete(ctx, r, node)
	case retention.ActionMove:
		out.FinalPath, err = e.move(ctx, r, node)
	case retention.ActionArchive:
		out.FinalPath, err = e.archive(ctx, r, node)
	default:
		err = retention.NewActionError(r, "dispatch", fmt.Errorf("unknown action %q", r.Action))
	}
	return out, err
}

func (e *Executor) delete(ctx context.Context, r *retention.FileRetention, node *filetree.Node) error {
	if err := e.tree.Delete(ctx, node); err != nil {
		return retention.NewActionError(r, "delete", err)
	}
	e.logger.DebugContext(ctx, "deleted item", "file_id", r.FileID, "path", node.Path)
	return nil
}

func (e *Executor) move(ctx context.Context, r *retention.FileRetention, node *filetree.Node) (string, error) {
	if strings.TrimSpace(r.TargetPath) == "" {
		return "", retention.NewActionError(r, "resolve_target", ErrNoTarget)
	}
	dir, name := resolveTarget(ctx, e.tree, node, r.TargetPath)
	return e.relocate(ctx, r, node, dir, name)
}

func (e *Executor) archive(ctx context.Context, r *retention.FileRetention, node *filetree.Node) (string, error) {
	if strings.TrimSpace(r.TargetPath) == "" {
		return "", retention.NewActionError(r, "resolve_target", ErrNoTarget)
	}
	now := e.now()
	dir := filetree.Join(absTarget(node, r.TargetPath), "archive_"+now.Format(archiveDirLayout))
	name := now.Format(archivePrefixLayout) + "_" + node.Name
	return e.relocate(ctx, r, node, dir, name)
}

// relocate copies node to dir/name (or a free variant of it), verifies the
// copy and removes the source. It returns the final path.
func (e *Executor) relocate(ctx context.Context, r *retention.FileRetention, node *filetree.Node, dir, name string) (string, error) {
	if node.IsFolder && within(dir, node.Path) {
		return "", retention.NewActionError(r, "resolve_target", fmt.Errorf("%w: %s", ErrIntoItself, dir))
	}

	if err := e.ensureDir(ctx, dir); err != nil {
		return "", retention.NewActionError(r, "create_folder", err)
	}

	dest, err := e.freeName(ctx, dir, name, !node.IsFolder)
	if err != nil {
		return "", retention.NewActionError(r, "resolve_name", err)
	}

	if node.IsFolder {
		if err := e.copyFolder(ctx, node, dest); err != nil {
			e.removePartial(ctx, dest)
			return "", retention.NewActionError(r, "copy_folder", err)
		}
	} else {
		if _, err := e.copyFile(ctx, node, dest); err != nil {
			return "", retention.NewActionError(r, "copy", err)
		}
	}

	if err := e.tree.Delete(ctx, node); err != nil {
		e.logger.WarnContext(ctx, "copy verified but source could not be removed",
			"file_id", r.FileID,
			"source", node.Path,
			"destination", dest,
			"error", err,
		)
		return dest, retention.NewActionError(r, "delete_source", err)
	}

	e.logger.DebugContext(ctx, "relocated item", "file_id", r.FileID, "source", node.Path, "destination", dest)
	return dest, nil
}

// ensureDir creates every missing segment of dir.
func (e *Executor) ensureDir(ctx context.Context, dir string) error {
	cur := "/"
	for _, seg := range filetree.Segments(dir) {
		cur = filetree.Join(cur, seg)

		n, err := e.tree.Stat(ctx, cur)
		if err == nil {
			if !n.IsFolder {
				return fmt.Errorf("%w: %s", ErrNotAFolder, cur)
			}
			continue
		}
		if !errors.Is(err, filetree.ErrNotFound) {
			return err
		}

		if _, err := e.tree.CreateFolder(ctx, cur); err != nil && !errors.Is(err, filetree.ErrExists) {
			return err
		}
	}
	return nil
}

// freeName returns dir/name, or dir/base_N.ext for the first free N.
// Extensions are only split off for files.
func (e *Executor) freeName(ctx context.Context, dir, name string, isFile bool) (string, error) {
	candidate := filetree.Join(dir, name)
	taken, err := e.tree.Exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	base, ext := name, ""
	if isFile {
		ext = path.Ext(name)
		base = strings.TrimSuffix(name, ext)
	}
	for i := 1; i <= MaxNameAttempts; i++ {
		candidate = filetree.Join(dir, base+"_"+strconv.Itoa(i)+ext)
		taken, err := e.tree.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts", ErrNoFreeName, filetree.Join(dir, name), MaxNameAttempts)
}

// copyFile copies src to dest and verifies the size. A copy of the wrong
// size is removed again.
func (e *Executor) copyFile(ctx context.Context, src *filetree.Node, dest string) (*filetree.Node, error) {
	content, err := e.tree.ReadContent(ctx, src)
	if err != nil {
		return nil, err
	}
	created, err := e.tree.CreateFile(ctx, dest, content)
	if err != nil {
		return nil, err
	}
	if created.Size != src.Size {
		if derr := e.tree.Delete(ctx, created); derr != nil {
			e.logger.WarnContext(ctx, "failed to remove partial copy", "path", dest, "error", derr)
		}
		return nil, fmt.Errorf("%w: %s has %d bytes, %s has %d", ErrSizeMismatch, dest, created.Size, src.Path, src.Size)
	}
	return created, nil
}

type copyJob struct {
	src  *filetree.Node
	dest string
}

// copyFolder copies the tree below src to dest using an explicit work stack.
func (e *Executor) copyFolder(ctx context.Context, src *filetree.Node, dest string) error {
	if _, err := e.tree.CreateFolder(ctx, dest); err != nil {
		return err
	}

	visited := map[int64]bool{src.ID: true}
	stack := []copyJob{{src: src, dest: dest}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		job := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := e.tree.ListChildren(ctx, job.src)
		if err != nil {
			return err
		}
		for _, child := range children {
			if visited[child.ID] {
				return fmt.Errorf("%w: %s", ErrCycle, child.Path)
			}
			visited[child.ID] = true

			target := filetree.Join(job.dest, child.Name)
			if child.IsFolder {
				if _, err := e.tree.CreateFolder(ctx, target); err != nil {
					return err
				}
				stack = append(stack, copyJob{src: child, dest: target})
				continue
			}
			if _, err := e.copyFile(ctx, child, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// removePartial deletes whatever a failed folder copy left at dest.
func (e *Executor) removePartial(ctx context.Context, dest string) {
	n, err := e.tree.Stat(ctx, dest)
	if err != nil {
		return
	}
	if err := e.tree.Delete(ctx, n); err != nil {
		e.logger.WarnContext(ctx, "failed to remove partial folder copy", "path", dest, "error", err)
	}
}

// resolveTarget splits a move target into destination directory and name.
func resolveTarget(ctx context.Context, tree filetree.Tree, node *filetree.Node, target string) (string, string) {
	abs := absTarget(node, target)
	if strings.HasSuffix(target, "/") || abs == "/" {
		return abs, node.Name
	}
	if n, err := tree.Stat(ctx, abs); err == nil && n.IsFolder {
		return abs, node.Name
	}

	last := path.Base(abs)
	if !node.IsFolder && path.Ext(node.Name) != "" && path.Ext(last) == "" {
		return abs, node.Name
	}
	return path.Dir(abs), last
}

// absTarget resolves a relative target against the item's group folder.
func absTarget(node *filetree.Node, target string) string {
	if strings.HasPrefix(target, "/") {
		return filetree.Clean(target)
	}
	return filetree.Join(groupFolderRoot(node.Path), target)
}

// groupFolderRoot returns /__groupfolders/<id> for paths inside a group
// folder and "/" otherwise.
func groupFolderRoot(p string) string {
	segs := filetree.Segments(p)
	if len(segs) >= 2 && "/"+segs[0] == filetree.GroupFoldersRoot {
		return filetree.Join(filetree.GroupFoldersRoot, segs[1])
	}
	return "/"
}

// within reports whether p is root or lies below it.
func within(p, root string) bool {
	return p == root || strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/")
}
