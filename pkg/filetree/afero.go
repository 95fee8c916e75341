package filetree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/spf13/afero"
)

// AferoTree is a Tree backed by an afero filesystem.
type AferoTree struct {
	fs    afero.Fs
	index Index
}

// NewAferoTree creates a tree over fsys. A nil index gets a MemoryIndex.
func NewAferoTree(fsys afero.Fs, index Index) *AferoTree {
	if index == nil {
		index = NewMemoryIndex()
	}
	return &AferoTree{fs: fsys, index: index}
}

// NewLocalTree roots a tree at a directory on disk.
func NewLocalTree(root string, index Index) (*AferoTree, error) {
	base := afero.NewOsFs()
	if err := base.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create tree root %s: %w", root, err)
	}
	return NewAferoTree(afero.NewBasePathFs(base, root), index), nil
}

// Fs exposes the underlying filesystem.
func (t *AferoTree) Fs() afero.Fs {
	return t.fs
}

// GetByID implements Tree.
func (t *AferoTree) GetByID(ctx context.Context, id int64) (*Node, error) {
	p, err := t.index.Path(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.Stat(ctx, p)
}

// Stat implements Tree.
func (t *AferoTree) Stat(ctx context.Context, p string) (*Node, error) {
	p = Clean(p)
	info, err := t.fs.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(p)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	return t.node(ctx, p, info)
}

func (t *AferoTree) node(ctx context.Context, p string, info fs.FileInfo) (*Node, error) {
	id, err := t.index.ID(ctx, p)
	if err != nil {
		return nil, err
	}
	n := &Node{
		ID:       id,
		Path:     p,
		Name:     info.Name(),
		IsFolder: info.IsDir(),
	}
	if p == "/" {
		n.Name = ""
	}
	if !n.IsFolder {
		n.Size = info.Size()
	}
	return n, nil
}

// Exists implements Tree.
func (t *AferoTree) Exists(ctx context.Context, p string) (bool, error) {
	return afero.Exists(t.fs, Clean(p))
}

// CreateFolder implements Tree.
func (t *AferoTree) CreateFolder(ctx context.Context, p string) (*Node, error) {
	p = Clean(p)
	if ok, err := t.Exists(ctx, p); err != nil {
		return nil, err
	} else if ok {
		return nil, exists(p)
	}
	if err := t.requireParent(p); err != nil {
		return nil, err
	}
	if err := t.fs.Mkdir(p, 0o755); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", p, err)
	}
	return t.Stat(ctx, p)
}

// CreateFile implements Tree.
func (t *AferoTree) CreateFile(ctx context.Context, p string, content []byte) (*Node, error) {
	p = Clean(p)
	if err := t.requireParent(p); err != nil {
		return nil, err
	}
	f, err := t.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, exists(p)
	}
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", p, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return nil, fmt.Errorf("write file %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file %s: %w", p, err)
	}
	return t.Stat(ctx, p)
}

// requireParent fails unless the parent of p is an existing folder.
// MemMapFs would otherwise create missing parents implicitly.
func (t *AferoTree) requireParent(p string) error {
	parent := path.Dir(p)
	info, err := t.fs.Stat(parent)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(parent)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", parent, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("parent %s is not a folder", parent)
	}
	return nil
}

// ReadContent implements Tree.
func (t *AferoTree) ReadContent(ctx context.Context, n *Node) ([]byte, error) {
	if n.IsFolder {
		return nil, fmt.Errorf("read %s: is a folder", n.Path)
	}
	b, err := afero.ReadFile(t.fs, n.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(n.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", n.Path, err)
	}
	return b, nil
}

// Delete implements Tree.
func (t *AferoTree) Delete(ctx context.Context, n *Node) error {
	if ok, err := t.Exists(ctx, n.Path); err != nil {
		return err
	} else if !ok {
		return notFound(n.Path)
	}
	if err := t.fs.RemoveAll(n.Path); err != nil {
		return fmt.Errorf("delete %s: %w", n.Path, err)
	}
	return t.index.Forget(ctx, n.Path)
}

// ListChildren implements Tree.
func (t *AferoTree) ListChildren(ctx context.Context, folder *Node) ([]*Node, error) {
	infos, err := afero.ReadDir(t.fs, folder.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(folder.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder.Path, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	children := make([]*Node, 0, len(infos))
	for _, info := range infos {
		n, err := t.node(ctx, Join(folder.Path, info.Name()), info)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return children, nil
}

var _ Tree = (*AferoTree)(nil)
