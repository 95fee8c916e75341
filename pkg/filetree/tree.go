package filetree

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when no node exists at a path or id.
	ErrNotFound = errors.New("node not found")

	// ErrExists is returned when creating a node at an occupied path.
	ErrExists = errors.New("node already exists")
)

// GroupFoldersRoot is the canonical storage prefix of group folders.
const GroupFoldersRoot = "/__groupfolders"

// Node is a file or folder in the tree.
type Node struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	IsFolder bool   `json:"is_folder"`
}

// Tree is the set of file operations the retention engine needs.
type Tree interface {
	// GetByID returns the node with the given id.
	GetByID(ctx context.Context, id int64) (*Node, error)

	// Stat returns the node at an absolute path.
	Stat(ctx context.Context, p string) (*Node, error)

	// Exists reports whether a node exists at p.
	Exists(ctx context.Context, p string) (bool, error)

	// CreateFolder creates one folder. Its parent must exist.
	CreateFolder(ctx context.Context, p string) (*Node, error)

	// CreateFile creates a file with the given content. Its parent must
	// exist and p must be free.
	CreateFile(ctx context.Context, p string, content []byte) (*Node, error)

	// ReadContent returns the full content of a file node.
	ReadContent(ctx context.Context, n *Node) ([]byte, error)

	// Delete removes a node; folders are removed with their content.
	Delete(ctx context.Context, n *Node) error

	// ListChildren returns the direct children of a folder ordered by name.
	ListChildren(ctx context.Context, folder *Node) ([]*Node, error)
}

// Clean normalizes p into an absolute slash path.
func Clean(p string) string {
	return path.Clean("/" + p)
}

// Join joins path elements into an absolute slash path.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}

// FolderPath returns the canonical path of rel inside a group folder.
func FolderPath(folderID int64, rel string) string {
	return Join(GroupFoldersRoot, strconv.FormatInt(folderID, 10), rel)
}

// Resolve returns the id of the node at rel inside a group folder.
func Resolve(ctx context.Context, t Tree, folderID int64, rel string) (int64, error) {
	n, err := t.Stat(ctx, FolderPath(folderID, rel))
	if err != nil {
		return 0, err
	}
	return n.ID, nil
}

// Segments splits an absolute path into its non-empty segments.
func Segments(p string) []string {
	p = strings.Trim(Clean(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// notFound wraps ErrNotFound with the offending path or id.
func notFound(what any) error {
	return fmt.Errorf("%w: %v", ErrNotFound, what)
}

// exists wraps ErrExists with the offending path.
func exists(p string) error {
	return fmt.Errorf("%w: %s", ErrExists, p)
}
