package policies

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"mercator-hq/custodian/pkg/filetree"
	"mercator-hq/custodian/pkg/retention"
)

// userMountDepth is the segment index of the mount point in a user path
// of the form /<user>/files/<mount>/...
const userMountDepth = 2

// FolderDirectory resolves group folder mount points to folder ids.
type FolderDirectory interface {
	FolderIDByMountPoint(ctx context.Context, mountPoint string) (int64, error)
}

// FolderPolicies returns the active policies of a group folder.
type FolderPolicies interface {
	PoliciesForFolder(ctx context.Context, folderID int64) ([]*retention.Policy, error)
}

// Matcher finds the policy that governs an item.
//
// An item belongs to at most one group folder, derived from its path. The
// governing policy is the first active policy assigned to that folder in
// name order, ties broken by id.
type Matcher struct {
	tree     filetree.Tree
	folders  FolderDirectory
	policies FolderPolicies
	logger   *slog.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(tree filetree.Tree, folders FolderDirectory, policies FolderPolicies) *Matcher {
	return &Matcher{
		tree:     tree,
		folders:  folders,
		policies: policies,
		logger:   slog.Default().With("component", "retention.matcher"),
	}
}

// FindPolicyForFile returns the governing policy of an item. It returns a
// NotFoundError when the item is outside every group folder or its folder
// has no active policy.
func (m *Matcher) FindPolicyForFile(ctx context.Context, fileID int64) (*retention.Policy, error) {
	node, err := m.tree.GetByID(ctx, fileID)
	if errors.Is(err, filetree.ErrNotFound) {
		return nil, retention.NewNotFoundError("file", fileID, err.Error())
	}
	if err != nil {
		se := retention.NewStorageError("filetree", "get", err)
		se.FileID = fileID
		return nil, se
	}

	folderID, err := m.FolderForPath(ctx, node.Path)
	if err != nil {
		return nil, err
	}

	candidates, err := m.policies.PoliciesForFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, retention.NewNotFoundError("policy", nil,
			"no active policy for group folder "+strconv.FormatInt(folderID, 10))
	}

	m.logger.Debug("policy matched",
		"file_id", fileID,
		"folder_id", folderID,
		"policy_id", candidates[0].ID,
		"candidates", len(candidates),
	)
	return candidates[0], nil
}

// FolderForPath derives the group folder of a path. Canonical storage paths
// /__groupfolders/<id>/... carry the id; user paths /<user>/files/<mount>/...
// are resolved through the folder directory.
func (m *Matcher) FolderForPath(ctx context.Context, p string) (int64, error) {
	segments := filetree.Segments(p)

	if len(segments) >= 2 && "/"+segments[0] == filetree.GroupFoldersRoot {
		id, err := strconv.ParseInt(segments[1], 10, 64)
		if err != nil || id <= 0 {
			return 0, retention.NewNotFoundError("group_folder", segments[1], "invalid group folder id in "+p)
		}
		return id, nil
	}

	if len(segments) > userMountDepth && segments[1] == "files" {
		return m.folders.FolderIDByMountPoint(ctx, segments[userMountDepth])
	}

	return 0, retention.NewNotFoundError("group_folder", nil, p+" is not inside a group folder")
}
