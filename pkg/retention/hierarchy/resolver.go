package hierarchy

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"mercator-hq/custodian/pkg/filetree"
	"mercator-hq/custodian/pkg/retention"
)

// RetentionLookup batch-fetches retention records by item id.
type RetentionLookup interface {
	RetentionsForFiles(ctx context.Context, fileIDs []int64) ([]*retention.FileRetention, error)
}

// PathStatus is the classification of one candidate path.
type PathStatus struct {
	Path   string `json:"path"`
	FileID int64  `json:"file_id"`

	// Blocked is true when an ancestor carries a retention; Allowed is its
	// negation and is kept for callers that render both states.
	Blocked bool `json:"blocked"`
	Allowed bool `json:"allowed"`

	BlockingPath      string                   `json:"blocking_path,omitempty"`
	BlockingRetention *retention.FileRetention `json:"blocking_retention,omitempty"`

	HasOwnRetention bool                     `json:"has_own_retention"`
	OwnRetention    *retention.FileRetention `json:"own_retention,omitempty"`
}

// depth is the number of path segments.
func (s *PathStatus) depth() int {
	return len(filetree.Segments(s.Path))
}

// BatchResult is the outcome of CheckRetentionBatch.
type BatchResult struct {
	// Items holds the resolved paths ordered by depth, shallowest first.
	Items []*PathStatus `json:"items"`

	// CurrentPath is the deepest resolved path, the item being viewed.
	CurrentPath      string                   `json:"current_path,omitempty"`
	CurrentRetention *retention.FileRetention `json:"current_retention,omitempty"`

	// ChildrenBlocked reports that descendants of CurrentPath may not get
	// their own retention, and ChildrenBlockingPath names the covering item.
	ChildrenBlocked      bool   `json:"children_blocked"`
	ChildrenBlockingPath string `json:"children_blocking_path,omitempty"`
}

// Status returns the classification of p, or nil if p did not resolve.
func (r *BatchResult) Status(p string) *PathStatus {
	p = filetree.Clean(p)
	for _, s := range r.Items {
		if s.Path == p {
			return s
		}
	}
	return nil
}

// Resolver classifies paths against stored retentions.
type Resolver struct {
	tree   filetree.Tree
	store  RetentionLookup
	logger *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(tree filetree.Tree, store RetentionLookup) *Resolver {
	return &Resolver{
		tree:   tree,
		store:  store,
		logger: slog.Default().With("component", "retention.hierarchy"),
	}
}

// GetParentPaths returns the ancestors of p, immediate parent first. Neither
// p itself nor the root "/" is included: "/a/b/c" gives ["/a/b", "/a"].
func GetParentPaths(p string) []string {
	segments := filetree.Segments(p)
	if len(segments) < 2 {
		return []string{}
	}
	parents := make([]string, 0, len(segments)-1)
	for i := len(segments) - 1; i >= 1; i-- {
		parents = append(parents, "/"+strings.Join(segments[:i], "/"))
	}
	return parents
}

// CheckRetentionBatch classifies paths relative to a group folder.
// Paths that do not resolve to an item are dropped from the result.
func (r *Resolver) CheckRetentionBatch(ctx context.Context, paths []string, folderID int64) (*BatchResult, error) {
	statuses := make([]*PathStatus, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		p = filetree.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true

		id, err := filetree.Resolve(ctx, r.tree, folderID, p)
		if err != nil {
			r.logger.Debug("path did not resolve", "folder_id", folderID, "path", p, "error", err)
			continue
		}
		statuses = append(statuses, &PathStatus{Path: p, FileID: id})
	}

	result := &BatchResult{Items: statuses}
	if len(statuses) == 0 {
		return result, nil
	}

	// Ancestors outside the input still block, so they are resolved too.
	idOf := make(map[string]int64, len(statuses))
	for _, s := range statuses {
		idOf[s.Path] = s.FileID
	}
	for _, s := range statuses {
		for _, parent := range GetParentPaths(s.Path) {
			if _, ok := idOf[parent]; ok {
				continue
			}
			id, err := filetree.Resolve(ctx, r.tree, folderID, parent)
			if err != nil {
				continue
			}
			idOf[parent] = id
		}
	}

	byPath, err := r.blockingByPath(ctx, idOf)
	if err != nil {
		return nil, err
	}
	for _, s := range statuses {
		if rec, ok := byPath[s.Path]; ok {
			s.HasOwnRetention = true
			s.OwnRetention = rec
		}
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		di, dj := statuses[i].depth(), statuses[j].depth()
		if di != dj {
			return di < dj
		}
		return statuses[i].Path < statuses[j].Path
	})

	current := statuses[len(statuses)-1]
	result.CurrentPath = current.Path
	result.CurrentRetention = current.OwnRetention

	for _, s := range statuses {
		for _, parent := range GetParentPaths(s.Path) {
			if rec, ok := byPath[parent]; ok {
				s.Blocked = true
				s.BlockingPath = parent
				s.BlockingRetention = rec
				break
			}
		}
		s.Allowed = !s.Blocked
	}

	switch {
	case current.Blocked:
		result.ChildrenBlocked = true
		result.ChildrenBlockingPath = current.BlockingPath
	case current.HasOwnRetention:
		result.ChildrenBlocked = true
		result.ChildrenBlockingPath = current.Path
	}

	return result, nil
}

// BlockingAncestor returns the nearest ancestor of the item that carries a
// blocking retention. It returns nil when the item is free.
func (r *Resolver) BlockingAncestor(ctx context.Context, fileID int64) (*PathStatus, error) {
	node, err := r.tree.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	parents := GetParentPaths(node.Path)
	idOf := make(map[string]int64, len(parents))
	for _, p := range parents {
		n, err := r.tree.Stat(ctx, p)
		if err != nil {
			continue
		}
		idOf[p] = n.ID
	}
	if len(idOf) == 0 {
		return nil, nil
	}

	byPath, err := r.blockingByPath(ctx, idOf)
	if err != nil {
		return nil, err
	}
	for _, p := range parents {
		if rec, ok := byPath[p]; ok {
			return &PathStatus{
				Path:              node.Path,
				FileID:            fileID,
				Blocked:           true,
				BlockingPath:      p,
				BlockingRetention: rec,
			}, nil
		}
	}
	return nil, nil
}

// blockingByPath fetches the retentions of the items in idOf in one batch
// and keys the blocking ones by path.
func (r *Resolver) blockingByPath(ctx context.Context, idOf map[string]int64) (map[string]*retention.FileRetention, error) {
	ids := make([]int64, 0, len(idOf))
	for _, id := range idOf {
		ids = append(ids, id)
	}
	records, err := r.store.RetentionsForFiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*retention.FileRetention, len(records))
	for _, rec := range records {
		if rec.Blocking() {
			byID[rec.FileID] = rec
		}
	}

	byPath := make(map[string]*retention.FileRetention, len(byID))
	for p, id := range idOf {
		if rec, ok := byID[id]; ok {
			byPath[p] = rec
		}
	}
	return byPath, nil
}
