// Package history builds a navigable tree of snapshots from the repository
// log and memoizes it until the next commit or restore invalidates it.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/pders01/labtrail/internal/gitrepo"
	"github.com/pders01/labtrail/internal/models"
)

// Index caches the history tree for one project. Safe for concurrent use.
type Index struct {
	gateway gitrepo.Gateway

	mu          sync.Mutex
	cached      []*models.HistoryNode
	cachedLimit int
	valid       bool
}

// NewIndex creates an index over the given gateway.
func NewIndex(gateway gitrepo.Gateway) *Index {
	return &Index{gateway: gateway}
}

// Tree returns the history nodes for up to limit snapshots, newest first.
// Parent links come from the backend's parent pointers; a node whose parent
// falls outside the fetched window becomes a synthetic root, so a truncated
// window may yield more than one root. The result is memoized until
// Invalidate is called or a different limit is requested.
func (i *Index) Tree(ctx context.Context, limit int) ([]*models.HistoryNode, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.valid && i.cachedLimit == limit {
		return i.cached, nil
	}

	snapshots, err := i.gateway.Log(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build history tree: %w", err)
	}

	nodes := buildTree(snapshots)
	i.cached = nodes
	i.cachedLimit = limit
	i.valid = true
	return nodes, nil
}

// Invalidate drops the memoized tree. The next Tree call rebuilds from the
// gateway. Idempotent.
func (i *Index) Invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.valid = false
	i.cached = nil
}

// buildTree links snapshots into nodes. Snapshots arrive newest first; the
// returned slice preserves that order. Only the first parent is linked; the
// engine's restore model never produces merge commits.
func buildTree(snapshots []models.Snapshot) []*models.HistoryNode {
	nodes := make([]*models.HistoryNode, 0, len(snapshots))
	byID := make(map[string]*models.HistoryNode, len(snapshots))

	for _, snapshot := range snapshots {
		node := &models.HistoryNode{Snapshot: snapshot}
		nodes = append(nodes, node)
		byID[snapshot.ID] = node
	}

	for _, node := range nodes {
		if len(node.Snapshot.ParentIDs) == 0 {
			continue
		}
		parentID := node.Snapshot.ParentIDs[0]
		parent, inWindow := byID[parentID]
		if !inWindow {
			// Log window truncated history; this node becomes a root.
			continue
		}
		node.ParentID = parentID
		parent.ChildIDs = append(parent.ChildIDs, node.Snapshot.ID)
	}

	return nodes
}
