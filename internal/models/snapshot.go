package models

import "time"

// Snapshot is an immutable record of project state at a point in time.
// Produced by the repository gateway; never mutated afterwards.
type Snapshot struct {
	ID           string    `json:"id"`
	ParentIDs    []string  `json:"parent_ids,omitempty"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Author       string    `json:"author"`
	ChangedFiles []string  `json:"changed_files,omitempty"`
}

// ShortID returns an abbreviated snapshot id suitable for display.
func (s Snapshot) ShortID() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

// HistoryNode links a snapshot into the history tree. Parent linkage comes
// from the backend's native parent pointers; ChildIDs are derived while
// building the tree.
type HistoryNode struct {
	Snapshot Snapshot `json:"snapshot"`
	ParentID string   `json:"parent_id,omitempty"`
	ChildIDs []string `json:"child_ids,omitempty"`
}

// IsRoot reports whether the node has no parent within the fetched window.
func (n *HistoryNode) IsRoot() bool {
	return n.ParentID == ""
}

// FileStatus classifies a working-tree change as reported by the backend.
type FileStatus string

const (
	StatusAdded     FileStatus = "added"
	StatusModified  FileStatus = "modified"
	StatusDeleted   FileStatus = "deleted"
	StatusRenamed   FileStatus = "renamed"
	StatusUntracked FileStatus = "untracked"
)

// FileChange is a single dirty path in the working tree.
type FileChange struct {
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`
}

// RepoStatus describes a project repository at a point in time. Recomputed
// on demand, never cached long-term.
type RepoStatus struct {
	IsRepo       bool         `json:"is_repo"`
	IsDirty      bool         `json:"is_dirty"`
	Branch       string       `json:"branch,omitempty"`
	Changes      []FileChange `json:"changes,omitempty"`
	TotalCommits int          `json:"total_commits"`
}

// FileDiff summarizes one file's change between two snapshots.
type FileDiff struct {
	Path      string     `json:"path"`
	Status    FileStatus `json:"status"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// DiffStats aggregates a diff.
type DiffStats struct {
	FilesChanged int `json:"files_changed"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// Diff is the comparison of two snapshots.
type Diff struct {
	FromID string     `json:"from_id"`
	ToID   string     `json:"to_id"`
	Files  []FileDiff `json:"files"`
	Stats  DiffStats  `json:"stats"`
	Patch  string     `json:"patch,omitempty"`
}
