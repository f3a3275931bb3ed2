package gitrepo

import (
	"context"
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pders01/labtrail/internal/models"
)

// MemGateway is an in-memory Gateway. It backs tests and hosts where no git
// executable is available, with the same contract as GitGateway: snapshots
// are content-addressed and immutable, the working tree is mutable.
type MemGateway struct {
	mu          sync.Mutex
	path        string
	initialized bool
	worktree    map[string]string
	snapshots   []memSnapshot
	byID        map[string]int
	headID      string
	author      string

	// CommitErr, when set, makes the next Commit fail. Test hook for the
	// scheduler's retry path.
	CommitErr error
}

type memSnapshot struct {
	snapshot models.Snapshot
	files    map[string]string
}

// NewMemGateway creates an empty in-memory repository handle.
func NewMemGateway(path string) *MemGateway {
	return &MemGateway{
		path:     path,
		worktree: make(map[string]string),
		byID:     make(map[string]int),
		author:   "labtrail",
	}
}

// WriteFile mutates the working tree.
func (m *MemGateway) WriteFile(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worktree[path] = content
}

// RemoveFile deletes a path from the working tree.
func (m *MemGateway) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worktree, path)
}

// ReadFile returns current working-tree content.
func (m *MemGateway) ReadFile(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.worktree[path]
	return content, ok
}

func (m *MemGateway) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

func (m *MemGateway) IsRepo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

func (m *MemGateway) Status(ctx context.Context) (models.RepoStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return models.RepoStatus{IsRepo: false}, nil
	}

	status := models.RepoStatus{
		IsRepo:       true,
		Branch:       "main",
		TotalCommits: len(m.snapshots),
	}
	status.Changes = m.pendingChanges()
	status.IsDirty = len(status.Changes) > 0
	return status, nil
}

func (m *MemGateway) Commit(ctx context.Context, message string) (models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CommitErr != nil {
		err := m.CommitErr
		m.CommitErr = nil
		return models.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCommitIO, m.path, err)
	}

	changes := m.pendingChanges()
	if len(changes) == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrNoChanges, m.path)
	}

	files := make(map[string]string, len(m.worktree))
	for path, content := range m.worktree {
		files[path] = content
	}

	snapshot := models.Snapshot{
		Message:   message,
		Timestamp: time.Now(),
		Author:    m.author,
	}
	if m.headID != "" {
		snapshot.ParentIDs = []string{m.headID}
	}
	for _, c := range changes {
		snapshot.ChangedFiles = append(snapshot.ChangedFiles, c.Path)
	}
	snapshot.ID = contentHash(m.headID, message, files)

	m.byID[snapshot.ID] = len(m.snapshots)
	m.snapshots = append(m.snapshots, memSnapshot{snapshot: snapshot, files: files})
	m.headID = snapshot.ID
	return snapshot, nil
}

func (m *MemGateway) Log(ctx context.Context, limit int) ([]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = defaultLogLimit
	}

	var snapshots []models.Snapshot
	for i := len(m.snapshots) - 1; i >= 0 && len(snapshots) < limit; i-- {
		snapshots = append(snapshots, m.snapshots[i].snapshot)
	}
	return snapshots, nil
}

func (m *MemGateway) Checkout(ctx context.Context, snapshotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byID[snapshotID]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrSnapshotNotFound, snapshotID, m.path)
	}

	m.worktree = make(map[string]string, len(m.snapshots[idx].files))
	for path, content := range m.snapshots[idx].files {
		m.worktree[path] = content
	}
	return nil
}

func (m *MemGateway) Diff(ctx context.Context, fromID, toID string) (models.Diff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.byID[fromID]
	if !ok {
		return models.Diff{}, fmt.Errorf("%w: %s in %s", ErrSnapshotNotFound, fromID, m.path)
	}
	to, ok := m.byID[toID]
	if !ok {
		return models.Diff{}, fmt.Errorf("%w: %s in %s", ErrSnapshotNotFound, toID, m.path)
	}

	diff := models.Diff{FromID: fromID, ToID: toID}
	fromFiles := m.snapshots[from].files
	toFiles := m.snapshots[to].files

	for _, path := range sortedPaths(fromFiles, toFiles) {
		before, inFrom := fromFiles[path]
		after, inTo := toFiles[path]
		switch {
		case !inFrom:
			diff.Files = append(diff.Files, models.FileDiff{
				Path: path, Status: models.StatusAdded, Additions: lineCount(after),
			})
		case !inTo:
			diff.Files = append(diff.Files, models.FileDiff{
				Path: path, Status: models.StatusDeleted, Deletions: lineCount(before),
			})
		case before != after:
			diff.Files = append(diff.Files, models.FileDiff{
				Path: path, Status: models.StatusModified,
				Additions: lineCount(after), Deletions: lineCount(before),
			})
		}
	}
	for _, f := range diff.Files {
		diff.Stats.FilesChanged++
		diff.Stats.Additions += f.Additions
		diff.Stats.Deletions += f.Deletions
	}
	return diff, nil
}

func (m *MemGateway) ReadFileAt(ctx context.Context, snapshotID, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byID[snapshotID]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrSnapshotNotFound, snapshotID, m.path)
	}
	content, ok := m.snapshots[idx].files[path]
	if !ok {
		return "", fmt.Errorf("%w: %s@%s", ErrFileNotFoundAtSnapshot, path, snapshotID)
	}
	return content, nil
}

// pendingChanges diffs the working tree against HEAD. Caller holds the lock.
func (m *MemGateway) pendingChanges() []models.FileChange {
	var head map[string]string
	if m.headID != "" {
		head = m.snapshots[m.byID[m.headID]].files
	}

	var changes []models.FileChange
	for _, path := range sortedPaths(head, m.worktree) {
		before, committed := head[path]
		after, present := m.worktree[path]
		switch {
		case !committed:
			changes = append(changes, models.FileChange{Path: path, Status: models.StatusUntracked})
		case !present:
			changes = append(changes, models.FileChange{Path: path, Status: models.StatusDeleted})
		case before != after:
			changes = append(changes, models.FileChange{Path: path, Status: models.StatusModified})
		}
	}
	return changes
}

func contentHash(parentID, message string, files map[string]string) string {
	h := sha1.New()
	fmt.Fprintf(h, "parent %s\nmessage %s\ntime %d\n", parentID, message, time.Now().UnixNano())
	for _, path := range sortedPaths(files, nil) {
		fmt.Fprintf(h, "%s\x00%s\x00", path, files[path])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func sortedPaths(a, b map[string]string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var paths []string
	for path := range a {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for path := range b {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}
