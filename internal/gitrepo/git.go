package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/labtrail/internal/models"
)

// Log record/field separators for parsing git log output.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

const defaultLogLimit = 200

// Ensure both backends satisfy the gateway contract.
var (
	_ Gateway = (*GitGateway)(nil)
	_ Gateway = (*MemGateway)(nil)
)

// GitGateway implements Gateway by shelling out to the git executable,
// scoped to a single project directory.
type GitGateway struct {
	path string
}

// NewGitGateway creates a gateway for the given project directory.
func NewGitGateway(path string) *GitGateway {
	return &GitGateway{path: path}
}

// Path returns the project directory this gateway operates on.
func (g *GitGateway) Path() string {
	return g.path
}

// run executes a git command in the project directory and returns stdout.
func (g *GitGateway) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.path
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(output), nil
}

// Init initializes the repository and makes sure commits can be authored.
func (g *GitGateway) Init(ctx context.Context) error {
	info, err := os.Stat(g.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRepoInit, g.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoInit, g.path)
	}

	if _, err := g.run(ctx, "init"); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRepoInit, g.path, err)
	}

	// Commits need an identity; fall back to a local one when the host has
	// no global git config.
	if _, err := g.run(ctx, "config", "user.name"); err != nil {
		if _, err := g.run(ctx, "config", "user.name", "labtrail"); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRepoInit, g.path, err)
		}
		if _, err := g.run(ctx, "config", "user.email", "labtrail@localhost"); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRepoInit, g.path, err)
		}
	}

	return nil
}

// IsRepo checks whether the project directory is a git repository.
func (g *GitGateway) IsRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = g.path
	return cmd.Run() == nil
}

// Status describes the working tree. Not-a-repo is reported, not an error.
func (g *GitGateway) Status(ctx context.Context) (models.RepoStatus, error) {
	if !g.IsRepo() {
		return models.RepoStatus{IsRepo: false}, nil
	}

	status := models.RepoStatus{IsRepo: true}

	porcelain, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return status, fmt.Errorf("failed to get status: %w", err)
	}
	status.Changes = parsePorcelain(porcelain)
	status.IsDirty = len(status.Changes) > 0

	// Both fail on a repo with no commits yet; that is a valid state.
	if branch, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		status.Branch = strings.TrimSpace(branch)
	}
	if count, err := g.run(ctx, "rev-list", "--count", "HEAD"); err == nil {
		status.TotalCommits, _ = strconv.Atoi(strings.TrimSpace(count))
	}

	return status, nil
}

// Commit stages everything and records a snapshot.
func (g *GitGateway) Commit(ctx context.Context, message string) (models.Snapshot, error) {
	porcelain, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCommitIO, g.path, err)
	}
	changes := parsePorcelain(porcelain)
	if len(changes) == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrNoChanges, g.path)
	}

	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCommitIO, g.path, err)
	}
	// --no-verify: snapshot commits must not be blocked by user hooks.
	if _, err := g.run(ctx, "commit", "--no-verify", "-m", message); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCommitIO, g.path, err)
	}

	snapshot, err := g.head(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCommitIO, g.path, err)
	}
	for _, c := range changes {
		snapshot.ChangedFiles = append(snapshot.ChangedFiles, c.Path)
	}
	return snapshot, nil
}

// Log returns up to limit snapshots, newest first. An empty repository
// yields an empty slice.
func (g *GitGateway) Log(ctx context.Context, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	format := strings.Join([]string{"%H", "%P", "%an", "%aI", "%s"}, fieldSep) + recordSep
	output, err := g.run(ctx, "log", "-n", strconv.Itoa(limit), "--pretty=format:"+format)
	if err != nil {
		if !g.hasCommits(ctx) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	return parseLog(output), nil
}

// Checkout overwrites index and working tree to match the snapshot. Tracked
// files absent from the snapshot are removed; untracked files are left alone.
func (g *GitGateway) Checkout(ctx context.Context, snapshotID string) error {
	if err := g.verifySnapshot(ctx, snapshotID); err != nil {
		return err
	}
	if _, err := g.run(ctx, "read-tree", "-u", "--reset", snapshotID); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", snapshotID, err)
	}
	return nil
}

// Diff compares two snapshots.
func (g *GitGateway) Diff(ctx context.Context, fromID, toID string) (models.Diff, error) {
	if err := g.verifySnapshot(ctx, fromID); err != nil {
		return models.Diff{}, err
	}
	if err := g.verifySnapshot(ctx, toID); err != nil {
		return models.Diff{}, err
	}

	diff := models.Diff{FromID: fromID, ToID: toID}

	numstat, err := g.run(ctx, "diff", "--numstat", fromID, toID)
	if err != nil {
		return diff, fmt.Errorf("failed to diff %s..%s: %w", fromID, toID, err)
	}
	nameStatus, err := g.run(ctx, "diff", "--name-status", fromID, toID)
	if err != nil {
		return diff, fmt.Errorf("failed to diff %s..%s: %w", fromID, toID, err)
	}
	patch, err := g.run(ctx, "diff", fromID, toID)
	if err != nil {
		return diff, fmt.Errorf("failed to diff %s..%s: %w", fromID, toID, err)
	}

	diff.Files = parseNumstat(numstat, parseNameStatus(nameStatus))
	diff.Patch = patch
	for _, f := range diff.Files {
		diff.Stats.FilesChanged++
		diff.Stats.Additions += f.Additions
		diff.Stats.Deletions += f.Deletions
	}
	return diff, nil
}

// ReadFileAt returns file content as of a snapshot.
func (g *GitGateway) ReadFileAt(ctx context.Context, snapshotID, path string) (string, error) {
	if err := g.verifySnapshot(ctx, snapshotID); err != nil {
		return "", err
	}
	output, err := g.run(ctx, "show", snapshotID+":"+path)
	if err != nil {
		return "", fmt.Errorf("%w: %s@%s", ErrFileNotFoundAtSnapshot, path, snapshotID)
	}
	return output, nil
}

// head reads the snapshot at HEAD.
func (g *GitGateway) head(ctx context.Context) (models.Snapshot, error) {
	format := strings.Join([]string{"%H", "%P", "%an", "%aI", "%s"}, fieldSep) + recordSep
	output, err := g.run(ctx, "log", "-1", "--pretty=format:"+format)
	if err != nil {
		return models.Snapshot{}, err
	}
	snapshots := parseLog(output)
	if len(snapshots) == 0 {
		return models.Snapshot{}, fmt.Errorf("no commits found")
	}
	return snapshots[0], nil
}

func (g *GitGateway) hasCommits(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "HEAD")
	return err == nil
}

func (g *GitGateway) verifySnapshot(ctx context.Context, snapshotID string) error {
	if snapshotID == "" {
		return fmt.Errorf("%w: empty id", ErrSnapshotNotFound)
	}
	if _, err := g.run(ctx, "cat-file", "-e", snapshotID+"^{commit}"); err != nil {
		return fmt.Errorf("%w: %s in %s", ErrSnapshotNotFound, snapshotID, g.path)
	}
	return nil
}

// parseLog parses record-separated git log output into snapshots.
func parseLog(output string) []models.Snapshot {
	var snapshots []models.Snapshot
	for _, record := range strings.Split(output, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		fields := strings.Split(record, fieldSep)
		if len(fields) < 5 {
			continue
		}

		snapshot := models.Snapshot{
			ID:      fields[0],
			Author:  fields[2],
			Message: fields[4],
		}
		if fields[1] != "" {
			snapshot.ParentIDs = strings.Fields(fields[1])
		}
		if ts, err := time.Parse(time.RFC3339, fields[3]); err == nil {
			snapshot.Timestamp = ts
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// parsePorcelain parses `git status --porcelain` output.
func parsePorcelain(output string) []models.FileChange {
	var changes []models.FileChange
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"; keep the new path.
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)
		changes = append(changes, models.FileChange{Path: path, Status: porcelainStatus(code)})
	}
	return changes
}

func porcelainStatus(code string) models.FileStatus {
	switch {
	case code == "??":
		return models.StatusUntracked
	case strings.Contains(code, "A"):
		return models.StatusAdded
	case strings.Contains(code, "D"):
		return models.StatusDeleted
	case strings.Contains(code, "R"):
		return models.StatusRenamed
	default:
		return models.StatusModified
	}
}

// parseNameStatus parses `git diff --name-status` output into a path → status map.
func parseNameStatus(output string) map[string]models.FileStatus {
	statuses := make(map[string]models.FileStatus)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		path := fields[len(fields)-1]
		switch fields[0][0] {
		case 'A':
			statuses[path] = models.StatusAdded
		case 'D':
			statuses[path] = models.StatusDeleted
		case 'R':
			statuses[path] = models.StatusRenamed
		default:
			statuses[path] = models.StatusModified
		}
	}
	return statuses
}

// parseNumstat parses `git diff --numstat` output. Binary files report "-"
// counts and are kept with zero line counts.
func parseNumstat(output string, statuses map[string]models.FileStatus) []models.FileDiff {
	var files []models.FileDiff
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		path := fields[len(fields)-1]
		file := models.FileDiff{Path: path, Status: models.StatusModified}
		if s, ok := statuses[path]; ok {
			file.Status = s
		}
		file.Additions, _ = strconv.Atoi(fields[0])
		file.Deletions, _ = strconv.Atoi(fields[1])
		files = append(files, file)
	}
	return files
}
