package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// TempGitRepo is a throwaway git repository for gateway tests.
type TempGitRepo struct {
	Path string
	T    *testing.T
}

// NewTempGitRepo creates an initialized repository with one commit in a
// temp directory. Cleanup happens via t.TempDir.
func NewTempGitRepo(t *testing.T) *TempGitRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}

	repo := &TempGitRepo{Path: t.TempDir(), T: t}

	repo.Git("init")
	repo.Git("config", "user.name", "Test User")
	repo.Git("config", "user.email", "test@example.com")

	repo.CreateFile("README.md", "# Test Project\n")
	repo.Git("add", ".")
	repo.Git("commit", "-m", "Initial commit")

	return repo
}

// Git runs a git command in the repository and returns stdout.
func (r *TempGitRepo) Git(args ...string) string {
	r.T.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	output, err := cmd.CombinedOutput()
	if err != nil {
		r.T.Fatalf("git %v failed: %v\n%s", args, err, output)
	}
	return strings.TrimSpace(string(output))
}

// CreateFile writes a file in the repository, creating parent directories.
func (r *TempGitRepo) CreateFile(name, content string) {
	r.T.Helper()

	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// RemoveFile deletes a file from the working tree.
func (r *TempGitRepo) RemoveFile(name string) {
	r.T.Helper()
	if err := os.Remove(filepath.Join(r.Path, name)); err != nil {
		r.T.Fatalf("failed to remove file: %v", err)
	}
}

// ReadFile returns working-tree file content.
func (r *TempGitRepo) ReadFile(name string) string {
	r.T.Helper()

	data, err := os.ReadFile(filepath.Join(r.Path, name))
	if err != nil {
		r.T.Fatalf("failed to read file: %v", err)
	}
	return string(data)
}

// FileExists checks whether a path exists in the working tree.
func (r *TempGitRepo) FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(r.Path, name))
	return err == nil
}

// Commit stages and commits all changes, returning the new commit hash.
func (r *TempGitRepo) Commit(message string) string {
	r.T.Helper()

	r.Git("add", "-A")
	r.Git("commit", "-m", message)
	return r.Head()
}

// Head returns the current HEAD commit hash.
func (r *TempGitRepo) Head() string {
	r.T.Helper()
	return r.Git("rev-parse", "HEAD")
}

// CommitCount returns the number of commits on HEAD.
func (r *TempGitRepo) CommitCount() int {
	r.T.Helper()

	count, err := strconv.Atoi(r.Git("rev-list", "--count", "HEAD"))
	if err != nil {
		r.T.Fatalf("failed to parse commit count: %v", err)
	}
	return count
}
