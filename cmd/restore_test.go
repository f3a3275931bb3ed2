package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRestoreCommand(t *testing.T) {
	dir := initProject(t)
	notes := filepath.Join(dir, "notes", "day1.md")

	if err := os.WriteFile(notes, []byte("version one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := runSave(testCmd(), []string{"v1"}); err != nil {
		t.Fatal(err)
	}
	target := headID(t, dir)

	if err := os.WriteFile(notes, []byte("version two\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := runSave(testCmd(), []string{"v2"}); err != nil {
		t.Fatal(err)
	}

	restoreRequireClean = false
	if err := runRestore(testCmd(), []string{target}); err != nil {
		t.Fatalf("restore command failed: %v", err)
	}

	content, err := os.ReadFile(notes)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "version one\n" {
		t.Errorf("content after restore = %q", content)
	}

	// The restore was recorded as a new snapshot, not a history rewrite.
	service, _ := registry.Get(dir)
	snapshots, err := service.Snapshots(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 4 {
		t.Errorf("expected 4 snapshots after restore, got %d", len(snapshots))
	}
}

func TestRestoreRequireCleanRejectsDirtyTree(t *testing.T) {
	dir := initProject(t)
	notes := filepath.Join(dir, "notes", "day1.md")

	if err := os.WriteFile(notes, []byte("version one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := runSave(testCmd(), []string{"v1"}); err != nil {
		t.Fatal(err)
	}
	target := headID(t, dir)

	// Leave the tree dirty
	if err := os.WriteFile(notes, []byte("unsaved work\n"), 0644); err != nil {
		t.Fatal(err)
	}

	restoreRequireClean = true
	defer func() { restoreRequireClean = false }()

	if err := runRestore(testCmd(), []string{target}); err == nil {
		t.Error("expected rejection with --require-clean on a dirty tree")
	}

	content, err := os.ReadFile(notes)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "unsaved work\n" {
		t.Error("dirty tree was modified by a rejected restore")
	}
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	initProject(t)

	restoreRequireClean = false
	if err := runRestore(testCmd(), []string{"deadbeef"}); err == nil {
		t.Error("expected error for unknown snapshot id")
	}
}
