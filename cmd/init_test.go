package cmd

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/pders01/labtrail/internal/config"
	"github.com/pders01/labtrail/internal/models"
)

// testCmd returns a command carrying a context, as cobra would during
// Execute.
func testCmd() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

// initProject runs the init command against a fresh temp directory and
// returns its path. Skips when no git executable is available.
func initProject(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	config.SetDefaults()

	dir := t.TempDir()
	projectPath = dir
	initTitle = ""
	initDescription = ""

	if err := runInit(testCmd(), []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	t.Cleanup(func() { registry.Close(dir) })
	return projectPath
}

func TestInitCommand(t *testing.T) {
	dir := initProject(t)

	// Standard layout plus metadata
	for _, sub := range []string{"docs", "data", "notes"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("%s directory was not created: %v", sub, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, models.MetadataFile)); err != nil {
		t.Errorf("%s was not created: %v", models.MetadataFile, err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		t.Error("repository was not initialized")
	}

	meta, err := models.LoadProjectMetadata(dir)
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}
	if meta.Title != filepath.Base(dir) {
		t.Errorf("title = %q, want directory name %q", meta.Title, filepath.Base(dir))
	}

	// The initial snapshot was recorded
	service, ok := registry.Get(dir)
	if !ok {
		t.Fatal("project not open after init")
	}
	snapshots, err := service.Snapshots(context.Background(), 10)
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].Message != "Initial snapshot" {
		t.Errorf("initial snapshot message = %q", snapshots[0].Message)
	}
}

func TestInitWithTitle(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}

	dir := t.TempDir()
	projectPath = dir
	initTitle = "Enzyme kinetics"
	initDescription = "wet lab notes"

	if err := runInit(testCmd(), []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	t.Cleanup(func() { registry.Close(dir) })

	meta, err := models.LoadProjectMetadata(dir)
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}
	if meta.Title != "Enzyme kinetics" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != "wet lab notes" {
		t.Errorf("description = %q", meta.Description)
	}
}

func TestInitAlreadyInitialized(t *testing.T) {
	dir := initProject(t)

	projectPath = dir
	if err := runInit(testCmd(), []string{}); err == nil {
		t.Error("expected error when project is already initialized")
	}
}

func TestInitExistingFilesIncluded(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "prior.md"), []byte("pre-existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	projectPath = dir
	initTitle = ""
	initDescription = ""
	if err := runInit(testCmd(), []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	t.Cleanup(func() { registry.Close(dir) })

	service, _ := registry.Get(dir)
	content, err := service.FileAtSnapshot(context.Background(), headID(t, dir), "prior.md")
	if err != nil {
		t.Fatalf("prior.md not in initial snapshot: %v", err)
	}
	if content != "pre-existing\n" {
		t.Errorf("content = %q", content)
	}
}

func headID(t *testing.T, dir string) string {
	t.Helper()

	service, ok := registry.Get(dir)
	if !ok {
		t.Fatal("project not open")
	}
	snapshots, err := service.Snapshots(context.Background(), 1)
	if err != nil || len(snapshots) == 0 {
		t.Fatalf("failed to resolve head snapshot: %v", err)
	}
	return snapshots[0].ID
}
