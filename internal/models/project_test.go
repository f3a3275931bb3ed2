package models

import (
	"testing"
	"time"
)

func TestNewProjectMetadata(t *testing.T) {
	meta := NewProjectMetadata("Protein folding run", "third attempt")

	if meta.ID == "" {
		t.Error("expected a generated ID")
	}
	if meta.Title != "Protein folding run" {
		t.Errorf("Title = %q", meta.Title)
	}
	if !meta.Settings.AutoCommit {
		t.Error("new projects should have auto-commit on")
	}
	if meta.CreatedAt.IsZero() || !meta.CreatedAt.Equal(meta.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should both be set at creation")
	}
}

func TestProjectMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()

	meta := NewProjectMetadata("round trip", "")
	meta.Tags = []string{"biology", "2026"}
	meta.Settings.DebounceMs = 1500
	if err := meta.Save(dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := LoadProjectMetadata(dir)
	if err != nil {
		t.Fatalf("LoadProjectMetadata() error: %v", err)
	}
	if loaded.ID != meta.ID {
		t.Errorf("ID = %q, want %q", loaded.ID, meta.ID)
	}
	if len(loaded.Tags) != 2 {
		t.Errorf("Tags = %v", loaded.Tags)
	}
	if loaded.Settings.DebounceMs != 1500 {
		t.Errorf("DebounceMs = %d, want 1500", loaded.Settings.DebounceMs)
	}
}

func TestSaveBumpsUpdatedAt(t *testing.T) {
	dir := t.TempDir()

	meta := NewProjectMetadata("timestamps", "")
	created := meta.UpdatedAt
	time.Sleep(10 * time.Millisecond)
	if err := meta.Save(dir); err != nil {
		t.Fatal(err)
	}
	if !meta.UpdatedAt.After(created) {
		t.Error("Save should bump UpdatedAt")
	}
}

func TestLoadProjectMetadataMissing(t *testing.T) {
	if _, err := LoadProjectMetadata(t.TempDir()); err == nil {
		t.Fatal("expected error for missing metadata file")
	}
}

func TestAutoCommitConfigDebounce(t *testing.T) {
	cfg := AutoCommitConfig{DebounceMs: 1500}
	if got := cfg.Debounce(); got != 1500*time.Millisecond {
		t.Errorf("Debounce() = %v", got)
	}
}

func TestSnapshotShortID(t *testing.T) {
	s := Snapshot{ID: "0123456789abcdef0123456789abcdef01234567"}
	if got := s.ShortID(); got != "01234567" {
		t.Errorf("ShortID() = %q", got)
	}
	short := Snapshot{ID: "abc"}
	if got := short.ShortID(); got != "abc" {
		t.Errorf("ShortID() = %q", got)
	}
}
