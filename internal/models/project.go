package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// MetadataFile is the name of the per-project metadata file.
const MetadataFile = "research.json"

// ProjectSettings holds the persisted per-project engine settings.
type ProjectSettings struct {
	AutoCommit     bool     `json:"auto_commit"`
	DebounceMs     int      `json:"debounce_ms,omitempty"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`
	MaxAutoCommits int      `json:"max_auto_commits,omitempty"`
	BackupEnabled  bool     `json:"backup_enabled"`
}

// ProjectMetadata is the research.json structure written at project creation.
type ProjectMetadata struct {
	Version     string          `json:"version"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Tags        []string        `json:"tags,omitempty"`
	Settings    ProjectSettings `json:"settings"`
}

// NewProjectMetadata creates metadata for a fresh project with default settings.
func NewProjectMetadata(title, description string) *ProjectMetadata {
	now := time.Now().UTC()
	return &ProjectMetadata{
		Version:     "1.0.0",
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Settings: ProjectSettings{
			AutoCommit:    true,
			BackupEnabled: true,
		},
	}
}

// MetadataPath returns the metadata file path for a project directory.
func MetadataPath(projectPath string) string {
	return filepath.Join(projectPath, MetadataFile)
}

// LoadProjectMetadata reads research.json from a project directory.
func LoadProjectMetadata(projectPath string) (*ProjectMetadata, error) {
	data, err := os.ReadFile(MetadataPath(projectPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read project metadata: %w", err)
	}

	var meta ProjectMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse project metadata: %w", err)
	}
	return &meta, nil
}

// Save writes the metadata back to the project directory, bumping UpdatedAt.
func (m *ProjectMetadata) Save(projectPath string) error {
	m.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project metadata: %w", err)
	}
	if err := os.WriteFile(MetadataPath(projectPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write project metadata: %w", err)
	}
	return nil
}
