package models

import "time"

// ChangeType classifies a reported file-system change.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeModify ChangeType = "modify"
	ChangeDelete ChangeType = "delete"
)

// PendingChange is a transient file-change record held in the debounce
// buffer until a commit consumes it. Dedup happens per path, last write wins.
type PendingChange struct {
	Type      ChangeType `json:"type"`
	Path      string     `json:"path"`
	Timestamp time.Time  `json:"timestamp"`
}

// CommitTrigger identifies what caused a commit.
type CommitTrigger string

const (
	TriggerAuto    CommitTrigger = "auto"
	TriggerManual  CommitTrigger = "manual"
	TriggerRestore CommitTrigger = "restore"
)

// CommitEvent is broadcast to subscribers after every successful commit.
// Ephemeral; never persisted.
type CommitEvent struct {
	Snapshot Snapshot      `json:"snapshot"`
	Trigger  CommitTrigger `json:"trigger"`
	// Err is set instead of Snapshot when the automatic commit path exhausted
	// its retries; there is no synchronous caller to return the error to.
	Err error `json:"-"`
}

// AutoCommitConfig controls the automatic snapshot behavior of one project.
// Loaded from the project settings on engine creation.
type AutoCommitConfig struct {
	Enabled        bool     `json:"enabled"`
	DebounceMs     int      `json:"debounce_ms"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`
	MaxAutoCommits int      `json:"max_auto_commits"`
}

// Debounce returns the sliding debounce window as a duration.
func (c AutoCommitConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}
