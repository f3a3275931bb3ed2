// Package engine implements the auto-commit and history engine: the change
// debouncer, the per-project commit scheduler, the snapshot service facade,
// and the registry that owns one live service per open project.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/labtrail/internal/gitrepo"
	"github.com/pders01/labtrail/internal/history"
	"github.com/pders01/labtrail/internal/logging"
	"github.com/pders01/labtrail/internal/models"
)

// RestoreOptions controls how a restore treats a dirty working tree.
type RestoreOptions struct {
	// RequireClean rejects the restore with ErrRestoreConflict when
	// uncommitted changes exist. The default policy instead preserves the
	// dirty state as a checkpoint snapshot before restoring.
	RequireClean bool
}

// Service is the per-project snapshot facade: manual snapshot, restore and
// diff via the gateway, automatic snapshots via the scheduler, history via
// the index. One live instance per project path, created by the Registry.
type Service struct {
	path      string
	gateway   gitrepo.Gateway
	index     *history.Index
	events    *Broadcaster
	scheduler *Scheduler
}

// NewService wires a service around a gateway. The config comes from the
// project's persisted settings.
func NewService(path string, gateway gitrepo.Gateway, cfg models.AutoCommitConfig) *Service {
	index := history.NewIndex(gateway)
	events := NewBroadcaster()
	return &Service{
		path:      path,
		gateway:   gateway,
		index:     index,
		events:    events,
		scheduler: NewScheduler(path, gateway, index, events, cfg, logging.Get()),
	}
}

// Path returns the project directory.
func (s *Service) Path() string {
	return s.path
}

// Gateway exposes the underlying gateway, mainly for tests and the CLI.
func (s *Service) Gateway() gitrepo.Gateway {
	return s.gateway
}

// Init initializes the project repository.
func (s *Service) Init(ctx context.Context) error {
	return s.gateway.Init(ctx)
}

// IsRepo reports whether the project has an initialized repository.
func (s *Service) IsRepo() bool {
	return s.gateway.IsRepo()
}

// Status describes the working tree.
func (s *Service) Status(ctx context.Context) (models.RepoStatus, error) {
	return s.gateway.Status(ctx)
}

// SaveSnapshot creates a manual snapshot. Any pending debounce buffer is
// reset; the commit event carries the manual trigger. Returns ErrNoChanges
// (wrapped) when the working tree is clean; callers treat it as non-fatal.
func (s *Service) SaveSnapshot(ctx context.Context, message string) (models.Snapshot, error) {
	return s.scheduler.ForceCommit(ctx, message, models.TriggerManual)
}

// History returns the history tree for up to limit snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*models.HistoryNode, error) {
	return s.index.Tree(ctx, limit)
}

// Snapshots returns the raw snapshot sequence, newest first.
func (s *Service) Snapshots(ctx context.Context, limit int) ([]models.Snapshot, error) {
	return s.gateway.Log(ctx, limit)
}

// Restore overwrites the working tree with the given snapshot's state.
//
// Uncommitted work is never silently discarded: with a dirty tree the
// default policy commits a checkpoint snapshot first, so the pre-restore
// state stays reachable in history; RequireClean rejects instead. The
// restore itself is recorded as a forward commit, which keeps the restore
// undoable and emits a restore-triggered commit event.
func (s *Service) Restore(ctx context.Context, snapshotID string, opts RestoreOptions) error {
	return s.scheduler.Exclusive(func() error {
		status, err := s.gateway.Status(ctx)
		if err != nil {
			return err
		}
		if status.IsDirty {
			if opts.RequireClean {
				return fmt.Errorf("%w: %s", gitrepo.ErrRestoreConflict, s.path)
			}
			checkpoint, err := s.gateway.Commit(ctx, "checkpoint before restore")
			if err != nil {
				return fmt.Errorf("failed to preserve uncommitted changes: %w", err)
			}
			s.index.Invalidate()
			s.events.Publish(models.CommitEvent{Snapshot: checkpoint, Trigger: models.TriggerManual})
		}

		if err := s.gateway.Checkout(ctx, snapshotID); err != nil {
			return err
		}
		s.index.Invalidate()

		snapshot, err := s.gateway.Commit(ctx, restoreMessage(snapshotID))
		if errors.Is(err, gitrepo.ErrNoChanges) {
			// Restored to the current state; nothing new to record.
			return nil
		}
		if err != nil {
			return err
		}

		s.index.Invalidate()
		s.events.Publish(models.CommitEvent{Snapshot: snapshot, Trigger: models.TriggerRestore})
		return nil
	})
}

// Diff compares two snapshots.
func (s *Service) Diff(ctx context.Context, fromID, toID string) (models.Diff, error) {
	return s.gateway.Diff(ctx, fromID, toID)
}

// FileAtSnapshot returns a file's content as of a snapshot.
func (s *Service) FileAtSnapshot(ctx context.Context, snapshotID, path string) (string, error) {
	return s.gateway.ReadFileAt(ctx, snapshotID, path)
}

// OnFileChange feeds a file change into the automatic snapshot path.
func (s *Service) OnFileChange(change models.PendingChange) {
	s.scheduler.OnFileChange(change)
}

// StartWatching begins automatic snapshots.
func (s *Service) StartWatching() error {
	return s.scheduler.Start()
}

// StopWatching cancels any pending debounce window and stops automatic
// snapshots.
func (s *Service) StopWatching() {
	s.scheduler.Stop()
}

// Config returns the active auto-commit configuration.
func (s *Service) Config() models.AutoCommitConfig {
	return s.scheduler.Config()
}

// SetConfig applies a new configuration to the running scheduler and
// persists it to the project metadata when present.
func (s *Service) SetConfig(cfg models.AutoCommitConfig) error {
	s.scheduler.SetConfig(cfg)

	meta, err := models.LoadProjectMetadata(s.path)
	if err != nil {
		// No metadata file: the config is applied in memory only.
		return nil
	}
	meta.Settings.AutoCommit = cfg.Enabled
	meta.Settings.DebounceMs = cfg.DebounceMs
	meta.Settings.IgnorePatterns = cfg.IgnorePatterns
	meta.Settings.MaxAutoCommits = cfg.MaxAutoCommits
	return meta.Save(s.path)
}

// SchedulerState exposes the scheduler state for status displays and tests.
func (s *Service) SchedulerState() SchedulerState {
	return s.scheduler.State()
}

// OnCommit subscribes to commit events. The returned func unsubscribes.
func (s *Service) OnCommit(fn func(models.CommitEvent)) func() {
	return s.events.Subscribe(fn)
}

// Close stops the scheduler and drops all subscribers.
func (s *Service) Close() {
	s.scheduler.Close()
	s.events.Close()
}

func restoreMessage(snapshotID string) string {
	short := snapshotID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("restore: %s", short)
}
