package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pders01/labtrail/internal/gitrepo"
	"github.com/pders01/labtrail/internal/history"
	"github.com/pders01/labtrail/internal/models"
)

// SchedulerState is the auto-commit lifecycle state.
type SchedulerState int

const (
	// SchedulerDisabled means automatic snapshots are switched off.
	SchedulerDisabled SchedulerState = iota
	// SchedulerIdle means enabled but not watching.
	SchedulerIdle
	// SchedulerWatching means watching with no pending changes.
	SchedulerWatching
	// SchedulerDebouncing means pending changes are buffered.
	SchedulerDebouncing
	// SchedulerCommitting means a commit is in flight.
	SchedulerCommitting
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerDisabled:
		return "disabled"
	case SchedulerIdle:
		return "idle"
	case SchedulerWatching:
		return "watching"
	case SchedulerDebouncing:
		return "debouncing"
	case SchedulerCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

const (
	maxCommitRetries = 3
	commitTimeout    = 30 * time.Second
	batchQueueSize   = 16
)

// Scheduler orchestrates the debouncer and the repository gateway for one
// project: it owns the watch lifecycle, serializes commits, retries failed
// automatic commits, and fans out commit events. Commits for a project are
// strictly ordered; a batch that freezes while another commit is in flight
// waits in the queue.
type Scheduler struct {
	path    string
	gateway gitrepo.Gateway
	index   *history.Index
	events  *Broadcaster
	log     zerolog.Logger

	mu        sync.Mutex
	cfg       models.AutoCommitConfig
	state     SchedulerState
	debouncer *Debouncer
	failures  int

	commitMu sync.Mutex
	batches  chan []models.PendingChange
	done     chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

// NewScheduler creates a scheduler and starts its commit loop. Callers must
// Close it when the project closes.
func NewScheduler(path string, gateway gitrepo.Gateway, index *history.Index, events *Broadcaster, cfg models.AutoCommitConfig, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		path:    path,
		gateway: gateway,
		index:   index,
		events:  events,
		log:     log.With().Str("project", path).Logger(),
		cfg:     cfg,
		batches: make(chan []models.PendingChange, batchQueueSize),
		done:    make(chan struct{}),
	}
	if !cfg.Enabled {
		s.state = SchedulerDisabled
	} else {
		s.state = SchedulerIdle
	}
	s.debouncer = NewDebouncer(cfg, s.enqueue)

	s.wg.Add(1)
	go s.commitLoop()

	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns the active configuration.
func (s *Scheduler) Config() models.AutoCommitConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig swaps the configuration. A new debouncer picks up the timing and
// ignore settings; changes buffered under the old config are discarded.
func (s *Scheduler) SetConfig(cfg models.AutoCommitConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debouncer.Stop()
	s.cfg = cfg
	s.debouncer = NewDebouncer(cfg, s.enqueue)

	if !cfg.Enabled && s.state != SchedulerDisabled {
		s.state = SchedulerDisabled
	} else if cfg.Enabled && s.state == SchedulerDisabled {
		s.state = SchedulerIdle
	}
}

// Start begins accepting file changes. No-op when already watching; fails
// when automatic snapshots are disabled.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerDisabled {
		return fmt.Errorf("auto-commit is disabled for %s", s.path)
	}
	if s.state == SchedulerIdle {
		s.state = SchedulerWatching
	}
	return nil
}

// Stop cancels any in-flight debounce window without committing it and
// stops accepting file changes. Files on disk are untouched.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debouncer.Stop()
	if s.state == SchedulerWatching || s.state == SchedulerDebouncing || s.state == SchedulerCommitting {
		s.state = SchedulerIdle
	}
}

// Enable switches automatic snapshots on. The caller persists the policy.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Enabled = true
	if s.state == SchedulerDisabled {
		s.state = SchedulerIdle
	}
}

// Disable switches automatic snapshots off and implies Stop.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Enabled = false
	s.debouncer.Stop()
	s.state = SchedulerDisabled
}

// OnFileChange forwards a change to the debouncer. Ignored entirely unless
// the scheduler is watching.
func (s *Scheduler) OnFileChange(change models.PendingChange) {
	s.mu.Lock()
	if s.state != SchedulerWatching && s.state != SchedulerDebouncing && s.state != SchedulerCommitting {
		s.mu.Unlock()
		return
	}
	debouncer := s.debouncer
	if s.state == SchedulerWatching {
		s.state = SchedulerDebouncing
	}
	s.mu.Unlock()

	debouncer.Report(change)
}

// ForceCommit flushes any pending buffer and commits synchronously,
// bypassing the debounce timer. It returns ErrNoChanges (wrapped) when the
// working tree is clean.
func (s *Scheduler) ForceCommit(ctx context.Context, message string, trigger models.CommitTrigger) (models.Snapshot, error) {
	s.mu.Lock()
	s.debouncer.Flush()
	if s.state == SchedulerDebouncing {
		s.state = SchedulerWatching
	}
	s.mu.Unlock()

	if message == "" {
		message = "checkpoint"
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	snapshot, err := s.gateway.Commit(ctx, message)
	if err != nil {
		return models.Snapshot{}, err
	}

	s.index.Invalidate()
	s.events.Publish(models.CommitEvent{Snapshot: snapshot, Trigger: trigger})
	return snapshot, nil
}

// Exclusive runs fn while holding the commit lock, so no automatic commit
// can interleave with it. Used by restore.
func (s *Scheduler) Exclusive(fn func() error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return fn()
}

// Pending returns the number of buffered changes.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debouncer.Pending()
}

// Close stops the commit loop. Queued batches are drained without
// committing; pending debounce windows are discarded.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.debouncer.Stop()
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
}

// enqueue is the debouncer sink. Runs on the timer goroutine; the channel
// buffer absorbs bursts while a commit is in flight.
func (s *Scheduler) enqueue(batch []models.PendingChange) {
	select {
	case s.batches <- batch:
	case <-s.done:
	}
}

// commitLoop serializes automatic commits for this project.
func (s *Scheduler) commitLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case batch := <-s.batches:
			s.commitBatch(batch)
		}
	}
}

// commitBatch commits one frozen batch. Failures re-buffer the batch so the
// next debounce cycle retries it; after too many consecutive failures an
// error event is emitted instead, since the automatic path has no caller to
// return to.
func (s *Scheduler) commitBatch(batch []models.PendingChange) {
	s.mu.Lock()
	if s.state != SchedulerWatching && s.state != SchedulerDebouncing {
		// Stopped or disabled after the batch froze; drop it.
		s.mu.Unlock()
		return
	}
	s.state = SchedulerCommitting
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	// Same lock as ForceCommit and Exclusive: a manual save or restore never
	// overlaps an automatic commit on the same working tree.
	s.commitMu.Lock()
	snapshot, err := s.gateway.Commit(ctx, autoMessage(batch))
	s.commitMu.Unlock()

	s.mu.Lock()
	switch {
	case err == nil:
		s.failures = 0
		s.setWatchingLocked()
		s.mu.Unlock()

		s.index.Invalidate()
		s.events.Publish(models.CommitEvent{Snapshot: snapshot, Trigger: models.TriggerAuto})
		s.log.Debug().Str("snapshot", snapshot.ShortID()).Int("files", len(batch)).Msg("auto commit")

	case errors.Is(err, gitrepo.ErrNoChanges):
		// Changes were already captured (e.g. by a manual save); not a failure.
		s.failures = 0
		s.setWatchingLocked()
		s.mu.Unlock()

	default:
		s.failures++
		failures := s.failures
		debouncer := s.debouncer
		s.setWatchingLocked()
		s.mu.Unlock()

		if failures > maxCommitRetries {
			s.log.Error().Err(err).Msg("auto commit failed, giving up")
			s.events.Publish(models.CommitEvent{Trigger: models.TriggerAuto, Err: err})
			s.mu.Lock()
			s.failures = 0
			s.mu.Unlock()
			return
		}

		s.log.Warn().Err(err).Int("attempt", failures).Msg("auto commit failed, re-buffering")
		// Re-buffer so the next debounce cycle retries the same changes.
		for _, change := range batch {
			debouncer.Report(change)
		}
	}
}

// setWatchingLocked restores the watching state after a commit unless the
// scheduler was stopped or disabled meanwhile. Caller holds the lock.
func (s *Scheduler) setWatchingLocked() {
	if s.state != SchedulerCommitting {
		return
	}
	if s.debouncer.Pending() > 0 {
		s.state = SchedulerDebouncing
	} else {
		s.state = SchedulerWatching
	}
}

// autoMessage builds the commit message for an automatic snapshot.
func autoMessage(batch []models.PendingChange) string {
	if len(batch) == 1 {
		return fmt.Sprintf("auto: %s %s", batch[0].Type, batch[0].Path)
	}
	return fmt.Sprintf("auto: %d files changed", len(batch))
}
