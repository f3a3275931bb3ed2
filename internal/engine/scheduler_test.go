package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/labtrail/internal/gitrepo"
	"github.com/pders01/labtrail/internal/history"
	"github.com/pders01/labtrail/internal/models"
)

type eventCollector struct {
	mu     sync.Mutex
	events []models.CommitEvent
	notify chan struct{}
}

func newEventCollector(b *Broadcaster) *eventCollector {
	c := &eventCollector{notify: make(chan struct{}, 16)}
	b.Subscribe(func(event models.CommitEvent) {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
		c.notify <- struct{}{}
	})
	return c
}

func (c *eventCollector) wait(t *testing.T, timeout time.Duration) models.CommitEvent {
	t.Helper()
	select {
	case <-c.notify:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for commit event")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *eventCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestScheduler(t *testing.T, debounceMs int) (*Scheduler, *gitrepo.MemGateway, *eventCollector) {
	t.Helper()

	gw := gitrepo.NewMemGateway("/mem/sched")
	require.NoError(t, gw.Init(context.Background()))

	events := NewBroadcaster()
	collector := newEventCollector(events)
	index := history.NewIndex(gw)

	cfg := models.AutoCommitConfig{Enabled: true, DebounceMs: debounceMs}
	s := NewScheduler("/mem/sched", gw, index, events, cfg, zerolog.Nop())
	t.Cleanup(s.Close)

	return s, gw, collector
}

func TestSchedulerAutoCommit(t *testing.T) {
	s, gw, events := newTestScheduler(t, 40)
	require.NoError(t, s.Start())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))

	event := events.wait(t, 2*time.Second)
	assert.Equal(t, models.TriggerAuto, event.Trigger)
	assert.NoError(t, event.Err)
	assert.NotEmpty(t, event.Snapshot.ID)

	snapshots, err := gw.Log(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
}

func TestSchedulerOneCommitPerWindow(t *testing.T) {
	s, gw, events := newTestScheduler(t, 50)
	require.NoError(t, s.Start())

	gw.WriteFile("a.md", "a\n")
	gw.WriteFile("b.md", "b\n")
	s.OnFileChange(change("a.md"))
	s.OnFileChange(change("b.md"))
	s.OnFileChange(change("a.md"))

	events.wait(t, 2*time.Second)
	time.Sleep(150 * time.Millisecond)

	// All changes of the burst landed in a single snapshot.
	assert.Equal(t, 1, events.count())
	snapshots, err := gw.Log(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestSchedulerIgnoresWhenNotWatching(t *testing.T) {
	s, gw, events := newTestScheduler(t, 30)

	// Idle: enabled but not started.
	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, events.count())
	assert.Equal(t, SchedulerIdle, s.State())
}

func TestSchedulerStopDiscardsDebounce(t *testing.T) {
	s, gw, events := newTestScheduler(t, 60)
	require.NoError(t, s.Start())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))
	s.Stop()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, events.count())

	// Restarting with a new change does not resurrect the pre-stop buffer.
	require.NoError(t, s.Start())
	gw.WriteFile("other.md", "x\n")
	s.OnFileChange(change("other.md"))

	event := events.wait(t, 2*time.Second)
	require.NoError(t, event.Err)
	assert.Len(t, event.Snapshot.ChangedFiles, 2) // both files were still on disk
	assert.Equal(t, 1, events.count())
}

func TestSchedulerForceCommit(t *testing.T) {
	s, gw, events := newTestScheduler(t, 10000)
	require.NoError(t, s.Start())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))

	snapshot, err := s.ForceCommit(context.Background(), "manual save", models.TriggerManual)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, "manual save", snapshot.Message)

	event := events.wait(t, time.Second)
	assert.Equal(t, models.TriggerManual, event.Trigger)

	// The debounce buffer was consumed; no auto commit follows.
	assert.Equal(t, 0, s.Pending())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, events.count())
}

func TestSchedulerForceCommitNothingPending(t *testing.T) {
	s, _, events := newTestScheduler(t, 50)
	require.NoError(t, s.Start())

	_, err := s.ForceCommit(context.Background(), "", models.TriggerManual)
	assert.True(t, errors.Is(err, gitrepo.ErrNoChanges))
	assert.Equal(t, 0, events.count())
}

func TestSchedulerRetriesFailedCommit(t *testing.T) {
	s, gw, events := newTestScheduler(t, 40)
	require.NoError(t, s.Start())

	// First attempt fails; the batch is re-buffered and the next cycle
	// succeeds.
	gw.CommitErr = errors.New("disk full")
	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))

	event := events.wait(t, 3*time.Second)
	require.NoError(t, event.Err)
	assert.Equal(t, models.TriggerAuto, event.Trigger)

	snapshots, err := gw.Log(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestSchedulerDisable(t *testing.T) {
	s, gw, events := newTestScheduler(t, 30)
	require.NoError(t, s.Start())

	s.Disable()
	assert.Equal(t, SchedulerDisabled, s.State())
	assert.Error(t, s.Start())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, events.count())

	s.Enable()
	assert.Equal(t, SchedulerIdle, s.State())
	require.NoError(t, s.Start())
	assert.Equal(t, SchedulerWatching, s.State())
}

func TestSchedulerStateTransitions(t *testing.T) {
	s, gw, events := newTestScheduler(t, 50)

	assert.Equal(t, SchedulerIdle, s.State())
	require.NoError(t, s.Start())
	assert.Equal(t, SchedulerWatching, s.State())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))
	assert.Equal(t, SchedulerDebouncing, s.State())

	events.wait(t, 2*time.Second)
	// Settled back into watching after the commit.
	assert.Eventually(t, func() bool {
		return s.State() == SchedulerWatching
	}, time.Second, 10*time.Millisecond)
}

// gatedGateway parks Commit until released, so tests can hold an
// automatic commit in flight.
type gatedGateway struct {
	*gitrepo.MemGateway
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGateway) Commit(ctx context.Context, message string) (models.Snapshot, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.MemGateway.Commit(ctx, message)
}

func TestSchedulerExclusiveWaitsForAutoCommit(t *testing.T) {
	gw := &gatedGateway{
		MemGateway: gitrepo.NewMemGateway("/mem/gated"),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	require.NoError(t, gw.Init(context.Background()))

	events := NewBroadcaster()
	collector := newEventCollector(events)
	index := history.NewIndex(gw)

	cfg := models.AutoCommitConfig{Enabled: true, DebounceMs: 20}
	s := NewScheduler("/mem/gated", gw, index, events, cfg, zerolog.Nop())
	t.Cleanup(s.Close)
	t.Cleanup(func() {
		select {
		case <-gw.release:
		default:
			close(gw.release)
		}
	})
	require.NoError(t, s.Start())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))

	// The automatic commit is now parked inside the gateway.
	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("automatic commit never started")
	}

	exclusiveDone := make(chan struct{})
	go func() {
		_ = s.Exclusive(func() error { return nil })
		close(exclusiveDone)
	}()

	// Exclusive must not run while the automatic commit holds the lock.
	select {
	case <-exclusiveDone:
		t.Fatal("exclusive section ran while an automatic commit was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(gw.release)
	select {
	case <-exclusiveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("exclusive section never ran after the commit finished")
	}

	event := collector.wait(t, 2*time.Second)
	assert.NoError(t, event.Err)
	assert.Equal(t, models.TriggerAuto, event.Trigger)
}

func TestSchedulerSetConfigSwapsDebouncer(t *testing.T) {
	s, gw, events := newTestScheduler(t, 10000)
	require.NoError(t, s.Start())

	gw.WriteFile("notes.md", "draft\n")
	s.OnFileChange(change("notes.md"))
	require.Equal(t, 1, s.Pending())

	cfg := s.Config()
	cfg.DebounceMs = 30
	s.SetConfig(cfg)

	// Buffered changes under the old config are discarded, not committed.
	assert.Equal(t, 0, s.Pending())

	s.OnFileChange(change("notes.md"))
	event := events.wait(t, 2*time.Second)
	require.NoError(t, event.Err)
}
