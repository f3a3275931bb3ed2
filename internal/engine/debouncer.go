package engine

import (
	"path"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pders01/labtrail/internal/models"
)

// Debounce tuning. The cap window bounds worst-case commit latency when
// changes never go quiet; the pending cap bounds buffer growth.
const (
	capMultiplier     = 10
	pendingPerCommit  = 50
	defaultMaxPending = 500
)

// DebouncerState is the debouncer's lifecycle state.
type DebouncerState int

const (
	// DebouncerIdle means no pending changes and no running timers.
	DebouncerIdle DebouncerState = iota
	// DebouncerAccumulating means changes are buffered and timers run.
	DebouncerAccumulating
)

// Debouncer accumulates reported file changes and freezes them into a batch
// once the sliding debounce window goes quiet, the absolute cap window
// elapses, or the buffer hits its size cap, whichever comes first. Batches
// go to the sink func; the buffer accepts new changes immediately after a
// handoff, so nothing is dropped. Safe for concurrent Report calls.
type Debouncer struct {
	debounce   time.Duration
	maxWait    time.Duration
	maxPending int
	ignore     []string
	sink       func([]models.PendingChange)

	mu            sync.Mutex
	buffer        map[string]models.PendingChange
	debounceTimer *time.Timer
	capTimer      *time.Timer
	deadline      time.Time
	gen           int
}

// NewDebouncer creates a debouncer for the given config. The cap window and
// buffer cap are derived from the config's debounce and max-auto-commit
// settings.
func NewDebouncer(cfg models.AutoCommitConfig, sink func([]models.PendingChange)) *Debouncer {
	debounce := cfg.Debounce()
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	maxPending := defaultMaxPending
	if cfg.MaxAutoCommits > 0 {
		maxPending = cfg.MaxAutoCommits * pendingPerCommit
	}

	return &Debouncer{
		debounce:   debounce,
		maxWait:    debounce * capMultiplier,
		maxPending: maxPending,
		ignore:     cfg.IgnorePatterns,
		sink:       sink,
		buffer:     make(map[string]models.PendingChange),
	}
}

// Report buffers a change, deduplicating by path (last write wins). The
// first change of a window starts both timers; later changes reset only the
// sliding one. Paths matching an ignore pattern are dropped before buffering.
func (d *Debouncer) Report(change models.PendingChange) {
	if d.ignored(change.Path) {
		return
	}

	d.mu.Lock()

	d.buffer[change.Path] = change

	if len(d.buffer) >= d.maxPending {
		batch := d.freezeLocked()
		d.mu.Unlock()
		d.deliver(batch)
		return
	}

	d.deadline = time.Now().Add(d.debounce)
	if d.debounceTimer == nil {
		gen := d.gen
		d.debounceTimer = time.AfterFunc(d.debounce, func() { d.fireSliding(gen) })
		d.capTimer = time.AfterFunc(d.maxWait, func() { d.fire(gen) })
	} else {
		d.debounceTimer.Reset(d.debounce)
	}
	d.mu.Unlock()
}

// Flush freezes and returns the current buffer synchronously, bypassing the
// timers. Returns nil when nothing is pending. The batch is not delivered to
// the sink; the caller owns it.
func (d *Debouncer) Flush() []models.PendingChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.buffer) == 0 {
		return nil
	}
	return d.freezeLocked()
}

// Stop cancels pending timers and discards the buffer. The discarded
// changes are never resurrected; files on disk are untouched.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freezeLocked()
}

// Pending returns the number of buffered changes.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer)
}

// State reports whether the debouncer is idle or accumulating.
func (d *Debouncer) State() DebouncerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.buffer) == 0 {
		return DebouncerIdle
	}
	return DebouncerAccumulating
}

// fireSliding is the sliding-timer callback. A Reset cannot stop a callback
// that already fired and is waiting on the lock, so when a change extended
// the deadline in that gap the timer re-arms for the remainder instead of
// freezing early.
func (d *Debouncer) fireSliding(gen int) {
	d.mu.Lock()
	if gen != d.gen || len(d.buffer) == 0 {
		d.mu.Unlock()
		return
	}
	if remaining := time.Until(d.deadline); remaining > 0 {
		d.debounceTimer = time.AfterFunc(remaining, func() { d.fireSliding(gen) })
		d.mu.Unlock()
		return
	}
	batch := d.freezeLocked()
	d.mu.Unlock()

	d.deliver(batch)
}

// fire freezes unconditionally. Used by the cap timer, which bounds latency
// regardless of how recently the last change arrived.
func (d *Debouncer) fire(gen int) {
	d.mu.Lock()
	if gen != d.gen || len(d.buffer) == 0 {
		d.mu.Unlock()
		return
	}
	batch := d.freezeLocked()
	d.mu.Unlock()

	d.deliver(batch)
}

// freezeLocked stops timers, swaps in a fresh buffer, and returns the frozen
// batch sorted by path. Caller holds the lock.
func (d *Debouncer) freezeLocked() []models.PendingChange {
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
	if d.capTimer != nil {
		d.capTimer.Stop()
		d.capTimer = nil
	}
	d.gen++

	if len(d.buffer) == 0 {
		return nil
	}
	batch := make([]models.PendingChange, 0, len(d.buffer))
	for _, change := range d.buffer {
		batch = append(batch, change)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.buffer = make(map[string]models.PendingChange)
	return batch
}

func (d *Debouncer) deliver(batch []models.PendingChange) {
	if len(batch) > 0 && d.sink != nil {
		d.sink(batch)
	}
}

func (d *Debouncer) ignored(p string) bool {
	for _, pattern := range d.ignore {
		if ok, err := doublestar.Match(pattern, p); err == nil && ok {
			return true
		}
		// Bare patterns like "*.tmp" should also match in subdirectories.
		if ok, err := doublestar.Match(pattern, path.Base(p)); err == nil && ok {
			return true
		}
	}
	return false
}
