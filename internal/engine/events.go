package engine

import (
	"sync"

	"github.com/pders01/labtrail/internal/models"
)

// Broadcaster is a callback registration list for commit events, owned by
// one scheduler instance. Subscribers unsubscribe deterministically via the
// returned func; Close drops everyone when the project closes.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(models.CommitEvent)
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(models.CommitEvent))}
}

// Subscribe registers a callback and returns its unsubscribe func.
func (b *Broadcaster) Subscribe(fn func(models.CommitEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers an event to all current subscribers. Callbacks run
// outside the lock so a subscriber may unsubscribe from within its callback.
func (b *Broadcaster) Publish(event models.CommitEvent) {
	b.mu.Lock()
	fns := make([]func(models.CommitEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// Len returns the current subscriber count.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[int]func(models.CommitEvent))
}
