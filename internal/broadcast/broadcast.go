// Package broadcast tracks connected observers and pushes each new
// snapshot to all of them. The live observer count is what the scheduler
// reads to pick its polling cadence.
package broadcast

import (
	"sync"

	"hostwatch/internal/logger"
	"hostwatch/internal/status"
	"hostwatch/internal/store"
)

// observerBuffer is the per-observer channel capacity. An observer that
// falls this many snapshots behind is considered dead and evicted.
const observerBuffer = 4

// Observer is one live consumer of the feed.
type Observer struct {
	ch chan *status.Snapshot
}

// Updates returns the channel snapshots are delivered on. The channel is
// closed when the observer is unsubscribed or evicted.
func (o *Observer) Updates() <-chan *status.Snapshot {
	return o.ch
}

// Broadcaster fans published snapshots out to every subscribed observer.
type Broadcaster struct {
	store *store.Store
	log   logger.Logger

	mu        sync.Mutex
	observers map[*Observer]struct{}
}

// New creates a broadcaster over the given snapshot store.
func New(st *store.Store, log logger.Logger) *Broadcaster {
	if log == nil {
		log = logger.Noop()
	}
	return &Broadcaster{
		store:     st,
		log:       log,
		observers: make(map[*Observer]struct{}),
	}
}

// Subscribe registers a new observer. The current snapshot is queued
// immediately so a new viewer never waits a full poll cycle for data.
func (b *Broadcaster) Subscribe() *Observer {
	o := &Observer{ch: make(chan *status.Snapshot, observerBuffer)}

	if current := b.store.Current(); current != nil {
		o.ch <- current
	}

	b.mu.Lock()
	b.observers[o] = struct{}{}
	count := len(b.observers)
	b.mu.Unlock()

	b.log.Info("observer subscribed, %d connected", count)
	return o
}

// Unsubscribe removes an observer and closes its channel. Unsubscribing
// twice, or after eviction, is a no-op.
func (b *Broadcaster) Unsubscribe(o *Observer) {
	b.mu.Lock()
	_, present := b.observers[o]
	if present {
		delete(b.observers, o)
		close(o.ch)
	}
	count := len(b.observers)
	b.mu.Unlock()

	if present {
		b.log.Info("observer unsubscribed, %d connected", count)
	}
}

// Publish delivers a snapshot to every observer. An observer whose
// buffer is full gets evicted; delivery to the others is unaffected.
func (b *Broadcaster) Publish(snap *status.Snapshot) {
	b.mu.Lock()
	var evicted []*Observer
	for o := range b.observers {
		select {
		case o.ch <- snap:
		default:
			evicted = append(evicted, o)
		}
	}
	for _, o := range evicted {
		delete(b.observers, o)
		close(o.ch)
	}
	count := len(b.observers)
	b.mu.Unlock()

	if len(evicted) > 0 {
		b.log.Warn("evicted %d stalled observer(s), %d connected", len(evicted), count)
	}
}

// Count returns the number of live observers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}
