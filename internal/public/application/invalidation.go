package application

import (
	"sync"
	"time"
)

// Invalidation tells subscribers that persisted data they display changed.
type Invalidation struct {
	Collection string
	DocumentID string
	At         time.Time
}

// InvalidationBus fans invalidations out to subscribers. Each subscriber holds
// at most one undelivered event; bursts coalesce since any event means
// "refetch everything".
type InvalidationBus struct {
	mu     sync.Mutex
	subs   map[uint64]chan Invalidation
	nextID uint64
	closed bool
}

// NewInvalidationBus creates an empty bus.
func NewInvalidationBus() *InvalidationBus {
	return &InvalidationBus{subs: map[uint64]chan Invalidation{}}
}

// Subscribe returns an event channel and a cancel func that closes it.
func (b *InvalidationBus) Subscribe() (<-chan Invalidation, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Invalidation, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish never blocks.
func (b *InvalidationBus) Publish(event Invalidation) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (b *InvalidationBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel.
func (b *InvalidationBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
