// Package events provides in-process fanout of committed vault events.
package events

import (
	"sync"

	"tokenized-vault/internal/domain"
)

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 64

// Bus fans committed vault events out to subscribers. Publish never blocks:
// a subscriber that falls behind its buffer misses events rather than
// stalling the vault operation that produced them.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan domain.Event
	nextID uint64
	buffer int
}

// NewBus creates a bus with the default subscriber buffer.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[uint64]chan domain.Event),
		buffer: DefaultBuffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel function must
// be called to release the subscription; the channel is closed by cancel.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers e to every subscriber with buffer room.
func (b *Bus) Publish(e domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber, drop
		}
	}
}
