// Package notify carries history change events to every open consumer:
// in-process subscribers through Bus, other processes through Kafka.
package notify

import "sync"

// Event is a storage change signal, shaped like a browser storage event
type Event struct {
	Key      string `json:"key"`
	NewValue string `json:"newValue"`
	Origin   string `json:"origin,omitempty"` // Process that produced the change; empty for local events
}

// Bus fans events out to subscribers. Sends never block: a subscriber whose
// buffer is full misses the event and catches up on the next one, which
// always carries the full list.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// NewBus creates a bus whose subscriptions buffer up to bufferSize events
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: bufferSize,
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// unsubscribes and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
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

// Publish delivers the event to every current subscriber
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Drop - the next event carries the full state
		}
	}
}

// Subscribers returns the number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Safe to call multiple times.
func (b *Bus) Close() {
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
