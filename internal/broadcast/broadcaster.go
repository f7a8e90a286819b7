// Package broadcast fans connection-status events out to observers.
// Last-value-wins: there is no queueing or replay, and a subscriber that
// cannot keep up is skipped rather than allowed to block the publisher.
package broadcast

import "sync"

// Bus is a stateless publish/subscribe channel over typed status events.
// The zero value is not usable; call New.
type Bus[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T)}
}

// Subscribe registers an observer. Late subscribers receive only future
// events. The returned cancel func unregisters and closes the channel.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan T, 8)
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

// Publish delivers ev to every current subscriber. Full subscriber buffers
// are dropped, not waited on.
func (b *Bus[T]) Publish(ev T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
