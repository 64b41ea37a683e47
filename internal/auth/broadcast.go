package auth

import "sync"

// Broadcaster fans a value out to subscribers with latest-value semantics:
// every subscriber starts with the current value and a slow subscriber only
// ever sees the most recent one.
type Broadcaster[T comparable] struct {
	mu     sync.Mutex
	value  T
	subs   map[int]chan T
	nextID int
}

// NewBroadcaster creates a Broadcaster holding initial.
func NewBroadcaster[T comparable](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{value: initial, subs: make(map[int]chan T)}
}

// Subscribe returns a channel primed with the current value and a cancel func
// that closes it.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, 1)
	ch <- b.value
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish stores v and notifies subscribers. Publishing the current value is a no-op.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v == b.value {
		return
	}
	b.value = v

	for _, ch := range b.subs {
		// drop a stale undelivered value; only the publisher sends, so the
		// buffer is empty after the drain
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
