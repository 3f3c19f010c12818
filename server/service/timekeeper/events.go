package timekeeper

import "sync"

// subscriberBuffer is the per-subscriber channel depth. Slow subscribers miss
// intermediate values instead of blocking publishers.
const subscriberBuffer = 8

// eventBus fans values out to channel subscribers without blocking.
type eventBus[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

func newEventBus[T any]() *eventBus[T] {
	return &eventBus[T]{subs: make(map[uint64]chan T)}
}

// subscribe registers a new subscriber. The returned func unsubscribes and is
// safe to call more than once. On a closed bus the channel is already closed.
func (b *eventBus[T]) subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// publish delivers v to every subscriber with room in its buffer.
func (b *eventBus[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// close closes every subscriber channel. Later publishes are dropped.
func (b *eventBus[T]) close() {
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
