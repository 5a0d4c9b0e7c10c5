// Package eventbus is a small in-memory fanout used to decouple the
// scheduling core from the application shell. The bus is typed over its
// event payload; the scheduler defines the reminder event shape.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Bus fans published values out to every subscriber.
//
// Contract:
//   - Publish never blocks; a subscriber whose buffer is full misses the
//     event (bounded backpressure).
//   - Subscriber channels are closed by their unsubscribe func, never by
//     the publisher.
//
// A Bus owns no background goroutines.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[uint64]chan T
	seq  atomic.Uint64
}

func New[T any]() *Bus[T] {
	return &Bus[T]{subs: map[uint64]chan T{}}
}

func (b *Bus[T]) Publish(e T) {
	// Snapshot subscribers so no lock is held while sending.
	b.mu.RLock()
	chs := make([]chan T, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// A subscriber may close its channel concurrently with this send.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan T, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
