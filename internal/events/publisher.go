// Package events carries change notifications from the cart and order
// services to whoever observes them: screens in the same process, or a Kafka
// topic for other processes.
package events

import (
	"context"
	"sync"
)

// Publisher must not block the publishing mutation for long and must not
// report delivery failures to it.
type Publisher interface {
	Publish(ctx context.Context, e Envelope)
}

type Nop struct{}

func (Nop) Publish(context.Context, Envelope) {}

// Multi fans an event out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Envelope) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}

// Broadcaster delivers events to in-process subscribers. Slow subscribers
// miss events instead of stalling the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Envelope
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Envelope)}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Broadcaster) Subscribe(buf int) (<-chan Envelope, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Envelope, buf)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(_ context.Context, e Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
