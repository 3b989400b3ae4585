// README: In-process event bus used by tests and single-node deployments.
package realtime

import (
	"context"
	"sync"
)

type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[int]chan Event
	next int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]chan Event)}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- ev:
		default:
			// Slow consumer; events are best-effort.
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topics ...string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.next++
	id := b.next
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[int]chan Event)
		}
		b.subs[t][id] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			for _, t := range topics {
				delete(b.subs[t], id)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
