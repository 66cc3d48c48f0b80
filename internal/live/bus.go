// Package live notifies readers when a collection changes and streams
// full-collection snapshots to them.
package live

import (
	"context"
	"sync"
)

// Topics published by the services after every write.
const (
	TopicClients  = "clients"
	TopicJobSites = "chantiers"
	TopicPlanning = "planning"
	TopicSettings = "parametres"
)

// Bus carries change notifications. A notification has no payload: subscribers
// reload what they need.
type Bus interface {
	Publish(ctx context.Context, topic string) error
	// Subscribe returns a channel that receives a value after each publish on topic,
	// and a function that releases the subscription and closes the channel.
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error)
}

// notify does a non-blocking send on a buffered channel of size one, so bursts
// of writes collapse into a single pending reload.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// MemoryBus is an in-process Bus.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[string]map[chan struct{}]struct{}{}}
}

func (b *MemoryBus) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		notify(ch)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan struct{}]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
