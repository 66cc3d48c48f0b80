package live

import (
	"context"
	"log/slog"
	"sync"
)

// Feed is a lazy source of full-collection snapshots. Nothing is loaded until
// Subscribe is called.
type Feed[T any] struct {
	Bus   Bus
	Topic string
	Load  func(ctx context.Context) (T, error)
}

// Subscription delivers snapshots on C until it is closed. It never restarts:
// once C is closed a new Subscribe is required.
type Subscription[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe starts a subscription. The first snapshot is sent right away and a
// fresh one after every notification on the feed topic. The subscription ends
// when ctx is done or Close is called.
func (f Feed[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	changes, unsubscribe, err := f.Bus.Subscribe(ctx, f.Topic)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan T)
	s := &Subscription[T]{C: out, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer close(out)
		defer unsubscribe()

		send := func() bool {
			v, err := f.Load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				slog.Warn("live snapshot failed", "topic", f.Topic, "error", err)
				return true
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok || !send() {
					return
				}
			}
		}
	}()
	return s, nil
}

// Close stops the subscription and waits until C is closed. It is safe to call
// more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the subscription has ended.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }
