package live

import (
	"context"
	"sync"
)

// Value holds the latest snapshot of some state and notifies observers on
// every change. Observers that fall behind only see the newest snapshot.
type Value[T any] struct {
	mu  sync.RWMutex
	v   T
	hub *Hub
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, hub: NewHub()}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.v = next
	v.mu.Unlock()
	v.hub.Publish()
}

// Update applies fn to the current snapshot atomically and publishes the
// result, which is also returned.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	next := fn(v.v)
	v.v = next
	v.mu.Unlock()
	v.hub.Publish()
	return next
}

// Subscribe emits the current snapshot and then every later one until ctx
// is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T, 1)
	signals, cancel := v.hub.Subscribe()

	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case out <- v.Get():
			case <-ctx.Done():
				return
			}
			select {
			case <-signals:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Await blocks until pred holds for the current snapshot and returns it.
func (v *Value[T]) Await(ctx context.Context, pred func(T) bool) (T, error) {
	signals, cancel := v.hub.Subscribe()
	defer cancel()
	for {
		cur := v.Get()
		if pred(cur) {
			return cur, nil
		}
		select {
		case <-signals:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
