package live

import "context"

// Update is one emission of a live query.
type Update[T any] struct {
	Value T
	Err   error
}

// Watch runs query once and then again after every hub signal, sending each
// result on the returned channel. The channel is closed once ctx is done.
// The subscription is taken before the first query so a change committed
// while it runs still triggers a re-read.
func Watch[T any](ctx context.Context, hub *Hub, query func(context.Context) (T, error)) <-chan Update[T] {
	out := make(chan Update[T], 1)
	signals, cancel := hub.Subscribe()

	go func() {
		defer close(out)
		defer cancel()

		for {
			v, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			if !send(ctx, out, Update[T]{Value: v, Err: err}) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-signals:
			}
		}
	}()

	return out
}

// Map transforms every value of in with f. Errors pass through unchanged.
func Map[A, B any](ctx context.Context, in <-chan Update[A], f func(A) B) <-chan Update[B] {
	out := make(chan Update[B], 1)
	go func() {
		defer close(out)
		for u := range in {
			var b B
			if u.Err == nil {
				b = f(u.Value)
			}
			if !send(ctx, out, Update[B]{Value: b, Err: u.Err}) {
				return
			}
		}
	}()
	return out
}

// Combine2 emits f(a, b) once both inputs have produced a value, then again
// whenever either input changes. An error from either side is forwarded as
// is. The output closes when ctx is done or both inputs are closed.
func Combine2[A, B, R any](ctx context.Context, a <-chan Update[A], b <-chan Update[B], f func(A, B) R) <-chan Update[R] {
	out := make(chan Update[R], 1)

	go func() {
		defer close(out)

		var (
			lastA        A
			lastB        B
			haveA, haveB bool
		)
		for a != nil || b != nil {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-a:
				if !ok {
					a = nil
					continue
				}
				if u.Err != nil {
					if !send(ctx, out, Update[R]{Err: u.Err}) {
						return
					}
					continue
				}
				lastA, haveA = u.Value, true
			case u, ok := <-b:
				if !ok {
					b = nil
					continue
				}
				if u.Err != nil {
					if !send(ctx, out, Update[R]{Err: u.Err}) {
						return
					}
					continue
				}
				lastB, haveB = u.Value, true
			}
			if haveA && haveB {
				if !send(ctx, out, Update[R]{Value: f(lastA, lastB)}) {
					return
				}
			}
		}
	}()

	return out
}

func send[T any](ctx context.Context, out chan<- Update[T], u Update[T]) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
