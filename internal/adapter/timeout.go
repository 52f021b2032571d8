package adapter

import (
	"context"
	"time"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

// WithTimeout bounds every call to a by d. A call that has not returned
// when the deadline passes yields context.DeadlineExceeded; the underlying
// call keeps running and its late answer is discarded. A non-positive d
// returns a unchanged.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return &timeoutAdapter{inner: a, timeout: d}
}

type timeoutAdapter struct {
	inner   Adapter
	timeout time.Duration
}

type answer[T any] struct {
	value T
	found bool
	err   error
}

// within runs call in its own goroutine and waits for it or the deadline.
func within[T any](ctx context.Context, d time.Duration, call func(context.Context) answer[T]) answer[T] {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan answer[T], 1)
	go func() {
		done <- call(ctx)
	}()

	select {
	case a := <-done:
		return a
	case <-ctx.Done():
		return answer[T]{err: ctx.Err()}
	}
}

func (t *timeoutAdapter) IsValid(ctx context.Context, v ir.Value) (tristate.TriState, error) {
	a := within(ctx, t.timeout, func(ctx context.Context) answer[tristate.TriState] {
		ts, err := t.inner.IsValid(ctx, v)
		return answer[tristate.TriState]{value: ts, err: err}
	})
	return a.value, a.err
}

func (t *timeoutAdapter) Length(ctx context.Context, v ir.Value) (int64, error) {
	a := within(ctx, t.timeout, func(ctx context.Context) answer[int64] {
		n, err := t.inner.Length(ctx, v)
		return answer[int64]{value: n, err: err}
	})
	return a.value, a.err
}

func (t *timeoutAdapter) Exists(ctx context.Context, entity string, criteria ir.Object) (tristate.TriState, error) {
	a := within(ctx, t.timeout, func(ctx context.Context) answer[tristate.TriState] {
		ts, err := t.inner.Exists(ctx, entity, criteria)
		return answer[tristate.TriState]{value: ts, err: err}
	})
	return a.value, a.err
}

func (t *timeoutAdapter) Lookup(ctx context.Context, entity string, criteria ir.Object) (ir.Value, bool, error) {
	a := within(ctx, t.timeout, func(ctx context.Context) answer[ir.Value] {
		v, found, err := t.inner.Lookup(ctx, entity, criteria)
		return answer[ir.Value]{value: v, found: found, err: err}
	})
	return a.value, a.found, a.err
}
