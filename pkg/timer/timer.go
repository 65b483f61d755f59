// Package timer provides cancellable delayed tasks for use as signal
// awaitables: timeouts in races, debounced invocations, polling delays.
package timer

import (
	"context"
	"time"

	"github.com/linq2js/resignal"
)

// After returns a task that completes with the firing time once d has
// elapsed. Cancelling the task before it fires stops the underlying timer
// and abandons the task.
func After(d time.Duration) *resignal.Task[time.Time] {
	return resignal.Go(func(ctx context.Context) (time.Time, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case now := <-t.C:
			return now, nil
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	})
}

// Value returns a task that completes with v once d has elapsed. It is the
// typed convenience over After for effects that resolve a payload on a
// delay.
func Value[T any](d time.Duration, v T) *resignal.Task[T] {
	return resignal.Go(func(ctx context.Context) (T, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return v, nil
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	})
}

// Tick creates a repeating signal that emits v every interval until ec is
// disposed. Each period is a fresh invocation awaiting a delay task, so the
// signal's emit group fires once per tick and cancellation stops the pending
// timer.
func Tick[T any](ec *resignal.Context, interval time.Duration, v T) *resignal.Signal[T] {
	tick := resignal.Effect(func(*resignal.Context) (resignal.Result[T], error) {
		return resignal.Await(Value(interval, v)), nil
	})
	s := resignal.New[T]()
	ec.OnDispose(s.Cancel)
	s.OnEmit(func(T) {
		if ec.Disposed() {
			return
		}
		s.Invoke(tick)
	})
	s.Invoke(tick)
	return s
}
