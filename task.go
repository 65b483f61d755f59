package resignal

import (
	"context"
	"sync"
)

// AnyTask is the type-erased view of a Task, used where the element type is
// unknown: the loading listener group, Signal.Async, and the context's
// in-flight handle.
type AnyTask interface {
	// Cancel aborts the work backing the task. A cancelled task may remain
	// permanently unsettled.
	Cancel()

	// Done is closed when the task settles.
	Done() <-chan struct{}

	// Settled reports whether the task has completed or failed.
	Settled() bool
}

// Task is an asynchronous result handle that settles at most once, either
// with a value (Complete) or an error (Fail). It is the awaitable currency of
// the engine: effect functions return one via Await, the loading listener
// group fires with one, and every combinator produces one.
type Task[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	val     T
	err     error
	settled bool
	waiters []*groupEntry[taskOutcome[T]]
	stop    context.CancelFunc
}

type taskOutcome[T any] struct {
	val T
	err error
}

// NewTask creates an unsettled task to be completed or failed manually.
func NewTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Go runs fn in a new goroutine under a cancellable std context and returns
// the task for its result. Cancelling the task cancels that context; once the
// context is cancelled the task is abandoned and never settles, regardless of
// what fn returns.
func Go[T any](fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, stop := context.WithCancel(context.Background())
	t := NewTask[T]()
	t.stop = stop
	go func() {
		v, err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.Fail(err)
		} else {
			t.Complete(v)
		}
	}()
	return t
}

// Completed returns a task already settled with v.
func Completed[T any](v T) *Task[T] {
	t := NewTask[T]()
	t.Complete(v)
	return t
}

// Failed returns a task already settled with err.
func Failed[T any](err error) *Task[T] {
	t := NewTask[T]()
	t.Fail(err)
	return t
}

// Complete settles the task with v. It reports whether this call settled the
// task; a task settles exactly once and later calls are no-ops.
func (t *Task[T]) Complete(v T) bool {
	return t.settle(v, nil)
}

// Fail settles the task with err.
func (t *Task[T]) Fail(err error) bool {
	var zero T
	return t.settle(zero, err)
}

func (t *Task[T]) settle(v T, err error) bool {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return false
	}
	t.settled = true
	t.val, t.err = v, err
	waiters := t.waiters
	t.waiters = nil
	close(t.done)
	t.mu.Unlock()

	out := taskOutcome[T]{val: v, err: err}
	for _, e := range waiters {
		e.fn(out)
	}
	return true
}

// Cancel aborts the underlying work, if the task was created with Go or bound
// to a cancel function. Cancel never settles the task: an abandoned task's
// Done channel stays open.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	stop := t.stop
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Done returns a channel closed when the task settles.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Settled reports whether the task has settled.
func (t *Task[T]) Settled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

// Result returns the settled value or error. If the task has not settled it
// returns ErrTaskUnsettled.
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.settled {
		var zero T
		return zero, ErrTaskUnsettled
	}
	return t.val, t.err
}

// Wait blocks until the task settles or ctx is done, whichever comes first.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// subscribe registers fn to run when the task settles, in registration order.
// If the task is already settled fn runs synchronously. The returned remover
// is single-use.
func (t *Task[T]) subscribe(fn func(v T, err error)) (remove func()) {
	t.mu.Lock()
	if t.settled {
		v, err := t.val, t.err
		t.mu.Unlock()
		fn(v, err)
		return func() {}
	}
	e := &groupEntry[taskOutcome[T]]{
		fn:     func(out taskOutcome[T]) { fn(out.val, out.err) },
		active: true,
	}
	t.waiters = append(t.waiters, e)
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !e.active {
			return
		}
		e.active = false
		for i, cur := range t.waiters {
			if cur == e {
				t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
				return
			}
		}
	}
}
