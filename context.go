package resignal

import (
	"context"
	"sync"
)

// Context is the disposable execution scope created for every signal
// invocation. It carries the invocation's cancellation machinery (a std
// context plus the in-flight task handle) and the dispose group every wait
// operation registers its teardown against, so all subscriptions a context
// created are released together.
//
// A context is disposed automatically once its invocation settles, unless the
// invocation was made with KeepAlive (Spawn and Fork do this so the context's
// combinators remain usable for the life of the spawned workflow).
type Context struct {
	mu        sync.Mutex
	cancelled bool
	disposed  bool
	task      AnyTask

	cancels  Group[struct{}]
	disposes Group[struct{}]

	std  context.Context
	stop context.CancelFunc
}

func newContext() *Context {
	std, stop := context.WithCancel(context.Background())
	return &Context{std: std, stop: stop}
}

// Cancel requests cooperative cancellation: it flips the cancelled flag,
// stops the std context, cancels the in-flight task if any, fires the cancel
// listeners, and then disposes the context. Idempotent.
//
// Cancellation does not retroactively reject in-flight waits; disposal simply
// tears their subscriptions down, leaving their returned tasks permanently
// unsettled.
func (ec *Context) Cancel() {
	ec.mu.Lock()
	if ec.cancelled {
		ec.mu.Unlock()
		return
	}
	ec.cancelled = true
	task := ec.task
	ec.mu.Unlock()

	ec.stop()
	if task != nil {
		task.Cancel()
	}
	ec.cancels.Call(struct{}{})
	ec.Dispose()
}

// Dispose releases every subscription this context owns by firing the dispose
// listeners, and stops the std context so blocking calls made under the scope
// observe its end. Idempotent and irreversible.
func (ec *Context) Dispose() {
	ec.mu.Lock()
	if ec.disposed {
		ec.mu.Unlock()
		return
	}
	ec.disposed = true
	ec.mu.Unlock()

	ec.stop()
	ec.disposes.Call(struct{}{})
	ec.disposes.Clear()
}

// Cancelled reports whether Cancel has been called.
func (ec *Context) Cancelled() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.cancelled
}

// Disposed reports whether the context has been disposed.
func (ec *Context) Disposed() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.disposed
}

// OnCancel registers fn to run when the context is cancelled. If the context
// is already cancelled fn runs immediately.
func (ec *Context) OnCancel(fn func()) (remove func()) {
	ec.mu.Lock()
	if ec.cancelled {
		ec.mu.Unlock()
		fn()
		return func() {}
	}
	remove = ec.cancels.Add(func(struct{}) { fn() })
	ec.mu.Unlock()
	return remove
}

// OnDispose registers fn to run when the context is disposed. If the context
// is already disposed fn runs immediately. This is the teardown hook every
// combinator registers against.
func (ec *Context) OnDispose(fn func()) (remove func()) {
	ec.mu.Lock()
	if ec.disposed {
		ec.mu.Unlock()
		fn()
		return func() {}
	}
	remove = ec.disposes.Add(func(struct{}) { fn() })
	ec.mu.Unlock()
	return remove
}

// StdContext returns the std context bound to this invocation. It is
// cancelled when the context is cancelled; pass it to blocking calls made
// from effect functions.
func (ec *Context) StdContext() context.Context {
	return ec.std
}

// ActiveTask returns the in-flight task of the invocation that created this
// context, or nil.
func (ec *Context) ActiveTask() AnyTask {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.task
}

func (ec *Context) setTask(t AnyTask) {
	ec.mu.Lock()
	ec.task = t
	ec.mu.Unlock()
}

// Call runs a sub-effect with the same context, returning its result
// directly. Errors bubble to the caller's own handling, enabling ordinary
// error composition around sub-effects that must share the parent's
// cancellation scope. No new signal is created.
func Call[R any](ec *Context, fn func(ec *Context) (R, error)) (R, error) {
	return fn(ec)
}

// Fork creates a new, independent signal, ties its cancellation to this
// context's disposal, and immediately invokes it with in under KeepAlive so
// the child's combinators stay usable while it is awaited. A parent's
// disposal therefore cascades cancellation to forked children. Forking off a
// context that is already disposed returns the child uninvoked: no work
// starts in a scope that has already ended.
func Fork[T any](ec *Context, in Input[T], opts ...Option[T]) *Signal[T] {
	child := New[T](opts...)
	if ec.Disposed() {
		return child
	}
	child.Invoke(in, KeepAlive())
	ec.OnDispose(child.Cancel)
	return child
}

// Subscribe registers fn on every signal's emit group and returns the
// combined unsubscribe. The subscriptions are torn down automatically when
// the context is disposed.
func Subscribe(ec *Context, fn func(), sigs ...AnySignal) (unsubscribe func()) {
	td := &teardown{}
	for _, sig := range sigs {
		td.add(sig.onEmitAny(fn))
	}
	ec.OnDispose(td.release)
	return td.release
}

// Watch waits for s's next settlement: the returned task completes with the
// emitted payload or fails with the signal's error, whichever fires first.
// The underlying subscriptions are torn down when the context is disposed; a
// watch torn down before the signal settles leaves the task unsettled.
func Watch[T any](ec *Context, s *Signal[T]) *Task[T] {
	out := NewTask[T]()
	td := &teardown{}
	td.add(s.emit.Add(func(v T) {
		td.release()
		out.Complete(v)
	}))
	td.add(s.errs.Add(func(err error) {
		td.release()
		out.Fail(err)
	}))
	if s.wrapSettled() {
		// A wrapped awaitable may have fired its one emission before this
		// watch subscribed; replay the settlement. out settles once, so a
		// raced duplicate is absorbed.
		td.release()
		if err := s.Err(); err != nil {
			out.Fail(err)
		} else {
			out.Complete(s.Payload())
		}
		return out
	}
	ec.OnDispose(td.release)
	return out
}

// WatchTask is Watch for a bare task, the auto-wrapping single-key wait: the
// returned task mirrors t's settlement unless the context is disposed first.
func WatchTask[T any](ec *Context, t *Task[T]) *Task[T] {
	out := NewTask[T]()
	td := &teardown{}
	td.add(t.subscribe(func(v T, err error) {
		td.release()
		if err != nil {
			out.Fail(err)
		} else {
			out.Complete(v)
		}
	}))
	ec.OnDispose(td.release)
	return out
}
