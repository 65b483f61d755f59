package resignal

import "sync"

// AnySignal is the type-erased view of a Signal, used by the combinators that
// mix element types (WaitAll, WaitFirst, ChainOf, Subscribe) and by binding
// collaborators that observe signals generically.
type AnySignal interface {
	// Key returns the signal's identity label, "" for anonymous signals.
	Key() string

	// PayloadAny returns the last successfully resolved payload.
	PayloadAny() any

	// Err returns the last captured failure, nil if none.
	Err() error

	// Cancelled reports whether the last invocation was explicitly cancelled.
	Cancelled() bool

	// Async returns the pending task of the current owning context, or nil.
	Async() AnyTask

	// Observe registers type-erased listeners on the signal's emit, error,
	// and loading groups. Nil callbacks are skipped. The returned remover
	// releases every registration at once and is single-use.
	Observe(onEmit func(), onError func(err error), onLoading func(t AnyTask)) (remove func())

	onEmitAny(fn func()) (remove func())
	onErrorAny(fn func(error)) (remove func())
	onLoadingAny(fn func(AnyTask)) (remove func())

	// wrapSettled reports whether this is a wrapped awaitable whose task has
	// settled. Its one emission may have fired before a combinator
	// subscribed; the combinators replay it to late subscribers.
	wrapSettled() bool
}

// Option configures a Signal at construction.
type Option[T any] func(*Signal[T])

// WithKey sets the signal's identity label. The key is informational only; it
// surfaces in engine events and inspection tooling.
func WithKey[T any](key string) Option[T] {
	return func(s *Signal[T]) {
		s.key = key
	}
}

// WithDefault sets the payload a fresh signal starts with and Reset restores.
func WithDefault[T any](v T) Option[T] {
	return func(s *Signal[T]) {
		s.def = v
		s.payload = v
	}
}

// WithOnCancel sets a callback invoked after the signal is cancelled.
func WithOnCancel[T any](fn func()) Option[T] {
	return func(s *Signal[T]) {
		s.onCancel = fn
	}
}

// InvokeOption configures a single invocation.
type InvokeOption func(*invokeConfig)

type invokeConfig struct {
	keepAlive bool
}

// KeepAlive keeps the invocation's effect context alive after the resolution
// settles, so its cancellation scope and combinators persist for the life of
// the workflow. Spawn and Fork invoke with it.
func KeepAlive() InvokeOption {
	return func(cfg *invokeConfig) {
		cfg.keepAlive = true
	}
}

// Signal is an addressable, re-invocable unit of emitted state. It owns its
// last payload and error, three listener groups (emit, error, loading), and
// tracks the effect context of the invocation currently resolving it.
//
// At most one context owns a signal at any instant: invoking again while a
// prior invocation is pending supersedes it, and the superseded invocation's
// late settlement is dropped. See the package documentation for the guard.
type Signal[T any] struct {
	key      string
	def      T
	onCancel func()
	wrapped  AnyTask

	mu         sync.Mutex
	payload    T
	err        error
	cancelled  bool
	owner      *Context
	generation uint64

	emit    Group[T]
	errs    Group[error]
	loading Group[AnyTask]
}

// New creates a signal. Without options it is anonymous with a zero-value
// default payload.
func New[T any](opts ...Option[T]) *Signal[T] {
	s := &Signal[T]{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wrap adapts a bare task to the signal surface: an anonymous signal invoked
// once with the task, emitting on its completion and erroring on its failure.
// Wait combinators use it to accept raw awaitables next to signals; a task
// that is already settled when wrapped still satisfies them, because they
// replay the wrapped settlement to subscribers that attach after it fired.
func Wrap[T any](t *Task[T]) *Signal[T] {
	s := New[T]()
	s.wrapped = t
	s.Invoke(Future(t))
	return s
}

// Key returns the signal's identity label.
func (s *Signal[T]) Key() string {
	return s.key
}

// Payload returns the last successfully resolved payload, or the configured
// default if the signal never resolved.
func (s *Signal[T]) Payload() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

// PayloadAny implements AnySignal.
func (s *Signal[T]) PayloadAny() any {
	return s.Payload()
}

// Err returns the last captured failure. Cancellation never populates it.
func (s *Signal[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancelled reports whether the signal was explicitly cancelled since its
// last invocation.
func (s *Signal[T]) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Async returns the pending task of the current owning context, or nil when
// no asynchronous resolution is in flight.
func (s *Signal[T]) Async() AnyTask {
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()
	if owner == nil {
		return nil
	}
	task := owner.ActiveTask()
	if task == nil || task.Settled() {
		return nil
	}
	return task
}

// OnEmit registers fn on the emit group, fired with the payload after every
// successful resolution. Returns the remover.
func (s *Signal[T]) OnEmit(fn func(T)) (remove func()) {
	return s.emit.Add(fn)
}

// OnError registers fn on the error group, fired after every failed
// resolution.
func (s *Signal[T]) OnError(fn func(error)) (remove func()) {
	return s.errs.Add(fn)
}

// OnLoading registers fn on the loading group, fired with the pending
// cancellable task whenever a resolution becomes asynchronous.
func (s *Signal[T]) OnLoading(fn func(AnyTask)) (remove func()) {
	return s.loading.Add(fn)
}

// Observe implements AnySignal. It is the subscription surface for
// collaborators that handle signals generically, such as render bindings and
// inspection tooling.
func (s *Signal[T]) Observe(onEmit func(), onError func(err error), onLoading func(t AnyTask)) (remove func()) {
	td := &teardown{}
	if onEmit != nil {
		td.add(s.onEmitAny(onEmit))
	}
	if onError != nil {
		td.add(s.errs.Add(onError))
	}
	if onLoading != nil {
		td.add(s.loading.Add(onLoading))
	}
	return td.release
}

func (s *Signal[T]) wrapSettled() bool {
	return s.wrapped != nil && s.wrapped.Settled()
}

func (s *Signal[T]) onEmitAny(fn func()) (remove func()) {
	return s.emit.Add(func(T) { fn() })
}

func (s *Signal[T]) onErrorAny(fn func(error)) (remove func()) {
	return s.errs.Add(fn)
}

func (s *Signal[T]) onLoadingAny(fn func(AnyTask)) (remove func()) {
	return s.loading.Add(fn)
}

// Invoke resolves the signal from in: a new effect context is created, the
// normalized effect runs under it, and the signal settles from its outcome.
// Invoke returns that context so callers can cancel or observe the
// invocation's scope.
func (s *Signal[T]) Invoke(in Input[T], opts ...InvokeOption) *Context {
	var cfg invokeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return s.invoke(in, cfg.keepAlive)
}

func (s *Signal[T]) invoke(in Input[T], keepAlive bool) *Context {
	fn := in.normalize()

	s.mu.Lock()
	s.err = nil
	s.cancelled = false
	s.owner = nil
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	fireEvent(Event{Kind: EventInvoke, Key: s.key})

	ec := newContext()
	ec.OnDispose(func() {
		fireEvent(Event{Kind: EventDispose, Key: s.key})
	})

	res, err := runEffect(ec, fn)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.retain(ec, gen, keepAlive)
		s.mu.Unlock()
		if !keepAlive {
			ec.Dispose()
		}
		fireEvent(Event{Kind: EventError, Key: s.key, Err: err})
		s.errs.Call(err)
		return ec
	}

	switch res.kind {
	case resultAbort:
		// Intentional no-op: no payload change, no emission.
		s.mu.Lock()
		s.retain(ec, gen, keepAlive)
		s.mu.Unlock()
		if !keepAlive {
			ec.Dispose()
		}

	case resultDone:
		s.mu.Lock()
		s.payload = res.val
		s.retain(ec, gen, keepAlive)
		s.mu.Unlock()
		if !keepAlive {
			ec.Dispose()
		}
		fireEvent(Event{Kind: EventEmit, Key: s.key})
		s.emit.Call(res.val)

	case resultAwait:
		s.await(res.task, ec, gen, keepAlive)
	}
	return ec
}

// retain keeps ec attached as the signal's owner after a synchronous
// settlement of a keep-alive invocation, so Cancel still reaches the live
// context. Callers hold s.mu.
func (s *Signal[T]) retain(ec *Context, gen uint64, keepAlive bool) {
	if keepAlive && s.generation == gen {
		s.owner = ec
	}
}

// await attaches the pending task to the signal and applies its settlement,
// guarded against supersession.
func (s *Signal[T]) await(task *Task[T], ec *Context, gen uint64, keepAlive bool) {
	s.mu.Lock()
	if s.generation != gen {
		// Superseded while the effect ran synchronously (reentrant
		// invocation). The newer invocation owns the signal now.
		s.mu.Unlock()
		return
	}
	s.owner = ec
	s.mu.Unlock()

	ec.setTask(task)
	fireEvent(Event{Kind: EventLoading, Key: s.key})
	s.loading.Call(task)

	task.subscribe(func(v T, err error) {
		s.mu.Lock()
		if s.generation != gen || s.owner != ec {
			// Stale settlement: no state change, no listener firing.
			s.mu.Unlock()
			return
		}
		if !keepAlive {
			s.owner = nil
		}
		if err != nil {
			s.err = err
		} else {
			s.payload = v
		}
		s.mu.Unlock()

		if !keepAlive {
			ec.Dispose()
		}
		if err != nil {
			fireEvent(Event{Kind: EventError, Key: s.key, Err: err})
			s.errs.Call(err)
		} else {
			fireEvent(Event{Kind: EventEmit, Key: s.key})
			s.emit.Call(v)
		}
	})
}

// Reset restores the configured default payload, clears the error, cancelled
// flag, and owning context, optionally removes all listeners, and then fires
// the emit group as a fresh emission, not an error. Any pending resolution is
// superseded.
func (s *Signal[T]) Reset(removeListeners bool) {
	s.mu.Lock()
	s.payload = s.def
	s.err = nil
	s.cancelled = false
	s.owner = nil
	s.generation++
	def := s.def
	s.mu.Unlock()

	if removeListeners {
		s.emit.Clear()
		s.errs.Clear()
		s.loading.Clear()
	}
	fireEvent(Event{Kind: EventReset, Key: s.key})
	s.emit.Call(def)
}

// Cancel cancels the in-flight invocation. It is a no-op when no context owns
// the signal; otherwise it delegates to the owning context's Cancel, clears
// the error, detaches the context, sets the cancelled flag, and invokes the
// configured cancellation callback. Idempotent, and never an error: Err()
// stays nil.
func (s *Signal[T]) Cancel() {
	s.mu.Lock()
	owner := s.owner
	if owner == nil {
		s.mu.Unlock()
		return
	}
	s.owner = nil
	s.err = nil
	s.cancelled = true
	s.generation++
	s.mu.Unlock()

	owner.Cancel()
	fireEvent(Event{Kind: EventCancel, Key: s.key})
	if s.onCancel != nil {
		s.onCancel()
	}
}
