package resignal

import "runtime/debug"

// EffectFunc is a caller-supplied effect run inside a fresh Context. It
// returns the invocation's outcome: a synchronous value (Done), a pending
// task (Await), or the silent-abort sentinel (Abort). A returned error, or a
// recovered panic, is the synchronous failure path. Additional arguments are
// closure-captured.
type EffectFunc[T any] func(ec *Context) (Result[T], error)

// Input is the three-case payload union accepted by Signal.Invoke: a raw
// value, a pending task, or an effect function. Construct one with Value,
// Future, or Effect; invocation normalizes all three into the effect path.
type Input[T any] struct {
	kind inputKind
	val  T
	task *Task[T]
	fn   EffectFunc[T]
}

type inputKind uint8

const (
	inputValue inputKind = iota
	inputFuture
	inputEffect
)

// Value invokes the signal with a plain value.
func Value[T any](v T) Input[T] {
	return Input[T]{kind: inputValue, val: v}
}

// Future invokes the signal with an already-running task; the signal resolves
// from the task's settlement.
func Future[T any](t *Task[T]) Input[T] {
	return Input[T]{kind: inputFuture, task: t}
}

// Effect invokes the signal with an effect function.
func Effect[T any](fn EffectFunc[T]) Input[T] {
	return Input[T]{kind: inputEffect, fn: fn}
}

// normalize unifies the value, future, and effect cases into a single
// function-call path.
func (in Input[T]) normalize() EffectFunc[T] {
	switch in.kind {
	case inputValue:
		v := in.val
		return func(*Context) (Result[T], error) { return Done(v), nil }
	case inputFuture:
		t := in.task
		return func(*Context) (Result[T], error) { return Await(t), nil }
	default:
		return in.fn
	}
}

// Result is an effect function's outcome variant.
type Result[T any] struct {
	kind resultKind
	val  T
	task *Task[T]
}

type resultKind uint8

const (
	resultDone resultKind = iota
	resultAwait
	resultAbort
)

// Done resolves the invocation synchronously with v.
func Done[T any](v T) Result[T] {
	return Result[T]{kind: resultDone, val: v}
}

// Await resolves the invocation from t's eventual settlement. The signal
// fires its loading group with the handle and awaits it.
func Await[T any](t *Task[T]) Result[T] {
	return Result[T]{kind: resultAwait, task: t}
}

// Abort is the silent no-op sentinel: no payload change, no emission.
func Abort[T any]() Result[T] {
	return Result[T]{kind: resultAbort}
}

// runEffect invokes fn, converting a panic into the synchronous failure path.
func runEffect[T any](ec *Context, fn EffectFunc[T]) (res Result[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{}
			err = &EffectPanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ec)
}
