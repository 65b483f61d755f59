package resignal

import "sync"

// WaitOption configures a WaitAll or WaitFirst operation.
type WaitOption func(*waitConfig)

type waitConfig struct {
	onDone func(map[string]AnySignal)
	onFail func(error, map[string]AnySignal)
}

// OnDone registers a callback receiving the result mapping when the wait
// resolves.
func OnDone(fn func(map[string]AnySignal)) WaitOption {
	return func(cfg *waitConfig) {
		cfg.onDone = fn
	}
}

// OnFail registers a callback receiving the first participant failure and
// all participants when the wait rejects.
func OnFail(fn func(error, map[string]AnySignal)) WaitOption {
	return func(cfg *waitConfig) {
		cfg.onFail = fn
	}
}

// WaitAll waits for every entry in targets to emit successfully, resolving
// the returned task with the key → signal mapping. The first entry to error
// rejects the task immediately with that error and tears down every other
// subscription; outcomes of not-yet-settled participants are discarded.
//
// Wrap adapts bare tasks into entries. All subscriptions are registered
// against the context's dispose group: if the context is disposed before the
// wait settles, the returned task is abandoned rather than rejected with a
// cancellation error: it never settles.
func WaitAll(ec *Context, targets map[string]AnySignal, opts ...WaitOption) *Task[map[string]AnySignal] {
	var cfg waitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	out := NewTask[map[string]AnySignal]()
	if len(targets) == 0 {
		empty := map[string]AnySignal{}
		if cfg.onDone != nil {
			cfg.onDone(empty)
		}
		out.Complete(empty)
		return out
	}

	td := &teardown{}
	var (
		mu        sync.Mutex
		satisfied = make(map[string]AnySignal, len(targets))
		remaining = len(targets)
		done      bool
	)

	for key, sig := range targets {
		key, sig := key, sig
		onEmit := func() {
			mu.Lock()
			if done || satisfied[key] != nil {
				mu.Unlock()
				return
			}
			satisfied[key] = sig
			remaining--
			finished := remaining == 0
			if finished {
				done = true
			}
			mu.Unlock()
			if !finished {
				return
			}
			td.release()
			if cfg.onDone != nil {
				cfg.onDone(satisfied)
			}
			out.Complete(satisfied)
		}
		onError := func(err error) {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			done = true
			mu.Unlock()
			td.release()
			if cfg.onFail != nil {
				cfg.onFail(err, participants(targets))
			}
			out.Fail(err)
		}
		td.add(sig.onEmitAny(onEmit))
		td.add(sig.onErrorAny(onError))
		replayWrapped(sig, onEmit, onError)
	}

	ec.OnDispose(td.release)
	return out
}

// WaitFirst races the entries in targets, resolving the returned task as soon
// as any single entry emits. The result mapping contains only the winning
// key; every other entry's subscription is torn down at that point and its
// outcome is never consulted. An error from any entry before a winner rejects
// the task. Abandonment on disposal matches WaitAll.
func WaitFirst(ec *Context, targets map[string]AnySignal, opts ...WaitOption) *Task[map[string]AnySignal] {
	var cfg waitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	out := NewTask[map[string]AnySignal]()
	td := &teardown{}
	var (
		mu   sync.Mutex
		done bool
	)
	settleOnce := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return false
		}
		done = true
		return true
	}

	for key, sig := range targets {
		key, sig := key, sig
		onEmit := func() {
			if !settleOnce() {
				return
			}
			td.release()
			won := map[string]AnySignal{key: sig}
			if cfg.onDone != nil {
				cfg.onDone(won)
			}
			out.Complete(won)
		}
		onError := func(err error) {
			if !settleOnce() {
				return
			}
			td.release()
			if cfg.onFail != nil {
				cfg.onFail(err, participants(targets))
			}
			out.Fail(err)
		}
		td.add(sig.onEmitAny(onEmit))
		td.add(sig.onErrorAny(onError))
		replayWrapped(sig, onEmit, onError)
	}

	ec.OnDispose(td.release)
	return out
}

func participants(targets map[string]AnySignal) map[string]AnySignal {
	all := make(map[string]AnySignal, len(targets))
	for key, sig := range targets {
		all[key] = sig
	}
	return all
}

// replayWrapped delivers the settlement of an already-settled wrapped
// awaitable to a subscriber that attached after its one emission fired.
// Callers' once-guards absorb the duplicate when the settlement raced the
// subscription instead.
func replayWrapped(sig AnySignal, onEmit func(), onError func(err error)) {
	if !sig.wrapSettled() {
		return
	}
	if err := sig.Err(); err != nil {
		onError(err)
		return
	}
	onEmit()
}
