// Package resignal provides a structured-concurrency signal primitive for
// coordinating asynchronous application workflows with explicit
// cancellation, racing, joining, and sequencing.
//
// A Signal is an addressable, re-invocable unit of emitted state. Invoking a
// signal with a value, a pending Task, or an effect function creates a fresh
// effect Context, runs the effect under that context, and resolves the signal
// from its outcome:
//
//	counter := resignal.New(resignal.WithDefault(0))
//	counter.Invoke(resignal.Value(counter.Payload() + 1))
//
// Effect functions receive the Context and may wait on other signals, race or
// join several awaitables, spawn independent child signals, or run sequential
// chains:
//
//	search := resignal.Spawn(resignal.Effect(func(ec *resignal.Context) (resignal.Result[string], error) {
//	    res, err := resignal.WaitFirst(ec, map[string]resignal.AnySignal{
//	        "data":    resignal.Wrap(fetchData(ec.StdContext())),
//	        "timeout": resignal.Wrap(timer.After(3 * time.Second)),
//	    }).Wait(ec.StdContext())
//	    if err != nil {
//	        return resignal.Result[string]{}, err
//	    }
//	    if res["timeout"] != nil {
//	        return resignal.Result[string]{}, errors.New("search timed out")
//	    }
//	    return resignal.Done(res["data"].PayloadAny().(string)), nil
//	}))
//
// # Observation
//
// Every signal exposes three listener groups: emit (fires after a successful
// resolution), error (fires after a failed one), and loading (fires with the
// pending Task when a resolution becomes asynchronous). Dispatch is
// registration-order and snapshot-stable: a callback that removes itself or
// adds new listeners during dispatch never affects the in-progress pass.
//
// # Supersession
//
// Invoking a signal while a prior invocation is still pending supersedes it.
// The superseded invocation's eventual settlement, success or failure, is
// silently dropped: it mutates nothing and fires no listeners. The guard is a
// generation counter captured at invocation start, combined with owning
// context identity.
//
// # Cancellation
//
// Cancellation is cooperative, not preemptive. It flips the cancelled flag,
// stops the context's std context, cancels the in-flight Task, and tears down
// every listener subscription the context owns. Cancellation is explicitly
// not an error: it never populates Err(). In-flight waits are not
// retroactively rejected; their returned Task is abandoned and never
// settles. See WaitAll.
package resignal
