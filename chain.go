package resignal

import (
	"fmt"
	"sync"
)

// Restart is the sentinel a chain step returns to reset the chain to its
// original item list and continue from the beginning.
var Restart = &restartSentinel{}

type restartSentinel struct{}

// Step is a chain step function. It receives the previously satisfied signal
// (nil for the first step) and returns the next item to wait on: an
// AnySignal, a []AnySignal, Restart, or nil to terminate the chain resolving
// with the previous signal.
type Step func(prev AnySignal) any

// ChainOf runs a sequential chain over items, which may be signals, signal
// lists, or step functions, and returns a task resolving with the last
// satisfied signal (nil if none ran). Waiting items subscribe to each
// candidate's emit and error groups: the first to emit advances the chain,
// any error fails it. Only one step's subscriptions are live at a time; the
// previous step's subscriptions are fully drained before advancing. Teardown
// is tied to the context's dispose group, with the same abandonment semantics
// as WaitAll.
func ChainOf(ec *Context, items ...any) *Task[AnySignal] {
	out := NewTask[AnySignal]()
	c := &chain{original: items, out: out}
	ec.OnDispose(c.stop)
	c.advance(nil, items)
	return out
}

type chain struct {
	original []any
	out      *Task[AnySignal]

	mu      sync.Mutex
	step    *teardown
	gen     uint64
	claimed bool
	done    bool
}

// claim consumes the live step identified by gen. Exactly one emit or error
// of a waiting step may advance the chain; concurrent settlements of sibling
// signals in the same step lose the claim and are dropped.
func (c *chain) claim(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || gen != c.gen || c.claimed {
		return false
	}
	c.claimed = true
	return true
}

// stop abandons the chain, releasing the live step's subscriptions without
// settling the task.
func (c *chain) stop() {
	c.mu.Lock()
	c.done = true
	td := c.step
	c.step = nil
	c.mu.Unlock()
	if td != nil {
		td.release()
	}
}

func (c *chain) advance(prev AnySignal, rest []any) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	td := c.step
	c.step = nil
	c.mu.Unlock()
	if td != nil {
		td.release()
	}

	for {
		if len(rest) == 0 {
			c.finish(prev, nil)
			return
		}
		item := rest[0]
		rest = rest[1:]

		if step := asStep(item); step != nil {
			next := step(prev)
			if next == nil {
				c.finish(prev, nil)
				return
			}
			if _, restart := next.(*restartSentinel); restart {
				rest = c.original
				continue
			}
			item = next
		}

		c.wait(item, rest)
		return
	}
}

// wait subscribes to the item's signal(s); the first to emit advances the
// chain with that signal as the new previous. Each step arms a fresh claim
// so only one settlement of the step advances.
func (c *chain) wait(item any, rest []any) {
	sigs := chainSignals(item)
	td := &teardown{}

	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.step = td
	c.gen++
	c.claimed = false
	gen := c.gen
	c.mu.Unlock()

	for _, sig := range sigs {
		sig := sig
		onEmit := func() {
			if !c.claim(gen) {
				return
			}
			c.advance(sig, rest)
		}
		onError := func(err error) {
			if !c.claim(gen) {
				return
			}
			c.finish(nil, err)
		}
		td.add(sig.onEmitAny(onEmit))
		td.add(sig.onErrorAny(onError))
		replayWrapped(sig, onEmit, onError)
	}
}

func (c *chain) finish(last AnySignal, err error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	td := c.step
	c.step = nil
	c.mu.Unlock()
	if td != nil {
		td.release()
	}

	if err != nil {
		c.out.Fail(err)
	} else {
		c.out.Complete(last)
	}
}

func asStep(item any) Step {
	switch fn := item.(type) {
	case Step:
		return fn
	case func(prev AnySignal) any:
		return fn
	default:
		return nil
	}
}

func chainSignals(item any) []AnySignal {
	switch v := item.(type) {
	case AnySignal:
		return []AnySignal{v}
	case []AnySignal:
		return v
	default:
		panic(fmt.Sprintf("resignal: chain item must be AnySignal, []AnySignal, or Step, got %T", item))
	}
}
