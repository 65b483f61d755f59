package resignal

import "sync"

// Group is an ordered multicast dispatcher. Callbacks are dispatched in
// registration order against a snapshot of the registration list taken at
// call time, so additions and removals triggered from inside a callback never
// affect the in-progress dispatch pass.
//
// The zero value is ready to use.
type Group[T any] struct {
	mu      sync.Mutex
	entries []*groupEntry[T]
	called  bool
}

type groupEntry[T any] struct {
	fn     func(T)
	active bool
}

// Add registers fn and returns its remover. Each Add returns an independent,
// single-use remover: calling it a second time is a no-op, as is removing a
// callback that was already cleared.
func (g *Group[T]) Add(fn func(T)) (remove func()) {
	e := &groupEntry[T]{fn: fn, active: true}

	g.mu.Lock()
	g.entries = append(g.entries, e)
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if !e.active {
			return
		}
		e.active = false
		for i, cur := range g.entries {
			if cur == e {
				g.entries = append(g.entries[:i], g.entries[i+1:]...)
				return
			}
		}
	}
}

// Call invokes every currently registered callback with v.
func (g *Group[T]) Call(v T) {
	g.mu.Lock()
	g.called = true
	snapshot := make([]*groupEntry[T], len(g.entries))
	copy(snapshot, g.entries)
	g.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}

// Clear removes all registered callbacks. Removers handed out earlier become
// no-ops.
func (g *Group[T]) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entries {
		e.active = false
	}
	g.entries = nil
}

// Size reports the number of currently registered callbacks.
func (g *Group[T]) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Called reports whether Call has ever been invoked on this group.
func (g *Group[T]) Called() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.called
}

// teardown collects the subscription removers a wait operation owns, so they
// can be released together exactly once. Removers added after release run
// immediately.
type teardown struct {
	mu       sync.Mutex
	offs     []func()
	released bool
}

func (td *teardown) add(off func()) {
	td.mu.Lock()
	if td.released {
		td.mu.Unlock()
		off()
		return
	}
	td.offs = append(td.offs, off)
	td.mu.Unlock()
}

func (td *teardown) release() {
	td.mu.Lock()
	if td.released {
		td.mu.Unlock()
		return
	}
	td.released = true
	offs := td.offs
	td.offs = nil
	td.mu.Unlock()

	for _, off := range offs {
		off()
	}
}
