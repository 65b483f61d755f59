// Package binding connects signals to a rendering host: a renderer is
// invalidated whenever any bound signal emits or starts loading, and an
// optional error boundary captures bound signal failures instead of leaving
// them on the signal alone.
package binding

import (
	"sync"

	"github.com/linq2js/resignal"
)

// Renderer receives invalidation callbacks when bound signals change. An
// invalidation means a re-read of the bound signals' payloads is due;
// implementations coalesce as they see fit.
type Renderer interface {
	Invalidate()
}

// ErrorBoundary captures failures from bound signals.
type ErrorBoundary interface {
	CaptureError(err error)
}

// Option configures a Binding.
type Option func(*Binding)

// WithErrorBoundary routes bound signal failures to eb. Without it, failures
// invalidate the renderer like any other change.
func WithErrorBoundary(eb ErrorBoundary) Option {
	return func(b *Binding) {
		b.boundary = eb
	}
}

// Binding is a live connection between a set of signals and a renderer.
// Release it when the rendering host unmounts.
type Binding struct {
	renderer Renderer
	boundary ErrorBoundary
	sigs     []resignal.AnySignal

	mu       sync.Mutex
	removes  []func()
	released bool
}

// Bind subscribes the renderer to every signal's emit, error, and loading
// groups. Emissions and loading transitions invalidate the renderer; errors
// go to the boundary when one is configured.
func Bind(r Renderer, sigs []resignal.AnySignal, opts ...Option) *Binding {
	b := &Binding{renderer: r, sigs: sigs}
	for _, opt := range opts {
		opt(b)
	}

	for _, sig := range sigs {
		remove := sig.Observe(
			r.Invalidate,
			func(err error) {
				if b.boundary != nil {
					b.boundary.CaptureError(err)
					return
				}
				r.Invalidate()
			},
			func(resignal.AnyTask) {
				r.Invalidate()
			},
		)
		b.removes = append(b.removes, remove)
	}
	return b
}

// BindContext is Bind with the binding's lifetime tied to an effect context:
// disposing the context releases the binding.
func BindContext(ec *resignal.Context, r Renderer, sigs []resignal.AnySignal, opts ...Option) *Binding {
	b := Bind(r, sigs, opts...)
	ec.OnDispose(b.Release)
	return b
}

// Pending reports whether any bound signal has an in-flight asynchronous
// resolution. Rendering hosts use it to decide on loading affordances.
func (b *Binding) Pending() bool {
	for _, sig := range b.sigs {
		if sig.Async() != nil {
			return true
		}
	}
	return false
}

// Release removes every subscription the binding holds. Idempotent.
func (b *Binding) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	removes := b.removes
	b.removes = nil
	b.mu.Unlock()

	for _, remove := range removes {
		remove()
	}
}
