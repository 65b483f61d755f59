// Package devtools exposes a development HTTP surface over the engine: a
// health endpoint, Prometheus metrics, a live WebSocket stream of lifecycle
// events, and a JSON snapshot of tracked signals.
package devtools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/linq2js/resignal"
)

// SignalState is the inspectable snapshot of one tracked signal.
type SignalState struct {
	Key       string `json:"key"`
	Payload   string `json:"payload"`
	Error     string `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled"`
	Pending   bool   `json:"pending"`
}

// Registry tracks signals for inspection. The zero value is ready to use.
type Registry struct {
	mu   sync.Mutex
	sigs map[string]resignal.AnySignal
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Track registers sig under key, replacing any previous entry. It returns an
// untrack function.
func (r *Registry) Track(key string, sig resignal.AnySignal) (untrack func()) {
	r.mu.Lock()
	if r.sigs == nil {
		r.sigs = make(map[string]resignal.AnySignal)
	}
	r.sigs[key] = sig
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.sigs[key] == sig {
			delete(r.sigs, key)
		}
	}
}

// Snapshot returns the current state of every tracked signal, ordered by key.
func (r *Registry) Snapshot() []SignalState {
	r.mu.Lock()
	states := make([]SignalState, 0, len(r.sigs))
	for key, sig := range r.sigs {
		st := SignalState{
			Key:       key,
			Payload:   fmt.Sprintf("%v", sig.PayloadAny()),
			Cancelled: sig.Cancelled(),
			Pending:   sig.Async() != nil,
		}
		if err := sig.Err(); err != nil {
			st.Error = err.Error()
		}
		states = append(states, st)
	}
	r.mu.Unlock()

	sort.Slice(states, func(i, j int) bool { return states[i].Key < states[j].Key })
	return states
}
