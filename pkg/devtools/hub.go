package devtools

import (
	"sync"

	"github.com/linq2js/resignal"
)

// WireEvent is the JSON form of an engine event on the /events stream.
type WireEvent struct {
	Kind  string `json:"kind"`
	Key   string `json:"key"`
	Error string `json:"error,omitempty"`
}

// clientBuffer is the per-subscriber channel depth. A subscriber that falls
// this far behind starts losing events rather than blocking the engine.
const clientBuffer = 64

// hub fans engine events out to WebSocket subscribers. Delivery is
// best-effort: a full subscriber buffer drops the event for that subscriber.
type hub struct {
	mu      sync.Mutex
	clients map[chan WireEvent]struct{}
	detach  func()
}

func newHub() *hub {
	h := &hub{clients: make(map[chan WireEvent]struct{})}
	h.detach = resignal.OnEvent(func(ev resignal.Event) {
		h.broadcast(toWire(ev))
	})
	return h
}

func toWire(ev resignal.Event) WireEvent {
	w := WireEvent{Kind: ev.Kind.String(), Key: ev.Key}
	if ev.Err != nil {
		w.Error = ev.Err.Error()
	}
	return w
}

func (h *hub) broadcast(ev WireEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Slow subscriber, drop.
		}
	}
}

func (h *hub) subscribe() (events chan WireEvent, unsubscribe func()) {
	ch := make(chan WireEvent, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *hub) close() {
	h.detach()
	h.mu.Lock()
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan WireEvent]struct{})
	h.mu.Unlock()
}
