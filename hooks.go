package resignal

import "sync"

// EventKind identifies an engine lifecycle event.
type EventKind uint8

const (
	EventInvoke  EventKind = iota + 1 // a signal invocation started
	EventEmit                         // a signal resolved successfully
	EventError                        // a signal resolution failed
	EventLoading                      // a resolution became asynchronous
	EventCancel                       // a signal was cancelled
	EventReset                        // a signal was reset
	EventDispose                      // an invocation's effect context was disposed
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventInvoke:
		return "invoke"
	case EventEmit:
		return "emit"
	case EventError:
		return "error"
	case EventLoading:
		return "loading"
	case EventCancel:
		return "cancel"
	case EventReset:
		return "reset"
	case EventDispose:
		return "dispose"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification delivered to hooks registered with
// OnEvent. Key is the signal's identity label ("" for anonymous signals);
// Err is set for EventError only.
type Event struct {
	Kind EventKind
	Key  string
	Err  error
}

var (
	hookMu sync.Mutex
	hooks  []*groupEntry[Event]
)

// OnEvent registers a global hook receiving every engine event. Hooks exist
// so observability layers (metrics, tracing, devtools) stay out of the core;
// they must not block. The returned remover is single-use.
func OnEvent(fn func(Event)) (remove func()) {
	e := &groupEntry[Event]{fn: fn, active: true}

	hookMu.Lock()
	hooks = append(hooks, e)
	hookMu.Unlock()

	return func() {
		hookMu.Lock()
		defer hookMu.Unlock()
		if !e.active {
			return
		}
		e.active = false
		for i, cur := range hooks {
			if cur == e {
				hooks = append(hooks[:i], hooks[i+1:]...)
				return
			}
		}
	}
}

func fireEvent(ev Event) {
	hookMu.Lock()
	if len(hooks) == 0 {
		hookMu.Unlock()
		return
	}
	snapshot := make([]*groupEntry[Event], len(hooks))
	copy(snapshot, hooks)
	hookMu.Unlock()

	for _, e := range snapshot {
		e.fn(ev)
	}
}
