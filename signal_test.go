package resignal

import (
	"errors"
	"testing"
	"time"
)

func TestInvokeValueSetsPayloadAndEmitsOnce(t *testing.T) {
	s := New[int](WithKey[int]("n"))
	emits := 0
	errs := 0
	s.OnEmit(func(v int) {
		emits++
		if v != 5 {
			t.Errorf("Emitted %d, want 5", v)
		}
	})
	s.OnError(func(error) { errs++ })

	s.Invoke(Value(5))

	if s.Payload() != 5 {
		t.Errorf("Payload() = %d, want 5", s.Payload())
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
	if emits != 1 || errs != 0 {
		t.Errorf("emits=%d errs=%d, want 1 and 0", emits, errs)
	}
}

func TestInvokeEffectError(t *testing.T) {
	want := errors.New("effect failed")
	s := New[int](WithDefault(3))
	emits := 0
	var got error
	s.OnEmit(func(int) { emits++ })
	s.OnError(func(err error) { got = err })

	s.Invoke(Effect(func(ec *Context) (Result[int], error) {
		return Result[int]{}, want
	}))

	if !errors.Is(s.Err(), want) {
		t.Errorf("Err() = %v, want %v", s.Err(), want)
	}
	if !errors.Is(got, want) {
		t.Errorf("Error group received %v, want %v", got, want)
	}
	if emits != 0 {
		t.Errorf("Expected no emission on error, emits=%d", emits)
	}
	if s.Payload() != 3 {
		t.Errorf("Payload changed on error: %d, want 3", s.Payload())
	}
}

func TestInvokeClearsPriorError(t *testing.T) {
	s := New[int]()
	s.Invoke(Effect(func(ec *Context) (Result[int], error) {
		return Result[int]{}, errors.New("first")
	}))
	if s.Err() == nil {
		t.Fatal("Expected error after failing invocation")
	}

	s.Invoke(Value(1))
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil after successful re-invocation", s.Err())
	}
}

func TestInvokeEffectPanicBecomesError(t *testing.T) {
	inner := errors.New("cause")
	s := New[int]()
	var got error
	s.OnError(func(err error) { got = err })

	s.Invoke(Effect(func(ec *Context) (Result[int], error) {
		panic(inner)
	}))

	var pe *EffectPanicError
	if !errors.As(got, &pe) {
		t.Fatalf("Expected EffectPanicError, got %T", got)
	}
	if !errors.Is(got, inner) {
		t.Error("Expected errors.Is to see through the panic wrapper")
	}
	if len(pe.Stack) == 0 {
		t.Error("Expected a captured stack trace")
	}
}

func TestInvokeAbortIsSilent(t *testing.T) {
	s := New[int](WithDefault(9))
	emits := 0
	s.OnEmit(func(int) { emits++ })

	s.Invoke(Effect(func(ec *Context) (Result[int], error) {
		return Abort[int](), nil
	}))

	if emits != 0 || s.Payload() != 9 || s.Err() != nil {
		t.Errorf("Abort must leave the signal untouched: emits=%d payload=%d err=%v",
			emits, s.Payload(), s.Err())
	}
}

func TestInvokeFutureResolvesFromTask(t *testing.T) {
	s := New[string]()
	emitted := make(chan string, 1)
	loading := 0
	s.OnEmit(func(v string) { emitted <- v })
	s.OnLoading(func(AnyTask) { loading++ })

	task := NewTask[string]()
	s.Invoke(Future(task))

	if loading != 1 {
		t.Errorf("Expected 1 loading notification, got %d", loading)
	}
	if s.Async() == nil {
		t.Error("Expected Async() to expose the pending task")
	}

	task.Complete("hi")
	select {
	case v := <-emitted:
		if v != "hi" {
			t.Errorf("Emitted %q, want %q", v, "hi")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for emission")
	}
	if s.Payload() != "hi" {
		t.Errorf("Payload() = %q, want %q", s.Payload(), "hi")
	}
	if s.Async() != nil {
		t.Error("Expected Async() nil after settlement")
	}
}

func TestSupersededSettlementIsDropped(t *testing.T) {
	s := New[int]()
	var got []int
	s.OnEmit(func(v int) { got = append(got, v) })

	first := NewTask[int]()
	second := NewTask[int]()
	s.Invoke(Future(first))
	s.Invoke(Future(second)) // supersedes the first invocation

	first.Complete(1) // stale, must be dropped
	second.Complete(2)

	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected only the second settlement [2], got %v", got)
	}
	if s.Payload() != 2 {
		t.Errorf("Payload() = %d, want 2", s.Payload())
	}
}

func TestSupersededFailureIsDropped(t *testing.T) {
	s := New[int]()
	errs := 0
	s.OnError(func(error) { errs++ })

	first := NewTask[int]()
	second := NewTask[int]()
	s.Invoke(Future(first))
	s.Invoke(Future(second))

	first.Fail(errors.New("stale"))
	if errs != 0 || s.Err() != nil {
		t.Errorf("Stale failure leaked: errs=%d err=%v", errs, s.Err())
	}

	second.Complete(10)
	if s.Payload() != 10 {
		t.Errorf("Payload() = %d, want 10", s.Payload())
	}
}

func TestCancelPendingInvocation(t *testing.T) {
	cancelled := 0
	s := New[int](WithOnCancel[int](func() { cancelled++ }))
	emits := 0
	s.OnEmit(func(int) { emits++ })

	task := NewTask[int]()
	ec := s.Invoke(Future(task))

	s.Cancel()
	s.Cancel() // idempotent

	if !s.Cancelled() {
		t.Error("Expected Cancelled() true")
	}
	if s.Err() != nil {
		t.Errorf("Cancellation must not populate Err(), got %v", s.Err())
	}
	if cancelled != 1 {
		t.Errorf("Expected onCancel once, got %d", cancelled)
	}
	if !ec.Cancelled() || !ec.Disposed() {
		t.Error("Expected the owning context cancelled and disposed")
	}

	task.Complete(4)
	if emits != 0 {
		t.Errorf("Post-cancel settlement leaked, emits=%d", emits)
	}
	if s.Payload() != 0 {
		t.Errorf("Payload() = %d, want untouched 0", s.Payload())
	}
}

func TestCancelWithoutOwnerIsNoOp(t *testing.T) {
	called := false
	s := New[int](WithOnCancel[int](func() { called = true }))
	s.Cancel()
	if s.Cancelled() || called {
		t.Error("Cancel with no in-flight invocation must be a no-op")
	}
}

func TestReinvokeClearsCancelledFlag(t *testing.T) {
	s := New[int]()
	s.Invoke(Future(NewTask[int]()))
	s.Cancel()
	if !s.Cancelled() {
		t.Fatal("Expected cancelled flag set")
	}

	s.Invoke(Value(1))
	if s.Cancelled() {
		t.Error("Expected cancelled flag cleared by re-invocation")
	}
}

func TestResetRestoresDefaultAndEmits(t *testing.T) {
	s := New[int](WithDefault(7))
	s.Invoke(Value(20))

	var got []int
	s.OnEmit(func(v int) { got = append(got, v) })

	s.Reset(false)
	if s.Payload() != 7 {
		t.Errorf("Payload() = %d, want default 7", s.Payload())
	}
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("Expected reset emission [7], got %v", got)
	}
}

func TestResetRemoveListeners(t *testing.T) {
	s := New[int]()
	calls := 0
	s.OnEmit(func(int) { calls++ })
	s.OnError(func(error) { calls++ })
	s.OnLoading(func(AnyTask) { calls++ })

	s.Reset(true)
	s.Invoke(Value(1))
	s.Invoke(Future(NewTask[int]()))
	if calls != 0 {
		t.Errorf("Expected all listener groups cleared, calls=%d", calls)
	}
}

func TestResetSupersedesPending(t *testing.T) {
	s := New[int](WithDefault(1))
	task := NewTask[int]()
	s.Invoke(Future(task))

	s.Reset(false)
	task.Complete(99)
	if s.Payload() != 1 {
		t.Errorf("Payload() = %d, stale settlement applied after reset", s.Payload())
	}
}

func TestIncrementEffectAccumulates(t *testing.T) {
	counter := New[int](WithKey[int]("counter"), WithDefault(0))
	var emitted []int
	counter.OnEmit(func(v int) { emitted = append(emitted, v) })

	increment := Effect(func(ec *Context) (Result[int], error) {
		return Done(counter.Payload() + 1), nil
	})
	counter.Invoke(increment)
	counter.Invoke(increment)
	counter.Invoke(increment)

	if counter.Payload() != 3 {
		t.Errorf("Payload() = %d, want 3", counter.Payload())
	}
	if len(emitted) != 3 || emitted[0] != 1 || emitted[1] != 2 || emitted[2] != 3 {
		t.Errorf("Expected emissions [1 2 3], got %v", emitted)
	}
}

func TestWrapAlreadySettledTask(t *testing.T) {
	s := Wrap(Completed("ready"))
	if s.Payload() != "ready" || s.Err() != nil {
		t.Errorf("Wrap(Completed) = (%q, %v), want (ready, nil)", s.Payload(), s.Err())
	}
}

func TestWrapFailedTask(t *testing.T) {
	want := errors.New("wrapped")
	s := Wrap(Failed[string](want))
	if !errors.Is(s.Err(), want) {
		t.Errorf("Err() = %v, want %v", s.Err(), want)
	}
}

func TestReentrantInvocationWins(t *testing.T) {
	s := New[int]()
	stale := NewTask[int]()
	var got []int
	s.OnEmit(func(v int) { got = append(got, v) })

	// The effect re-invokes the signal before returning Await: the inner
	// invocation is newer, so the outer one must not attach.
	s.Invoke(Effect(func(ec *Context) (Result[int], error) {
		s.Invoke(Value(8))
		return Await(stale), nil
	}))

	if s.Async() != nil {
		t.Error("Superseded outer invocation must not attach its task")
	}
	stale.Complete(1)
	if s.Payload() != 8 {
		t.Errorf("Payload() = %d, want 8", s.Payload())
	}
	if len(got) != 1 || got[0] != 8 {
		t.Errorf("Expected emissions [8], got %v", got)
	}
}

func TestOnEventLifecycle(t *testing.T) {
	var kinds []EventKind
	remove := OnEvent(func(ev Event) {
		if ev.Key == "tracked" {
			kinds = append(kinds, ev.Kind)
		}
	})
	defer remove()

	s := New[int](WithKey[int]("tracked"))
	task := NewTask[int]()
	s.Invoke(Future(task))
	task.Complete(1)

	want := []EventKind{EventInvoke, EventLoading, EventDispose, EventEmit}
	if len(kinds) != len(want) {
		t.Fatalf("Event kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("Event kinds %v, want %v", kinds, want)
		}
	}
}
