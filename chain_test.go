package resignal

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestChainAdvancesThroughSignals(t *testing.T) {
	first := New[int](WithKey[int]("first"))
	second := New[int](WithKey[int]("second"))
	ec := newContext()

	task := ChainOf(ec, AnySignal(first), AnySignal(second))

	second.Invoke(Value(1)) // not the live step yet, ignored
	if task.Settled() {
		t.Fatal("Chain must wait on one step at a time")
	}

	first.Invoke(Value(2))
	if task.Settled() {
		t.Fatal("Chain advanced past the second step prematurely")
	}
	if first.emit.Size() != 0 {
		t.Error("Expected the satisfied step's subscriptions drained")
	}

	second.Invoke(Value(3))
	got, err := task.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if got != AnySignal(second) {
		t.Errorf("Expected resolution with the last satisfied signal, got %v", got)
	}
}

func TestChainStepReceivesPrevious(t *testing.T) {
	first := New[int](WithKey[int]("first"))
	second := New[int](WithKey[int]("second"))
	ec := newContext()

	var seen []AnySignal
	task := ChainOf(ec,
		func(prev AnySignal) any {
			seen = append(seen, prev)
			return AnySignal(first)
		},
		func(prev AnySignal) any {
			seen = append(seen, prev)
			return AnySignal(second)
		},
	)

	first.Invoke(Value(1))
	second.Invoke(Value(2))

	if !task.Settled() {
		t.Fatal("Chain never resolved")
	}
	if len(seen) != 2 || seen[0] != nil || seen[1] != AnySignal(first) {
		t.Errorf("Steps saw %v, want [nil first]", seen)
	}
}

func TestChainNilStepTerminates(t *testing.T) {
	first := New[int]()
	never := New[int]()
	ec := newContext()

	task := ChainOf(ec,
		AnySignal(first),
		func(prev AnySignal) any { return nil },
		AnySignal(never),
	)

	first.Invoke(Value(1))

	got, err := task.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if got != AnySignal(first) {
		t.Errorf("Expected termination with the previous signal, got %v", got)
	}
	if never.emit.Size() != 0 {
		t.Error("Terminated chain must not subscribe to later items")
	}

	// A terminated chain never resubscribes.
	first.Invoke(Value(2))
	if first.emit.Size() != 0 {
		t.Error("Terminated chain left subscriptions behind")
	}
}

func TestChainSignalListAdvancesOnAny(t *testing.T) {
	left := New[int]()
	right := New[int]()
	last := New[int]()
	ec := newContext()

	var winner AnySignal
	task := ChainOf(ec,
		[]AnySignal{left, right},
		func(prev AnySignal) any {
			winner = prev
			return AnySignal(last)
		},
	)

	right.Invoke(Value(1))
	if winner != AnySignal(right) {
		t.Errorf("Expected the emitting member to become previous, got %v", winner)
	}
	if left.emit.Size() != 0 {
		t.Error("Expected the non-emitting member's subscription drained")
	}

	last.Invoke(Value(2))
	if !task.Settled() {
		t.Error("Chain never resolved")
	}
}

func TestChainErrorFails(t *testing.T) {
	want := errors.New("step failed")
	first := New[int]()
	ec := newContext()

	task := ChainOf(ec, AnySignal(first))
	first.Invoke(Effect(func(*Context) (Result[int], error) {
		return Result[int]{}, want
	}))

	if _, err := task.Result(); !errors.Is(err, want) {
		t.Errorf("Result() error = %v, want %v", err, want)
	}
	if first.emit.Size() != 0 || first.errs.Size() != 0 {
		t.Error("Failed chain left subscriptions behind")
	}
}

func TestChainRestart(t *testing.T) {
	gate := New[int]()
	rounds := 0
	ec := newContext()

	task := ChainOf(ec,
		AnySignal(gate),
		func(prev AnySignal) any {
			rounds++
			if rounds < 3 {
				return Restart
			}
			return nil
		},
	)

	gate.Invoke(Value(1))
	gate.Invoke(Value(2))
	if task.Settled() {
		t.Fatal("Chain resolved before the final round")
	}

	gate.Invoke(Value(3))
	if !task.Settled() {
		t.Fatal("Chain never resolved after the final round")
	}
	if rounds != 3 {
		t.Errorf("Expected 3 rounds, got %d", rounds)
	}
	got, err := task.Result()
	if err != nil || got != AnySignal(gate) {
		t.Errorf("Result() = (%v, %v), want (gate, nil)", got, err)
	}
}

func TestChainEmptyResolvesNil(t *testing.T) {
	ec := newContext()
	task := ChainOf(ec)
	got, err := task.Result()
	if err != nil || got != nil {
		t.Errorf("Result() = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestChainAbandonedOnDispose(t *testing.T) {
	first := New[int]()
	ec := newContext()
	task := ChainOf(ec, AnySignal(first))

	ec.Dispose()
	first.Invoke(Value(1))

	if task.Settled() {
		t.Error("Disposed chain must leave its task unsettled")
	}
	if first.emit.Size() != 0 {
		t.Error("Expected the live step's subscriptions released by disposal")
	}
}

func TestChainSettledWrappedItem(t *testing.T) {
	last := New[int]()
	ec := newContext()

	task := ChainOf(ec, AnySignal(Wrap(Completed(7))), AnySignal(last))

	if task.Settled() {
		t.Fatal("Chain resolved before the second step")
	}
	last.Invoke(Value(8))

	got, err := task.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if got != AnySignal(last) {
		t.Errorf("Expected resolution with the last signal, got %v", got)
	}
}

func TestChainSettledWrappedFailure(t *testing.T) {
	want := errors.New("already failed")
	ec := newContext()

	task := ChainOf(ec, AnySignal(Wrap(Failed[int](want))))

	if _, err := task.Result(); !errors.Is(err, want) {
		t.Errorf("Result() error = %v, want %v", err, want)
	}
}

func TestChainStepAdvancesOnceUnderConcurrentEmits(t *testing.T) {
	for i := 0; i < 200; i++ {
		a := New[int]()
		b := New[int]()
		next := New[int]()
		ec := newContext()

		var steps int32
		ChainOf(ec, []AnySignal{a, b}, func(prev AnySignal) any {
			atomic.AddInt32(&steps, 1)
			return AnySignal(next)
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.Invoke(Value(1))
		}()
		go func() {
			defer wg.Done()
			b.Invoke(Value(2))
		}()
		wg.Wait()

		if got := atomic.LoadInt32(&steps); got != 1 {
			t.Fatalf("Step ran %d times under concurrent emits, want 1", got)
		}
		ec.Dispose()
	}
}

func TestChainRejectsUnknownItem(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected a panic for an unsupported chain item type")
		}
	}()
	ChainOf(newContext(), 42)
}
