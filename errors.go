package resignal

import (
	"errors"
	"fmt"
)

// ErrTaskUnsettled is returned by Task.Result when the task has not yet
// completed or failed. Abandoned tasks (cancelled work, waits torn down by
// context disposal) report it forever.
var ErrTaskUnsettled = errors.New("resignal: task has not settled")

// EffectPanicError wraps a panic recovered from an effect function. The panic
// is converted into the signal's failure path: it populates Err() and fires
// the error listener group like any other effect failure.
type EffectPanicError struct {
	Value any    // the recovered panic value
	Stack []byte // stack trace captured at recovery
}

// Error implements the error interface.
func (e *EffectPanicError) Error() string {
	return fmt.Sprintf("resignal: effect panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error, enabling
// errors.Is/As through the recovery.
func (e *EffectPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
