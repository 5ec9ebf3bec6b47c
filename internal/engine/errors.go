package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState is returned when an operation is called in a state
	// that does not allow it. The wrapping message names both states.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrDisposed is returned when a session is disposed while an
	// operation is in flight. The operation's result is discarded.
	ErrDisposed = errors.New("session disposed")
)

// StoreError reports a failed store round trip.
//
// The matrix is left in its optimistic state; nothing is retried.
type StoreError struct {
	// Op names the store operation: "query_cells", "upsert_cells",
	// "delete_cells", "update_password" or "reencrypt".
	Op string

	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError returns true if err is or wraps a *StoreError.
// Uses errors.As to handle wrapped and joined errors.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func invalidState(op string, have State, want ...State) error {
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = w.String()
	}
	return fmt.Errorf("%s: %w (state=%s, want %s)", op, ErrInvalidState, have, strings.Join(names, "|"))
}
