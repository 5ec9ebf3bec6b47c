package engine

import "fmt"

// State is a session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StatePendingPassword
	StateReady
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StatePendingPassword:
		return "pending_password"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
