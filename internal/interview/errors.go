package interview

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// SessionStateError indicates an operation that is not valid in the
// session's current state.
type SessionStateError struct {
	Op    string
	State string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// PersistenceError wraps a store failure with the operation that caused it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsStateError reports whether err is, or wraps, a SessionStateError.
func IsStateError(err error) bool {
	var se *SessionStateError
	return errors.As(err, &se)
}
