package runtime

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Run.
var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("runtime: invalid config")

	// ErrTransportClosed is returned when the pipe's inbound side ends.
	ErrTransportClosed = errors.New("runtime: transport closed")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("runtime: already running")
)

// RuntimeError wraps an error with the operation that failed.
type RuntimeError struct {
	Session string
	Op      string // Operation that failed
	Err     error  // Underlying error
}

// Error returns the error message with session context.
func (e *RuntimeError) Error() string {
	if e.Session == "" {
		return fmt.Sprintf("runtime: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("runtime: session %s: %s: %v", e.Session, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func newRuntimeError(session, op string, err error) *RuntimeError {
	return &RuntimeError{Session: session, Op: op, Err: err}
}
