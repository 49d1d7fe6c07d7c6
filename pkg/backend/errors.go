package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the backend could not be acquired: unknown
	// kind, or a device that cannot be opened as asked.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrClosed means work was dispatched to a released backend.
	ErrClosed = errors.New("backend closed")
)

// Error reports a backend failure, naming the backend and operation.
type Error struct {
	Backend Kind
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
