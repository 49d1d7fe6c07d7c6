package pixdump

import (
	"errors"
	"fmt"
)

// ErrWrite is wrapped by every failure to produce an output file.
var ErrWrite = errors.New("write failed")

type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write '%s': %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }
