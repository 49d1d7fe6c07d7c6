package source

import (
	"errors"
	"fmt"
)

// ErrDecode is wrapped by every failure to produce a Frame.
var ErrDecode = errors.New("decode failed")

type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode '%s': %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

func decodeErr(path string, err error) error {
	return &DecodeError{Path: path, Err: err}
}
