package tonemap

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidLuminance is returned when statistics meet a non-positive
	// luminance sample under PolicyReject.
	ErrInvalidLuminance = errors.New("invalid luminance")

	// ErrInvalidExposure is returned when the log-average luminance cannot
	// be used as a divisor.
	ErrInvalidExposure = errors.New("invalid exposure")

	// ErrInvalidFrame is returned for malformed frames and rasters.
	ErrInvalidFrame = errors.New("invalid frame")
)

// LuminanceError names the first (lowest index) offending sample.
type LuminanceError struct {
	Pos   image.Point
	Value float64
}

func (e *LuminanceError) Error() string {
	return fmt.Sprintf("statistics: luminance %g at (%d,%d) is not positive", e.Value, e.Pos.X, e.Pos.Y)
}

func (e *LuminanceError) Unwrap() error { return ErrInvalidLuminance }

type ExposureError struct {
	LogAverage float64
}

func (e *ExposureError) Error() string {
	return fmt.Sprintf("scale exposure: log-average luminance %g cannot be used", e.LogAverage)
}

func (e *ExposureError) Unwrap() error { return ErrInvalidExposure }
