// Package codec provides the cursor-addressed byte buffers and the error
// taxonomy shared by every protocol layer codec.
package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five failure classes of the engine.
var (
	// ErrTruncated indicates fewer bytes remain than a structure requires.
	ErrTruncated = errors.New("strix: truncated input")

	// ErrInvalidField indicates a decoded field violates a structural constraint.
	ErrInvalidField = errors.New("strix: invalid field value")

	// ErrShortBuffer indicates the encode destination is too small.
	ErrShortBuffer = errors.New("strix: insufficient buffer capacity")

	// ErrConfig indicates a setup-time configuration error, such as a
	// duplicate dissector registration.
	ErrConfig = errors.New("strix: invalid configuration")

	// ErrUnresolved indicates finalization could not compute a derived field.
	ErrUnresolved = errors.New("strix: unresolvable derived field")
)

// LayerError wraps a decode failure with the name of the failing layer and
// the buffer offset at which its header started.
type LayerError struct {
	Layer  string
	Offset int
	Err    error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %s at offset %d: %v", e.Layer, e.Offset, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }
