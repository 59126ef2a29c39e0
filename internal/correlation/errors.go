package correlation

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrInvalidGeometry reports a non-positive parameter or an input too small
	// to produce a positive output dimension.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrShapeMismatch reports tensors whose shapes disagree with each other or
	// with the shape the forward pass produces.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedConfiguration reports a valid request the chosen backend
	// cannot execute (dtype, mixed dtypes, device limits).
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
)

// wrapf formats a package error around sentinel.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("correlation: %w: %s", sentinel, fmt.Sprintf(format, args...))
}
