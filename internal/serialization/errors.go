package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrFingerprintMismatch = errors.New("fingerprint mismatch: file may be corrupted")
	ErrOffsetOverlap       = errors.New("tensor offsets overlap")
	ErrOutOfBounds         = errors.New("tensor extends beyond data section")
	ErrNegativeOffset      = errors.New("negative offset or size")
	ErrTooManyTensors      = errors.New("too many tensors in file")
	ErrTensorNameTooLong   = errors.New("tensor name too long")
	ErrInvalidTensorName   = errors.New("invalid tensor name")
	ErrHeaderTooLarge      = errors.New("header exceeds maximum size")
	ErrTensorNotFound      = errors.New("tensor not found")
	ErrUnsupportedDType    = errors.New("unsupported dtype")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Err     error  // One of the sentinel errors above
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%v: tensors %q and %q: %s", e.Err, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%v: tensor %q: %s", e.Err, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Details)
}

// Unwrap returns the sentinel, so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
