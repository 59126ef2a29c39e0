// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package correlation

import (
	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/parallel"
	"github.com/born-ml/correlation/tensor"
)

// Pair is a (height, width) parameter.
type Pair = correlation.Pair

// Normalization selects how the accumulated window sum is scaled.
type Normalization = correlation.Normalization

// Params is the geometric configuration of a correlation.
type Params = correlation.Params

// Geometry is the resolved shape bookkeeping for one input size and Params.
type Geometry = correlation.Geometry

// Backend is a device implementation of the correlation entry points.
type Backend = correlation.Backend

// Scheduler decides how the independent work items of a kernel are executed.
type Scheduler = correlation.Scheduler

// GridScheduler is a Scheduler with a native (outer, inner) grid entry point.
type GridScheduler = correlation.GridScheduler

// Sequential is the single-threaded reference scheduler.
type Sequential = correlation.Sequential

// Parallel fans work items out over goroutines.
type Parallel = correlation.Parallel

// ParallelConfig controls the Parallel scheduler.
type ParallelConfig = parallel.Config

// Normalization modes.
const (
	NormalizeNone         = correlation.NormalizeNone
	NormalizeKernelVolume = correlation.NormalizeKernelVolume
)

// Error taxonomy.
var (
	ErrInvalidGeometry          = correlation.ErrInvalidGeometry
	ErrShapeMismatch            = correlation.ErrShapeMismatch
	ErrUnsupportedConfiguration = correlation.ErrUnsupportedConfiguration
)

// Square returns the pair {n, n}.
func Square(n int) Pair {
	return correlation.Square(n)
}

// DefaultParams returns kernel 1, patch 1, stride 1, padding 0, dilation 1,
// dilation_patch 1 with no normalization.
func DefaultParams() Params {
	return correlation.DefaultParams()
}

// Resolve maps an input size and Params to output dims and patch extents.
func Resolve(h, w int, p Params) (Geometry, error) {
	return correlation.Resolve(h, w, p)
}

// OutputShape returns [B, PH, PW, oH, oW] for a [B, C, H, W] input shape.
func OutputShape(input tensor.Shape, p Params) (tensor.Shape, error) {
	return correlation.OutputShape(input, p)
}

// NewParallel returns a Parallel scheduler sized to the machine.
func NewParallel() Parallel {
	return correlation.NewParallel()
}

// Forward computes the correlation volume of in1 against in2 on the host.
func Forward(s Scheduler, in1, in2 *tensor.RawTensor, p Params) (*tensor.RawTensor, error) {
	return correlation.Forward(s, in1, in2, p)
}

// ForwardInto writes the correlation volume into the caller-owned out.
func ForwardInto(s Scheduler, out, in1, in2 *tensor.RawTensor, p Params) error {
	return correlation.ForwardInto(s, out, in1, in2, p)
}

// Backward computes the gradients of both inputs on the host.
func Backward(s Scheduler, in1, in2, grad *tensor.RawTensor, p Params) (*tensor.RawTensor, *tensor.RawTensor, error) {
	return correlation.Backward(s, in1, in2, grad, p)
}

// BackwardInto writes both input gradients into caller-owned d1 and d2.
func BackwardInto(s Scheduler, d1, d2, in1, in2, grad *tensor.RawTensor, p Params) error {
	return correlation.BackwardInto(s, d1, d2, in1, in2, grad, p)
}

// FlattenPatches views a [B, PH, PW, oH, oW] volume as [B, PH*PW, oH, oW].
func FlattenPatches(volume *tensor.RawTensor) (*tensor.RawTensor, error) {
	return correlation.FlattenPatches(volume)
}
