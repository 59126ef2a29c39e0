// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/correlation/internal/tensor"
)

// RawTensor is the low-level tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Device()
//   - Zero-copy data access via AsFloat32() and AsFloat64()
//   - Deep copies via Clone()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3, 8, 8}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()
type RawTensor = tensor.RawTensor

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType represents runtime type information for tensors.
type DataType = tensor.DataType

// Device represents the compute device that owns a tensor's memory.
type Device = tensor.Device

// Tolerance bounds the elementwise difference accepted by AllClose.
type Tolerance = tensor.Tolerance

// Diff summarizes the largest elementwise difference between two tensors.
type Diff = tensor.Diff

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
)

// Supported compute devices.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
)

// NewRaw creates a zero-initialized RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a zero-filled CPU tensor.
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.Zeros(shape, dtype)
}

// Full creates a float tensor with every element set to value.
func Full(shape Shape, dtype DataType, value float64) (*RawTensor, error) {
	return tensor.Full(shape, dtype, value)
}

// FromFloat32 creates a Float32 tensor by copying data.
func FromFloat32(shape Shape, data []float32) (*RawTensor, error) {
	return tensor.FromFloat32(shape, data)
}

// FromFloat64 creates a Float64 tensor by copying data.
func FromFloat64(shape Shape, data []float64) (*RawTensor, error) {
	return tensor.FromFloat64(shape, data)
}

// Randn creates a float tensor with standard normal values drawn from rng.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) (*RawTensor, error) {
	return tensor.Randn(shape, dtype, rng)
}

// MaxAbsDiff returns the largest elementwise difference between a and b.
func MaxAbsDiff(a, b *RawTensor) (Diff, error) {
	return tensor.MaxAbsDiff(a, b)
}

// AllClose reports whether every element of a is within tol of b.
func AllClose(a, b *RawTensor, tol Tolerance) (bool, error) {
	return tensor.AllClose(a, b, tol)
}

// DefaultTolerance returns the comparison tolerance for a data type.
func DefaultTolerance(dtype DataType) Tolerance {
	return tensor.DefaultTolerance(dtype)
}
