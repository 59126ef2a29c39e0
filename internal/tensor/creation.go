package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Zeros creates a zero-filled tensor of the given float dtype on the CPU.
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return NewRaw(shape, dtype, CPU)
}

// FromFloat32 creates a Float32 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromFloat32(shape Shape, data []float32) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", []int(shape), shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float32, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// FromFloat64 creates a Float64 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromFloat64(shape Shape, data []float64) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", []int(shape), shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, Float64, CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.AsFloat64(), data)
	return raw, nil
}

// Full creates a float tensor with every element set to value.
func Full(shape Shape, dtype DataType, value float64) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = value
		}
	default:
		return nil, fmt.Errorf("full: unsupported dtype %s", dtype)
	}
	return raw, nil
}

// Randn creates a float tensor with values drawn from N(0, 1) using rng.
// Box-Muller transform, two samples per pair of uniforms.
// Note: math/rand is intended here, callers seed it for reproducible inputs.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}

	n := raw.NumElements()
	sample := func() (float64, float64) {
		u1 := 1.0 - rng.Float64() // (0, 1], keeps Log finite
		u2 := rng.Float64()
		r := math.Sqrt(-2.0 * math.Log(u1))
		return r * math.Cos(2.0*math.Pi*u2), r * math.Sin(2.0*math.Pi*u2)
	}

	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := 0; i < n; i += 2 {
			z0, z1 := sample()
			data[i] = float32(z0)
			if i+1 < n {
				data[i+1] = float32(z1)
			}
		}
	case Float64:
		data := raw.AsFloat64()
		for i := 0; i < n; i += 2 {
			z0, z1 := sample()
			data[i] = z0
			if i+1 < n {
				data[i+1] = z1
			}
		}
	default:
		return nil, fmt.Errorf("randn: unsupported dtype %s", dtype)
	}
	return raw, nil
}
