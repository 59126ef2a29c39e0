package tensor

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// Tolerance bounds the elementwise difference accepted by AllClose:
// |a - b| <= Abs + Rel*|b|.
type Tolerance struct {
	Abs float64
	Rel float64
}

// DefaultTolerance returns a tolerance suited to comparing results that were
// accumulated in a different order (e.g. CPU against GPU).
func DefaultTolerance(dtype DataType) Tolerance {
	if dtype == Float32 {
		return Tolerance{Abs: 1e-4, Rel: 1e-4}
	}
	return Tolerance{Abs: 1e-9, Rel: 1e-9}
}

// Diff summarizes the largest elementwise difference between two tensors.
type Diff struct {
	MaxAbs float64 // Largest |a - b|; +Inf if any pair contains a NaN
	Index  int     // Flat index of MaxAbs
}

func checkComparable(a, b *RawTensor) error {
	if a == nil || b == nil {
		return fmt.Errorf("compare: nil tensor")
	}
	if !a.shape.Equal(b.shape) {
		return fmt.Errorf("compare: shapes %v and %v differ", []int(a.shape), []int(b.shape))
	}
	if a.dtype != b.dtype {
		return fmt.Errorf("compare: dtypes %s and %s differ", a.dtype, b.dtype)
	}
	if !a.dtype.IsFloat() {
		return fmt.Errorf("compare: unsupported dtype %s", a.dtype)
	}
	return nil
}

// MaxAbsDiff returns the largest elementwise difference between a and b.
func MaxAbsDiff(a, b *RawTensor) (Diff, error) {
	if err := checkComparable(a, b); err != nil {
		return Diff{}, err
	}

	var d Diff
	switch a.dtype {
	case Float32:
		x, y := a.AsFloat32(), b.AsFloat32()
		var maxAbs float32
		for i := range x {
			if math32.IsNaN(x[i]) || math32.IsNaN(y[i]) {
				return Diff{MaxAbs: math.Inf(1), Index: i}, nil
			}
			if diff := math32.Abs(x[i] - y[i]); diff > maxAbs {
				maxAbs, d.Index = diff, i
			}
		}
		d.MaxAbs = float64(maxAbs)
	case Float64:
		x, y := a.AsFloat64(), b.AsFloat64()
		for i := range x {
			if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
				return Diff{MaxAbs: math.Inf(1), Index: i}, nil
			}
			if diff := math.Abs(x[i] - y[i]); diff > d.MaxAbs {
				d.MaxAbs, d.Index = diff, i
			}
		}
	}
	return d, nil
}

// AllClose reports whether every element of a is within tol of b.
func AllClose(a, b *RawTensor, tol Tolerance) (bool, error) {
	if err := checkComparable(a, b); err != nil {
		return false, err
	}

	switch a.dtype {
	case Float32:
		abs, rel := float32(tol.Abs), float32(tol.Rel)
		x, y := a.AsFloat32(), b.AsFloat32()
		for i := range x {
			if !(math32.Abs(x[i]-y[i]) <= abs+rel*math32.Abs(y[i])) {
				return false, nil
			}
		}
	case Float64:
		x, y := a.AsFloat64(), b.AsFloat64()
		for i := range x {
			if !(math.Abs(x[i]-y[i]) <= tol.Abs+tol.Rel*math.Abs(y[i])) {
				return false, nil
			}
		}
	}
	return true, nil
}
