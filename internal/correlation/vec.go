package correlation

import (
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/correlation/internal/tensor"
)

// vecOps are the two strided vector primitives the kernels need. In NCHW
// layout the channel vector at a fixed (y, x) has stride H*W, so the channel
// reduction of the forward pass is a BLAS dot and the gather backward is an axpy.
type vecOps[T tensor.Float] interface {
	// dot returns sum_c x[c*inc] * y[c*inc] for c in [0, n).
	dot(n int, x, y []T, inc int) T
	// axpy performs y[c*inc] += alpha * x[c*inc] for c in [0, n).
	axpy(n int, alpha T, x, y []T, inc int)
}

type f32Ops struct{}

func (f32Ops) dot(n int, x, y []float32, inc int) float32 {
	return blas32.Dot(
		blas32.Vector{N: n, Inc: inc, Data: x},
		blas32.Vector{N: n, Inc: inc, Data: y},
	)
}

func (f32Ops) axpy(n int, alpha float32, x, y []float32, inc int) {
	blas32.Axpy(alpha,
		blas32.Vector{N: n, Inc: inc, Data: x},
		blas32.Vector{N: n, Inc: inc, Data: y},
	)
}

type f64Ops struct{}

func (f64Ops) dot(n int, x, y []float64, inc int) float64 {
	return blas64.Dot(
		blas64.Vector{N: n, Inc: inc, Data: x},
		blas64.Vector{N: n, Inc: inc, Data: y},
	)
}

func (f64Ops) axpy(n int, alpha float64, x, y []float64, inc int) {
	blas64.Axpy(alpha,
		blas64.Vector{N: n, Inc: inc, Data: x},
		blas64.Vector{N: n, Inc: inc, Data: y},
	)
}
