package correlation

import "fmt"

// Pair is a (height, width) parameter.
type Pair struct {
	H, W int
}

// Square returns the pair {n, n}.
func Square(n int) Pair {
	return Pair{H: n, W: n}
}

// String formats the pair as "HxW".
func (p Pair) String() string {
	return fmt.Sprintf("%dx%d", p.H, p.W)
}

// Normalization selects how the accumulated window sum is scaled.
type Normalization int

const (
	// NormalizeNone leaves the raw sum of products (the spatial-correlation-sampler convention).
	NormalizeNone Normalization = iota

	// NormalizeKernelVolume divides every cell by channels*kernel_h*kernel_w
	// (the FlowNet convention), regardless of how many taps were in bounds.
	NormalizeKernelVolume
)

// String returns the normalization name.
func (n Normalization) String() string {
	switch n {
	case NormalizeNone:
		return "none"
	case NormalizeKernelVolume:
		return "kernel-volume"
	default:
		return fmt.Sprintf("Normalization(%d)", int(n))
	}
}

// Params is the immutable geometric configuration of a correlation.
//
// KernelSize, PatchSize, Stride, Dilation and DilationPatch must be positive;
// Padding must be non-negative.
type Params struct {
	KernelSize    Pair // Spatial extent of the compared window.
	PatchSize     Pair // Number of candidate offsets searched in input2.
	Stride        Pair // Output grid stride over input1.
	Padding       Pair // Virtual zero padding on each side.
	Dilation      Pair // Spacing between kernel taps.
	DilationPatch Pair // Spacing between patch offsets.

	Normalization Normalization
}

// DefaultParams returns the single-pixel, single-offset configuration:
// kernel 1, patch 1, stride 1, padding 0, dilation 1, dilation_patch 1.
func DefaultParams() Params {
	return Params{
		KernelSize:    Square(1),
		PatchSize:     Square(1),
		Stride:        Square(1),
		Padding:       Square(0),
		Dilation:      Square(1),
		DilationPatch: Square(1),
	}
}

// Validate checks every parameter pair.
func (p Params) Validate() error {
	positive := []struct {
		name string
		v    Pair
	}{
		{"kernel_size", p.KernelSize},
		{"patch_size", p.PatchSize},
		{"stride", p.Stride},
		{"dilation", p.Dilation},
		{"dilation_patch", p.DilationPatch},
	}
	for _, q := range positive {
		if q.v.H <= 0 || q.v.W <= 0 {
			return wrapf(ErrInvalidGeometry, "%s must be positive, got %s", q.name, q.v)
		}
	}
	if p.Padding.H < 0 || p.Padding.W < 0 {
		return wrapf(ErrInvalidGeometry, "padding must be non-negative, got %s", p.Padding)
	}
	if p.Normalization != NormalizeNone && p.Normalization != NormalizeKernelVolume {
		return wrapf(ErrInvalidGeometry, "unknown normalization %d", int(p.Normalization))
	}
	return nil
}

// String returns a compact description used in error messages and CLI output.
func (p Params) String() string {
	return fmt.Sprintf("kernel=%s patch=%s stride=%s padding=%s dilation=%s dilation_patch=%s norm=%s",
		p.KernelSize, p.PatchSize, p.Stride, p.Padding, p.Dilation, p.DilationPatch, p.Normalization)
}

// Scale returns the factor applied to every accumulated sum for the given
// channel count.
func (p Params) Scale(channels int) float64 {
	if p.Normalization == NormalizeKernelVolume {
		return 1.0 / float64(channels*p.KernelSize.H*p.KernelSize.W)
	}
	return 1.0
}
