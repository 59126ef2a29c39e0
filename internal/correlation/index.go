package correlation

// axis holds the coordinate mapping along one spatial dimension. Both kernels
// and the WebGPU shader parameters are derived from it, so forward and
// backward agree on every anchor, tap and shift.
type axis struct {
	size int // input extent
	out  int // output extent

	kernel   int
	stride   int
	pad      int
	dilation int

	patch         int
	dilationPatch int
	radius        int // floor(dilationPatch*(patch-1)/2)
}

func newAxis(size, kernel, stride, pad, dilation, patch, dilationPatch int) axis {
	return axis{
		size:          size,
		out:           outputSize(size, kernel, stride, pad, dilation),
		kernel:        kernel,
		stride:        stride,
		pad:           pad,
		dilation:      dilation,
		patch:         patch,
		dilationPatch: dilationPatch,
		radius:        dilationPatch * (patch - 1) / 2,
	}
}

// outputSize is the sliding-window formula
// floor((in + 2*pad - dilation*(kernel-1) - 1) / stride) + 1.
// Negative numerators floor toward -inf so tiny inputs yield out <= 0.
func outputSize(size, kernel, stride, pad, dilation int) int {
	num := size + 2*pad - dilation*(kernel-1) - 1
	if num < 0 {
		return (num-stride+1)/stride + 1
	}
	return num/stride + 1
}

// anchor returns the input position of the first tap for output index o.
func (a axis) anchor(o int) int {
	return o*a.stride - a.pad
}

// tap returns the input position of kernel tap k for a window anchored at anchor.
func (a axis) tap(anchor, k int) int {
	return anchor + k*a.dilation
}

// shift returns the input2 displacement of patch index p.
func (a axis) shift(p int) int {
	return p*a.dilationPatch - a.radius
}

// inside reports whether pos addresses a real (non-padding) element.
func (a axis) inside(pos int) bool {
	return pos >= 0 && pos < a.size
}

// outputFor inverts tap: it returns the output index whose tap k lands on
// input position pos, if there is one on the strided output grid.
func (a axis) outputFor(pos, k int) (int, bool) {
	t := pos + a.pad - k*a.dilation
	if t < 0 || t%a.stride != 0 {
		return 0, false
	}
	o := t / a.stride
	return o, o < a.out
}
