package correlation

import "github.com/born-ml/correlation/internal/tensor"

// Geometry is the resolved shape bookkeeping for one input size and Params.
//
// Patch centering: patch index p maps to the input2 offset
//
//	shift(p) = p*dilation_patch - floor(dilation_patch*(patch_size-1)/2)
//
// Odd patch sizes are symmetric around the direct correspondence. For even
// sizes the extra offset goes to the positive side whenever
// dilation_patch*(patch_size-1) is odd: patch 2 gives {0, +1}, patch 4 gives
// {-1, 0, +1, +2}; patch 2 with dilation_patch 2 gives {-1, +1}.
//
// Kernel windows are anchored at their top-left tap, not centered.
type Geometry struct {
	Height, Width int // input spatial size
	OutH, OutW    int // output grid
	PatchH        int // patch rows in the volume
	PatchW        int // patch cols in the volume
	RadiusH       int // offset subtracted from p*dilation_patch along H
	RadiusW       int // offset subtracted from q*dilation_patch along W

	params Params
	rows   axis
	cols   axis
}

// Resolve maps an input size and Params to output dims and patch extents.
// It is pure and deterministic.
func Resolve(h, w int, p Params) (Geometry, error) {
	if err := p.Validate(); err != nil {
		return Geometry{}, err
	}
	if h <= 0 || w <= 0 {
		return Geometry{}, wrapf(ErrInvalidGeometry, "input size must be positive, got %dx%d", h, w)
	}

	rows := newAxis(h, p.KernelSize.H, p.Stride.H, p.Padding.H, p.Dilation.H, p.PatchSize.H, p.DilationPatch.H)
	cols := newAxis(w, p.KernelSize.W, p.Stride.W, p.Padding.W, p.Dilation.W, p.PatchSize.W, p.DilationPatch.W)
	if rows.out <= 0 || cols.out <= 0 {
		return Geometry{}, wrapf(ErrInvalidGeometry,
			"input %dx%d too small for %s: output would be %dx%d", h, w, p, rows.out, cols.out)
	}

	return Geometry{
		Height:  h,
		Width:   w,
		OutH:    rows.out,
		OutW:    cols.out,
		PatchH:  p.PatchSize.H,
		PatchW:  p.PatchSize.W,
		RadiusH: rows.radius,
		RadiusW: cols.radius,
		params:  p,
		rows:    rows,
		cols:    cols,
	}, nil
}

// Params returns the parameters the geometry was resolved from.
func (g Geometry) Params() Params {
	return g.params
}

// Shift returns the input2 offset (dy, dx) of patch cell (ph, pw).
func (g Geometry) Shift(ph, pw int) (dy, dx int) {
	return g.rows.shift(ph), g.cols.shift(pw)
}

// Anchor returns the input1 position of the top-left tap of output cell (i, j).
// It may lie in the virtual padding.
func (g Geometry) Anchor(i, j int) (y, x int) {
	return g.rows.anchor(i), g.cols.anchor(j)
}

// VolumeShape returns the correlation volume shape for the given batch size.
func (g Geometry) VolumeShape(batch int) tensor.Shape {
	return tensor.Shape{batch, g.PatchH, g.PatchW, g.OutH, g.OutW}
}

// OutputShape returns [B, PH, PW, oH, oW] for a [B, C, H, W] input shape.
func OutputShape(input tensor.Shape, p Params) (tensor.Shape, error) {
	b, c, h, w, err := input.NCHW()
	if err != nil {
		return nil, wrapf(ErrShapeMismatch, "%v", err)
	}
	if b <= 0 || c <= 0 {
		return nil, wrapf(ErrShapeMismatch, "batch and channels must be positive, got %d and %d", b, c)
	}
	g, err := Resolve(h, w, p)
	if err != nil {
		return nil, err
	}
	return g.VolumeShape(b), nil
}
