// Package correlation implements the spatial correlation sampler: a dense
// correlation volume between two feature maps and its gradients.
//
// For inputs of shape [B, C, H, W] the volume has shape [B, PH, PW, oH, oW].
// Cell (b, ph, pw, i, j) is the sum, over channels and kernel taps, of
// input1 at the window anchored at (i*stride-pad, j*stride-pad) times input2
// at the same window shifted by the patch offset of (ph, pw). See Geometry
// for the centering rule.
//
// All validation happens before any output is written. The kernels are
// generic over a Scheduler; Sequential and Parallel produce bitwise identical
// results.
package correlation

import "github.com/born-ml/correlation/internal/tensor"

// Backend is a device implementation of the two correlation entry points.
type Backend interface {
	// Name returns a human-readable backend name.
	Name() string

	// Device returns the compute device.
	Device() tensor.Device

	// Correlation computes the [B, PH, PW, oH, oW] volume of in1 against in2.
	Correlation(in1, in2 *tensor.RawTensor, p Params) (*tensor.RawTensor, error)

	// CorrelationBackward returns dL/d(in1) and dL/d(in2) given dL/d(volume).
	CorrelationBackward(in1, in2, grad *tensor.RawTensor, p Params) (*tensor.RawTensor, *tensor.RawTensor, error)
}

// problem is a validated request.
type problem struct {
	batch    int
	channels int
	dtype    tensor.DataType
	geom     Geometry
	scale    float64
}

// Prepare validates a pair of feature maps against p and resolves the geometry.
// Backends other than the CPU kernels use it to share validation.
func Prepare(in1, in2 *tensor.RawTensor, p Params) (Geometry, error) {
	pr, err := prepare(in1, in2, p)
	return pr.geom, err
}

func prepare(in1, in2 *tensor.RawTensor, p Params) (problem, error) {
	if in1 == nil || in2 == nil {
		return problem{}, wrapf(ErrShapeMismatch, "nil input tensor")
	}
	b, c, h, w, err := in1.Shape().NCHW()
	if err != nil {
		return problem{}, wrapf(ErrShapeMismatch, "input1: %v", err)
	}
	if !in1.Shape().Equal(in2.Shape()) {
		return problem{}, wrapf(ErrShapeMismatch, "input1 %v and input2 %v differ",
			[]int(in1.Shape()), []int(in2.Shape()))
	}
	if !in1.DType().IsFloat() {
		return problem{}, wrapf(ErrUnsupportedConfiguration, "dtype %s, want float32 or float64", in1.DType())
	}
	if in1.DType() != in2.DType() {
		return problem{}, wrapf(ErrUnsupportedConfiguration, "mixed dtypes %s and %s", in1.DType(), in2.DType())
	}

	g, err := Resolve(h, w, p)
	if err != nil {
		return problem{}, err
	}
	return problem{
		batch:    b,
		channels: c,
		dtype:    in1.DType(),
		geom:     g,
		scale:    p.Scale(c),
	}, nil
}

// checkBuffer verifies a caller-supplied output or gradient tensor.
func checkBuffer(name string, t *tensor.RawTensor, want tensor.Shape, dtype tensor.DataType) error {
	if t == nil {
		return wrapf(ErrShapeMismatch, "nil %s", name)
	}
	if !t.Shape().Equal(want) {
		return wrapf(ErrShapeMismatch, "%s has shape %v, want %v", name, []int(t.Shape()), []int(want))
	}
	if t.DType() != dtype {
		return wrapf(ErrUnsupportedConfiguration, "%s has dtype %s, want %s", name, t.DType(), dtype)
	}
	return nil
}

// Forward allocates and returns the correlation volume of in1 against in2.
func Forward(s Scheduler, in1, in2 *tensor.RawTensor, p Params) (*tensor.RawTensor, error) {
	pr, err := prepare(in1, in2, p)
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(pr.geom.VolumeShape(pr.batch), pr.dtype, in1.Device())
	if err != nil {
		return nil, wrapf(ErrShapeMismatch, "allocate output: %v", err)
	}
	runForward(s, pr, out, in1, in2)
	return out, nil
}

// ForwardInto writes the correlation volume into the caller-owned out.
// out is untouched when an error is returned.
func ForwardInto(s Scheduler, out, in1, in2 *tensor.RawTensor, p Params) error {
	pr, err := prepare(in1, in2, p)
	if err != nil {
		return err
	}
	if err := checkBuffer("output", out, pr.geom.VolumeShape(pr.batch), pr.dtype); err != nil {
		return err
	}
	runForward(s, pr, out, in1, in2)
	return nil
}

// Backward allocates and returns the gradients of both inputs.
func Backward(s Scheduler, in1, in2, grad *tensor.RawTensor, p Params) (*tensor.RawTensor, *tensor.RawTensor, error) {
	pr, err := prepareBackward(in1, in2, grad, p)
	if err != nil {
		return nil, nil, err
	}
	d1, err := tensor.NewRaw(in1.Shape(), pr.dtype, in1.Device())
	if err != nil {
		return nil, nil, wrapf(ErrShapeMismatch, "allocate grad_input1: %v", err)
	}
	d2, err := tensor.NewRaw(in2.Shape(), pr.dtype, in2.Device())
	if err != nil {
		return nil, nil, wrapf(ErrShapeMismatch, "allocate grad_input2: %v", err)
	}
	runBackward(s, pr, d1, d2, in1, in2, grad)
	return d1, d2, nil
}

// BackwardInto writes both input gradients into caller-owned d1 and d2,
// overwriting their previous contents.
func BackwardInto(s Scheduler, d1, d2, in1, in2, grad *tensor.RawTensor, p Params) error {
	pr, err := prepareBackward(in1, in2, grad, p)
	if err != nil {
		return err
	}
	if err := checkBuffer("grad_input1", d1, in1.Shape(), pr.dtype); err != nil {
		return err
	}
	if err := checkBuffer("grad_input2", d2, in2.Shape(), pr.dtype); err != nil {
		return err
	}
	if d1 == d2 || d1 == in1 || d1 == in2 || d2 == in1 || d2 == in2 {
		return wrapf(ErrShapeMismatch, "gradient buffers must not alias each other or the inputs")
	}
	runBackward(s, pr, d1, d2, in1, in2, grad)
	return nil
}

func prepareBackward(in1, in2, grad *tensor.RawTensor, p Params) (problem, error) {
	pr, err := prepare(in1, in2, p)
	if err != nil {
		return problem{}, err
	}
	if err := checkBuffer("grad_output", grad, pr.geom.VolumeShape(pr.batch), pr.dtype); err != nil {
		return problem{}, err
	}
	return pr, nil
}

func runForward(s Scheduler, pr problem, out, in1, in2 *tensor.RawTensor) {
	switch pr.dtype {
	case tensor.Float32:
		k := forwardKernel[float32]{ops: f32Ops{}, g: pr.geom, channels: pr.channels, scale: float32(pr.scale)}
		k.run(s, out.AsFloat32(), in1.AsFloat32(), in2.AsFloat32(), pr.batch)
	case tensor.Float64:
		k := forwardKernel[float64]{ops: f64Ops{}, g: pr.geom, channels: pr.channels, scale: pr.scale}
		k.run(s, out.AsFloat64(), in1.AsFloat64(), in2.AsFloat64(), pr.batch)
	default:
		panic("correlation: forward: unsupported dtype " + pr.dtype.String())
	}
}

func runBackward(s Scheduler, pr problem, d1, d2, in1, in2, grad *tensor.RawTensor) {
	d1.Zero()
	d2.Zero()

	switch pr.dtype {
	case tensor.Float32:
		k := backwardKernel[float32]{ops: f32Ops{}, g: pr.geom, channels: pr.channels, scale: float32(pr.scale)}
		k.gradInput1(s, d1.AsFloat32(), in2.AsFloat32(), grad.AsFloat32(), pr.batch)
		k.gradInput2(s, d2.AsFloat32(), in1.AsFloat32(), grad.AsFloat32(), pr.batch)
	case tensor.Float64:
		k := backwardKernel[float64]{ops: f64Ops{}, g: pr.geom, channels: pr.channels, scale: pr.scale}
		k.gradInput1(s, d1.AsFloat64(), in2.AsFloat64(), grad.AsFloat64(), pr.batch)
		k.gradInput2(s, d2.AsFloat64(), in1.AsFloat64(), grad.AsFloat64(), pr.batch)
	default:
		panic("correlation: backward: unsupported dtype " + pr.dtype.String())
	}
}
