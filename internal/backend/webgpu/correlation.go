//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/tensor"
)

const paramsSize = 24 * 4

// Correlation computes the [B, PH, PW, oH, oW] correlation volume on the GPU.
func (b *Backend) Correlation(in1, in2 *tensor.RawTensor, p correlation.Params) (*tensor.RawTensor, error) {
	g, batch, channels, err := b.validate(in1, in2, p)
	if err != nil {
		return nil, err
	}

	out, err := tensor.NewRaw(g.VolumeShape(batch), tensor.Float32, b.Device())
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w: %v", correlation.ErrShapeMismatch, err)
	}
	if err := checkBindingSize("output", out.ByteSize()); err != nil {
		return nil, err
	}

	params := encodeParams(g, batch, channels, 1)
	if err := b.dispatch("correlation_forward", correlationForwardShader,
		in1.Data(), in2.Data(), params, out.NumElements(), out.Data()); err != nil {
		return nil, err
	}
	return out, nil
}

// CorrelationBackward computes the gradients of both inputs on the GPU.
func (b *Backend) CorrelationBackward(in1, in2, grad *tensor.RawTensor, p correlation.Params) (*tensor.RawTensor, *tensor.RawTensor, error) {
	g, batch, channels, err := b.validate(in1, in2, p)
	if err != nil {
		return nil, nil, err
	}
	if grad == nil {
		return nil, nil, fmt.Errorf("webgpu: %w: nil grad_output", correlation.ErrShapeMismatch)
	}
	if want := g.VolumeShape(batch); !grad.Shape().Equal(want) {
		return nil, nil, fmt.Errorf("webgpu: %w: grad_output has shape %v, want %v",
			correlation.ErrShapeMismatch, []int(grad.Shape()), []int(want))
	}
	if grad.DType() != tensor.Float32 {
		return nil, nil, fmt.Errorf("webgpu: %w: grad_output dtype %s, want float32",
			correlation.ErrUnsupportedConfiguration, grad.DType())
	}
	if err := checkBindingSize("grad_output", grad.ByteSize()); err != nil {
		return nil, nil, err
	}

	d1, err := tensor.NewRaw(in1.Shape(), tensor.Float32, b.Device())
	if err != nil {
		return nil, nil, fmt.Errorf("webgpu: %w: %v", correlation.ErrShapeMismatch, err)
	}
	d2, err := tensor.NewRaw(in2.Shape(), tensor.Float32, b.Device())
	if err != nil {
		return nil, nil, fmt.Errorf("webgpu: %w: %v", correlation.ErrShapeMismatch, err)
	}

	if err := b.dispatch("correlation_backward", correlationBackwardShader,
		in2.Data(), grad.Data(), encodeParams(g, batch, channels, 1), d1.NumElements(), d1.Data()); err != nil {
		return nil, nil, err
	}
	if err := b.dispatch("correlation_backward", correlationBackwardShader,
		in1.Data(), grad.Data(), encodeParams(g, batch, channels, -1), d2.NumElements(), d2.Data()); err != nil {
		return nil, nil, err
	}
	return d1, d2, nil
}

// validate applies the shared checks plus the device limits of this backend.
func (b *Backend) validate(in1, in2 *tensor.RawTensor, p correlation.Params) (g correlation.Geometry, batch, channels int, err error) {
	g, err = correlation.Prepare(in1, in2, p)
	if err != nil {
		return g, 0, 0, err
	}
	if in1.DType() != tensor.Float32 {
		return g, 0, 0, fmt.Errorf("webgpu: %w: dtype %s, only float32 is supported",
			correlation.ErrUnsupportedConfiguration, in1.DType())
	}
	if err := checkBindingSize("input", in1.ByteSize()); err != nil {
		return g, 0, 0, err
	}
	shape := in1.Shape()
	return g, shape[0], shape[1], nil
}

func checkBindingSize(name string, size int) error {
	if size > maxBindingSize {
		return fmt.Errorf("webgpu: %w: %s is %d bytes, storage binding limit is %d",
			correlation.ErrUnsupportedConfiguration, name, size, maxBindingSize)
	}
	return nil
}

// encodeParams packs the shader Params struct. Field order must match
// paramsStruct.
func encodeParams(g correlation.Geometry, batch, channels int, direction int32) []byte {
	p := g.Params()
	ints := []int{
		batch, channels, g.Height, g.Width,
		g.OutH, g.OutW, g.PatchH, g.PatchW,
		p.KernelSize.H, p.KernelSize.W, p.Stride.H, p.Stride.W,
		p.Padding.H, p.Padding.W, p.Dilation.H, p.Dilation.W,
		p.DilationPatch.H, p.DilationPatch.W, g.RadiusH, g.RadiusW,
	}

	buf := make([]byte, paramsSize)
	for i, v := range ints {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(int32(v))) //nolint:gosec // G115: geometry bounded by binding size
	}
	scale := float32(p.Scale(channels))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(scale))
	binary.LittleEndian.PutUint32(buf[84:], uint32(direction)) //nolint:gosec // G115: two's complement of ±1
	return buf
}
