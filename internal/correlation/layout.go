package correlation

import "github.com/born-ml/correlation/internal/tensor"

// FlattenPatches views a [B, PH, PW, oH, oW] volume as [B, PH*PW, oH, oW],
// the channel-major layout FlowNet-style networks feed into the next
// convolution. The view shares the volume's storage.
func FlattenPatches(volume *tensor.RawTensor) (*tensor.RawTensor, error) {
	if volume == nil {
		return nil, wrapf(ErrShapeMismatch, "nil volume")
	}
	s := volume.Shape()
	if len(s) != 5 {
		return nil, wrapf(ErrShapeMismatch, "volume must be 5-D [B, PH, PW, oH, oW], got %v", []int(s))
	}
	return tensor.Reshape(volume, tensor.Shape{s[0], s[1] * s[2], s[3], s[4]})
}
