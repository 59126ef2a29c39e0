package tensor

import "fmt"

// Reshape returns a view of x with a new shape. The view shares x's buffer;
// one dimension may be -1 and is inferred from the element count.
func Reshape(x *RawTensor, newShape Shape) (*RawTensor, error) {
	if x == nil {
		return nil, fmt.Errorf("reshape: input tensor is nil")
	}

	total := x.NumElements()
	infer := -1
	product := 1
	for i, dim := range newShape {
		switch {
		case dim == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("reshape: can only have one -1 dimension")
			}
			infer = i
		case dim <= 0:
			return nil, fmt.Errorf("reshape: dimensions must be positive, got %d", dim)
		default:
			product *= dim
		}
	}

	shape := newShape.Clone()
	if infer >= 0 {
		if total%product != 0 {
			return nil, fmt.Errorf("reshape: cannot infer dimension for shape %v from %d elements", []int(newShape), total)
		}
		shape[infer] = total / product
	}
	if shape.NumElements() != total {
		return nil, fmt.Errorf("reshape: cannot reshape %d elements to shape %v", total, []int(shape))
	}

	return &RawTensor{
		data:   x.data,
		shape:  shape,
		stride: shape.ComputeStrides(),
		dtype:  x.dtype,
		device: x.device,
	}, nil
}
