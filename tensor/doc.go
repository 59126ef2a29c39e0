// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor container used by the correlation
// sampler: a contiguous, row-major RawTensor with a runtime data type.
//
// # Basic Usage
//
//	import "github.com/born-ml/correlation/tensor"
//
//	func main() {
//	    x, _ := tensor.Zeros(tensor.Shape{1, 64, 48, 64}, tensor.Float32)
//	    data := x.AsFloat32() // zero-copy access
//	    data[0] = 1
//	}
//
// # Supported Data Types
//
// Feature maps and correlation volumes are Float32 or Float64. Int32, Int64
// and Uint8 tensors can be stored and serialized but are rejected by the
// kernels.
//
// # Layout
//
// Feature maps are [B, C, H, W] (NCHW). Correlation volumes are
// [B, PH, PW, oH, oW].
package tensor
