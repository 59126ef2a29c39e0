// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package correlation computes spatial correlation volumes between two
// feature maps and their gradients, as used by optical-flow and stereo
// networks (FlowNet, PWC-Net).
//
// # Overview
//
// For inputs of shape [B, C, H, W] the volume has shape [B, PH, PW, oH, oW]:
// one similarity score per batch element, patch offset and output location.
// The forward pass compares a kernel window of input1 against the same window
// of input2 shifted by every offset of a patch neighborhood. The backward pass
// returns the gradients of both inputs.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/correlation/backend/cpu"
//	    "github.com/born-ml/correlation/correlation"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    p := correlation.DefaultParams()
//	    p.PatchSize = correlation.Square(9)
//	    p.DilationPatch = correlation.Square(2)
//
//	    volume, err := backend.Correlation(features1, features2, p)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    grad1, grad2, err := backend.CorrelationBackward(features1, features2, upstream, p)
//	}
//
// # Geometry
//
// Output size per axis: floor((in + 2*pad - dilation*(kernel-1) - 1) / stride) + 1.
// Patch index p maps to the offset p*dilation_patch - floor(dilation_patch*(P-1)/2);
// kernel windows are anchored at their top-left tap.
//
// # Determinism
//
// Sequential and Parallel schedulers produce bitwise identical results: every
// output and gradient element is computed by exactly one work item in a fixed
// order.
//
// # Errors
//
// Every error wraps ErrInvalidGeometry, ErrShapeMismatch or
// ErrUnsupportedConfiguration; test with errors.Is.
package correlation
