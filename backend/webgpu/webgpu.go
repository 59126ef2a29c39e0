//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated correlation.
//
// Only float32 inputs are supported; float64 requests return
// correlation.ErrUnsupportedConfiguration.
//
// Example:
//
//	import (
//	    "github.com/born-ml/correlation/backend/webgpu"
//	    "github.com/born-ml/correlation/correlation"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    volume, err := gpu.Correlation(in1, in2, correlation.DefaultParams())
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/correlation/internal/backend/webgpu"
	"github.com/born-ml/correlation/correlation"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements correlation.Backend.
var _ correlation.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
// Returns an error if WebGPU is not available on this system.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
