// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for the correlation sampler.
//
// # Overview
//
// The channel reductions run as strided BLAS dot/axpy calls (gonum), and the
// independent output rows are fanned out over goroutines. Float32 and Float64
// are supported.
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
//	    volume, err := backend.Correlation(in1, in2, correlation.DefaultParams())
//	}
//
// # Caller-owned Buffers
//
// CorrelationInto and CorrelationBackwardInto write into tensors the caller
// allocated, overwriting their contents. They validate every buffer first and
// leave it untouched on error.
//
// # Configuration
//
// The worker count defaults to runtime.NumCPU(). WithWorkers, WithMinChunkSize
// and WithSequential override it; CORRELATION_WORKERS is honored by the
// corrsampler command through parallel.FromEnv.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each call is isolated and does
// not share mutable state.
package cpu
