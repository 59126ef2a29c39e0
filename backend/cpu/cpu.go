// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/correlation/internal/backend/cpu"
	"github.com/born-ml/correlation/correlation"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Compile-time check that Backend implements correlation.Backend.
var _ correlation.Backend = (*Backend)(nil)

// New creates a new CPU backend. Without options the kernels run on all cores.
//
// Example:
//
//	backend := cpu.New(cpu.WithWorkers(4))
//	volume, err := backend.Correlation(in1, in2, correlation.DefaultParams())
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithWorkers sets the number of worker goroutines. 1 disables parallelism.
func WithWorkers(n int) Option {
	return internalcpu.WithWorkers(n)
}

// WithMinChunkSize sets the minimum number of work items per goroutine.
func WithMinChunkSize(n int) Option {
	return internalcpu.WithMinChunkSize(n)
}

// WithParallelConfig replaces the whole parallel configuration.
func WithParallelConfig(cfg correlation.ParallelConfig) Option {
	return internalcpu.WithParallelConfig(cfg)
}

// WithSequential selects the single-threaded reference scheduler.
func WithSequential() Option {
	return internalcpu.WithSequential()
}
