// Package cpu implements the correlation backend on the host CPU.
package cpu

import (
	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/parallel"
	"github.com/born-ml/correlation/internal/tensor"
)

// CPUBackend runs the correlation kernels on the host, by default fanned out
// over all cores.
type CPUBackend struct {
	device    tensor.Device
	scheduler correlation.Scheduler
}

// Option configures a CPUBackend.
type Option func(*options)

type options struct {
	cfg        parallel.Config
	sequential bool
}

// WithWorkers sets the number of worker goroutines. 1 disables parallelism.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.cfg.NumWorkers = n
		o.cfg.Enabled = n > 1
	}
}

// WithMinChunkSize sets the minimum number of work items per goroutine.
func WithMinChunkSize(n int) Option {
	return func(o *options) {
		o.cfg.MinChunkSize = n
	}
}

// WithParallelConfig replaces the whole parallel configuration,
// e.g. with the result of parallel.FromEnv.
func WithParallelConfig(cfg parallel.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithSequential selects the single-threaded reference scheduler.
func WithSequential() Option {
	return func(o *options) {
		o.sequential = true
	}
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	o := options{cfg: parallel.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	var s correlation.Scheduler = correlation.Parallel{Config: o.cfg}
	if o.sequential {
		s = correlation.Sequential{}
	}
	return &CPUBackend{
		device:    tensor.CPU,
		scheduler: s,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Scheduler returns the scheduler the kernels run on.
func (cpu *CPUBackend) Scheduler() correlation.Scheduler {
	return cpu.scheduler
}

// Correlation computes the [B, PH, PW, oH, oW] correlation volume.
func (cpu *CPUBackend) Correlation(in1, in2 *tensor.RawTensor, p correlation.Params) (*tensor.RawTensor, error) {
	return correlation.Forward(cpu.scheduler, in1, in2, p)
}

// CorrelationInto writes the correlation volume into out.
func (cpu *CPUBackend) CorrelationInto(out, in1, in2 *tensor.RawTensor, p correlation.Params) error {
	return correlation.ForwardInto(cpu.scheduler, out, in1, in2, p)
}

// CorrelationBackward computes the gradients of both inputs.
func (cpu *CPUBackend) CorrelationBackward(in1, in2, grad *tensor.RawTensor, p correlation.Params) (*tensor.RawTensor, *tensor.RawTensor, error) {
	return correlation.Backward(cpu.scheduler, in1, in2, grad, p)
}

// CorrelationBackwardInto writes both input gradients into d1 and d2.
func (cpu *CPUBackend) CorrelationBackwardInto(d1, d2, in1, in2, grad *tensor.RawTensor, p correlation.Params) error {
	return correlation.BackwardInto(cpu.scheduler, d1, d2, in1, in2, grad, p)
}

var _ correlation.Backend = (*CPUBackend)(nil)
