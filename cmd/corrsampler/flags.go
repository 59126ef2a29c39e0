package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/correlation/internal/backend/cpu"
	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/parallel"
	"github.com/born-ml/correlation/internal/tensor"
)

// pairValue is a flag.Value accepting "3" or "3x5" (height x width).
type pairValue struct {
	p *correlation.Pair
}

func (v pairValue) String() string {
	if v.p == nil {
		return ""
	}
	if v.p.H == v.p.W {
		return strconv.Itoa(v.p.H)
	}
	return fmt.Sprintf("%dx%d", v.p.H, v.p.W)
}

func (v pairValue) Set(s string) error {
	p, err := parsePair(s)
	if err != nil {
		return err
	}
	*v.p = p
	return nil
}

func parsePair(s string) (correlation.Pair, error) {
	h, w, found := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	hv, err := strconv.Atoi(h)
	if err != nil {
		return correlation.Pair{}, fmt.Errorf("invalid pair %q", s)
	}
	if !found {
		return correlation.Square(hv), nil
	}
	wv, err := strconv.Atoi(w)
	if err != nil {
		return correlation.Pair{}, fmt.Errorf("invalid pair %q", s)
	}
	return correlation.Pair{H: hv, W: wv}, nil
}

// parseShape parses a comma separated shape such as "2,3,64,64".
func parseShape(s string) (tensor.Shape, error) {
	parts := strings.Split(s, ",")
	shape := make(tensor.Shape, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid shape %q", s)
		}
		shape = append(shape, n)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape %q: %w", s, err)
	}
	return shape, nil
}

func parseDType(s string) (tensor.DataType, error) {
	switch strings.ToLower(s) {
	case "float32", "f32":
		return tensor.Float32, nil
	case "float64", "f64":
		return tensor.Float64, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q (want float32 or float64)", s)
	}
}

func parseNormalization(s string) (correlation.Normalization, error) {
	switch strings.ToLower(s) {
	case "none":
		return correlation.NormalizeNone, nil
	case "kernel", "kernel-volume":
		return correlation.NormalizeKernelVolume, nil
	default:
		return 0, fmt.Errorf("unknown normalization %q (want none or kernel)", s)
	}
}

// paramFlags registers the correlation geometry flags on a FlagSet.
type paramFlags struct {
	params    correlation.Params
	normalize string
}

func addParamFlags(fs *flag.FlagSet) *paramFlags {
	pf := &paramFlags{params: correlation.DefaultParams()}
	fs.Var(pairValue{&pf.params.KernelSize}, "kernel", "kernel size, N or HxW")
	fs.Var(pairValue{&pf.params.PatchSize}, "patch", "patch size, N or HxW")
	fs.Var(pairValue{&pf.params.Stride}, "stride", "stride, N or HxW")
	fs.Var(pairValue{&pf.params.Padding}, "pad", "zero padding, N or HxW")
	fs.Var(pairValue{&pf.params.Dilation}, "dilation", "kernel dilation, N or HxW")
	fs.Var(pairValue{&pf.params.DilationPatch}, "dilation-patch", "patch dilation, N or HxW")
	fs.StringVar(&pf.normalize, "normalize", "none", "normalization: none or kernel")
	return pf
}

func (pf *paramFlags) resolve() (correlation.Params, error) {
	n, err := parseNormalization(pf.normalize)
	if err != nil {
		return correlation.Params{}, err
	}
	p := pf.params
	p.Normalization = n
	return p, p.Validate()
}

// backendFlags selects and configures the compute backend.
type backendFlags struct {
	device     string
	workers    int
	sequential bool
}

func addBackendFlags(fs *flag.FlagSet) *backendFlags {
	bf := &backendFlags{}
	fs.StringVar(&bf.device, "device", "cpu", "compute device: cpu or webgpu")
	fs.IntVar(&bf.workers, "workers", 0, "CPU worker goroutines (0: $"+parallel.WorkersEnv+" or all cores)")
	fs.BoolVar(&bf.sequential, "sequential", false, "use the single-threaded reference scheduler")
	return bf
}

// cpuBackend builds a CPU backend from the flags and the environment.
func (bf *backendFlags) cpuBackend() (*cpu.CPUBackend, error) {
	if bf.sequential {
		return cpu.New(cpu.WithSequential()), nil
	}
	cfg, err := parallel.FromEnv(parallel.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if bf.workers > 0 {
		cfg.NumWorkers = bf.workers
		cfg.Enabled = bf.workers > 1
	}
	return cpu.New(cpu.WithParallelConfig(cfg)), nil
}

// open returns the selected backend and a release function.
func (bf *backendFlags) open() (correlation.Backend, func(), error) {
	switch strings.ToLower(bf.device) {
	case "cpu":
		b, err := bf.cpuBackend()
		return b, func() {}, err
	case "webgpu", "gpu":
		return openWebGPU()
	default:
		return nil, nil, fmt.Errorf("unknown device %q (want cpu or webgpu)", bf.device)
	}
}
