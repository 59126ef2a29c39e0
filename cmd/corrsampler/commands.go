package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/serialization"
	"github.com/born-ml/correlation/internal/tensor"
)

func runShape(args []string) error {
	fs := flag.NewFlagSet("shape", flag.ContinueOnError)
	input := fs.String("input", "1,1,16,16", "input shape B,C,H,W")
	pf := addParamFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := pf.resolve()
	if err != nil {
		return err
	}
	shape, err := parseShape(*input)
	if err != nil {
		return err
	}
	out, err := correlation.OutputShape(shape, p)
	if err != nil {
		return err
	}

	g, err := correlation.Resolve(shape[2], shape[3], p)
	if err != nil {
		return err
	}
	dy0, dx0 := g.Shift(0, 0)
	dy1, dx1 := g.Shift(g.PatchH-1, g.PatchW-1)
	ay0, ax0 := g.Anchor(0, 0)
	ay1, ax1 := g.Anchor(g.OutH-1, g.OutW-1)

	fmt.Printf("params:  %s\n", p)
	fmt.Printf("input:   %v\n", []int(shape))
	fmt.Printf("volume:  %v\n", []int(out))
	fmt.Printf("offsets: dy in [%d, %d], dx in [%d, %d]\n", dy0, dy1, dx0, dx1)
	fmt.Printf("anchors: y in [%d, %d], x in [%d, %d]\n", ay0, ay1, ax0, ax1)
	return nil
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	in := fs.String("in", "", "input SafeTensors file")
	out := fs.String("out", "", "output SafeTensors file")
	name1 := fs.String("input1", "input1", "tensor name of the first feature map")
	name2 := fs.String("input2", "input2", "tensor name of the second feature map")
	gradName := fs.String("grad", "", "tensor name of the upstream gradient (enables backward)")
	flatten := fs.Bool("flatten", false, "write the volume as [B, PH*PW, oH, oW]")
	pf := addParamFlags(fs)
	bf := addBackendFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("-in and -out are required")
	}

	p, err := pf.resolve()
	if err != nil {
		return err
	}
	backend, release, err := bf.open()
	if err != nil {
		return err
	}
	defer release()

	tensors, _, err := serialization.ReadFile(*in)
	if err != nil {
		return err
	}
	in1, ok := tensors[*name1]
	if !ok {
		return fmt.Errorf("%w: %s", serialization.ErrTensorNotFound, *name1)
	}
	in2, ok := tensors[*name2]
	if !ok {
		return fmt.Errorf("%w: %s", serialization.ErrTensorNotFound, *name2)
	}

	start := time.Now()
	volume, err := backend.Correlation(in1, in2, p)
	if err != nil {
		return err
	}
	results := map[string]*tensor.RawTensor{"volume": volume}

	if *gradName != "" {
		grad, ok := tensors[*gradName]
		if !ok {
			return fmt.Errorf("%w: %s", serialization.ErrTensorNotFound, *gradName)
		}
		d1, d2, err := backend.CorrelationBackward(in1, in2, grad, p)
		if err != nil {
			return err
		}
		results["grad_input1"] = d1
		results["grad_input2"] = d2
	}
	elapsed := time.Since(start)

	if *flatten {
		if results["volume"], err = correlation.FlattenPatches(volume); err != nil {
			return err
		}
	}

	metadata := map[string]string{
		"params":  p.String(),
		"backend": backend.Name(),
		"source":  *in,
	}
	if err := serialization.WriteFile(*out, results, metadata); err != nil {
		return err
	}

	fmt.Printf("%s on %s in %v\n", p, backend.Name(), elapsed)
	for _, name := range []string{"volume", "grad_input1", "grad_input2"} {
		if raw, ok := results[name]; ok {
			fmt.Printf("  %-12s %-20v %s\n", name, []int(raw.Shape()),
				serialization.FormatFingerprint(serialization.Fingerprint(raw)))
		}
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	input := fs.String("input", "1,3,7,6", "input shape B,C,H,W")
	dtypeName := fs.String("dtype", "float64", "float32 or float64")
	seed := fs.Int64("seed", 1, "random seed")
	samples := fs.Int("samples", 32, "input elements probed by the finite-difference check")
	pf := addParamFlags(fs)
	bf := addBackendFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := pf.resolve()
	if err != nil {
		return err
	}
	shape, err := parseShape(*input)
	if err != nil {
		return err
	}
	dtype, err := parseDType(*dtypeName)
	if err != nil {
		return err
	}
	backend, release, err := bf.open()
	if err != nil {
		return err
	}
	defer release()

	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // G404: reproducible test data
	c := checker{backend: backend, params: p, rng: rng}
	report, err := c.run(shape, dtype, *samples)
	if err != nil {
		return err
	}
	report.print()
	if !report.ok() {
		return fmt.Errorf("check failed")
	}
	return nil
}

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	input := fs.String("input", "4,64,48,64", "input shape B,C,H,W")
	dtypeName := fs.String("dtype", "float32", "float32 or float64")
	iters := fs.Int("iters", 20, "timed iterations")
	backward := fs.Bool("backward", false, "also time the backward pass")
	quiet := fs.Bool("quiet", false, "disable the progress bar")
	pf := addParamFlags(fs)
	bf := addBackendFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *iters <= 0 {
		return fmt.Errorf("-iters must be positive")
	}

	p, err := pf.resolve()
	if err != nil {
		return err
	}
	shape, err := parseShape(*input)
	if err != nil {
		return err
	}
	dtype, err := parseDType(*dtypeName)
	if err != nil {
		return err
	}
	outShape, err := correlation.OutputShape(shape, p)
	if err != nil {
		return err
	}
	backend, release, err := bf.open()
	if err != nil {
		return err
	}
	defer release()

	rng := rand.New(rand.NewSource(1)) //nolint:gosec // G404: benchmark data
	in1, err := tensor.Randn(shape, dtype, rng)
	if err != nil {
		return err
	}
	in2, err := tensor.Randn(shape, dtype, rng)
	if err != nil {
		return err
	}
	grad, err := tensor.Randn(outShape, dtype, rng)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.NewOptions(*iters,
			progressbar.OptionSetDescription("Correlating"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	pass, err := newBenchPass(backend, in1, in2, grad, p)
	if err != nil {
		return err
	}

	var fwd, bwd time.Duration
	for i := 0; i < *iters; i++ {
		start := time.Now()
		if err := pass.forward(); err != nil {
			return err
		}
		fwd += time.Since(start)

		if *backward {
			start = time.Now()
			if err := pass.backward(); err != nil {
				return err
			}
			bwd += time.Since(start)
		}

		if bar != nil {
			bar.Describe(fmt.Sprintf("Correlating [fwd %v/it]", (fwd / time.Duration(i+1)).Round(time.Microsecond)))
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	n := time.Duration(*iters)
	fmt.Printf("%s %v %s on %s\n", dtype, []int(shape), p, backend.Name())
	fmt.Printf("  volume    %v\n", []int(outShape))
	fmt.Printf("  forward   %v/it\n", fwd/n)
	if *backward {
		fmt.Printf("  backward  %v/it\n", bwd/n)
	}
	return nil
}

// intoBackend is implemented by backends that write into caller-owned buffers.
type intoBackend interface {
	CorrelationInto(out, in1, in2 *tensor.RawTensor, p correlation.Params) error
	CorrelationBackwardInto(d1, d2, in1, in2, grad *tensor.RawTensor, p correlation.Params) error
}

// benchPass runs one timed iteration. Backends that support it reuse
// preallocated output buffers so the timing excludes allocation.
type benchPass struct {
	forward  func() error
	backward func() error
}

func newBenchPass(backend correlation.Backend, in1, in2, grad *tensor.RawTensor, p correlation.Params) (benchPass, error) {
	into, ok := backend.(intoBackend)
	if !ok {
		return benchPass{
			forward: func() error {
				_, err := backend.Correlation(in1, in2, p)
				return err
			},
			backward: func() error {
				_, _, err := backend.CorrelationBackward(in1, in2, grad, p)
				return err
			},
		}, nil
	}

	out, err := tensor.NewRaw(grad.Shape(), grad.DType(), tensor.CPU)
	if err != nil {
		return benchPass{}, err
	}
	d1, err := tensor.NewRaw(in1.Shape(), in1.DType(), tensor.CPU)
	if err != nil {
		return benchPass{}, err
	}
	d2, err := tensor.NewRaw(in2.Shape(), in2.DType(), tensor.CPU)
	if err != nil {
		return benchPass{}, err
	}
	return benchPass{
		forward: func() error {
			return into.CorrelationInto(out, in1, in2, p)
		},
		backward: func() error {
			return into.CorrelationBackwardInto(d1, d2, in1, in2, grad, p)
		},
	}, nil
}
