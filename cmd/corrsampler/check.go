package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/serialization"
	"github.com/born-ml/correlation/internal/tensor"
)

// checker validates a backend against the sequential reference: forward
// agreement, bitwise scheduler parity and a finite-difference gradient check.
type checker struct {
	backend correlation.Backend
	params  correlation.Params
	rng     *rand.Rand
}

type checkReport struct {
	backend     string
	forward     tensor.Diff
	forwardTol  tensor.Tolerance
	forwardOK   bool
	sequential  string // fingerprint of the Sequential volume
	parallel    string // fingerprint of the Parallel volume
	gradErr     [2]float64
	gradTol     float64
	gradSamples int
}

func (r checkReport) ok() bool {
	return r.forwardOK && r.sequential == r.parallel &&
		r.gradErr[0] <= r.gradTol && r.gradErr[1] <= r.gradTol
}

func (r checkReport) print() {
	status := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAIL"
	}
	fmt.Printf("forward   %-4s %s vs reference: max |diff| %.3g at %d\n",
		status(r.forwardOK), r.backend, r.forward.MaxAbs, r.forward.Index)
	fmt.Printf("parity    %-4s sequential %s, parallel %s\n",
		status(r.sequential == r.parallel), r.sequential, r.parallel)
	for i, e := range r.gradErr {
		fmt.Printf("grad_in%d  %-4s max rel err %.3g over %d samples (tol %.0e)\n",
			i+1, status(e <= r.gradTol), e, r.gradSamples, r.gradTol)
	}
}

func (c checker) run(shape tensor.Shape, dtype tensor.DataType, samples int) (checkReport, error) {
	report := checkReport{backend: c.backend.Name(), forwardTol: tensor.DefaultTolerance(dtype)}

	outShape, err := correlation.OutputShape(shape, c.params)
	if err != nil {
		return report, err
	}
	in1, err := tensor.Randn(shape, dtype, c.rng)
	if err != nil {
		return report, err
	}
	in2, err := tensor.Randn(shape, dtype, c.rng)
	if err != nil {
		return report, err
	}
	grad, err := tensor.Randn(outShape, dtype, c.rng)
	if err != nil {
		return report, err
	}

	reference, err := correlation.Forward(correlation.Sequential{}, in1, in2, c.params)
	if err != nil {
		return report, err
	}
	got, err := c.backend.Correlation(in1, in2, c.params)
	if err != nil {
		return report, err
	}
	if report.forward, err = tensor.MaxAbsDiff(got, reference); err != nil {
		return report, err
	}
	if report.forwardOK, err = tensor.AllClose(got, reference, report.forwardTol); err != nil {
		return report, err
	}

	par, err := correlation.Forward(correlation.NewParallel(), in1, in2, c.params)
	if err != nil {
		return report, err
	}
	report.sequential = serialization.FormatFingerprint(serialization.Fingerprint(reference))
	report.parallel = serialization.FormatFingerprint(serialization.Fingerprint(par))

	d1, d2, err := c.backend.CorrelationBackward(in1, in2, grad, c.params)
	if err != nil {
		return report, err
	}

	h, tol := 1e-6, 1e-5
	if dtype == tensor.Float32 {
		h, tol = 1e-2, 2e-2
	}
	report.gradTol = tol
	report.gradSamples = min(samples, shape.NumElements())

	for i, pair := range []struct{ x, analytic *tensor.RawTensor }{{in1, d1}, {in2, d2}} {
		for s := 0; s < report.gradSamples; s++ {
			k := c.rng.Intn(shape.NumElements())
			numeric, err := c.centralDifference(pair.x, k, h, in1, in2, grad)
			if err != nil {
				return report, err
			}
			a := at(pair.analytic, k)
			rel := math.Abs(a-numeric) / math.Max(1, math.Max(math.Abs(a), math.Abs(numeric)))
			report.gradErr[i] = math.Max(report.gradErr[i], rel)
		}
	}
	return report, nil
}

// centralDifference estimates dL/dx[k] for L = sum(volume * grad).
func (c checker) centralDifference(x *tensor.RawTensor, k int, h float64, in1, in2, grad *tensor.RawTensor) (float64, error) {
	orig := at(x, k)
	defer set(x, k, orig)

	set(x, k, orig+h)
	plus, err := c.loss(in1, in2, grad)
	if err != nil {
		return 0, err
	}
	set(x, k, orig-h)
	minus, err := c.loss(in1, in2, grad)
	if err != nil {
		return 0, err
	}
	return (plus - minus) / (2 * h), nil
}

func (c checker) loss(in1, in2, grad *tensor.RawTensor) (float64, error) {
	volume, err := correlation.Forward(correlation.Sequential{}, in1, in2, c.params)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < volume.NumElements(); i++ {
		sum += at(volume, i) * at(grad, i)
	}
	return sum, nil
}

func at(raw *tensor.RawTensor, i int) float64 {
	if raw.DType() == tensor.Float32 {
		return float64(raw.AsFloat32()[i])
	}
	return raw.AsFloat64()[i]
}

func set(raw *tensor.RawTensor, i int, v float64) {
	if raw.DType() == tensor.Float32 {
		raw.AsFloat32()[i] = float32(v)
		return
	}
	raw.AsFloat64()[i] = v
}
