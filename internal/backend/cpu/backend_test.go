package cpu

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/correlation/internal/correlation"
	"github.com/born-ml/correlation/internal/parallel"
	"github.com/born-ml/correlation/internal/tensor"
)

func randn(t *testing.T, shape tensor.Shape, dtype tensor.DataType, seed int64) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.Randn(shape, dtype, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return raw
}

func flowParams() correlation.Params {
	p := correlation.DefaultParams()
	p.KernelSize = correlation.Square(3)
	p.PatchSize = correlation.Square(5)
	p.Padding = correlation.Square(1)
	p.DilationPatch = correlation.Square(2)
	return p
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	require.NotNil(t, backend)
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.IsType(t, correlation.Parallel{}, backend.Scheduler())

	assert.IsType(t, correlation.Sequential{}, New(WithSequential()).Scheduler())
}

func TestCPUBackend_Options(t *testing.T) {
	backend := New(WithWorkers(3), WithMinChunkSize(2))
	s, ok := backend.Scheduler().(correlation.Parallel)
	require.True(t, ok)
	assert.Equal(t, parallel.Config{Enabled: true, NumWorkers: 3, MinChunkSize: 2}, s.Config)

	s, ok = New(WithWorkers(1)).Scheduler().(correlation.Parallel)
	require.True(t, ok)
	assert.False(t, s.Config.Enabled)

	cfg := parallel.Config{Enabled: true, NumWorkers: 5, MinChunkSize: 8}
	s, ok = New(WithParallelConfig(cfg)).Scheduler().(correlation.Parallel)
	require.True(t, ok)
	assert.Equal(t, cfg, s.Config)
}

func TestCPUBackend_ParallelMatchesReference(t *testing.T) {
	shape := tensor.Shape{2, 4, 9, 7}
	p := flowParams()
	in1 := randn(t, shape, tensor.Float32, 1)
	in2 := randn(t, shape, tensor.Float32, 2)

	ref := New(WithSequential())
	par := New(WithWorkers(4), WithMinChunkSize(1))

	want, err := ref.Correlation(in1, in2, p)
	require.NoError(t, err)
	got, err := par.Correlation(in1, in2, p)
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())

	grad := randn(t, want.Shape(), tensor.Float32, 3)
	w1, w2, err := ref.CorrelationBackward(in1, in2, grad, p)
	require.NoError(t, err)
	g1, g2, err := par.CorrelationBackward(in1, in2, grad, p)
	require.NoError(t, err)
	assert.Equal(t, w1.Data(), g1.Data())
	assert.Equal(t, w2.Data(), g2.Data())
}

func TestCPUBackend_IntoVariants(t *testing.T) {
	shape := tensor.Shape{1, 2, 6, 6}
	p := flowParams()
	in1 := randn(t, shape, tensor.Float64, 4)
	in2 := randn(t, shape, tensor.Float64, 5)
	backend := New()

	want, err := backend.Correlation(in1, in2, p)
	require.NoError(t, err)

	out, err := tensor.Zeros(want.Shape(), tensor.Float64)
	require.NoError(t, err)
	require.NoError(t, backend.CorrelationInto(out, in1, in2, p))
	assert.Equal(t, want.Data(), out.Data())

	grad := randn(t, want.Shape(), tensor.Float64, 6)
	w1, w2, err := backend.CorrelationBackward(in1, in2, grad, p)
	require.NoError(t, err)

	d1, err := tensor.Zeros(shape, tensor.Float64)
	require.NoError(t, err)
	d2, err := tensor.Zeros(shape, tensor.Float64)
	require.NoError(t, err)
	require.NoError(t, backend.CorrelationBackwardInto(d1, d2, in1, in2, grad, p))
	assert.Equal(t, w1.Data(), d1.Data())
	assert.Equal(t, w2.Data(), d2.Data())
}

func TestCPUBackend_Errors(t *testing.T) {
	backend := New()
	in1 := randn(t, tensor.Shape{1, 2, 6, 6}, tensor.Float32, 1)
	in2 := randn(t, tensor.Shape{1, 2, 6, 5}, tensor.Float32, 2)

	_, err := backend.Correlation(in1, in2, flowParams())
	assert.True(t, errors.Is(err, correlation.ErrShapeMismatch))

	_, _, err = backend.CorrelationBackward(in1, in1, in1, flowParams())
	assert.True(t, errors.Is(err, correlation.ErrShapeMismatch))
}
