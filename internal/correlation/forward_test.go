package correlation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/correlation/internal/parallel"
	"github.com/born-ml/correlation/internal/tensor"
)

// eagerParallel forces real fan-out even on tiny problems.
var eagerParallel = Parallel{Config: parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}}

func randTensor(t testing.TB, shape tensor.Shape, dtype tensor.DataType, seed int64) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.Randn(shape, dtype, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return raw
}

func fullTensor(t testing.TB, shape tensor.Shape, dtype tensor.DataType, v float64) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.Full(shape, dtype, v)
	require.NoError(t, err)
	return raw
}

func params(kernel, patch, stride, pad, dilation, dilationPatch int) Params {
	return Params{
		KernelSize:    Square(kernel),
		PatchSize:     Square(patch),
		Stride:        Square(stride),
		Padding:       Square(pad),
		Dilation:      Square(dilation),
		DilationPatch: Square(dilationPatch),
	}
}

// naiveForward evaluates the volume straight from the definition, treating
// every out-of-image read as zero.
func naiveForward(in1, in2 []float64, shape tensor.Shape, p Params) ([]float64, tensor.Shape) {
	b, c, h, w := shape[0], shape[1], shape[2], shape[3]
	oh := (h+2*p.Padding.H-p.Dilation.H*(p.KernelSize.H-1)-1)/p.Stride.H + 1
	ow := (w+2*p.Padding.W-p.Dilation.W*(p.KernelSize.W-1)-1)/p.Stride.W + 1
	ph, pw := p.PatchSize.H, p.PatchSize.W

	at := func(data []float64, n, ch, y, x int) float64 {
		if y < 0 || y >= h || x < 0 || x >= w {
			return 0
		}
		return data[((n*c+ch)*h+y)*w+x]
	}

	scale := 1.0
	if p.Normalization == NormalizeKernelVolume {
		scale = 1.0 / float64(c*p.KernelSize.H*p.KernelSize.W)
	}

	out := make([]float64, b*ph*pw*oh*ow)
	for n := 0; n < b; n++ {
		for pi := 0; pi < ph; pi++ {
			sy := pi*p.DilationPatch.H - p.DilationPatch.H*(ph-1)/2
			for pj := 0; pj < pw; pj++ {
				sx := pj*p.DilationPatch.W - p.DilationPatch.W*(pw-1)/2
				for i := 0; i < oh; i++ {
					for j := 0; j < ow; j++ {
						var sum float64
						for ki := 0; ki < p.KernelSize.H; ki++ {
							for kj := 0; kj < p.KernelSize.W; kj++ {
								y := i*p.Stride.H - p.Padding.H + ki*p.Dilation.H
								x := j*p.Stride.W - p.Padding.W + kj*p.Dilation.W
								for ch := 0; ch < c; ch++ {
									sum += at(in1, n, ch, y, x) * at(in2, n, ch, y+sy, x+sx)
								}
							}
						}
						out[(((n*ph+pi)*pw+pj)*oh+i)*ow+j] = sum * scale
					}
				}
			}
		}
	}
	return out, tensor.Shape{b, ph, pw, oh, ow}
}

var forwardCases = []struct {
	name   string
	shape  tensor.Shape
	params Params
}{
	{"pointwise", tensor.Shape{2, 3, 5, 6}, params(1, 1, 1, 0, 1, 1)},
	{"patch3", tensor.Shape{1, 4, 6, 6}, params(1, 3, 1, 0, 1, 1)},
	{"kernel3 pad1 patch5", tensor.Shape{2, 2, 7, 5}, params(3, 5, 1, 1, 1, 1)},
	{"stride2", tensor.Shape{1, 3, 9, 8}, params(3, 3, 2, 1, 1, 1)},
	{"dilated", tensor.Shape{1, 2, 9, 9}, params(2, 3, 1, 1, 2, 2)},
	{"even patch", tensor.Shape{2, 2, 6, 7}, params(1, 4, 1, 0, 1, 1)},
	{"even patch dilated", tensor.Shape{1, 3, 6, 6}, params(2, 2, 1, 0, 1, 2)},
	{"rectangular", tensor.Shape{1, 2, 5, 9}, Params{
		KernelSize: Pair{H: 1, W: 3}, PatchSize: Pair{H: 3, W: 5}, Stride: Pair{H: 1, W: 2},
		Padding: Pair{H: 0, W: 1}, Dilation: Square(1), DilationPatch: Pair{H: 2, W: 1},
	}},
	{"normalized", tensor.Shape{2, 3, 6, 6}, func() Params {
		p := params(3, 3, 1, 1, 1, 1)
		p.Normalization = NormalizeKernelVolume
		return p
	}()},
}

func TestForward_MatchesDefinition(t *testing.T) {
	for i, tc := range forwardCases {
		t.Run(tc.name, func(t *testing.T) {
			in1 := randTensor(t, tc.shape, tensor.Float64, int64(2*i+1))
			in2 := randTensor(t, tc.shape, tensor.Float64, int64(2*i+2))

			out, err := Forward(Sequential{}, in1, in2, tc.params)
			require.NoError(t, err)

			want, wantShape := naiveForward(in1.AsFloat64(), in2.AsFloat64(), tc.shape, tc.params)
			require.Equal(t, wantShape, out.Shape())
			assert.InDeltaSlice(t, want, out.AsFloat64(), 1e-9)

			predicted, err := OutputShape(tc.shape, tc.params)
			require.NoError(t, err)
			assert.Equal(t, predicted, out.Shape())
		})
	}
}

func TestForward_Float32(t *testing.T) {
	tc := forwardCases[2]
	in1 := randTensor(t, tc.shape, tensor.Float32, 11)
	in2 := randTensor(t, tc.shape, tensor.Float32, 12)

	out, err := Forward(Sequential{}, in1, in2, tc.params)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, out.DType())

	a := make([]float64, in1.NumElements())
	b := make([]float64, in2.NumElements())
	for i, v := range in1.AsFloat32() {
		a[i] = float64(v)
	}
	for i, v := range in2.AsFloat32() {
		b[i] = float64(v)
	}
	want, _ := naiveForward(a, b, tc.shape, tc.params)

	got := out.AsFloat32()
	for i := range want {
		assert.InDelta(t, want[i], float64(got[i]), 1e-4, "index %d", i)
	}
}

func TestForward_PointwiseIsChannelProduct(t *testing.T) {
	shape := tensor.Shape{2, 3, 4, 5}
	in1 := randTensor(t, shape, tensor.Float64, 1)
	in2 := randTensor(t, shape, tensor.Float64, 2)

	out, err := Forward(Sequential{}, in1, in2, DefaultParams())
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 1, 1, 4, 5}, out.Shape())

	a, b, got := in1.AsFloat64(), in2.AsFloat64(), out.AsFloat64()
	plane := 4 * 5
	for n := 0; n < 2; n++ {
		for pos := 0; pos < plane; pos++ {
			var want float64
			for c := 0; c < 3; c++ {
				idx := (n*3+c)*plane + pos
				want += a[idx] * b[idx]
			}
			assert.InDelta(t, want, got[n*plane+pos], 1e-12)
		}
	}
}

func TestForward_OnesWithPadding(t *testing.T) {
	shape := tensor.Shape{1, 1, 4, 4}
	ones := fullTensor(t, shape, tensor.Float32, 1)
	p := params(3, 1, 1, 1, 1, 1)

	out, err := Forward(Sequential{}, ones, ones, p)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 1, 1, 4, 4}, out.Shape())

	want := []float32{
		4, 6, 6, 4,
		6, 9, 9, 6,
		6, 9, 9, 6,
		4, 6, 6, 4,
	}
	assert.Equal(t, want, out.AsFloat32())

	p.Normalization = NormalizeKernelVolume
	out, err = Forward(Sequential{}, ones, ones, p)
	require.NoError(t, err)
	got := out.AsFloat32()
	for i := range want {
		assert.InDelta(t, want[i]/9, got[i], 1e-6)
	}
}

func TestForward_InputSmallerThanKernel(t *testing.T) {
	shape := tensor.Shape{1, 2, 2, 2}
	ones := fullTensor(t, shape, tensor.Float64, 1)

	out, err := Forward(Sequential{}, ones, ones, params(3, 1, 1, 1, 1, 1))
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 1, 1, 2, 2}, out.Shape())

	// Every window covers the whole 2x2 image over 2 channels.
	assert.Equal(t, []float64{8, 8, 8, 8}, out.AsFloat64())
}

func TestForward_ShiftOutsideImageIsZero(t *testing.T) {
	shape := tensor.Shape{1, 1, 3, 3}
	ones := fullTensor(t, shape, tensor.Float64, 1)

	out, err := Forward(Sequential{}, ones, ones, params(1, 3, 1, 0, 1, 1))
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 3, 3, 3, 3}, out.Shape())

	data := out.AsFloat64()
	at := func(ph, pw, i, j int) float64 { return data[((ph*3+pw)*3+i)*3+j] }

	assert.Equal(t, 1.0, at(1, 1, 0, 0))
	assert.Equal(t, 0.0, at(0, 1, 0, 0)) // shift (-1, 0) leaves the top edge
	assert.Equal(t, 0.0, at(2, 2, 2, 2)) // shift (+1, +1) leaves the corner
	assert.Equal(t, 1.0, at(2, 2, 1, 1))
}

func TestForward_FlipSymmetry(t *testing.T) {
	shape := tensor.Shape{2, 3, 7, 8}
	p := params(3, 5, 1, 1, 1, 1)
	in1 := randTensor(t, shape, tensor.Float64, 21)
	in2 := randTensor(t, shape, tensor.Float64, 22)

	out12, err := Forward(Sequential{}, in1, in2, p)
	require.NoError(t, err)
	out21, err := Forward(Sequential{}, in2, in1, p)
	require.NoError(t, err)

	g, err := Resolve(7, 8, p)
	require.NoError(t, err)

	s := out12.Shape()
	P, Q, oh, ow := s[1], s[2], s[3], s[4]
	idx := func(b, ph, pw, i, j int) int { return (((b*P+ph)*Q+pw)*oh+i)*ow + j }
	a, r := out12.AsFloat64(), out21.AsFloat64()

	checked := 0
	for b := 0; b < s[0]; b++ {
		for ph := 0; ph < P; ph++ {
			for pw := 0; pw < Q; pw++ {
				dy, dx := g.Shift(ph, pw)
				for i := 0; i < oh; i++ {
					for j := 0; j < ow; j++ {
						i2, j2 := i+dy, j+dx
						if i2 < 0 || i2 >= oh || j2 < 0 || j2 >= ow {
							continue
						}
						assert.InDelta(t, a[idx(b, ph, pw, i, j)], r[idx(b, P-1-ph, Q-1-pw, i2, j2)], 1e-12)
						checked++
					}
				}
			}
		}
	}
	assert.Positive(t, checked)
}

func TestForward_SchedulersBitwiseEqual(t *testing.T) {
	for i, tc := range forwardCases {
		t.Run(tc.name, func(t *testing.T) {
			in1 := randTensor(t, tc.shape, tensor.Float32, int64(100+i))
			in2 := randTensor(t, tc.shape, tensor.Float32, int64(200+i))

			ref, err := Forward(Sequential{}, in1, in2, tc.params)
			require.NoError(t, err)
			par, err := Forward(eagerParallel, in1, in2, tc.params)
			require.NoError(t, err)
			assert.Equal(t, ref.Data(), par.Data())
		})
	}
}

func TestForward_Errors(t *testing.T) {
	shape := tensor.Shape{1, 2, 4, 4}
	f32 := randTensor(t, shape, tensor.Float32, 1)
	f64 := randTensor(t, shape, tensor.Float64, 2)
	other := randTensor(t, tensor.Shape{1, 2, 4, 5}, tensor.Float32, 3)
	flat := randTensor(t, tensor.Shape{2, 4, 4}, tensor.Float32, 4)
	ints, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	require.NoError(t, err)

	tests := []struct {
		name     string
		in1, in2 *tensor.RawTensor
		params   Params
		want     error
	}{
		{"shape disagreement", f32, other, DefaultParams(), ErrShapeMismatch},
		{"not 4d", flat, flat, DefaultParams(), ErrShapeMismatch},
		{"nil input", f32, nil, DefaultParams(), ErrShapeMismatch},
		{"mixed dtype", f32, f64, DefaultParams(), ErrUnsupportedConfiguration},
		{"integer dtype", ints, ints, DefaultParams(), ErrUnsupportedConfiguration},
		{"bad params", f32, f32, params(0, 1, 1, 0, 1, 1), ErrInvalidGeometry},
		{"too small", f32, f32, params(5, 1, 1, 0, 1, 1), ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Forward(Sequential{}, tt.in1, tt.in2, tt.params)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), "correlation: ")
		})
	}
}

func TestForwardInto(t *testing.T) {
	shape := tensor.Shape{2, 3, 6, 6}
	p := params(3, 3, 1, 1, 1, 1)
	in1 := randTensor(t, shape, tensor.Float32, 5)
	in2 := randTensor(t, shape, tensor.Float32, 6)

	want, err := Forward(Sequential{}, in1, in2, p)
	require.NoError(t, err)

	t.Run("writes caller buffer", func(t *testing.T) {
		out := fullTensor(t, want.Shape(), tensor.Float32, 42)
		require.NoError(t, ForwardInto(eagerParallel, out, in1, in2, p))
		assert.Equal(t, want.Data(), out.Data())
	})

	t.Run("wrong shape leaves buffer untouched", func(t *testing.T) {
		out := fullTensor(t, tensor.Shape{2, 3, 3, 6, 5}, tensor.Float32, 42)
		before := out.Clone()
		err := ForwardInto(Sequential{}, out, in1, in2, p)
		assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
		assert.Equal(t, before.Data(), out.Data())
	})

	t.Run("wrong dtype", func(t *testing.T) {
		out := fullTensor(t, want.Shape(), tensor.Float64, 0)
		err := ForwardInto(Sequential{}, out, in1, in2, p)
		assert.True(t, errors.Is(err, ErrUnsupportedConfiguration), "got %v", err)
	})

	t.Run("nil buffer", func(t *testing.T) {
		err := ForwardInto(Sequential{}, nil, in1, in2, p)
		assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	})
}

func TestPrepare(t *testing.T) {
	shape := tensor.Shape{1, 2, 8, 8}
	in := randTensor(t, shape, tensor.Float32, 1)

	g, err := Prepare(in, in, params(3, 5, 2, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 4, g.OutH)
	assert.Equal(t, 5, g.PatchH)
	assert.Equal(t, tensor.Shape{1, 5, 5, 4, 4}, g.VolumeShape(1))
}

func BenchmarkForward(b *testing.B) {
	shape := tensor.Shape{1, 32, 32, 32}
	p := params(1, 9, 1, 0, 1, 1)
	in1 := randTensor(b, shape, tensor.Float32, 1)
	in2 := randTensor(b, shape, tensor.Float32, 2)

	for _, s := range []Scheduler{Sequential{}, NewParallel()} {
		out, err := Forward(s, in1, in2, p)
		require.NoError(b, err)

		b.Run(schedulerName(s), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = ForwardInto(s, out, in1, in2, p)
			}
		})
	}
}

func schedulerName(s Scheduler) string {
	if str, ok := s.(interface{ String() string }); ok {
		return str.String()
	}
	return "scheduler"
}
