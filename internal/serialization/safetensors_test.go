package serialization

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/correlation/internal/tensor"
)

func randn(t *testing.T, shape tensor.Shape, dtype tensor.DataType, seed int64) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.Randn(shape, dtype, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return raw
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.safetensors")

	in1 := randn(t, tensor.Shape{1, 3, 4, 5}, tensor.Float32, 1)
	in2 := randn(t, tensor.Shape{1, 3, 4, 5}, tensor.Float32, 2)
	vol := randn(t, tensor.Shape{1, 3, 3, 4, 5}, tensor.Float64, 3)

	err := WriteFile(path, map[string]*tensor.RawTensor{
		"input2": in2,
		"input1": in1,
		"volume": vol,
	}, map[string]string{"params": "kernel=1x1"})
	require.NoError(t, err)

	f, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"input1", "input2", "volume"}, f.Names())
	assert.Equal(t, "kernel=1x1", f.Metadata()["params"])
	assert.Equal(t, FormatFingerprint(Fingerprint(vol)), f.Metadata()["xxh64.volume"])

	info, err := f.Info("input2")
	require.NoError(t, err)
	assert.Equal(t, "F32", info.DType)
	assert.Equal(t, []int64{1, 3, 4, 5}, info.Shape)
	// Alphabetical layout: input1 first, input2 right after it.
	assert.Equal(t, [2]int64{240, 480}, info.DataOffsets)

	got, err := f.Tensor("volume")
	require.NoError(t, err)
	assert.Equal(t, vol.Shape(), got.Shape())
	assert.Equal(t, vol.AsFloat64(), got.AsFloat64())

	_, err = f.Tensor("missing")
	assert.True(t, errors.Is(err, ErrTensorNotFound))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grads.safetensors")
	g1 := randn(t, tensor.Shape{2, 2, 3, 3}, tensor.Float64, 4)

	require.NoError(t, WriteFile(path, map[string]*tensor.RawTensor{"grad_input1": g1}, nil))

	tensors, meta, err := ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, tensors, "grad_input1")
	assert.Equal(t, g1.Data(), tensors["grad_input1"].Data())
	assert.Contains(t, meta, "xxh64.grad_input1")
}

func TestTensor_DetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.safetensors")
	raw := randn(t, tensor.Shape{4, 4}, tensor.Float32, 5)
	require.NoError(t, WriteFile(path, map[string]*tensor.RawTensor{"x": raw}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	_, err = f.Tensor("x")
	assert.True(t, errors.Is(err, ErrFingerprintMismatch), "got %v", err)
}

func TestOpen_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.safetensors")
	raw := randn(t, tensor.Shape{8}, tensor.Float64, 6)
	require.NoError(t, WriteFile(path, map[string]*tensor.RawTensor{"x": raw}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0o600))

	_, err = Open(path)
	assert.True(t, errors.Is(err, ErrOutOfBounds), "got %v", err)
}

func TestOpen_HeaderTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.safetensors")
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, MaxHeaderSize+1)
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	_, err := Open(path)
	assert.True(t, errors.Is(err, ErrHeaderTooLarge), "got %v", err)
}

func TestOpen_SizeDisagreesWithShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	header := []byte(`{"x":{"dtype":"F32","shape":[2,2],"data_offsets":[0,12]}}`)
	buf := make([]byte, 8, 8+len(header)+16)
	binary.LittleEndian.PutUint64(buf, uint64(len(header)))
	buf = append(buf, header...)
	buf = append(buf, make([]byte, 16)...)
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	_, err := Open(path)
	assert.True(t, errors.Is(err, ErrOutOfBounds), "got %v", err)
}

func TestOpen_ShapeOverflow(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"element count wraps to zero", `{"x":{"dtype":"F32","shape":[65536,65536,65536,65536],"data_offsets":[0,0]}}`},
		{"element count overflows", `{"x":{"dtype":"F64","shape":[2147483648,2147483648,4],"data_offsets":[0,0]}}`},
		{"byte size overflows", `{"x":{"dtype":"F32","shape":[4611686018427387904],"data_offsets":[0,0]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "overflow.safetensors")
			buf := make([]byte, 8, 8+len(tt.header))
			binary.LittleEndian.PutUint64(buf, uint64(len(tt.header)))
			buf = append(buf, tt.header...)
			require.NoError(t, os.WriteFile(path, buf, 0o600))

			_, _, err := ReadFile(path)
			assert.True(t, errors.Is(err, ErrOutOfBounds), "got %v", err)
		})
	}
}

func TestWrite_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	raw := randn(t, tensor.Shape{2}, tensor.Float32, 7)

	err := WriteFile(filepath.Join(dir, "a.safetensors"), map[string]*tensor.RawTensor{"../x": raw}, nil)
	assert.True(t, errors.Is(err, ErrInvalidTensorName))

	err = WriteFile(filepath.Join(dir, "b.safetensors"), map[string]*tensor.RawTensor{"x": nil}, nil)
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := randn(t, tensor.Shape{2, 3}, tensor.Float32, 8)
	assert.Equal(t, Fingerprint(a), Fingerprint(a.Clone()))

	b := a.Clone()
	b.AsFloat32()[5] += 1
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	// Same bytes, different shape.
	c, err := tensor.FromFloat32(tensor.Shape{3, 2}, a.AsFloat32())
	require.NoError(t, err)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	assert.Len(t, FormatFingerprint(Fingerprint(a)), 16)
	sum, err := parseFingerprint(FormatFingerprint(Fingerprint(a)))
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(a), sum)
}
