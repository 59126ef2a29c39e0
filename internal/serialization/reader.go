package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/born-ml/correlation/internal/tensor"
)

// Header is the parsed JSON header of a SafeTensors file.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// UnmarshalJSON splits the "__metadata__" entry from the tensor entries.
func (h *Header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap[metadataKey]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == metadataKey {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}

	return nil
}

// File is an open SafeTensors file. Tensor data is read on demand.
type File struct {
	file       *os.File
	header     Header
	dataOffset int64 // Offset where tensor data starts
}

// Open opens a SafeTensors file and validates its header against the file size.
func Open(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for CLI input
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	f, err := open(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return f, nil
}

func open(file *os.File) (*File, error) {
	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, &ValidationError{
			Err:     ErrHeaderTooLarge,
			Details: fmt.Sprintf("%d bytes, max %d", headerSize, MaxHeaderSize),
		}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	dataOffset := int64(8 + headerSize) //nolint:gosec // G115: headerSize bounded by MaxHeaderSize
	dataSize := stat.Size() - dataOffset

	if err := validateHeader(&header, dataSize); err != nil {
		return nil, err
	}

	return &File{file: file, header: header, dataOffset: dataOffset}, nil
}

// validateHeader checks names, dtypes, shape/size agreement and offsets.
func validateHeader(h *Header, dataSize int64) error {
	metas := make([]TensorMeta, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		dtype, err := safeTensorsToDType(info.DType)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", name, err)
		}

		elems := int64(1)
		for _, dim := range info.Shape {
			if dim <= 0 {
				return &ValidationError{Err: ErrOutOfBounds, Tensor: name, Details: fmt.Sprintf("invalid shape %v", info.Shape)}
			}
			if elems > math.MaxInt64/dim {
				return &ValidationError{Err: ErrOutOfBounds, Tensor: name, Details: fmt.Sprintf("shape %v overflows the element count", info.Shape)}
			}
			elems *= dim
		}
		if elems > int64(math.MaxInt/dtype.Size()) {
			return &ValidationError{Err: ErrOutOfBounds, Tensor: name, Details: fmt.Sprintf("shape %v of %s overflows the byte size", info.Shape, dtype)}
		}

		size := info.DataOffsets[1] - info.DataOffsets[0]
		if size != elems*int64(dtype.Size()) {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  name,
				Details: fmt.Sprintf("data size %d does not match shape %v of %s", size, info.Shape, dtype),
			}
		}
		metas = append(metas, TensorMeta{Name: name, Offset: info.DataOffsets[0], Size: size})
	}
	return ValidateTensorOffsets(metas, dataSize)
}

// Close closes the SafeTensors file.
func (f *File) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (f *File) Metadata() map[string]string {
	return f.header.Metadata
}

// Names returns all tensor names in alphabetical order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.header.Tensors))
	for name := range f.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the header entry of a tensor.
func (f *File) Info(name string) (TensorInfo, error) {
	info, ok := f.header.Tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return info, nil
}

// Tensor loads a tensor onto the CPU. If the file carries a fingerprint for
// it, the loaded tensor must match.
func (f *File) Tensor(name string) (*tensor.RawTensor, error) {
	info, err := f.Info(name)
	if err != nil {
		return nil, err
	}
	dtype, err := safeTensorsToDType(info.DType)
	if err != nil {
		return nil, err
	}

	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}
	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	if _, err := f.file.Seek(f.dataOffset+info.DataOffsets[0], io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	if _, err := io.ReadFull(f.file, raw.Data()); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}

	if want, ok := f.header.Metadata[fingerprintPrefix+name]; ok {
		sum, err := parseFingerprint(want)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: malformed fingerprint %q: %w", name, want, err)
		}
		if got := Fingerprint(raw); got != sum {
			return nil, fmt.Errorf("%w: tensor %s: got %s, want %s",
				ErrFingerprintMismatch, name, FormatFingerprint(got), want)
		}
	}

	return raw, nil
}

// ReadFile loads every tensor of a SafeTensors file.
func ReadFile(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	f, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = f.Close() // Best effort close
	}()

	tensors := make(map[string]*tensor.RawTensor, len(f.header.Tensors))
	for _, name := range f.Names() {
		raw, err := f.Tensor(name)
		if err != nil {
			return nil, nil, err
		}
		tensors[name] = raw
	}
	return tensors, f.Metadata(), nil
}
