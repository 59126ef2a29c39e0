package serialization

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/born-ml/correlation/internal/tensor"
)

const fingerprintPrefix = "xxh64."

// Fingerprint returns the xxHash64 of a tensor's dtype, shape and data.
// Two tensors have the same fingerprint only if they are bitwise equal.
func Fingerprint(raw *tensor.RawTensor) uint64 {
	h := xxhash.New()

	_, _ = h.WriteString(raw.DType().String())

	buf := make([]byte, 8)
	for _, dim := range raw.Shape() {
		binary.LittleEndian.PutUint64(buf, uint64(dim)) //nolint:gosec // G115: dims are validated positive
		_, _ = h.Write(buf)
	}

	_, _ = h.Write(raw.Data())
	return h.Sum64()
}

// FormatFingerprint renders a fingerprint as 16 hex digits.
func FormatFingerprint(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

func parseFingerprint(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
