// Package quantization maps float32 sparse-vector weights to single bytes.
//
// A ByteQuantizer compresses float32 weights (4 bytes) to uint8 (1 byte) for
// 4x memory savings. The mapping is linear over [0, ceiling] with clamping on
// both ends, so the ceiling bounds the representable weight range.
package quantization

import (
	"errors"
	"fmt"
)

// ErrInvalidCeiling is returned when a quantizer is constructed with a negative ceiling.
var ErrInvalidCeiling = errors.New("quantization ceiling must be non-negative")

const maxByteValue = 255

// ByteQuantizer performs 8-bit scalar quantization under a fixed ceiling.
// Values in [0, ceiling] map linearly to [0, 255] with round-to-nearest;
// values below 0 clamp to 0 and values above the ceiling clamp to 255.
type ByteQuantizer struct {
	ceiling float32
}

// New creates a ByteQuantizer for the given ceiling.
func New(ceiling float32) (*ByteQuantizer, error) {
	if ceiling < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCeiling, ceiling)
	}
	return &ByteQuantizer{ceiling: ceiling}, nil
}

// Ceiling returns the configured ceiling.
func (q *ByteQuantizer) Ceiling() float32 {
	return q.ceiling
}

// Quantize maps a float32 weight to a byte.
func (q *ByteQuantizer) Quantize(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= q.ceiling {
		return maxByteValue
	}
	return byte(v/q.ceiling*maxByteValue + 0.5)
}

// Decode reconstructs the float32 weight a byte represents. The result is
// within one quantization step (ceiling/255) of the original value.
func (q *ByteQuantizer) Decode(b byte) float32 {
	return float32(b) * q.ceiling / maxByteValue
}

// UnsignedByte returns the unsigned value (0-255) stored in a signed 8-bit cell.
func UnsignedByte(b int8) int {
	return int(uint8(b))
}

// CompareUnsigned compares two bytes stored in signed 8-bit cells as unsigned
// values. It returns a negative number, zero, or a positive number when a is
// less than, equal to, or greater than b.
func CompareUnsigned(a, b int8) int {
	return int(uint8(a)) - int(uint8(b))
}

// MultiplyUnsigned multiplies two quantized weights as unsigned values.
// Exact integer arithmetic, used when recombining quantized weights during
// similarity scoring.
func MultiplyUnsigned(a, b byte) int {
	return int(a) * int(b)
}
