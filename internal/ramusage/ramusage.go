// Package ramusage provides coarse RAM usage estimates for cache accounting.
//
// The estimates follow the shallow-size approach: header overheads plus the
// backing storage of slices, maps and strings. They are intentionally
// approximate; the accounting exists for admission control, not for exact
// heap attribution.
package ramusage

const (
	// PointerBytes is the size of a pointer on 64-bit platforms.
	PointerBytes = 8

	// SliceHeaderBytes is the size of a slice header (ptr, len, cap).
	SliceHeaderBytes = 24

	// StringHeaderBytes is the size of a string header (ptr, len).
	StringHeaderBytes = 16

	// MapEntryBytes approximates the per-entry overhead of a Go map.
	MapEntryBytes = 48

	// alignment used to round allocations up to the allocator's granularity.
	alignment = 8
)

// Align rounds n up to the allocator alignment.
func Align(n int64) int64 {
	return (n + alignment - 1) &^ (alignment - 1)
}

// SliceBytes estimates the footprint of a slice with n elements of elemSize bytes.
func SliceBytes(n int, elemSize int) int64 {
	return SliceHeaderBytes + Align(int64(n)*int64(elemSize))
}

// StringBytes estimates the footprint of a string.
func StringBytes(s string) int64 {
	return StringHeaderBytes + Align(int64(len(s)))
}
