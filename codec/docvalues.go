// Package codec defines the binary format of per-document sparse-vector
// blobs. A blob holds the raw (token, float32 weight) pairs produced at
// ingest; the payload may be s2-compressed.
//
// Layout (big-endian):
//
//	byte 0: version (currently 1)
//	byte 1: flags (bit 0: payload is s2-compressed)
//	payload: repeated { uint16 token, float32 weight }
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/s2"
)

const (
	// Version is the current blob format version.
	Version = 1

	headerSize = 2
	entrySize  = 6

	flagCompressed = 1 << 0
)

var (
	// ErrTruncated is returned when a blob is shorter than its header or its
	// payload is not a whole number of entries.
	ErrTruncated = errors.New("truncated doc value blob")

	// ErrUnsupportedVersion is returned for blobs written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported doc value blob version")
)

// Entry is one raw (token, weight) pair of a document's sparse vector.
type Entry struct {
	Token  uint16
	Weight float32
}

// EncodeDocValue serializes entries into a blob. With compress set, the
// payload is s2-compressed; the header always stays uncompressed so readers
// can dispatch on the flags byte.
func EncodeDocValue(entries []Entry, compress bool) []byte {
	payload := make([]byte, len(entries)*entrySize)
	for i, e := range entries {
		off := i * entrySize
		binary.BigEndian.PutUint16(payload[off:], e.Token)
		binary.BigEndian.PutUint32(payload[off+2:], math.Float32bits(e.Weight))
	}

	var flags byte
	if compress {
		flags |= flagCompressed
		payload = s2.Encode(nil, payload)
	}

	blob := make([]byte, 0, headerSize+len(payload))
	blob = append(blob, Version, flags)
	return append(blob, payload...)
}

// DecodeDocValue parses a blob back into its entries.
func DecodeDocValue(blob []byte) ([]Entry, error) {
	if len(blob) < headerSize {
		return nil, ErrTruncated
	}
	if blob[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, blob[0])
	}

	payload := blob[headerSize:]
	if blob[1]&flagCompressed != 0 {
		decoded, err := s2.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("decompress doc value blob: %w", err)
		}
		payload = decoded
	}

	if len(payload)%entrySize != 0 {
		return nil, ErrTruncated
	}

	entries := make([]Entry, len(payload)/entrySize)
	for i := range entries {
		off := i * entrySize
		entries[i] = Entry{
			Token:  binary.BigEndian.Uint16(payload[off:]),
			Weight: math.Float32frombits(binary.BigEndian.Uint32(payload[off+2:])),
		}
	}
	return entries, nil
}
