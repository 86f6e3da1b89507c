package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDocValue(t *testing.T) {
	entries := []Entry{
		{Token: 1, Weight: 0.5},
		{Token: 42, Weight: 2.75},
		{Token: 65535, Weight: 0.001},
	}

	for _, compress := range []bool{false, true} {
		blob := EncodeDocValue(entries, compress)
		require.GreaterOrEqual(t, len(blob), 2)
		assert.Equal(t, byte(Version), blob[0])

		got, err := DecodeDocValue(blob)
		require.NoError(t, err)
		assert.Equal(t, entries, got)
	}
}

func TestEncodeDocValue_Empty(t *testing.T) {
	blob := EncodeDocValue(nil, false)
	got, err := DecodeDocValue(blob)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeDocValue_Truncated(t *testing.T) {
	_, err := DecodeDocValue(nil)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DecodeDocValue([]byte{Version})
	assert.ErrorIs(t, err, ErrTruncated)

	// Payload that is not a whole number of entries.
	blob := EncodeDocValue([]Entry{{Token: 1, Weight: 1}}, false)
	_, err = DecodeDocValue(blob[:len(blob)-1])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeDocValue_UnsupportedVersion(t *testing.T) {
	blob := EncodeDocValue([]Entry{{Token: 1, Weight: 1}}, false)
	blob[0] = 99

	_, err := DecodeDocValue(blob)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeDocValue_CorruptCompressedPayload(t *testing.T) {
	blob := []byte{Version, flagCompressed, 0xff, 0xff, 0xff, 0xff}
	_, err := DecodeDocValue(blob)
	require.Error(t, err)
}

func TestEncodeDocValue_CompressionShrinksRepetitiveData(t *testing.T) {
	entries := make([]Entry, 1000)
	for i := range entries {
		entries[i] = Entry{Token: 7, Weight: 1.0}
	}

	plain := EncodeDocValue(entries, false)
	compressed := EncodeDocValue(entries, true)
	assert.Less(t, len(compressed), len(plain))
}
