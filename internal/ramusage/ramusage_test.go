package ramusage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlign(t *testing.T) {
	assert.Equal(t, int64(0), Align(0))
	assert.Equal(t, int64(8), Align(1))
	assert.Equal(t, int64(8), Align(8))
	assert.Equal(t, int64(16), Align(9))
}

func TestSliceBytes(t *testing.T) {
	assert.Equal(t, int64(SliceHeaderBytes), SliceBytes(0, 8))
	assert.Equal(t, int64(SliceHeaderBytes+80), SliceBytes(10, 8))
	assert.Equal(t, int64(SliceHeaderBytes+8), SliceBytes(3, 2))
}

func TestStringBytes(t *testing.T) {
	assert.Equal(t, int64(StringHeaderBytes), StringBytes(""))
	assert.Equal(t, int64(StringHeaderBytes+8), StringBytes("abc"))
	assert.Equal(t, int64(StringHeaderBytes+16), StringBytes("exactly 9"))
}
