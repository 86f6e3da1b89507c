package quantization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCeiling_MissingAttributeUsesFallback(t *testing.T) {
	got, err := Ceiling(map[string]string{}, AttrCeilingIngest, 5.0)
	require.NoError(t, err)
	assert.Equal(t, float32(5.0), got)

	got, err = Ceiling(nil, AttrCeilingSearch, 7.0)
	require.NoError(t, err)
	assert.Equal(t, float32(7.0), got)
}

func TestCeiling_ValidAttribute(t *testing.T) {
	attrs := map[string]string{AttrCeilingIngest: "2.5"}
	got, err := Ceiling(attrs, AttrCeilingIngest, 3.0)
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), got)
}

func TestCeiling_MalformedAttribute(t *testing.T) {
	attrs := map[string]string{AttrCeilingIngest: "not-a-number"}
	_, err := Ceiling(attrs, AttrCeilingIngest, 3.0)
	require.Error(t, err)

	var mce *MalformedCeilingError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, AttrCeilingIngest, mce.Attribute)
	assert.Equal(t, "not-a-number", mce.Value)
	assert.Error(t, mce.Unwrap())
}

func TestIngestQuantizer_Defaults(t *testing.T) {
	q, err := IngestQuantizer(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCeilingIngest, q.Ceiling())
}

func TestSearchQuantizer(t *testing.T) {
	q, err := SearchQuantizer(map[string]string{AttrCeilingSearch: "8"})
	require.NoError(t, err)
	assert.Equal(t, float32(8), q.Ceiling())

	q, err = SearchQuantizer(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCeilingSearch, q.Ceiling())

	_, err = SearchQuantizer(map[string]string{AttrCeilingSearch: "x"})
	require.Error(t, err)
}
