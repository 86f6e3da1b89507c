package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/sparsevec/segment"
)

func TestNewKey_UsesSegmentID(t *testing.T) {
	info := segment.Info{Name: "_0", ID: "seg-abc", MaxDoc: 10}
	key := NewKey(info, "title_embedding")

	assert.Equal(t, "seg-abc", key.SegmentID)
	assert.Equal(t, "title_embedding", key.Field)
}

func TestNewKey_FallsBackToName(t *testing.T) {
	info := segment.Info{Name: "_0", MaxDoc: 10}
	key := NewKey(info, "title_embedding")

	assert.Equal(t, "_0", key.SegmentID)
}

func TestNewKeyForField_EquivalentToNewKey(t *testing.T) {
	info := segment.Info{Name: "_1", ID: "seg-xyz"}
	fi := segment.FieldInfo{Name: "body_embedding"}

	assert.Equal(t, NewKey(info, fi.Name), NewKeyForField(info, fi))
}

func TestKey_Equality(t *testing.T) {
	info := segment.Info{ID: "seg-1"}

	a := NewKey(info, "f")
	b := NewKey(info, "f")
	c := NewKey(info, "g")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Keys constructed differently but naming the same pair hash alike.
	m := map[Key]int{a: 1}
	m[b] = 2
	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[a])
}
