package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sparsevec/breaker"
	"github.com/hupe1980/sparsevec/data"
)

func TestTracker_LRUOrder(t *testing.T) {
	tr := newTracker[int]()

	tr.touch(1)
	tr.touch(2)
	tr.touch(3)
	tr.touch(1) // 1 becomes most recently used

	k, ok := tr.popLRU()
	require.True(t, ok)
	assert.Equal(t, 2, k)

	k, ok = tr.popLRU()
	require.True(t, ok)
	assert.Equal(t, 3, k)

	k, ok = tr.popLRU()
	require.True(t, ok)
	assert.Equal(t, 1, k)

	_, ok = tr.popLRU()
	assert.False(t, ok)
}

func TestTracker_Forget(t *testing.T) {
	tr := newTracker[string]()

	tr.touch("a")
	tr.touch("b")
	tr.forget("a")
	tr.forget("missing")

	assert.Equal(t, 1, tr.len())

	k, ok := tr.popLRU()
	require.True(t, ok)
	assert.Equal(t, "b", k)
}

func TestTracker_ForgetMatching(t *testing.T) {
	tr := newTracker[int]()
	for i := 0; i < 10; i++ {
		tr.touch(i)
	}

	tr.forgetMatching(func(k int) bool { return k%2 == 0 })
	assert.Equal(t, 5, tr.len())
}

func TestDocumentTracker_EvictFreesBytes(t *testing.T) {
	cb := breaker.New(1<<30, 1.0, nil)
	c := NewForwardIndexCache(cb, nil)

	key := Key{SegmentID: "s", Field: "f"}
	item := c.GetOrCreate(key, 4)
	w := item.Writer(Abort)

	vec := data.NewSparseVector([]data.Item{{Token: 1, Weight: 1}, {Token: 2, Weight: 2}})
	vecBytes := vec.RamBytesUsed()
	for docID := 0; docID < 3; docID++ {
		require.NoError(t, w.Insert(docID, data.NewSparseVector([]data.Item{{Token: 1, Weight: 1}, {Token: 2, Weight: 2}})))
	}
	require.Equal(t, 3, c.Tracker().Len())

	freed := c.Tracker().Evict(vecBytes + 1)
	assert.GreaterOrEqual(t, freed, vecBytes+1)
	assert.Equal(t, uint64(1), item.PopulatedCount())

	// Least recently used documents went first.
	r := item.Reader()
	assert.Nil(t, r.Read(0))
	assert.Nil(t, r.Read(1))
	assert.NotNil(t, r.Read(2))
}

func TestDocumentTracker_RemoveIndexDropsOnlyThatKey(t *testing.T) {
	cb := breaker.New(1<<30, 1.0, nil)
	c := NewForwardIndexCache(cb, nil)

	keyA := Key{SegmentID: "a", Field: "f"}
	keyB := Key{SegmentID: "b", Field: "f"}
	c.Tracker().Touch(keyA, 0)
	c.Tracker().Touch(keyA, 1)
	c.Tracker().Touch(keyB, 0)

	c.Tracker().RemoveIndex(keyA)
	assert.Equal(t, 1, c.Tracker().Len())
}

func TestTermTracker_EvictFreesBytes(t *testing.T) {
	cb := breaker.New(1<<30, 1.0, nil)
	c := NewClusteredPostingCache(cb, nil)

	key := Key{SegmentID: "s", Field: "f"}
	item := c.GetOrCreate(key)
	w := item.Writer(Abort)

	clusters := testPostingClusters()
	require.NoError(t, w.Insert("apple", testPostingClusters()))
	require.NoError(t, w.Insert("banana", testPostingClusters()))

	freed := c.Tracker().Evict(1)
	assert.GreaterOrEqual(t, freed, clusters.RamBytesUsed())

	r := item.Reader()
	assert.Nil(t, r.Read("apple"))
	assert.NotNil(t, r.Read("banana"))
}

func testPostingClusters() *data.PostingClusters {
	return data.NewPostingClusters([]*data.DocumentCluster{
		{
			Summary: data.NewSparseVector([]data.Item{{Token: 1, Weight: 200}}),
			Docs:    []data.DocWeight{{DocID: 1, Weight: 10}, {DocID: 2, Weight: 20}},
		},
	})
}
