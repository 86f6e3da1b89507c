package sparsevec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sparsevec/cache"
	"github.com/hupe1980/sparsevec/codec"
	"github.com/hupe1980/sparsevec/data"
	"github.com/hupe1980/sparsevec/segment"
)

func newTestManager(t *testing.T, opts ...Option) *CacheManager {
	t.Helper()
	m, err := NewCacheManager(append([]Option{WithLimit("64mb")}, opts...)...)
	require.NoError(t, err)
	return m
}

func testProvider() *segment.MemSearcherProvider {
	blob := codec.EncodeDocValue([]codec.Entry{{Token: 1, Weight: 1.5}}, false)
	seg := &segment.MemSegment{
		SegInfo: segment.Info{Name: "_0", ID: "seg-1", MaxDoc: 1},
		Fields:  []segment.FieldInfo{{Name: "embedding"}},
		Forward: map[string]*segment.MemForwardSource{
			"embedding": segment.NewMemForwardSource(map[int][]byte{0: blob}),
		},
		Postings: segment.NewMemPostingsSource(map[string]map[string]*data.PostingClusters{
			"embedding": {
				"apple": data.NewPostingClusters([]*data.DocumentCluster{
					{
						Summary: data.NewSparseVector([]data.Item{{Token: 1, Weight: 100}}),
						Docs:    []data.DocWeight{{DocID: 0, Weight: 10}},
					},
				}),
			},
		}),
	}
	return &segment.MemSearcherProvider{Segs: []segment.View{seg}}
}

func cacheKeyForTest() cache.Key {
	return cache.Key{SegmentID: "seg-1", Field: "embedding"}
}

func TestNewCacheManager_Defaults(t *testing.T) {
	m, err := NewCacheManager()
	require.NoError(t, err)

	assert.NotNil(t, m.ForwardIndex())
	assert.NotNil(t, m.ClusteredPostings())
	assert.NotNil(t, m.Breaker())
	assert.Positive(t, m.Breaker().Limit())
	assert.Equal(t, 1.0, m.Breaker().Overhead())
}

func TestNewCacheManager_WithOptions(t *testing.T) {
	m := newTestManager(t, WithOverhead(1.5), WithMaxConcurrentWarmUps(2))

	assert.Equal(t, int64(64<<20), m.Breaker().Limit())
	assert.Equal(t, 1.5, m.Breaker().Overhead())
}

func TestNewCacheManager_InvalidLimit(t *testing.T) {
	_, err := NewCacheManager(WithLimit("not-a-size"))
	assert.Error(t, err)
}

func TestCacheManager_SharedBreaker(t *testing.T) {
	m := newTestManager(t)

	// Both caches charge against the one breaker.
	item := m.ForwardIndex().GetOrCreate(cacheKeyForTest(), 10)
	pitem := m.ClusteredPostings().GetOrCreate(cacheKeyForTest())

	assert.Equal(t, item.RamBytesUsed()+pitem.RamBytesUsed(), m.Breaker().Used())
	assert.Equal(t, item.RamBytesUsed()+pitem.RamBytesUsed(), m.RamBytesUsed())
}

func TestCacheManager_NewShardWarmUp(t *testing.T) {
	m := newTestManager(t)
	s := m.NewShard(testProvider())

	require.NoError(t, s.WarmUp(context.Background()))

	assert.Len(t, m.ForwardIndex().Keys(), 1)
	assert.Len(t, m.ClusteredPostings().Keys(), 1)
	assert.Positive(t, m.RamBytesUsed())
	assert.Equal(t, m.RamBytesUsed(), m.Breaker().Used())

	require.NoError(t, s.OnRemoval(context.Background()))
	assert.Equal(t, int64(0), m.RamBytesUsed())
	assert.Equal(t, int64(0), m.Breaker().Used())
}

func TestCacheManager_UpdateLimit(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.UpdateLimit("128mb"))
	assert.Equal(t, int64(128<<20), m.Breaker().Limit())

	assert.Error(t, m.UpdateLimit("bogus"))
	assert.Equal(t, int64(128<<20), m.Breaker().Limit())
}

func TestCacheManager_UpdateLimitBelowUsageKeepsEntries(t *testing.T) {
	m := newTestManager(t)
	s := m.NewShard(testProvider())
	require.NoError(t, s.WarmUp(context.Background()))
	used := m.Breaker().Used()
	require.Positive(t, used)

	require.NoError(t, m.UpdateLimit("1b"))

	// Existing entries stay; only new charges are rejected.
	assert.Equal(t, used, m.Breaker().Used())
	assert.Len(t, m.ForwardIndex().Keys(), 1)
	assert.Error(t, m.Breaker().AddMemoryUsage(100, "test"))
}

func TestCacheManager_UpdateOverhead(t *testing.T) {
	m := newTestManager(t)
	m.UpdateOverhead(2.0)
	assert.Equal(t, 2.0, m.Breaker().Overhead())
}
