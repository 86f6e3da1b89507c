package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClusters() *PostingClusters {
	return NewPostingClusters([]*DocumentCluster{
		{
			Summary: NewSparseVector([]Item{{Token: 1, Weight: 200}}),
			Docs:    []DocWeight{{DocID: 1, Weight: 10}, {DocID: 2, Weight: 20}},
		},
		{
			Summary:       NewSparseVector([]Item{{Token: 2, Weight: 100}}),
			Docs:          []DocWeight{{DocID: 7, Weight: 30}},
			ShouldNotSkip: true,
		},
	})
}

func TestPostingClusters_DocCount(t *testing.T) {
	p := newTestClusters()
	assert.Equal(t, 3, p.DocCount())

	var nilP *PostingClusters
	assert.Equal(t, 0, nilP.DocCount())
	assert.Equal(t, 0, NewPostingClusters(nil).DocCount())
}

func TestPostingClusters_RamBytesUsed(t *testing.T) {
	p := newTestClusters()
	assert.Positive(t, p.RamBytesUsed())

	// Each cluster contributes its summary and doc list.
	var sum int64
	for _, c := range p.Clusters {
		sum += c.RamBytesUsed()
	}
	assert.Greater(t, p.RamBytesUsed(), sum)

	var nilP *PostingClusters
	assert.Equal(t, int64(0), nilP.RamBytesUsed())

	var nilC *DocumentCluster
	assert.Equal(t, int64(0), nilC.RamBytesUsed())
}
