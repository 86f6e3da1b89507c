package data

import (
	"github.com/hupe1980/sparsevec/internal/ramusage"
)

// DocWeight is one document's quantized weight inside a cluster.
type DocWeight struct {
	DocID  int32
	Weight byte
}

// DocumentCluster groups documents whose vectors are close for one token.
// The summary vector is an upper-bound sketch over the cluster members used
// to skip whole clusters during approximate scoring.
type DocumentCluster struct {
	Summary       *SparseVector
	Docs          []DocWeight
	ShouldNotSkip bool
}

// RamBytesUsed estimates the retained memory of this cluster.
func (c *DocumentCluster) RamBytesUsed() int64 {
	if c == nil {
		return 0
	}
	return ramusage.Align(ramusage.PointerBytes+1) +
		c.Summary.RamBytesUsed() +
		ramusage.SliceBytes(len(c.Docs), 5)
}

// PostingClusters is the clustered posting list cached for one term: the
// per-token clusters of quantized document weights, built once from the
// immutable on-disk postings and read-only afterward.
type PostingClusters struct {
	Clusters []*DocumentCluster
}

// NewPostingClusters wraps clusters in a PostingClusters value.
func NewPostingClusters(clusters []*DocumentCluster) *PostingClusters {
	return &PostingClusters{Clusters: clusters}
}

// DocCount returns the total number of documents across all clusters.
func (p *PostingClusters) DocCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, c := range p.Clusters {
		n += len(c.Docs)
	}
	return n
}

// RamBytesUsed estimates the retained memory of the posting clusters.
func (p *PostingClusters) RamBytesUsed() int64 {
	if p == nil {
		return 0
	}
	total := ramusage.SliceBytes(len(p.Clusters), ramusage.PointerBytes)
	for _, c := range p.Clusters {
		total += c.RamBytesUsed()
	}
	return total
}
