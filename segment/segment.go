// Package segment defines the narrow boundary between the cache layer and
// the host search engine: immutable per-segment postings and per-document
// blob accessors, plus the searcher handle used to enumerate a shard's
// segments. The cache core never references host-specific types; hosts
// implement these interfaces with adapters against their own storage.
package segment

import (
	"iter"

	"github.com/hupe1980/sparsevec/data"
)

// Info identifies one immutable segment. Segments are never mutated in
// place; a merge produces a new segment with a new Info.
type Info struct {
	// Name is the segment name within its shard.
	Name string

	// ID is the unique identifier assigned when the segment was written.
	// When empty, Name identifies the segment.
	ID string

	// MaxDoc is one past the highest document id in the segment.
	MaxDoc int
}

// FieldInfo describes one field within a segment, including the stored
// attributes written at index time (quantization ceilings among them).
type FieldInfo struct {
	Name       string
	Attributes map[string]string
}

// ForwardSource is an immutable per-document binary blob accessor for one
// field of one segment.
type ForwardSource interface {
	// Bytes returns the raw blob for a document, or nil when the document
	// has no value for the field.
	Bytes(docID int) ([]byte, error)

	// Docs iterates the ids of documents that have a value, in increasing
	// order.
	Docs() iter.Seq[int]
}

// PostingsSource is an immutable, already-built clustered postings structure
// for one segment.
type PostingsSource interface {
	// Terms lists the terms present for a field.
	Terms(field string) ([]string, error)

	// Read returns the posting clusters for a term, or nil when the term
	// has no postings for the field.
	Read(field, term string) (*data.PostingClusters, error)
}

// View is one segment visible through an acquired searcher.
type View interface {
	Info() Info

	// SparseFields lists the sparse-vector fields of the segment.
	SparseFields() []FieldInfo

	// ForwardSource returns the blob accessor for a field, or nil when the
	// segment carries no doc values for it.
	ForwardSource(field string) (ForwardSource, error)

	// PostingsSource returns the segment's clustered postings.
	PostingsSource() (PostingsSource, error)
}

// Searcher is a point-in-time view over a shard's segments. Close releases
// the underlying engine resources.
type Searcher interface {
	Segments() []View
	Close() error
}

// SearcherProvider hands out searchers. The source label names the
// operation acquiring the searcher (warm-up, clear-cache, removal).
type SearcherProvider interface {
	AcquireSearcher(source string) (Searcher, error)
}
