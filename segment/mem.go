package segment

import (
	"iter"
	"sort"

	"github.com/hupe1980/sparsevec/data"
)

// MemForwardSource is an in-memory ForwardSource backed by a docID -> blob
// map. Hosts without a native doc-values format and tests use it directly.
type MemForwardSource struct {
	blobs map[int][]byte
}

// NewMemForwardSource creates a MemForwardSource over the given blobs.
// The map is retained, not copied.
func NewMemForwardSource(blobs map[int][]byte) *MemForwardSource {
	return &MemForwardSource{blobs: blobs}
}

func (s *MemForwardSource) Bytes(docID int) ([]byte, error) {
	return s.blobs[docID], nil
}

func (s *MemForwardSource) Docs() iter.Seq[int] {
	ids := make([]int, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return func(yield func(int) bool) {
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}

// MemPostingsSource is an in-memory PostingsSource backed by nested maps
// (field -> term -> clusters).
type MemPostingsSource struct {
	postings map[string]map[string]*data.PostingClusters
}

// NewMemPostingsSource creates a MemPostingsSource over the given postings.
// The maps are retained, not copied.
func NewMemPostingsSource(postings map[string]map[string]*data.PostingClusters) *MemPostingsSource {
	return &MemPostingsSource{postings: postings}
}

func (s *MemPostingsSource) Terms(field string) ([]string, error) {
	terms := make([]string, 0, len(s.postings[field]))
	for term := range s.postings[field] {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms, nil
}

func (s *MemPostingsSource) Read(field, term string) (*data.PostingClusters, error) {
	return s.postings[field][term], nil
}

// MemSegment is an in-memory segment View.
type MemSegment struct {
	SegInfo  Info
	Fields   []FieldInfo
	Forward  map[string]*MemForwardSource
	Postings *MemPostingsSource
}

func (m *MemSegment) Info() Info { return m.SegInfo }

func (m *MemSegment) SparseFields() []FieldInfo { return m.Fields }

func (m *MemSegment) ForwardSource(field string) (ForwardSource, error) {
	src, ok := m.Forward[field]
	if !ok {
		return nil, nil
	}
	return src, nil
}

func (m *MemSegment) PostingsSource() (PostingsSource, error) {
	return m.Postings, nil
}

// MemSearcher is a Searcher over a fixed set of in-memory segments.
type MemSearcher struct {
	Views []View
}

func (m *MemSearcher) Segments() []View { return m.Views }

func (m *MemSearcher) Close() error { return nil }

// MemSearcherProvider hands out MemSearchers over a fixed segment set.
type MemSearcherProvider struct {
	Segs []View

	// AcquireErr, when set, is returned from AcquireSearcher. Tests use it
	// to exercise searcher-acquisition failure paths.
	AcquireErr error
}

func (p *MemSearcherProvider) AcquireSearcher(string) (Searcher, error) {
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	return &MemSearcher{Views: p.Segs}, nil
}
