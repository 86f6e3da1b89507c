package cache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sparsevec/data"
	"github.com/hupe1980/sparsevec/segment"
)

// PostingsReaderView is a read-only view over cached posting clusters.
type PostingsReaderView interface {
	Read(term string) *data.PostingClusters
	Terms() []string
	Size() int
}

// PostingsWriterView inserts posting clusters into a cache entry.
type PostingsWriterView interface {
	Insert(term string, clusters *data.PostingClusters) error
}

// GatedPostingsReader is the read-through facade in front of a
// clustered-posting cache entry: cache hits are served directly, misses are
// loaded from the immutable on-disk postings and inserted through the gated
// writer. This is the only path that populates the clustered-posting cache.
type GatedPostingsReader struct {
	field  string
	reader PostingsReaderView
	writer PostingsWriterView
	source segment.PostingsSource
}

// NewGatedPostingsReader wires a cache reader, a gated cache writer and the
// underlying postings source for one field.
func NewGatedPostingsReader(field string, reader PostingsReaderView, writer PostingsWriterView, source segment.PostingsSource) (*GatedPostingsReader, error) {
	switch {
	case field == "":
		return nil, errors.New("gated postings reader: field must not be empty")
	case reader == nil:
		return nil, errors.New("gated postings reader: reader must not be nil")
	case writer == nil:
		return nil, errors.New("gated postings reader: writer must not be nil")
	case source == nil:
		return nil, errors.New("gated postings reader: source must not be nil")
	}
	return &GatedPostingsReader{
		field:  field,
		reader: reader,
		writer: writer,
		source: source,
	}, nil
}

// Field returns the field this reader serves.
func (g *GatedPostingsReader) Field() string { return g.field }

// Read returns the posting clusters for a term, populating the cache on a
// miss. A term without postings yields (nil, nil) and is never cached.
func (g *GatedPostingsReader) Read(term string) (*data.PostingClusters, error) {
	if clusters := g.reader.Read(term); clusters != nil {
		return clusters, nil
	}

	clusters, err := g.source.Read(g.field, term)
	if err != nil {
		return nil, fmt.Errorf("read postings for %q: %w", term, err)
	}
	if clusters == nil {
		return nil, nil
	}

	if err := g.writer.Insert(term, clusters); err != nil {
		return nil, err
	}
	if cached := g.reader.Read(term); cached != nil {
		return cached, nil
	}
	// Population raced with eviction of the key; serve the loaded clusters.
	return clusters, nil
}

// Terms lists all terms of the field from the underlying source. Warm-up
// iterates it to force-populate every term.
func (g *GatedPostingsReader) Terms() ([]string, error) {
	return g.source.Terms(g.field)
}
