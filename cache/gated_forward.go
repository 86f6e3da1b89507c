package cache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sparsevec/codec"
	"github.com/hupe1980/sparsevec/data"
	"github.com/hupe1980/sparsevec/quantization"
	"github.com/hupe1980/sparsevec/segment"
)

// VectorReader is a read-only view over cached per-document vectors.
type VectorReader interface {
	Read(docID int) *data.SparseVector
}

// VectorWriter inserts per-document vectors into a cache entry.
type VectorWriter interface {
	Insert(docID int, vec *data.SparseVector) error
}

// GatedForwardIndexReader is the read-through facade in front of a
// forward-index cache entry: cache hits are served directly, misses are
// decoded from the raw per-document blob, quantized and inserted through the
// gated writer. This is the only path that populates the forward-index
// cache.
type GatedForwardIndexReader struct {
	reader    VectorReader
	writer    VectorWriter
	source    segment.ForwardSource
	quantizer *quantization.ByteQuantizer
}

// NewGatedForwardIndexReader wires a cache reader, a gated cache writer, the
// underlying blob source and the field's ingest quantizer.
func NewGatedForwardIndexReader(reader VectorReader, writer VectorWriter, source segment.ForwardSource, quantizer *quantization.ByteQuantizer) (*GatedForwardIndexReader, error) {
	switch {
	case reader == nil:
		return nil, errors.New("gated forward index reader: reader must not be nil")
	case writer == nil:
		return nil, errors.New("gated forward index reader: writer must not be nil")
	case source == nil:
		return nil, errors.New("gated forward index reader: source must not be nil")
	case quantizer == nil:
		return nil, errors.New("gated forward index reader: quantizer must not be nil")
	}
	return &GatedForwardIndexReader{
		reader:    reader,
		writer:    writer,
		source:    source,
		quantizer: quantizer,
	}, nil
}

// Read returns the document's sparse vector, populating the cache on a miss.
// A document without source data yields (nil, nil); absence is never cached,
// since caching it would mask a real indexing problem.
func (g *GatedForwardIndexReader) Read(docID int) (*data.SparseVector, error) {
	if vec := g.reader.Read(docID); vec != nil {
		return vec, nil
	}

	blob, err := g.source.Bytes(docID)
	if err != nil {
		return nil, fmt.Errorf("read doc %d: %w", docID, err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	entries, err := codec.DecodeDocValue(blob)
	if err != nil {
		return nil, fmt.Errorf("decode doc %d: %w", docID, err)
	}

	items := make([]data.Item, len(entries))
	for i, e := range entries {
		items[i] = data.Item{Token: e.Token, Weight: g.quantizer.Quantize(e.Weight)}
	}
	vec := data.NewSparseVector(items)

	if err := g.writer.Insert(docID, vec); err != nil {
		return nil, err
	}
	if cached := g.reader.Read(docID); cached != nil {
		return cached, nil
	}
	// Population raced with eviction of the key; serve the loaded vector.
	return vec, nil
}
