package cache

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/sparsevec/breaker"
	"github.com/hupe1980/sparsevec/data"
	"github.com/hupe1980/sparsevec/internal/ramusage"
)

const forwardBreakerLabel = "forward index cache"

var errAbortInsert = errors.New("abort insert on circuit breaker trip")

// TripHandler reacts to a rejected memory charge during an insert. Returning
// nil retries the charge once (the handler is expected to have freed
// memory); returning an error aborts the insertion and the breaker rejection
// is surfaced to the caller.
type TripHandler func(bytesNeeded int64) error

// Abort is a TripHandler that aborts the insertion instead of evicting.
// Query-time and warm-up population uses it so that resource exhaustion is
// propagated rather than absorbed.
func Abort(int64) error { return errAbortInsert }

// ForwardIndexCache caches per-document quantized sparse vectors, keyed by
// (segment, field). Entries are created lazily on first read-through and
// evicted when the owning index is removed. A shared circuit breaker gates
// every insertion.
type ForwardIndexCache struct {
	mu    sync.RWMutex
	items map[Key]*ForwardIndexItem

	breaker *breaker.CircuitBreaker
	tracker *DocumentTracker
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewForwardIndexCache creates a ForwardIndexCache charging against cb.
// A nil logger discards log output.
func NewForwardIndexCache(cb *breaker.CircuitBreaker, logger *slog.Logger) *ForwardIndexCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &ForwardIndexCache{
		items:   make(map[Key]*ForwardIndexItem),
		breaker: cb,
		logger:  logger,
	}
	c.tracker = newDocumentTracker(c)
	return c
}

// GetOrCreate returns the entry for key, creating an empty entry sized to
// docCount on first call. Concurrent callers for the same key all receive
// the same entry; exactly one entry is created.
func (c *ForwardIndexCache) GetOrCreate(key Key, docCount int) *ForwardIndexItem {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return item
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok {
		return item
	}
	item = newForwardIndexItem(c, key, docCount)
	c.items[key] = item
	return item
}

// Get returns the entry for key, or nil when absent.
func (c *ForwardIndexCache) Get(key Key) *ForwardIndexItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[key]
}

// Keys returns the keys currently cached.
func (c *ForwardIndexCache) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]Key, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// RamBytesUsed returns the aggregate bytes retained across all entries.
func (c *ForwardIndexCache) RamBytesUsed() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, item := range c.items {
		total += item.RamBytesUsed()
	}
	return total
}

// RemoveIndex evicts the entry for key, releasing exactly the bytes charged
// for it. Removing an absent key is a no-op. Readers holding the entry keep
// a consistent view; only the key is unlinked.
func (c *ForwardIndexCache) RemoveIndex(key Key) {
	c.mu.Lock()
	item := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if item == nil {
		return
	}

	item.mu.Lock()
	item.evicted = true
	ram := item.used.Load()
	item.mu.Unlock()

	c.breaker.Release(ram)
	c.tracker.RemoveIndex(key)
	c.logger.Debug("evicted forward index entry",
		"segment", key.SegmentID,
		"field", key.Field,
		"bytes", ram,
	)
}

// Stats returns the hit and miss counts of the cache.
func (c *ForwardIndexCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Tracker returns the document recency tracker of this cache.
func (c *ForwardIndexCache) Tracker() *DocumentTracker {
	return c.tracker
}

func (c *ForwardIndexCache) eraseForEviction(key Key, docID int) int64 {
	item := c.Get(key)
	if item == nil {
		return 0
	}
	return item.erase(docID, false)
}

// ForwardIndexItem is one cache entry: the forward index of a single field
// within a single segment, sized to the segment's document count.
type ForwardIndexItem struct {
	key   Key
	cache *ForwardIndexCache

	// mu orders inserts and erases against eviction of the whole entry so
	// that the bytes released on removal match the bytes charged.
	mu      sync.RWMutex
	evicted bool

	vectors []atomic.Pointer[data.SparseVector]

	bmMu      sync.Mutex
	populated *roaring.Bitmap

	used atomic.Int64
}

func newForwardIndexItem(c *ForwardIndexCache, key Key, docCount int) *ForwardIndexItem {
	item := &ForwardIndexItem{
		key:       key,
		cache:     c,
		vectors:   make([]atomic.Pointer[data.SparseVector], docCount),
		populated: roaring.New(),
	}
	base := ramusage.SliceBytes(docCount, ramusage.PointerBytes)
	item.used.Store(base)
	c.breaker.AddWithoutBreaking(base)
	return item
}

// Key returns the entry's cache key.
func (it *ForwardIndexItem) Key() Key { return it.key }

// DocCount returns the entry's capacity in documents.
func (it *ForwardIndexItem) DocCount() int { return len(it.vectors) }

// PopulatedCount returns the number of documents currently cached.
func (it *ForwardIndexItem) PopulatedCount() uint64 {
	it.bmMu.Lock()
	defer it.bmMu.Unlock()
	return it.populated.GetCardinality()
}

// FullyPopulated reports whether every document slot holds a vector. Warm-up
// uses it to skip keys that a prior warm-up already filled.
func (it *ForwardIndexItem) FullyPopulated() bool {
	return it.PopulatedCount() == uint64(len(it.vectors))
}

// RamBytesUsed returns the bytes retained by this entry.
func (it *ForwardIndexItem) RamBytesUsed() int64 {
	return it.used.Load()
}

// Reader returns a read-only view over the entry.
func (it *ForwardIndexItem) Reader() *ForwardIndexReader {
	return &ForwardIndexReader{item: it}
}

// Writer returns a mutation view. Every insertion charges the circuit
// breaker first; onTrip decides what a rejected charge does. A nil onTrip
// evicts least recently used documents and retries.
func (it *ForwardIndexItem) Writer(onTrip TripHandler) *ForwardIndexWriter {
	return &ForwardIndexWriter{item: it, onTrip: onTrip}
}

func (it *ForwardIndexItem) erase(docID int, forgetTracked bool) int64 {
	if docID < 0 || docID >= len(it.vectors) {
		return 0
	}

	it.mu.RLock()
	if it.evicted {
		it.mu.RUnlock()
		return 0
	}

	vec := it.vectors[docID].Load()
	if vec == nil {
		it.mu.RUnlock()
		return 0
	}

	bytes := vec.RamBytesUsed()
	if !it.vectors[docID].CompareAndSwap(vec, nil) {
		it.mu.RUnlock()
		return 0
	}
	it.used.Add(-bytes)
	it.cache.breaker.Release(bytes)
	it.bmMu.Lock()
	it.populated.Remove(uint32(docID))
	it.bmMu.Unlock()
	it.mu.RUnlock()

	if forgetTracked {
		it.cache.tracker.t.forget(docKey{key: it.key, docID: docID})
	}
	return bytes
}

// ForwardIndexReader is a read-only view over a forward-index entry.
type ForwardIndexReader struct {
	item *ForwardIndexItem
}

// Read returns the cached vector for a document, or nil when the document is
// not cached (or out of range).
func (r *ForwardIndexReader) Read(docID int) *data.SparseVector {
	it := r.item
	if docID < 0 || docID >= len(it.vectors) {
		it.cache.misses.Add(1)
		return nil
	}
	vec := it.vectors[docID].Load()
	if vec == nil {
		it.cache.misses.Add(1)
		return nil
	}
	it.cache.hits.Add(1)
	it.cache.tracker.Touch(it.key, docID)
	return vec
}

// ForwardIndexWriter is the mutation view over a forward-index entry.
type ForwardIndexWriter struct {
	item   *ForwardIndexItem
	onTrip TripHandler
}

// Insert caches a document's vector. The first writer wins; a losing racer's
// charge is released. Inserting nil or out of range is a no-op. A rejected
// charge that the trip handler cannot resolve returns the breaker error and
// nothing is inserted.
func (w *ForwardIndexWriter) Insert(docID int, vec *data.SparseVector) error {
	it := w.item
	if vec == nil || docID < 0 || docID >= len(it.vectors) {
		return nil
	}

	bytes := vec.RamBytesUsed()
	if err := chargeWithTrip(it.cache.breaker, bytes, forwardBreakerLabel, w.onTrip, it.cache.defaultTrip, it.cache.logger); err != nil {
		return err
	}

	it.mu.RLock()
	if it.evicted {
		// Entry raced with eviction of its key; drop the charge. The caller
		// keeps the vector it loaded, nothing is retained.
		it.mu.RUnlock()
		it.cache.breaker.Release(bytes)
		return nil
	}
	if !it.vectors[docID].CompareAndSwap(nil, vec) {
		it.mu.RUnlock()
		it.cache.breaker.Release(bytes)
		return nil
	}
	it.used.Add(bytes)
	it.bmMu.Lock()
	it.populated.Add(uint32(docID))
	it.bmMu.Unlock()
	it.mu.RUnlock()

	it.cache.tracker.Touch(it.key, docID)
	return nil
}

// Erase removes a document's vector from the entry and returns the bytes
// released.
func (w *ForwardIndexWriter) Erase(docID int) int64 {
	return w.item.erase(docID, true)
}

func (c *ForwardIndexCache) defaultTrip(bytesNeeded int64) error {
	c.tracker.Evict(bytesNeeded)
	return nil
}

// chargeWithTrip charges the breaker, invoking the trip handler and retrying
// once on rejection. Shared by both cache writers.
func chargeWithTrip(cb *breaker.CircuitBreaker, bytes int64, label string, onTrip TripHandler, defaultTrip TripHandler, logger *slog.Logger) error {
	err := cb.AddMemoryUsage(bytes, label)
	if err == nil {
		return nil
	}

	handler := onTrip
	if handler == nil {
		handler = defaultTrip
	}
	if herr := handler(bytes); herr != nil {
		return err
	}

	if err := cb.AddMemoryUsage(bytes, label); err != nil {
		logger.Warn("insert rejected even after eviction", "label", label, "bytes", bytes)
		return err
	}
	return nil
}
