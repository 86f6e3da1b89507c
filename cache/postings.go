package cache

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/sparsevec/breaker"
	"github.com/hupe1980/sparsevec/data"
	"github.com/hupe1980/sparsevec/internal/ramusage"
)

const postingBreakerLabel = "clustered posting cache"

// ClusteredPostingCache caches per-term clustered postings, keyed by
// (segment, field). Entries are built once from the immutable on-disk
// postings and treated as read-only afterward.
type ClusteredPostingCache struct {
	mu    sync.RWMutex
	items map[Key]*ClusteredPostingItem

	breaker *breaker.CircuitBreaker
	tracker *TermTracker
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewClusteredPostingCache creates a ClusteredPostingCache charging against
// cb. A nil logger discards log output.
func NewClusteredPostingCache(cb *breaker.CircuitBreaker, logger *slog.Logger) *ClusteredPostingCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &ClusteredPostingCache{
		items:   make(map[Key]*ClusteredPostingItem),
		breaker: cb,
		logger:  logger,
	}
	c.tracker = newTermTracker(c)
	return c
}

// GetOrCreate returns the entry for key, creating an empty entry on first
// call. Concurrent callers for the same key all receive the same entry.
func (c *ClusteredPostingCache) GetOrCreate(key Key) *ClusteredPostingItem {
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
	item = newClusteredPostingItem(c, key)
	c.items[key] = item
	return item
}

// Get returns the entry for key, or nil when absent.
func (c *ClusteredPostingCache) Get(key Key) *ClusteredPostingItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[key]
}

// Keys returns the keys currently cached.
func (c *ClusteredPostingCache) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]Key, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// RamBytesUsed returns the aggregate bytes retained across all entries.
func (c *ClusteredPostingCache) RamBytesUsed() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, item := range c.items {
		total += item.RamBytesUsed()
	}
	return total
}

// RemoveIndex evicts the entry for key, releasing exactly the bytes charged
// for it. Removing an absent key is a no-op.
func (c *ClusteredPostingCache) RemoveIndex(key Key) {
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
	c.logger.Debug("evicted clustered posting entry",
		"segment", key.SegmentID,
		"field", key.Field,
		"bytes", ram,
	)
}

// Stats returns the hit and miss counts of the cache.
func (c *ClusteredPostingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Tracker returns the term recency tracker of this cache.
func (c *ClusteredPostingCache) Tracker() *TermTracker {
	return c.tracker
}

func (c *ClusteredPostingCache) eraseForEviction(key Key, term string) int64 {
	item := c.Get(key)
	if item == nil {
		return 0
	}
	return item.erase(term, false)
}

func (c *ClusteredPostingCache) defaultTrip(bytesNeeded int64) error {
	c.tracker.Evict(bytesNeeded)
	return nil
}

// ClusteredPostingItem is one cache entry: the clustered postings of a
// single field within a single segment.
type ClusteredPostingItem struct {
	key   Key
	cache *ClusteredPostingCache

	mu       sync.RWMutex
	evicted  bool
	postings map[string]*data.PostingClusters

	used atomic.Int64
}

func newClusteredPostingItem(c *ClusteredPostingCache, key Key) *ClusteredPostingItem {
	item := &ClusteredPostingItem{
		key:      key,
		cache:    c,
		postings: make(map[string]*data.PostingClusters),
	}
	base := int64(ramusage.MapEntryBytes)
	item.used.Store(base)
	c.breaker.AddWithoutBreaking(base)
	return item
}

// Key returns the entry's cache key.
func (it *ClusteredPostingItem) Key() Key { return it.key }

// RamBytesUsed returns the bytes retained by this entry.
func (it *ClusteredPostingItem) RamBytesUsed() int64 {
	return it.used.Load()
}

// Reader returns a read-only view over the entry.
func (it *ClusteredPostingItem) Reader() *ClusteredPostingReader {
	return &ClusteredPostingReader{item: it}
}

// Writer returns a mutation view; see ForwardIndexItem.Writer for the trip
// handler contract.
func (it *ClusteredPostingItem) Writer(onTrip TripHandler) *ClusteredPostingWriter {
	return &ClusteredPostingWriter{item: it, onTrip: onTrip}
}

func entryBytes(term string, clusters *data.PostingClusters) int64 {
	return clusters.RamBytesUsed() + ramusage.StringBytes(term) + ramusage.MapEntryBytes
}

func (it *ClusteredPostingItem) erase(term string, forgetTracked bool) int64 {
	it.mu.Lock()
	if it.evicted {
		it.mu.Unlock()
		return 0
	}
	clusters, ok := it.postings[term]
	if !ok {
		it.mu.Unlock()
		return 0
	}
	bytes := entryBytes(term, clusters)
	delete(it.postings, term)
	it.used.Add(-bytes)
	it.mu.Unlock()

	it.cache.breaker.Release(bytes)
	if forgetTracked {
		it.cache.tracker.t.forget(termKey{key: it.key, term: term})
	}
	return bytes
}

// ClusteredPostingReader is a read-only view over a clustered-posting entry.
type ClusteredPostingReader struct {
	item *ClusteredPostingItem
}

// Read returns the cached posting clusters for a term, or nil when the term
// is not cached.
func (r *ClusteredPostingReader) Read(term string) *data.PostingClusters {
	it := r.item

	it.mu.RLock()
	clusters := it.postings[term]
	it.mu.RUnlock()

	if clusters == nil {
		it.cache.misses.Add(1)
		return nil
	}
	it.cache.hits.Add(1)
	it.cache.tracker.Touch(it.key, term)
	return clusters
}

// Terms returns the cached terms in sorted order.
func (r *ClusteredPostingReader) Terms() []string {
	it := r.item

	it.mu.RLock()
	terms := make([]string, 0, len(it.postings))
	for term := range it.postings {
		terms = append(terms, term)
	}
	it.mu.RUnlock()

	sort.Strings(terms)
	return terms
}

// Size returns the number of cached terms.
func (r *ClusteredPostingReader) Size() int {
	r.item.mu.RLock()
	defer r.item.mu.RUnlock()
	return len(r.item.postings)
}

// ClusteredPostingWriter is the mutation view over a clustered-posting entry.
type ClusteredPostingWriter struct {
	item   *ClusteredPostingItem
	onTrip TripHandler
}

// Insert caches a term's posting clusters. The first writer wins; a losing
// racer's charge is released. Inserting nil or empty clusters is a no-op.
func (w *ClusteredPostingWriter) Insert(term string, clusters *data.PostingClusters) error {
	it := w.item
	if clusters == nil || len(clusters.Clusters) == 0 {
		return nil
	}

	bytes := entryBytes(term, clusters)
	if err := chargeWithTrip(it.cache.breaker, bytes, postingBreakerLabel, w.onTrip, it.cache.defaultTrip, it.cache.logger); err != nil {
		return err
	}

	it.mu.Lock()
	if it.evicted {
		it.mu.Unlock()
		it.cache.breaker.Release(bytes)
		return nil
	}
	if _, exists := it.postings[term]; exists {
		it.mu.Unlock()
		it.cache.breaker.Release(bytes)
		it.cache.tracker.Touch(it.key, term)
		return nil
	}
	it.postings[term] = clusters
	it.used.Add(bytes)
	it.mu.Unlock()

	it.cache.tracker.Touch(it.key, term)
	return nil
}

// Erase removes a term from the entry and returns the bytes released.
func (w *ClusteredPostingWriter) Erase(term string) int64 {
	return w.item.erase(term, true)
}
