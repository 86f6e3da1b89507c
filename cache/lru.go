package cache

import (
	"container/list"
	"sync"
)

// tracker is a recency list over comparable keys. The front of the list is
// the most recently used entry.
type tracker[K comparable] struct {
	mu    sync.Mutex
	ll    *list.List
	items map[K]*list.Element
}

func newTracker[K comparable]() *tracker[K] {
	return &tracker[K]{
		ll:    list.New(),
		items: make(map[K]*list.Element),
	}
}

func (t *tracker[K]) touch(k K) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.items[k]; ok {
		t.ll.MoveToFront(e)
		return
	}
	t.items[k] = t.ll.PushFront(k)
}

func (t *tracker[K]) forget(k K) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.items[k]; ok {
		t.ll.Remove(e)
		delete(t.items, k)
	}
}

func (t *tracker[K]) forgetMatching(pred func(K) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var victims []*list.Element
	for k, e := range t.items {
		if pred(k) {
			victims = append(victims, e)
		}
	}
	for _, e := range victims {
		t.ll.Remove(e)
		delete(t.items, e.Value.(K))
	}
}

// popLRU removes and returns the least recently used key.
func (t *tracker[K]) popLRU() (K, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.ll.Back()
	if e == nil {
		var zero K
		return zero, false
	}
	k := e.Value.(K)
	t.ll.Remove(e)
	delete(t.items, k)
	return k, true
}

func (t *tracker[K]) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ll.Len()
}

// evict pops least recently used keys and frees them until bytesNeeded has
// been reclaimed or the tracker is empty. The free callback runs outside the
// tracker lock.
func (t *tracker[K]) evict(bytesNeeded int64, free func(K) int64) int64 {
	var freed int64
	for freed < bytesNeeded {
		k, ok := t.popLRU()
		if !ok {
			break
		}
		freed += free(k)
	}
	return freed
}

type docKey struct {
	key   Key
	docID int
}

// DocumentTracker tracks access recency of cached documents across all
// forward-index entries. The default breaker-trip handler evicts from it.
type DocumentTracker struct {
	t     *tracker[docKey]
	cache *ForwardIndexCache
}

func newDocumentTracker(c *ForwardIndexCache) *DocumentTracker {
	return &DocumentTracker{t: newTracker[docKey](), cache: c}
}

// Touch records an access to a cached document.
func (dt *DocumentTracker) Touch(key Key, docID int) {
	dt.t.touch(docKey{key: key, docID: docID})
}

// Evict erases least recently used documents until bytesNeeded has been
// reclaimed. It returns the number of bytes actually freed.
func (dt *DocumentTracker) Evict(bytesNeeded int64) int64 {
	return dt.t.evict(bytesNeeded, func(k docKey) int64 {
		return dt.cache.eraseForEviction(k.key, k.docID)
	})
}

// RemoveIndex drops all tracked documents of a key.
func (dt *DocumentTracker) RemoveIndex(key Key) {
	dt.t.forgetMatching(func(k docKey) bool { return k.key == key })
}

// Len returns the number of tracked documents.
func (dt *DocumentTracker) Len() int { return dt.t.len() }

type termKey struct {
	key  Key
	term string
}

// TermTracker tracks access recency of cached terms across all
// clustered-posting entries.
type TermTracker struct {
	t     *tracker[termKey]
	cache *ClusteredPostingCache
}

func newTermTracker(c *ClusteredPostingCache) *TermTracker {
	return &TermTracker{t: newTracker[termKey](), cache: c}
}

// Touch records an access to a cached term.
func (tt *TermTracker) Touch(key Key, term string) {
	tt.t.touch(termKey{key: key, term: term})
}

// Evict erases least recently used terms until bytesNeeded has been
// reclaimed. It returns the number of bytes actually freed.
func (tt *TermTracker) Evict(bytesNeeded int64) int64 {
	return tt.t.evict(bytesNeeded, func(k termKey) int64 {
		return tt.cache.eraseForEviction(k.key, k.term)
	})
}

// RemoveIndex drops all tracked terms of a key.
func (tt *TermTracker) RemoveIndex(key Key) {
	tt.t.forgetMatching(func(k termKey) bool { return k.key == key })
}

// Len returns the number of tracked terms.
func (tt *TermTracker) Len() int { return tt.t.len() }
