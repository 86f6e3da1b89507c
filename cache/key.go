// Package cache implements the per-segment, per-field caches for sparse
// vector data: a forward-index cache of per-document quantized vectors and a
// clustered-posting cache of per-term document clusters. Both are gated by a
// shared circuit breaker and evicted through global LRU trackers.
package cache

import "github.com/hupe1980/sparsevec/segment"

// Key identifies one field within one immutable segment. Keys are plain
// values: equal (segment, field) pairs compare equal regardless of how the
// key was constructed, and keys are cheap to use as map keys on hot paths.
type Key struct {
	SegmentID string
	Field     string
}

// NewKey builds a Key from a segment and a field name.
func NewKey(info segment.Info, field string) Key {
	return Key{SegmentID: segmentIdentity(info), Field: field}
}

// NewKeyForField builds a Key from a segment and a field descriptor. It is
// equivalent to NewKey(info, fi.Name).
func NewKeyForField(info segment.Info, fi segment.FieldInfo) Key {
	return NewKey(info, fi.Name)
}

func segmentIdentity(info segment.Info) string {
	if info.ID != "" {
		return info.ID
	}
	return info.Name
}
