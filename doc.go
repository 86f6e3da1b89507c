// Package sparsevec provides a memory-bounded cache layer for sparse-vector
// search over segment-oriented storage.
//
// A CacheManager owns two keyed caches, a forward index of per-document
// quantized sparse vectors and a clustered-posting cache of per-term document
// clusters, plus the circuit breaker that gates their combined footprint
// against a configurable byte budget. Both caches are populated lazily on
// first read through gated readers and evicted eagerly when an index is
// removed.
//
// # Quick start
//
//	manager, _ := sparsevec.NewCacheManager(
//		sparsevec.WithLimit("512mb"),
//		sparsevec.WithOverhead(1.0),
//	)
//
//	sh := manager.NewShard(provider) // provider adapts the host engine
//	_ = sh.WarmUp(ctx)               // eager population
//	_ = sh.ClearCache(ctx)           // cache-memory reclamation
//
// Cache contents are pure runtime state: nothing is persisted, and the
// budget accounting is estimate-based, good enough for admission control but
// not an exact heap profile.
package sparsevec
