package sparsevec

import (
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/sparsevec/breaker"
	"github.com/hupe1980/sparsevec/cache"
	"github.com/hupe1980/sparsevec/segment"
	"github.com/hupe1980/sparsevec/shard"
)

// CacheManager owns the process-wide cache state: the forward-index cache,
// the clustered-posting cache and the circuit breaker accounting for both.
// A single manager is shared by all shards and queries of the process; it is
// constructed explicitly and passed to every component that needs cache
// access.
type CacheManager struct {
	settings Settings
	logger   *Logger

	breaker  *breaker.CircuitBreaker
	forward  *cache.ForwardIndexCache
	postings *cache.ClusteredPostingCache

	warmUpSem *semaphore.Weighted
}

// NewCacheManager creates a CacheManager from the given options.
func NewCacheManager(opts ...Option) (*CacheManager, error) {
	o := options{
		settings: DefaultSettings(),
		logger:   NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	limitBytes, err := ParseByteLimit(o.settings.Limit)
	if err != nil {
		return nil, err
	}

	cb := breaker.New(limitBytes, o.settings.Overhead, o.logger.Logger)

	return &CacheManager{
		settings:  o.settings,
		logger:    o.logger,
		breaker:   cb,
		forward:   cache.NewForwardIndexCache(cb, o.logger.Logger),
		postings:  cache.NewClusteredPostingCache(cb, o.logger.Logger),
		warmUpSem: semaphore.NewWeighted(o.settings.MaxConcurrentWarmUps),
	}, nil
}

// ForwardIndex returns the forward-index cache.
func (m *CacheManager) ForwardIndex() *cache.ForwardIndexCache {
	return m.forward
}

// ClusteredPostings returns the clustered-posting cache.
func (m *CacheManager) ClusteredPostings() *cache.ClusteredPostingCache {
	return m.postings
}

// Breaker returns the shared circuit breaker.
func (m *CacheManager) Breaker() *breaker.CircuitBreaker {
	return m.breaker
}

// RamBytesUsed returns the combined bytes retained by both caches.
func (m *CacheManager) RamBytesUsed() int64 {
	return m.forward.RamBytesUsed() + m.postings.RamBytesUsed()
}

// NewShard creates the orchestration handle for one shard, wired to this
// manager's caches, warm-up admission and defaults. Additional options
// override the wiring.
func (m *CacheManager) NewShard(provider segment.SearcherProvider, opts ...shard.Option) *shard.Shard {
	base := []shard.Option{
		shard.WithLogger(m.logger.Logger),
		shard.WithAdmission(m.warmUpSem),
		shard.WithDefaultIngestCeiling(m.settings.DefaultCeilingIngest),
	}
	return shard.New(provider, m.forward, m.postings, append(base, opts...)...)
}

// UpdateLimit applies a new memory limit without clearing cache contents.
// Lowering the limit below the current usage leaves existing entries in
// place; only new charges are rejected.
func (m *CacheManager) UpdateLimit(limit string) error {
	limitBytes, err := ParseByteLimit(limit)
	if err != nil {
		return err
	}
	m.breaker.SetLimit(limitBytes)
	m.settings.Limit = limit
	m.logger.Info("cache memory limit updated", "limit", limit, "bytes", limitBytes)
	return nil
}

// UpdateOverhead applies a new overhead multiplier.
func (m *CacheManager) UpdateOverhead(overhead float64) {
	m.breaker.SetOverhead(overhead)
	m.settings.Overhead = overhead
	m.logger.Info("cache overhead updated", "overhead", overhead)
}
