// Package shard walks all segments and sparse fields of a shard to warm up,
// clear, or evict the sparse-vector caches. Warm-up forces every document
// and every term through the gated readers so the caches are fully populated
// before query traffic arrives; clear-cache and removal-eviction walk the
// same keys and evict them from both caches.
package shard

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hupe1980/sparsevec/cache"
	"github.com/hupe1980/sparsevec/quantization"
	"github.com/hupe1980/sparsevec/segment"
)

// Searcher source labels, passed to the host when acquiring a searcher.
const (
	warmUpSearcherSource     = "warm-up"
	clearCacheSearcherSource = "clear-cache"
	removalSearcherSource    = "removal-eviction"
)

// Option configures a Shard.
type Option func(*Shard)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shard) { s.logger = logger }
}

// WithWarmUpConcurrency bounds how many (segment, field) pairs warm up in
// parallel. Defaults to 4.
func WithWarmUpConcurrency(n int) Option {
	return func(s *Shard) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithWarmUpRate throttles warm-up reads (documents plus terms) per second.
// Zero means unthrottled.
func WithWarmUpRate(readsPerSec float64) Option {
	return func(s *Shard) {
		if readsPerSec > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(readsPerSec), int(readsPerSec))
		}
	}
}

// WithAdmission shares a semaphore across shards so that only a bounded
// number of warm-ups run node-wide at a time.
func WithAdmission(sem *semaphore.Weighted) Option {
	return func(s *Shard) { s.admission = sem }
}

// WithDefaultIngestCeiling overrides the process-wide fallback for fields
// without a stored ingest ceiling attribute.
func WithDefaultIngestCeiling(ceiling float32) Option {
	return func(s *Shard) { s.ingestCeiling = ceiling }
}

// Shard orchestrates cache operations over one shard of an index.
type Shard struct {
	provider segment.SearcherProvider
	forward  *cache.ForwardIndexCache
	postings *cache.ClusteredPostingCache
	logger   *slog.Logger

	group       singleflight.Group
	concurrency int
	limiter     *rate.Limiter
	admission   *semaphore.Weighted

	ingestCeiling float32
}

// New creates a Shard over the given searcher provider and caches.
func New(provider segment.SearcherProvider, forward *cache.ForwardIndexCache, postings *cache.ClusteredPostingCache, opts ...Option) *Shard {
	s := &Shard{
		provider:      provider,
		forward:       forward,
		postings:      postings,
		logger:        slog.New(slog.DiscardHandler),
		concurrency:   4,
		ingestCeiling: quantization.DefaultCeilingIngest,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cacheContext bundles everything needed to warm one (segment, field) pair.
type cacheContext struct {
	key    cache.Key
	source segment.ForwardSource
	fwd    *cache.GatedForwardIndexReader
	post   *cache.GatedPostingsReader
}

// WarmUp populates both caches for every sparse field in every segment of
// the shard. It is idempotent: keys a prior warm-up filled are skipped, and
// concurrent calls share a single pass. Circuit breaker rejections,
// searcher-acquisition failures and read errors are propagated, not
// swallowed.
func (s *Shard) WarmUp(ctx context.Context) error {
	_, err, _ := s.group.Do(warmUpSearcherSource, func() (any, error) {
		return nil, s.warmUp(ctx)
	})
	return err
}

func (s *Shard) warmUp(ctx context.Context) error {
	if s.admission != nil {
		if err := s.admission.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.admission.Release(1)
	}

	searcher, err := s.provider.AcquireSearcher(warmUpSearcherSource)
	if err != nil {
		s.logger.Error("failed to acquire searcher", "source", warmUpSearcherSource, "error", err)
		return fmt.Errorf("acquire searcher: %w", err)
	}
	defer searcher.Close()

	contexts, err := s.collectContexts(searcher)
	if err != nil {
		return err
	}

	// Forward indices first, then clustered postings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, c := range contexts {
		g.Go(func() error { return s.warmUpForwardIndex(gctx, c) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, c := range contexts {
		g.Go(func() error { return s.warmUpClusteredPostings(gctx, c) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("warm-up completed", "fields", len(contexts))
	return nil
}

func (s *Shard) warmUpForwardIndex(ctx context.Context, c cacheContext) error {
	if c.fwd == nil {
		return nil
	}
	if item := s.forward.Get(c.key); item != nil && item.FullyPopulated() {
		return nil
	}

	for docID := range c.source.Docs() {
		if err := s.throttle(ctx); err != nil {
			return err
		}
		if _, err := c.fwd.Read(docID); err != nil {
			return fmt.Errorf("warm up forward index %s/%s: %w", c.key.SegmentID, c.key.Field, err)
		}
	}
	return nil
}

func (s *Shard) warmUpClusteredPostings(ctx context.Context, c cacheContext) error {
	terms, err := c.post.Terms()
	if err != nil {
		return fmt.Errorf("warm up postings %s/%s: %w", c.key.SegmentID, c.key.Field, err)
	}
	for _, term := range terms {
		if err := s.throttle(ctx); err != nil {
			return err
		}
		if _, err := c.post.Read(term); err != nil {
			return fmt.Errorf("warm up postings %s/%s: %w", c.key.SegmentID, c.key.Field, err)
		}
	}
	return nil
}

func (s *Shard) throttle(ctx context.Context) error {
	if s.limiter == nil {
		return ctx.Err()
	}
	return s.limiter.Wait(ctx)
}

// ClearCache evicts every (segment, field) key of the shard from both
// caches. It only reclaims cache memory; the underlying on-disk data is
// untouched.
func (s *Shard) ClearCache(ctx context.Context) error {
	return s.evictAll(ctx, clearCacheSearcherSource)
}

// OnRemoval evicts the shard's keys from both caches when the index is
// permanently removed from the node. It covers every segment still present
// at removal time; evicting a key that was never populated is a no-op.
func (s *Shard) OnRemoval(ctx context.Context) error {
	return s.evictAll(ctx, removalSearcherSource)
}

func (s *Shard) evictAll(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	searcher, err := s.provider.AcquireSearcher(source)
	if err != nil {
		s.logger.Error("failed to acquire searcher", "source", source, "error", err)
		return fmt.Errorf("acquire searcher: %w", err)
	}
	defer searcher.Close()

	keys := collectKeys(searcher)
	for _, key := range keys {
		s.postings.RemoveIndex(key)
		s.forward.RemoveIndex(key)
	}

	s.logger.Info("cache evicted", "source", source, "keys", len(keys))
	return nil
}

// collectContexts builds gated readers for every sparse field in every
// segment. Fields whose segment carries no binary doc values get a nil
// forward reader; that is logged and warm-up skips them rather than caching
// an absence.
func (s *Shard) collectContexts(searcher segment.Searcher) ([]cacheContext, error) {
	var contexts []cacheContext

	for _, view := range searcher.Segments() {
		info := view.Info()
		for _, fi := range view.SparseFields() {
			key := cache.NewKeyForField(info, fi)

			ceiling, err := quantization.Ceiling(fi.Attributes, quantization.AttrCeilingIngest, s.ingestCeiling)
			if err != nil {
				return nil, err
			}
			quantizer, err := quantization.New(ceiling)
			if err != nil {
				return nil, err
			}

			forwardSource, err := view.ForwardSource(fi.Name)
			if err != nil {
				return nil, fmt.Errorf("forward source %s/%s: %w", info.Name, fi.Name, err)
			}

			var fwd *cache.GatedForwardIndexReader
			if forwardSource == nil {
				s.logger.Error("no binary doc values for sparse field", "segment", info.Name, "field", fi.Name)
			} else {
				item := s.forward.GetOrCreate(key, info.MaxDoc)
				fwd, err = cache.NewGatedForwardIndexReader(item.Reader(), item.Writer(cache.Abort), forwardSource, quantizer)
				if err != nil {
					return nil, err
				}
			}

			postingsSource, err := view.PostingsSource()
			if err != nil {
				return nil, fmt.Errorf("postings source %s: %w", info.Name, err)
			}
			pitem := s.postings.GetOrCreate(key)
			post, err := cache.NewGatedPostingsReader(fi.Name, pitem.Reader(), pitem.Writer(cache.Abort), postingsSource)
			if err != nil {
				return nil, err
			}

			contexts = append(contexts, cacheContext{
				key:    key,
				source: forwardSource,
				fwd:    fwd,
				post:   post,
			})
		}
	}

	return contexts, nil
}

func collectKeys(searcher segment.Searcher) []cache.Key {
	var keys []cache.Key
	for _, view := range searcher.Segments() {
		info := view.Info()
		for _, fi := range view.SparseFields() {
			keys = append(keys, cache.NewKeyForField(info, fi))
		}
	}
	return keys
}
