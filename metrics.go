package sparsevec

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exposes cache and circuit breaker state as Prometheus
// metrics. Register it with a prometheus.Registerer:
//
//	prometheus.MustRegister(sparsevec.NewMetricsCollector(manager))
type MetricsCollector struct {
	manager *CacheManager

	cacheBytes   *prometheus.Desc
	cacheEntries *prometheus.Desc
	cacheHits    *prometheus.Desc
	cacheMisses  *prometheus.Desc
	breakerUsed  *prometheus.Desc
	breakerLimit *prometheus.Desc
	breakerTrips *prometheus.Desc
}

// NewMetricsCollector creates a collector reading from the given manager.
func NewMetricsCollector(manager *CacheManager) *MetricsCollector {
	cacheLabels := []string{"cache"}

	return &MetricsCollector{
		manager: manager,
		cacheBytes: prometheus.NewDesc(
			"sparsevec_cache_bytes",
			"Bytes currently retained by the cache.",
			cacheLabels, nil,
		),
		cacheEntries: prometheus.NewDesc(
			"sparsevec_cache_entries",
			"Number of per-field cache entries.",
			cacheLabels, nil,
		),
		cacheHits: prometheus.NewDesc(
			"sparsevec_cache_hits_total",
			"Total cache read hits.",
			cacheLabels, nil,
		),
		cacheMisses: prometheus.NewDesc(
			"sparsevec_cache_misses_total",
			"Total cache read misses.",
			cacheLabels, nil,
		),
		breakerUsed: prometheus.NewDesc(
			"sparsevec_breaker_used_bytes",
			"Bytes currently charged against the circuit breaker.",
			nil, nil,
		),
		breakerLimit: prometheus.NewDesc(
			"sparsevec_breaker_limit_bytes",
			"Configured circuit breaker memory limit.",
			nil, nil,
		),
		breakerTrips: prometheus.NewDesc(
			"sparsevec_breaker_trips_total",
			"Total circuit breaker trips.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheBytes
	ch <- c.cacheEntries
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.breakerUsed
	ch <- c.breakerLimit
	ch <- c.breakerTrips
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	fwd := c.manager.ForwardIndex()
	post := c.manager.ClusteredPostings()

	ch <- prometheus.MustNewConstMetric(c.cacheBytes, prometheus.GaugeValue,
		float64(fwd.RamBytesUsed()), "forward_index")
	ch <- prometheus.MustNewConstMetric(c.cacheBytes, prometheus.GaugeValue,
		float64(post.RamBytesUsed()), "clustered_posting")

	ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue,
		float64(len(fwd.Keys())), "forward_index")
	ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue,
		float64(len(post.Keys())), "clustered_posting")

	fwdHits, fwdMisses := fwd.Stats()
	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue,
		float64(fwdHits), "forward_index")
	ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue,
		float64(fwdMisses), "forward_index")

	postHits, postMisses := post.Stats()
	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue,
		float64(postHits), "clustered_posting")
	ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue,
		float64(postMisses), "clustered_posting")

	cb := c.manager.Breaker()
	ch <- prometheus.MustNewConstMetric(c.breakerUsed, prometheus.GaugeValue, float64(cb.Used()))
	ch <- prometheus.MustNewConstMetric(c.breakerLimit, prometheus.GaugeValue, float64(cb.Limit()))
	ch <- prometheus.MustNewConstMetric(c.breakerTrips, prometheus.CounterValue, float64(cb.Trips()))
}

var _ prometheus.Collector = (*MetricsCollector)(nil)
