package sparsevec

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_Registers(t *testing.T) {
	m := newTestManager(t)
	c := NewMetricsCollector(m)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
}

func TestMetricsCollector_Collect(t *testing.T) {
	m := newTestManager(t)
	s := m.NewShard(testProvider())
	require.NoError(t, s.WarmUp(context.Background()))

	c := NewMetricsCollector(m)

	// One series per cache for the labeled metrics, one for each breaker
	// metric.
	assert.Equal(t, 2, testutil.CollectAndCount(c, "sparsevec_cache_bytes"))
	assert.Equal(t, 2, testutil.CollectAndCount(c, "sparsevec_cache_entries"))
	assert.Equal(t, 2, testutil.CollectAndCount(c, "sparsevec_cache_hits_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(c, "sparsevec_cache_misses_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "sparsevec_breaker_used_bytes"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "sparsevec_breaker_limit_bytes"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "sparsevec_breaker_trips_total"))
}

func TestMetricsCollector_LimitGauge(t *testing.T) {
	m := newTestManager(t) // 64mb limit
	c := NewMetricsCollector(m)

	expected := `
# HELP sparsevec_breaker_limit_bytes Configured circuit breaker memory limit.
# TYPE sparsevec_breaker_limit_bytes gauge
sparsevec_breaker_limit_bytes 67108864
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sparsevec_breaker_limit_bytes"))
}

func TestMetricsCollector_EntriesGauge(t *testing.T) {
	m := newTestManager(t)
	s := m.NewShard(testProvider())
	require.NoError(t, s.WarmUp(context.Background()))

	c := NewMetricsCollector(m)

	expected := `
# HELP sparsevec_cache_entries Number of per-field cache entries.
# TYPE sparsevec_cache_entries gauge
sparsevec_cache_entries{cache="clustered_posting"} 1
sparsevec_cache_entries{cache="forward_index"} 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sparsevec_cache_entries"))
}
