// Package breaker provides the process-wide memory accounting shared by the
// sparse-vector caches. A single byte budget governs the combined footprint
// of the forward-index and clustered-posting caches; every proposed charge is
// either accepted atomically or rejected with a CircuitBreakerError.
package breaker

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
)

// CircuitBreakerError signals that a proposed memory charge would exceed the
// configured budget. The in-flight insertion is aborted; previously cached
// entries are unaffected.
type CircuitBreakerError struct {
	Label string
	Bytes int64
	Used  int64
	Limit int64
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker [%s]: adding %d bytes would exceed limit (used %d, limit %d)",
		e.Label, e.Bytes, e.Used, e.Limit)
}

// CircuitBreaker tracks the aggregate bytes charged by all cache entries
// against a live-updatable limit and overhead multiplier. All operations are
// safe for concurrent use from any cache, any key, any goroutine.
type CircuitBreaker struct {
	limit    atomic.Int64
	overhead atomic.Uint64 // float64 bits
	used     atomic.Int64
	trips    atomic.Int64

	logger *slog.Logger
}

// New creates a CircuitBreaker with the given byte limit and overhead
// multiplier. A nil logger discards log output.
func New(limitBytes int64, overhead float64, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cb := &CircuitBreaker{logger: logger}
	cb.limit.Store(limitBytes)
	cb.overhead.Store(math.Float64bits(overhead))
	return cb
}

// AddMemoryUsage proposes to add bytes to the running total. It returns a
// *CircuitBreakerError and leaves the total unchanged when
// (used + bytes) * overhead would exceed the limit.
func (cb *CircuitBreaker) AddMemoryUsage(bytes int64, label string) error {
	if bytes <= 0 {
		return nil
	}
	for {
		used := cb.used.Load()
		limit := cb.limit.Load()
		next := used + bytes
		if float64(next)*cb.Overhead() > float64(limit) {
			cb.trips.Add(1)
			cb.logger.Warn("circuit breaker tripped",
				"label", label,
				"bytes", bytes,
				"used", used,
				"limit", limit,
			)
			return &CircuitBreakerError{Label: label, Bytes: bytes, Used: used, Limit: limit}
		}
		if cb.used.CompareAndSwap(used, next) {
			return nil
		}
	}
}

// AddWithoutBreaking adjusts the running total without admission control.
// The total never goes below zero; a negative result indicates a
// charge/release mismatch and is logged.
func (cb *CircuitBreaker) AddWithoutBreaking(delta int64) {
	for {
		used := cb.used.Load()
		next := used + delta
		if next < 0 {
			cb.logger.Warn("memory accounting underflow", "used", used, "delta", delta)
			next = 0
		}
		if cb.used.CompareAndSwap(used, next) {
			return
		}
	}
}

// Release returns bytes to the budget.
func (cb *CircuitBreaker) Release(bytes int64) {
	if bytes <= 0 {
		return
	}
	cb.AddWithoutBreaking(-bytes)
}

// Used returns the current running total in bytes.
func (cb *CircuitBreaker) Used() int64 {
	return cb.used.Load()
}

// Limit returns the configured byte limit.
func (cb *CircuitBreaker) Limit() int64 {
	return cb.limit.Load()
}

// Overhead returns the configured overhead multiplier.
func (cb *CircuitBreaker) Overhead() float64 {
	return math.Float64frombits(cb.overhead.Load())
}

// Trips returns the number of rejected charges since creation.
func (cb *CircuitBreaker) Trips() int64 {
	return cb.trips.Load()
}

// SetLimit updates the byte limit. Lowering it below the running total does
// not evict existing entries; only new charges are rejected until usage
// drains through natural eviction.
func (cb *CircuitBreaker) SetLimit(limitBytes int64) {
	cb.limit.Store(limitBytes)
}

// SetOverhead updates the overhead multiplier.
func (cb *CircuitBreaker) SetOverhead(overhead float64) {
	cb.overhead.Store(math.Float64bits(overhead))
}
