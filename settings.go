package sparsevec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hupe1980/sparsevec/quantization"
)

// Settings holds the live configuration of a CacheManager. Limit and
// overhead can be updated at runtime without clearing cache contents.
type Settings struct {
	// Limit is the cache memory budget: an absolute size ("512mb", "2gb",
	// a plain byte count) or a percentage of total system memory ("10%").
	Limit string

	// Overhead is the multiplier applied to proposed charges before they
	// are compared against the limit.
	Overhead float64

	// DefaultCeilingIngest is the process-wide fallback ingest-time
	// quantization ceiling for fields without a stored attribute.
	DefaultCeilingIngest float32

	// DefaultCeilingSearch is the query-time counterpart.
	DefaultCeilingSearch float32

	// MaxConcurrentWarmUps bounds how many shard warm-ups run at a time.
	MaxConcurrentWarmUps int64
}

// DefaultSettings returns the default configuration: 10% of system memory,
// no overhead, built-in quantization ceilings.
func DefaultSettings() Settings {
	return Settings{
		Limit:                "10%",
		Overhead:             1.0,
		DefaultCeilingIngest: quantization.DefaultCeilingIngest,
		DefaultCeilingSearch: quantization.DefaultCeilingSearch,
		MaxConcurrentWarmUps: 1,
	}
}

var errInvalidLimit = errors.New("invalid cache memory limit")

// Longest suffixes first so "mb" is not consumed by "b".
var byteUnits = []struct {
	suffix string
	scale  int64
}{
	{"kb", 1 << 10},
	{"mb", 1 << 20},
	{"gb", 1 << 30},
	{"tb", 1 << 40},
	{"b", 1},
}

// ParseByteLimit resolves a limit string to bytes. Percentages are resolved
// against total system memory at call time.
func ParseByteLimit(limit string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(limit))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", errInvalidLimit)
	}

	if pct, ok := strings.CutSuffix(s, "%"); ok {
		p, err := strconv.ParseFloat(pct, 64)
		if err != nil || p < 0 || p > 100 {
			return 0, fmt.Errorf("%w: %q", errInvalidLimit, limit)
		}
		vm, err := mem.VirtualMemory()
		if err != nil {
			return 0, fmt.Errorf("resolve system memory: %w", err)
		}
		return int64(float64(vm.Total) * p / 100), nil
	}

	for _, unit := range byteUnits {
		if num, ok := strings.CutSuffix(s, unit.suffix); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("%w: %q", errInvalidLimit, limit)
			}
			return int64(n * float64(unit.scale)), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidLimit, limit)
	}
	return n, nil
}
