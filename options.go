package sparsevec

// Option configures a CacheManager.
type Option func(*options)

type options struct {
	settings Settings
	logger   *Logger
}

// WithSettings replaces the full settings block.
func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithLimit sets the cache memory budget: an absolute size ("512mb") or a
// percentage of total system memory ("10%").
func WithLimit(limit string) Option {
	return func(o *options) { o.settings.Limit = limit }
}

// WithOverhead sets the multiplier applied to proposed charges before they
// are compared against the limit.
func WithOverhead(overhead float64) Option {
	return func(o *options) {
		if overhead > 0 {
			o.settings.Overhead = overhead
		}
	}
}

// WithDefaultCeilings sets the process-wide fallback quantization ceilings
// used when a field carries no stored attribute.
func WithDefaultCeilings(ingest, search float32) Option {
	return func(o *options) {
		o.settings.DefaultCeilingIngest = ingest
		o.settings.DefaultCeilingSearch = search
	}
}

// WithMaxConcurrentWarmUps bounds how many shard warm-ups run node-wide at
// a time.
func WithMaxConcurrentWarmUps(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.settings.MaxConcurrentWarmUps = n
		}
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}
