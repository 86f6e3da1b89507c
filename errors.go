package sparsevec

import (
	"errors"

	"github.com/hupe1980/sparsevec/breaker"
	"github.com/hupe1980/sparsevec/quantization"
)

// IsResourceExhausted reports whether err is (or wraps) a circuit breaker
// rejection. Callers can use it to degrade gracefully — skip the affected
// field instead of failing the whole request.
func IsResourceExhausted(err error) bool {
	var cbe *breaker.CircuitBreakerError
	return errors.As(err, &cbe)
}

// IsMalformedCeiling reports whether err is (or wraps) an unparseable
// quantization ceiling attribute. This indicates index corruption or a
// configuration bug and is never silently substituted with a default.
func IsMalformedCeiling(err error) bool {
	var mce *quantization.MalformedCeilingError
	return errors.As(err, &mce)
}
