package quantization

import (
	"fmt"
	"strconv"
)

// Stored field attributes carrying per-field quantization ceilings.
const (
	AttrCeilingIngest = "quantization_ceiling_ingest"
	AttrCeilingSearch = "quantization_ceiling_search"
)

// Process-wide fallback ceilings, used when a field carries no attribute.
const (
	DefaultCeilingIngest float32 = 3.0
	DefaultCeilingSearch float32 = 16.0
)

// MalformedCeilingError indicates an unparseable ceiling attribute. This is a
// data-corruption signal, not a soft-fallback case: the attribute was written
// at index time and must parse.
type MalformedCeilingError struct {
	Attribute string
	Value     string
	cause     error
}

func (e *MalformedCeilingError) Error() string {
	return fmt.Sprintf("malformed quantization ceiling attribute %q: %q", e.Attribute, e.Value)
}

func (e *MalformedCeilingError) Unwrap() error { return e.cause }

// Ceiling reads the named ceiling attribute from a field's stored attributes.
// A missing attribute yields the fallback; an unparseable one fails with a
// MalformedCeilingError and is never silently defaulted.
func Ceiling(attrs map[string]string, attr string, fallback float32) (float32, error) {
	raw, ok := attrs[attr]
	if !ok {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, &MalformedCeilingError{Attribute: attr, Value: raw, cause: err}
	}
	return float32(v), nil
}

// IngestCeiling returns the ingest-time ceiling for a field.
func IngestCeiling(attrs map[string]string) (float32, error) {
	return Ceiling(attrs, AttrCeilingIngest, DefaultCeilingIngest)
}

// SearchCeiling returns the query-time ceiling for a field.
func SearchCeiling(attrs map[string]string) (float32, error) {
	return Ceiling(attrs, AttrCeilingSearch, DefaultCeilingSearch)
}

// IngestQuantizer builds a ByteQuantizer from a field's ingest ceiling.
func IngestQuantizer(attrs map[string]string) (*ByteQuantizer, error) {
	ceiling, err := IngestCeiling(attrs)
	if err != nil {
		return nil, err
	}
	return New(ceiling)
}

// SearchQuantizer builds a ByteQuantizer from a field's search ceiling.
func SearchQuantizer(attrs map[string]string) (*ByteQuantizer, error) {
	ceiling, err := SearchCeiling(attrs)
	if err != nil {
		return nil, err
	}
	return New(ceiling)
}
