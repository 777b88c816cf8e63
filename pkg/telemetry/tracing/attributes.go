package tracing

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// Common field keys used by the pipeline and the CLI.
const (
	// Error fields set by Span.RecordError
	AttrError        = "error"
	AttrErrorMessage = "error.message"

	// CLI fields
	AttrWorker     = "spanfan.worker"
	AttrIteration  = "spanfan.iteration"
	AttrReplayedAt = "spanfan.replayed_from"
	AttrSequence   = "spanfan.seq"
)

// AttributeBuilder provides a fluent interface for building span fields.
type AttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewAttributeBuilder creates a new attribute builder.
func NewAttributeBuilder() *AttributeBuilder {
	return &AttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithSkip adds the skip marker with the given value.
func (ab *AttributeBuilder) WithSkip(skip bool) *AttributeBuilder {
	ab.attrs = append(ab.attrs, attribute.Bool(SkipExportKey, skip))
	return ab
}

// WithCustom adds a field, converting v to the closest attribute type.
func (ab *AttributeBuilder) WithCustom(key string, value any) *AttributeBuilder {
	ab.attrs = append(ab.attrs, AttributeFromValue(key, value))
	return ab
}

// WithMap adds every entry of m in key order.
func (ab *AttributeBuilder) WithMap(m map[string]any) *AttributeBuilder {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ab.WithCustom(k, m[k])
	}
	return ab
}

// Attributes returns the raw attribute slice.
func (ab *AttributeBuilder) Attributes() []attribute.KeyValue {
	return ab.attrs
}

// AttributeFromValue converts a Go value to an attribute. Decoded JSON
// numbers (float64) with no fractional part become int64. A uint64 beyond
// the int64 range is kept as its decimal string.
func AttributeFromValue(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		if v > math.MaxInt64 {
			return attribute.String(key, strconv.FormatUint(v, 10))
		}
		return attribute.Int64(key, int64(v))
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return attribute.Int64(key, int64(v))
		}
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		// Fall back to string representation
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// fieldMap renders fields as a JSON-friendly map. Later keys overwrite
// earlier ones.
func fieldMap(fields []attribute.KeyValue) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]any, len(fields))
	for _, kv := range fields {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}
