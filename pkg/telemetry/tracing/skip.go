package tracing

import (
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// SkipExportKey is a reserved field name. A span whose creation fields carry
// this key with a truthy value is written to the Chrome trace but never
// forwarded to the remote backend. Application code must not use the key
// for anything else.
const SkipExportKey = "opentelemetry.skip"

// SkipExport returns the declarative skip marker. Put it in a Callsite's
// static fields or pass it inline to Pipeline.Start.
//
//	var loadCache = tracing.NewCallsite("load_cache", tracing.SkipExport())
func SkipExport() attribute.KeyValue {
	return attribute.Bool(SkipExportKey, true)
}

// ResolveSkip reports whether fields mark a span as local-only.
//
// Truthy values are bool true, a non-zero int64 or float64, and any string
// strconv.ParseBool reads as true. When the key appears more than once the
// last occurrence wins, so inline fields override static ones.
func ResolveSkip(fields []attribute.KeyValue) bool {
	skip := false
	for _, kv := range fields {
		if kv.Key == SkipExportKey {
			skip = truthy(kv.Value)
		}
	}
	return skip
}

func truthy(v attribute.Value) bool {
	switch v.Type() {
	case attribute.BOOL:
		return v.AsBool()
	case attribute.INT64:
		return v.AsInt64() != 0
	case attribute.FLOAT64:
		return v.AsFloat64() != 0
	case attribute.STRING:
		b, err := strconv.ParseBool(strings.TrimSpace(v.AsString()))
		return err == nil && b
	default:
		return false
	}
}

// withoutReserved returns fields minus the skip key. The input is not
// modified.
func withoutReserved(fields []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(fields))
	for _, kv := range fields {
		if kv.Key != SkipExportKey {
			out = append(out, kv)
		}
	}
	return out
}
