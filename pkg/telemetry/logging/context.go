package logging

import (
	"context"
	"strconv"
)

// Context keys for common log fields.
type contextKey string

const (
	// ComponentKey is the context key for the emitting component name.
	ComponentKey contextKey = "component"

	// SpanIDKey is the context key for the active pipeline span id.
	SpanIDKey contextKey = "span_id"

	// SpanNameKey is the context key for the active pipeline span name.
	SpanNameKey contextKey = "span_name"

	// LaneKey is the context key for the Chrome trace lane (tid).
	LaneKey contextKey = "lane"
)

// WithComponent adds a component name to the context.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ComponentKey, component)
}

// GetComponent retrieves the component name from the context.
func GetComponent(ctx context.Context) string {
	if component, ok := ctx.Value(ComponentKey).(string); ok {
		return component
	}
	return ""
}

// WithSpan records the active span's id, name, and lane so that
// *Context log calls can correlate log lines with trace entries.
func WithSpan(ctx context.Context, spanID uint64, name string, lane uint64) context.Context {
	ctx = context.WithValue(ctx, SpanIDKey, spanID)
	ctx = context.WithValue(ctx, SpanNameKey, name)
	return context.WithValue(ctx, LaneKey, lane)
}

// GetSpanID retrieves the span id from the context, or 0.
func GetSpanID(ctx context.Context) uint64 {
	if id, ok := ctx.Value(SpanIDKey).(uint64); ok {
		return id
	}
	return 0
}

// GetSpanName retrieves the span name from the context.
func GetSpanName(ctx context.Context) string {
	if name, ok := ctx.Value(SpanNameKey).(string); ok {
		return name
	}
	return ""
}

// GetLane retrieves the lane from the context, or 0.
func GetLane(ctx context.Context) uint64 {
	if lane, ok := ctx.Value(LaneKey).(uint64); ok {
		return lane
	}
	return 0
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if component := GetComponent(ctx); component != "" {
		fields = append(fields, "component", component)
	}

	if spanID := GetSpanID(ctx); spanID != 0 {
		fields = append(fields,
			"span_id", strconv.FormatUint(spanID, 16),
			"span_name", GetSpanName(ctx),
			"lane", GetLane(ctx),
		)
	}

	return fields
}
