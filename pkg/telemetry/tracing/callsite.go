package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Callsite is a span declared once, typically as a package variable, with
// fields that apply to every span started from it.
//
//	var syncChain = tracing.NewCallsite("sync_chain", tracing.SkipExport())
//
//	ctx, span := syncChain.Start(ctx, p, attribute.Int("height", h))
type Callsite struct {
	name   string
	fields []attribute.KeyValue
}

// NewCallsite declares a span name and its static fields.
func NewCallsite(name string, fields ...attribute.KeyValue) *Callsite {
	return &Callsite{
		name:   name,
		fields: append([]attribute.KeyValue(nil), fields...),
	}
}

// Name returns the declared span name.
func (c *Callsite) Name() string {
	return c.name
}

// Start opens a span on p. Inline fields follow the static ones, so an
// inline SkipExportKey overrides a static one.
func (c *Callsite) Start(ctx context.Context, p *Pipeline, fields ...attribute.KeyValue) (context.Context, *Span) {
	merged := make([]attribute.KeyValue, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return p.Start(ctx, c.name, merged...)
}
