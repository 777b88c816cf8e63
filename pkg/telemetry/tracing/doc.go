// Package tracing fans one stream of spans and events out to two sinks.
//
// # Overview
//
// Application code opens spans and emits events on a Pipeline. Every record
// goes to a local Chrome trace file (full fidelity). Spans go to a remote
// OpenTelemetry backend unless their creation fields carry the reserved
// field opentelemetry.skip = true:
//
//	            ┌──────────────┐
//	  Start ──▶ │   Pipeline   │ ──▶ ChromeWriter ──▶ trace.json    (everything)
//	  Event     └──────────────┘ ──▶ Forwarder    ──▶ OTLP backend (skip != true)
//
// The skip decision is made once per span, from its own creation fields.
// Children of a skipped span are exported under the nearest exported
// ancestor. Fields added later with SetFields never change the decision.
//
// # Usage
//
//	guard, err := tracing.Init(&cfg.Telemetry.Tracing,
//	    tracing.WithLogger(logger),
//	    tracing.WithMetrics(collector),
//	)
//	if err != nil {
//	    return err
//	}
//	defer guard.Close(context.Background())
//
//	p := guard.Pipeline()
//
//	ctx, span := p.Start(ctx, "span_with_export")
//	span.End()
//
//	_, local := p.Start(ctx, "span_without_export", tracing.SkipExport())
//	local.End()
//
// Declared call sites carry static fields; inline fields override them:
//
//	var loadCache = tracing.NewCallsite("load_cache", tracing.SkipExport())
//
//	ctx, span := loadCache.Start(ctx, p)
//
// # Lifecycle
//
// A Scope holds at most one Guard; a second Init fails with ErrGuardActive
// until the first guard is closed. Guard.Close stops the pipeline, closes
// the Chrome trace, then flushes and shuts down the tracer provider. It is
// idempotent.
//
// # Chrome traces
//
// ReadChromeTrace parses traces (optionally gzip compressed), including
// those left without a closing bracket by a crashed process.
// SummarizeChromeTrace aggregates span durations by name.
package tracing
