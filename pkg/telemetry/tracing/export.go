package tracing

import (
	"context"
	"sync"

	"mercator-hq/spanfan/pkg/telemetry/logging"
	"mercator-hq/spanfan/pkg/telemetry/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ForwarderOptions configures a Forwarder.
type ForwarderOptions struct {
	// Redactor scrubs string fields before they leave the process. Nil
	// forwards fields unchanged.
	Redactor *logging.Redactor

	Logger  *logging.Logger
	Metrics *metrics.Collector
}

// remoteEntry is written once when a span opens and read by every later
// record of that span. It is removed when the span closes.
type remoteEntry struct {
	skip bool
	span trace.Span
}

// remoteLink is the remote parent a span hands to its children: the span's
// own context, or its parent's when the span is skipped.
type remoteLink struct {
	owner *Forwarder
	ctx   context.Context
}

// Forwarder is the filtering sink. It mirrors every span without the skip
// flag onto an OpenTelemetry tracer and drops the rest.
type Forwarder struct {
	tracer  trace.Tracer
	opts    ForwarderOptions
	entries sync.Map // SpanID -> *remoteEntry
}

// NewForwarder returns a Forwarder creating remote spans with tracer.
func NewForwarder(tracer trace.Tracer, opts ForwarderOptions) *Forwarder {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Forwarder{tracer: tracer, opts: opts}
}

// OnOpen resolves the skip flag and, for exported spans, starts the remote
// span under the nearest exported ancestor.
func (f *Forwarder) OnOpen(span *Span) {
	parentCtx := f.parentContext(span)

	if ResolveSkip(span.Fields()) {
		span.remote.Store(&remoteLink{owner: f, ctx: parentCtx})
		f.entries.Store(span.ID(), &remoteEntry{skip: true})
		f.opts.Metrics.RecordSpanSkipped()
		f.opts.Logger.Debug("span withheld from remote export", "span", span.Name(), "span_id", uint64(span.ID()))
		return
	}

	ctx, remote := f.tracer.Start(parentCtx, span.Name(),
		trace.WithTimestamp(span.StartTime()),
		trace.WithAttributes(f.exportFields(span.Fields())...),
	)
	span.remote.Store(&remoteLink{owner: f, ctx: ctx})
	f.entries.Store(span.ID(), &remoteEntry{span: remote})
	f.opts.Metrics.RecordSpanOpened(metrics.SinkRemote)
}

// OnRecord copies dynamic fields onto the remote span.
func (f *Forwarder) OnRecord(span *Span, fields []attribute.KeyValue) {
	e, ok := f.lookup(span.ID())
	if !ok || e.skip {
		return
	}
	e.span.SetAttributes(f.exportFields(fields)...)
}

// OnEvent adds the event to the remote span. Events outside any span and
// events of skipped spans are dropped.
func (f *Forwarder) OnEvent(ev Event) {
	if ev.SpanID == 0 {
		f.opts.Metrics.RecordEventDropped(metrics.DropOutsideSpan)
		return
	}
	e, ok := f.lookup(ev.SpanID)
	switch {
	case !ok:
		f.opts.Metrics.RecordEventDropped(metrics.DropUnknownSpan)
		return
	case e.skip:
		f.opts.Metrics.RecordEventDropped(metrics.DropSkippedSpan)
		return
	}
	e.span.AddEvent(ev.Name,
		trace.WithTimestamp(ev.Time),
		trace.WithAttributes(f.exportFields(ev.Fields)...),
	)
}

// OnClose ends the remote span with the pipeline's end timestamp.
func (f *Forwarder) OnClose(span *Span) {
	v, ok := f.entries.LoadAndDelete(span.ID())
	if !ok {
		return
	}
	e := v.(*remoteEntry)
	if e.skip {
		return
	}

	if err := span.Err(); err != nil {
		e.span.RecordError(err, trace.WithTimestamp(span.EndTime()))
		e.span.SetStatus(codes.Error, err.Error())
	}
	e.span.End(trace.WithTimestamp(span.EndTime()))
	f.opts.Metrics.RecordSpanForwarded()
}

// parentContext walks the local ancestors and returns the first remote
// parent this forwarder recorded. Ancestors that already ended still
// qualify.
func (f *Forwarder) parentContext(span *Span) context.Context {
	for a := span.up; a != nil; a = a.up {
		if l := a.remote.Load(); l != nil && l.owner == f {
			return l.ctx
		}
	}
	return context.Background()
}

func (f *Forwarder) lookup(id SpanID) (*remoteEntry, bool) {
	v, ok := f.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*remoteEntry), true
}

func (f *Forwarder) exportFields(fields []attribute.KeyValue) []attribute.KeyValue {
	out := withoutReserved(fields)
	if f.opts.Redactor == nil {
		return out
	}
	for i, kv := range out {
		if kv.Value.Type() == attribute.STRING {
			out[i] = attribute.String(string(kv.Key), f.opts.Redactor.RedactKeyValue(string(kv.Key), kv.Value.AsString()))
		}
	}
	return out
}

// failureCountingExporter absorbs export errors so they never reach the
// batch processor or the instrumented code.
type failureCountingExporter struct {
	sdktrace.SpanExporter
	logger  *logging.Logger
	metrics *metrics.Collector

	mu   sync.Mutex
	last error
}

func (e *failureCountingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	err := e.SpanExporter.ExportSpans(ctx, spans)
	if err != nil {
		e.logger.Warn("span export failed", "spans", len(spans), "error", err)
		e.metrics.RecordExportFailure(len(spans))
	}

	e.mu.Lock()
	e.last = err
	e.mu.Unlock()
	return nil
}

// Err returns the error of the most recent export, nil once an export
// succeeds again.
func (e *failureCountingExporter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}
