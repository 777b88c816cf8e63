package tracing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/spanfan/pkg/telemetry/logging"
	"mercator-hq/spanfan/pkg/telemetry/metrics"

	"go.opentelemetry.io/otel/attribute"
)

type spanKey struct{}

type laneKey struct{}

// Pipeline fans span and event records out to its stages. It is created by
// Init and passed explicitly to instrumented code.
type Pipeline struct {
	stages  []Stage
	metrics *metrics.Collector
	now     func() time.Time

	nextID   atomic.Uint64
	nextLane atomic.Uint64
	open     atomic.Int64

	// mu orders dispatch against Stop: once Stop returns no stage is
	// called again.
	mu      sync.RWMutex
	stopped bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineMetrics records span counts and durations on c.
func WithPipelineMetrics(c *metrics.Collector) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = c
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline returns a running pipeline that dispatches to stages in order.
func NewPipeline(stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages: stages,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.nextLane.Store(MainLane)
	return p
}

// Start opens a span named name as a child of the span in ctx and returns a
// context carrying the new span. The span must be ended:
//
//	ctx, span := p.Start(ctx, "load_block", attribute.Int("height", 7))
//	defer span.End()
func (p *Pipeline) Start(ctx context.Context, name string, fields ...attribute.KeyValue) (context.Context, *Span) {
	if p == nil || p.Stopped() {
		return ctx, &Span{name: name}
	}

	parent := SpanFromContext(ctx)
	span := &Span{
		id:       SpanID(p.nextID.Add(1)),
		parent:   parent.ID(),
		up:       parent,
		name:     name,
		lane:     laneFromContext(ctx),
		fields:   append([]attribute.KeyValue(nil), fields...),
		start:    p.now(),
		pipeline: p,
	}

	if !p.dispatch(func(st Stage) { st.OnOpen(span) }) {
		return ctx, &Span{name: name}
	}
	p.metrics.SetOpenSpans(int(p.open.Add(1)))

	return ContextWithSpan(ctx, span), span
}

// Event emits an event attached to the span in ctx, or a free-standing
// event when ctx carries no span.
func (p *Pipeline) Event(ctx context.Context, name string, fields ...attribute.KeyValue) {
	if p == nil {
		return
	}
	span := SpanFromContext(ctx)
	if span != nil && span.pipeline == p {
		p.emit(span, span.lane, name, fields)
		return
	}
	p.emit(nil, laneFromContext(ctx), name, fields)
}

// NewLane returns a context whose next spans are drawn on a fresh Chrome
// track. The span in ctx stays the parent. Use it when handing work to a
// goroutine:
//
//	go worker(p.NewLane(ctx))
func (p *Pipeline) NewLane(ctx context.Context) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, laneKey{}, p.nextLane.Add(1))
}

// Stop detaches every stage. Later calls on the pipeline and its spans do
// nothing. Stop waits for in-flight dispatches to finish.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

// Stopped reports whether Stop was called.
func (p *Pipeline) Stopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// OpenSpans returns the number of spans opened and not yet ended.
func (p *Pipeline) OpenSpans() int {
	return int(p.open.Load())
}

func (p *Pipeline) dispatch(fn func(Stage)) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	for _, st := range p.stages {
		fn(st)
	}
	return true
}

func (p *Pipeline) record(span *Span, fields []attribute.KeyValue) {
	fields = append([]attribute.KeyValue(nil), fields...)
	p.dispatch(func(st Stage) { st.OnRecord(span, fields) })
}

func (p *Pipeline) emit(span *Span, lane uint64, name string, fields []attribute.KeyValue) {
	ev := Event{
		Name:   name,
		Fields: append([]attribute.KeyValue(nil), fields...),
		Time:   p.now(),
		SpanID: span.ID(),
		Lane:   lane,
	}
	if !p.dispatch(func(st Stage) { st.OnEvent(ev) }) {
		p.metrics.RecordEventDropped(metrics.DropStopped)
	}
}

func (p *Pipeline) close(span *Span) {
	if !p.dispatch(func(st Stage) { st.OnClose(span) }) {
		return
	}
	p.metrics.SetOpenSpans(int(p.open.Add(-1)))
	p.metrics.ObserveSpanDuration(span.name, span.EndTime().Sub(span.start))
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey{}).(*Span); ok {
		return span
	}
	return nil
}

// ContextWithSpan returns a context carrying span. Log calls made with the
// returned context carry the span's id, name and lane.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	if span == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, spanKey{}, span)
	ctx = context.WithValue(ctx, laneKey{}, span.lane)
	return logging.WithSpan(ctx, uint64(span.id), span.name, span.lane)
}

func laneFromContext(ctx context.Context) uint64 {
	if lane, ok := ctx.Value(laneKey{}).(uint64); ok && lane != 0 {
		return lane
	}
	return MainLane
}
