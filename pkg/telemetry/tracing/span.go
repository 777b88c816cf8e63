package tracing

import (
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// SpanID identifies a span within one Pipeline. Zero means "no span".
type SpanID uint64

// MainLane is the Chrome track used by contexts that never called NewLane.
const MainLane uint64 = 1

// Span is a named interval of work. Creation fields are fixed when the span
// opens; dynamic fields are appended with SetFields until it ends.
//
// A nil *Span and spans returned by a stopped pipeline are inert: every
// method is a no-op.
type Span struct {
	id     SpanID
	parent SpanID
	up     *Span
	name   string
	lane   uint64
	fields []attribute.KeyValue
	start  time.Time

	pipeline *Pipeline

	// remote is set once by the Forwarder on open and stays readable after
	// the span ends, so late children still find their remote parent.
	remote atomic.Pointer[remoteLink]

	mu      sync.Mutex
	dynamic []attribute.KeyValue
	end     time.Time
	ended   bool
	err     error
}

// ID returns the span's id.
func (s *Span) ID() SpanID {
	if s == nil {
		return 0
	}
	return s.id
}

// Parent returns the enclosing span's id, or 0 for a root span.
func (s *Span) Parent() SpanID {
	if s == nil {
		return 0
	}
	return s.parent
}

// Name returns the span name.
func (s *Span) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Lane returns the Chrome track the span is drawn on.
func (s *Span) Lane() uint64 {
	if s == nil {
		return 0
	}
	return s.lane
}

// Fields returns the creation fields. Callers must not modify the slice.
func (s *Span) Fields() []attribute.KeyValue {
	if s == nil {
		return nil
	}
	return s.fields
}

// StartTime returns when the span opened.
func (s *Span) StartTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.start
}

// EndTime returns when the span closed, or the zero time while it is open.
func (s *Span) EndTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end
}

// Ended reports whether End has been called.
func (s *Span) Ended() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// DynamicFields returns a copy of the fields added after creation.
func (s *Span) DynamicFields() []attribute.KeyValue {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attribute.KeyValue(nil), s.dynamic...)
}

// Err returns the error recorded with RecordError.
func (s *Span) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetFields adds dynamic fields to an open span. They never change whether
// the span is exported.
func (s *Span) SetFields(fields ...attribute.KeyValue) {
	if s == nil || s.pipeline == nil || len(fields) == 0 {
		return
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.dynamic = append(s.dynamic, fields...)
	s.mu.Unlock()

	s.pipeline.record(s, fields)
}

// Event emits an instantaneous event inside the span.
func (s *Span) Event(name string, fields ...attribute.KeyValue) {
	if s == nil || s.pipeline == nil {
		return
	}
	s.pipeline.emit(s, s.lane, name, fields)
}

// RecordError marks the span as failed.
func (s *Span) RecordError(err error) {
	if s == nil || s.pipeline == nil || err == nil {
		return
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.mu.Unlock()

	s.SetFields(
		attribute.Bool(AttrError, true),
		attribute.String(AttrErrorMessage, err.Error()),
	)
}

// End closes the span. Only the first call has an effect.
func (s *Span) End() {
	if s == nil || s.pipeline == nil {
		return
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.end = s.pipeline.now()
	s.mu.Unlock()

	s.pipeline.close(s)
}

// Event is an instantaneous record. SpanID is 0 for events emitted outside
// any span.
type Event struct {
	Name   string
	Fields []attribute.KeyValue
	Time   time.Time
	SpanID SpanID
	Lane   uint64
}

// Stage receives the pipeline's records. Calls for one span arrive in
// order (open, records and events, close) but calls for different spans
// may arrive concurrently.
type Stage interface {
	OnOpen(span *Span)
	OnRecord(span *Span, fields []attribute.KeyValue)
	OnEvent(event Event)
	OnClose(span *Span)
}
