package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func newTestChrome(t *testing.T, opts ChromeOptions) (*ChromeWriter, *SharedBuffer, *Pipeline) {
	t.Helper()

	buf := NewSharedBuffer()
	clock := fakeClock()
	opts.Origin = clock()
	if opts.ProcessName == "" {
		opts.ProcessName = "test"
	}
	cw := NewChromeWriter(buf.Clone(), opts)
	p := NewPipeline([]Stage{cw}, WithClock(clock))
	return cw, buf, p
}

func phases(events []ChromeEvent, name string) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Name == name {
			sb.WriteString(ev.Ph)
		}
	}
	return sb.String()
}

func TestChromeWriter_Records(t *testing.T) {
	cw, buf, p := newTestChrome(t, ChromeOptions{IncludeArgs: true, PID: 42})

	ctx, span := p.Start(context.Background(), "load", attribute.Int("height", 7), SkipExport())
	p.Event(ctx, "cache_miss", attribute.String("key", "k1"))
	span.SetFields(attribute.Bool("ok", true))
	span.End()
	p.Event(context.Background(), "outside")

	if err := cw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := buf.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	events, err := ReadChromeTrace(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadChromeTrace() error = %v\n%s", err, data)
	}

	if got := phases(events, "load"); got != "BE" {
		t.Errorf("load phases = %q, want BE", got)
	}
	if got := phases(events, "cache_miss"); got != "i" {
		t.Errorf("cache_miss phases = %q, want i", got)
	}
	if got := phases(events, "outside"); got != "i" {
		t.Errorf("outside phases = %q, want i", got)
	}

	for _, ev := range events {
		if ev.Pid != 42 {
			t.Errorf("%s %s pid = %d, want 42", ev.Ph, ev.Name, ev.Pid)
		}
		switch {
		case ev.Name == "process_name":
			if ev.Args["name"] != "test" {
				t.Errorf("process_name args = %v", ev.Args)
			}
		case ev.Name == "thread_name":
			if ev.Tid != MainLane || ev.Args["name"] != "main" {
				t.Errorf("thread_name record = %+v", ev)
			}
		case ev.Name == "load" && ev.Ph == PhaseBegin:
			// full fidelity: the skip marker is kept locally
			if ev.Args[SkipExportKey] != true || ev.Args["height"] != float64(7) {
				t.Errorf("B args = %v", ev.Args)
			}
			if ev.Cat != CategorySpan {
				t.Errorf("B cat = %q", ev.Cat)
			}
		case ev.Name == "load" && ev.Ph == PhaseEnd:
			if ev.Args["ok"] != true {
				t.Errorf("E args = %v, want dynamic field ok", ev.Args)
			}
		case ev.Name == "cache_miss":
			if ev.Scope != "t" || ev.Args["key"] != "k1" {
				t.Errorf("instant record = %+v", ev)
			}
		}
	}

	var begin, end float64
	for _, ev := range events {
		if ev.Name == "load" && ev.Ph == PhaseBegin {
			begin = ev.Ts
		}
		if ev.Name == "load" && ev.Ph == PhaseEnd {
			end = ev.Ts
		}
	}
	if !(end > begin && begin > 0) {
		t.Errorf("timestamps begin=%v end=%v, want 0 < begin < end", begin, end)
	}
}

func TestChromeWriter_WithoutArgs(t *testing.T) {
	cw, buf, p := newTestChrome(t, ChromeOptions{IncludeArgs: false})

	_, span := p.Start(context.Background(), "quiet", attribute.Int("x", 1))
	span.End()
	_ = cw.Close()

	data, _ := buf.Drain()
	events, err := ReadChromeTrace(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadChromeTrace() error = %v", err)
	}
	for _, ev := range events {
		if ev.Name == "quiet" && len(ev.Args) != 0 {
			t.Errorf("args written with IncludeArgs=false: %v", ev.Args)
		}
	}
}

func TestChromeWriter_Compressed(t *testing.T) {
	cw, buf, p := newTestChrome(t, ChromeOptions{Compress: true})

	_, span := p.Start(context.Background(), "zipped")
	span.End()
	if err := cw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, _ := buf.Drain()
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		t.Fatalf("output is not gzip: % x", data[:min(len(data), 4)])
	}

	events, err := ReadChromeTrace(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadChromeTrace() error = %v", err)
	}
	if got := phases(events, "zipped"); got != "BE" {
		t.Errorf("zipped phases = %q, want BE", got)
	}
	if cw.BytesWritten() != int64(len(data)) {
		t.Errorf("BytesWritten() = %d, want %d", cw.BytesWritten(), len(data))
	}
}

func TestChromeWriter_CloseIsIdempotent(t *testing.T) {
	cw, buf, p := newTestChrome(t, ChromeOptions{})

	_, span := p.Start(context.Background(), "s")
	span.End()

	if err := cw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	records := cw.Records()
	if err := cw.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// records after close are ignored
	_, late := p.Start(context.Background(), "late")
	late.End()
	if cw.Records() != records {
		t.Errorf("Records() changed after Close(): %d -> %d", records, cw.Records())
	}

	if buf.Refs() != 1 {
		t.Errorf("Close() did not release the writer's handle: Refs() = %d", buf.Refs())
	}
}

func TestChromeWriter_LeaveOpen(t *testing.T) {
	cw, buf, _ := newTestChrome(t, ChromeOptions{LeaveOpen: true})

	if err := cw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if buf.Refs() != 2 {
		t.Errorf("Refs() = %d after Close(), want the destination left open", buf.Refs())
	}
	if _, err := buf.Write([]byte("more")); err != nil {
		t.Errorf("destination unusable after Close(): %v", err)
	}
}

func TestChromeWriter_Flush(t *testing.T) {
	cw, buf, p := newTestChrome(t, ChromeOptions{})

	_, span := p.Start(context.Background(), "flushed")
	span.End()

	if buf.Len() != 0 {
		t.Fatalf("records reached the destination before Flush(): %d bytes", buf.Len())
	}
	if err := cw.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	// a flushed but unclosed trace is still readable
	events, err := ReadChromeTrace(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadChromeTrace() on open trace error = %v", err)
	}
	if got := phases(events, "flushed"); got != "BE" {
		t.Errorf("flushed phases = %q, want BE", got)
	}
	_ = cw.Close()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestChromeWriter_WriteError(t *testing.T) {
	cw := NewChromeWriter(failingWriter{}, ChromeOptions{})
	p := NewPipeline([]Stage{cw})

	_, span := p.Start(context.Background(), "s")
	span.End()

	err := cw.Close()
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Close() error = %v, want disk full", err)
	}
}

func TestReadChromeTrace(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "complete", input: `[{"name":"a","ph":"B","ts":1,"pid":1,"tid":1},{"name":"a","ph":"E","ts":2,"pid":1,"tid":1}]`, want: 2},
		{name: "missing bracket", input: "[\n{\"name\":\"a\",\"ph\":\"B\",\"ts\":1,\"pid\":1,\"tid\":1},\n{\"name\":\"a\",\"ph\":\"E\",\"ts\":2,\"pid\":1,\"tid\":1}", want: 2},
		{name: "trailing comma", input: "[\n{\"name\":\"a\",\"ph\":\"B\",\"ts\":1,\"pid\":1,\"tid\":1},\n", want: 1},
		{name: "cut mid record", input: "[\n{\"name\":\"a\",\"ph\":\"B\",\"ts\":1,\"pid\":1,\"tid\":1},\n{\"name\":\"a\",\"ph", want: 1},
		{name: "empty", input: "  ", wantErr: true},
		{name: "not an array", input: `{"traceEvents":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := ReadChromeTrace(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadChromeTrace() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(events) != tt.want {
				t.Errorf("ReadChromeTrace() = %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestSummarizeChromeTrace(t *testing.T) {
	events := []ChromeEvent{
		{Name: "process_name", Ph: PhaseMetadata, Pid: 1, Args: map[string]any{"name": "svc"}},
		{Name: "outer", Ph: PhaseBegin, Ts: 0, Pid: 1, Tid: 1},
		{Name: "inner", Ph: PhaseBegin, Ts: 100, Pid: 1, Tid: 1},
		{Name: "tick", Ph: PhaseInstant, Ts: 150, Pid: 1, Tid: 1},
		{Name: "inner", Ph: PhaseEnd, Ts: 300, Pid: 1, Tid: 1},
		{Name: "inner", Ph: PhaseBegin, Ts: 50, Pid: 1, Tid: 2},
		{Name: "inner", Ph: PhaseEnd, Ts: 150, Pid: 1, Tid: 2},
		{Name: "outer", Ph: PhaseEnd, Ts: 1000, Pid: 1, Tid: 1},
		{Name: "dangling", Ph: PhaseBegin, Ts: 1200, Pid: 1, Tid: 2},
	}

	s := SummarizeChromeTrace(events)

	if s.ProcessName != "svc" {
		t.Errorf("ProcessName = %q, want svc", s.ProcessName)
	}
	if s.Lanes != 2 {
		t.Errorf("Lanes = %d, want 2", s.Lanes)
	}
	if s.Events != 1 {
		t.Errorf("Events = %d, want 1", s.Events)
	}
	if s.Unclosed != 1 {
		t.Errorf("Unclosed = %d, want 1", s.Unclosed)
	}
	if s.Duration != 1200*time.Microsecond {
		t.Errorf("Duration = %v, want 1.2ms", s.Duration)
	}
	if len(s.Spans) != 2 {
		t.Fatalf("Spans = %+v, want outer and inner", s.Spans)
	}

	outer, inner := s.Spans[0], s.Spans[1]
	if outer.Name != "outer" || outer.Count != 1 || outer.Total != time.Millisecond {
		t.Errorf("outer = %+v", outer)
	}
	if inner.Name != "inner" || inner.Count != 2 || inner.Total != 300*time.Microsecond || inner.Max != 200*time.Microsecond {
		t.Errorf("inner = %+v", inner)
	}
}
