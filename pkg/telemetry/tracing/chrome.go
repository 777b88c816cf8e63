package tracing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/spanfan/pkg/telemetry/logging"
	"mercator-hq/spanfan/pkg/telemetry/metrics"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/attribute"
)

// Chrome trace event phases.
const (
	PhaseBegin    = "B"
	PhaseEnd      = "E"
	PhaseInstant  = "i"
	PhaseMetadata = "M"
)

// Categories written on span and event records.
const (
	CategorySpan  = "span"
	CategoryEvent = "event"
)

// ChromeEvent is one record of the Chrome "trace event" format. Ts is in
// microseconds since the writer started.
type ChromeEvent struct {
	Name  string         `json:"name"`
	Cat   string         `json:"cat,omitempty"`
	Ph    string         `json:"ph"`
	Ts    float64        `json:"ts"`
	Pid   int            `json:"pid"`
	Tid   uint64         `json:"tid"`
	Scope string         `json:"s,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

// ChromeOptions configures a ChromeWriter.
type ChromeOptions struct {
	// ProcessName names the process track. Defaults to the executable name.
	ProcessName string

	// PID is written on every record. Defaults to os.Getpid().
	PID int

	// IncludeArgs writes span and event fields into args.
	IncludeArgs bool

	// Compress gzips the output.
	Compress bool

	// LeaveOpen keeps Close from closing the destination, e.g. os.Stdout.
	LeaveOpen bool

	// Origin is time zero of the trace. Defaults to time.Now().
	Origin time.Time

	Metrics *metrics.Collector
	Logger  *logging.Logger
}

// ChromeWriter is the full-fidelity sink: it writes every span and event,
// whatever its skip flag, as a JSON array loadable by chrome://tracing and
// Perfetto.
type ChromeWriter struct {
	mu      sync.Mutex
	out     *bufio.Writer
	gz      *gzip.Writer
	counter *countingWriter
	closer  io.Closer
	opts    ChromeOptions
	lanes   map[uint64]struct{}
	records int
	closed  bool
	err     error
}

// NewChromeWriter starts a trace on w. If w is an io.Closer it is closed by
// Close unless opts.LeaveOpen is set.
func NewChromeWriter(w io.Writer, opts ChromeOptions) *ChromeWriter {
	if opts.PID == 0 {
		opts.PID = os.Getpid()
	}
	if opts.ProcessName == "" {
		opts.ProcessName = filepath.Base(os.Args[0])
	}
	if opts.Origin.IsZero() {
		opts.Origin = time.Now()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	cw := &ChromeWriter{
		counter: &countingWriter{w: w, metrics: opts.Metrics},
		opts:    opts,
		lanes:   make(map[uint64]struct{}),
	}
	if c, ok := w.(io.Closer); ok && !opts.LeaveOpen {
		cw.closer = c
	}

	var dst io.Writer = cw.counter
	if opts.Compress {
		cw.gz = gzip.NewWriter(cw.counter)
		dst = cw.gz
	}
	cw.out = bufio.NewWriterSize(dst, 64<<10)

	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.writeRaw([]byte("[\n"))
	cw.writeRecord(ChromeEvent{
		Name: "process_name",
		Ph:   PhaseMetadata,
		Pid:  opts.PID,
		Args: map[string]any{"name": opts.ProcessName},
	})

	return cw
}

// OnOpen writes a "B" record with the span's creation fields.
func (cw *ChromeWriter) OnOpen(span *Span) {
	cw.write(span.Lane(), ChromeEvent{
		Name: span.Name(),
		Cat:  CategorySpan,
		Ph:   PhaseBegin,
		Ts:   cw.ts(span.StartTime()),
		Args: cw.args(span.Fields()),
	})
}

// OnRecord is a no-op: dynamic fields are written on the "E" record.
func (cw *ChromeWriter) OnRecord(*Span, []attribute.KeyValue) {}

// OnEvent writes a thread-scoped "i" record.
func (cw *ChromeWriter) OnEvent(ev Event) {
	cw.write(ev.Lane, ChromeEvent{
		Name:  ev.Name,
		Cat:   CategoryEvent,
		Ph:    PhaseInstant,
		Ts:    cw.ts(ev.Time),
		Scope: "t",
		Args:  cw.args(ev.Fields),
	})
}

// OnClose writes an "E" record with the fields added since the span opened.
func (cw *ChromeWriter) OnClose(span *Span) {
	cw.write(span.Lane(), ChromeEvent{
		Name: span.Name(),
		Cat:  CategorySpan,
		Ph:   PhaseEnd,
		Ts:   cw.ts(span.EndTime()),
		Args: cw.args(span.DynamicFields()),
	})
}

// Flush pushes buffered records to the destination. The array stays open.
func (cw *ChromeWriter) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return cw.err
	}
	if err := cw.out.Flush(); err != nil {
		return fmt.Errorf("flush chrome trace: %w", err)
	}
	if cw.gz != nil {
		if err := cw.gz.Flush(); err != nil {
			return fmt.Errorf("flush chrome trace: %w", err)
		}
	}
	return nil
}

// Close terminates the array, flushes, and closes the destination. Later
// calls return the first call's result and records are ignored.
func (cw *ChromeWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return cw.err
	}
	cw.closed = true

	var errs []error
	if cw.err != nil {
		errs = append(errs, cw.err)
	}
	if _, err := cw.out.WriteString("\n]\n"); err != nil {
		errs = append(errs, err)
	}
	if err := cw.out.Flush(); err != nil {
		errs = append(errs, err)
	}
	if cw.gz != nil {
		if err := cw.gz.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if cw.closer != nil {
		if err := cw.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		cw.err = fmt.Errorf("close chrome trace: %w", err)
	}
	return cw.err
}

// Err returns the first write error. Records after a failed write are
// still attempted but the trace is likely corrupt.
func (cw *ChromeWriter) Err() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.err
}

// Records returns the number of records written, metadata included.
func (cw *ChromeWriter) Records() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.records
}

// BytesWritten returns the bytes that reached the destination.
func (cw *ChromeWriter) BytesWritten() int64 {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.counter.n
}

func (cw *ChromeWriter) write(lane uint64, ev ChromeEvent) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return
	}

	if _, seen := cw.lanes[lane]; !seen {
		cw.lanes[lane] = struct{}{}
		cw.writeRecord(ChromeEvent{
			Name: "thread_name",
			Ph:   PhaseMetadata,
			Pid:  cw.opts.PID,
			Tid:  lane,
			Args: map[string]any{"name": LaneName(lane)},
		})
	}

	ev.Pid = cw.opts.PID
	ev.Tid = lane
	cw.writeRecord(ev)
	if ev.Ph == PhaseBegin {
		cw.opts.Metrics.RecordSpanOpened(metrics.SinkChrome)
	}
}

// writeRecord must be called with cw.mu held.
func (cw *ChromeWriter) writeRecord(ev ChromeEvent) {
	data, err := sonic.ConfigStd.Marshal(ev)
	if err != nil {
		cw.fail(fmt.Errorf("encode %s record %q: %w", ev.Ph, ev.Name, err))
		return
	}
	if cw.records > 0 {
		cw.writeRaw([]byte(",\n"))
	}
	cw.writeRaw(data)
	cw.records++
}

func (cw *ChromeWriter) writeRaw(p []byte) {
	if _, err := cw.out.Write(p); err != nil {
		cw.fail(err)
	}
}

func (cw *ChromeWriter) fail(err error) {
	if cw.err != nil {
		return
	}
	cw.err = err
	cw.opts.Logger.Warn("chrome trace write failed", "error", err)
}

func (cw *ChromeWriter) ts(t time.Time) float64 {
	d := t.Sub(cw.opts.Origin)
	if d < 0 {
		return 0
	}
	return float64(d.Nanoseconds()) / 1e3
}

func (cw *ChromeWriter) args(fields []attribute.KeyValue) map[string]any {
	if !cw.opts.IncludeArgs {
		return nil
	}
	return fieldMap(fields)
}

// LaneName is the thread name written for a lane.
func LaneName(lane uint64) string {
	if lane == MainLane {
		return "main"
	}
	return fmt.Sprintf("lane-%d", lane)
}

type countingWriter struct {
	w       io.Writer
	n       int64
	metrics *metrics.Collector
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.metrics.AddTraceBytes(n)
	return n, err
}
