package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"mercator-hq/spanfan/pkg/config"
	"mercator-hq/spanfan/pkg/telemetry/logging"
	"mercator-hq/spanfan/pkg/telemetry/metrics"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrGuardActive is returned by Init while the scope already has a
	// live guard.
	ErrGuardActive = errors.New("span pipeline already initialized")

	// ErrNoSinks is returned when neither sink is enabled.
	ErrNoSinks = errors.New("no sink enabled: enable the chrome trace or remote export")

	// ErrConflictingDestination is returned when a Chrome writer is passed
	// as an option while the configuration also names a trace file.
	ErrConflictingDestination = errors.New("chrome destination given both as writer and as path")
)

// DefaultServiceVersion is reported when WithServiceVersion is not used.
const DefaultServiceVersion = "dev"

// Scope holds at most one active Guard. Tests create their own scope with
// NewScope so they can run in parallel.
type Scope struct {
	mu     sync.Mutex
	active *Guard
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// DefaultScope is the process-wide scope used by Init.
var DefaultScope = NewScope()

// Init installs a pipeline on DefaultScope.
func Init(cfg *config.TracingConfig, opts ...Option) (*Guard, error) {
	return DefaultScope.Init(cfg, opts...)
}

// Active returns the scope's live guard, or nil.
func (sc *Scope) Active() *Guard {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.active
}

// Option configures Init.
type Option func(*options)

type options struct {
	chromeWriter   io.Writer
	chromeBorrowed bool
	exporter       sdktrace.SpanExporter
	logger         *logging.Logger
	metrics        *metrics.Collector
	redactor       *logging.Redactor
	serviceVersion string
}

// WithChromeWriter writes the Chrome trace to w instead of a file. The
// guard owns w: Guard.Close closes it if it is an io.Closer. Use
// WithChromeStream for writers the caller keeps, such as os.Stdout.
func WithChromeWriter(w io.Writer) Option {
	return func(o *options) {
		o.chromeWriter = w
		o.chromeBorrowed = false
	}
}

// WithChromeStream writes the Chrome trace to w and leaves w open when the
// guard closes.
func WithChromeStream(w io.Writer) Option {
	return func(o *options) {
		o.chromeWriter = w
		o.chromeBorrowed = true
	}
}

// WithSpanExporter forwards to exporter instead of the configured network
// exporter. Remote export is enabled even if the configuration disables it.
func WithSpanExporter(exporter sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = exporter
	}
}

// WithLogger sets the logger for lifecycle and failure messages.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records pipeline metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithRedactor scrubs forwarded string fields with r.
func WithRedactor(r *logging.Redactor) Option {
	return func(o *options) {
		o.redactor = r
	}
}

// WithServiceVersion sets service.version on the remote resource.
func WithServiceVersion(version string) Option {
	return func(o *options) {
		o.serviceVersion = version
	}
}

// Guard owns an installed pipeline and its sinks. Close tears everything
// down in order.
type Guard struct {
	scope    *Scope
	pipeline *Pipeline
	chrome   *ChromeWriter
	exporter *failureCountingExporter
	provider *sdktrace.TracerProvider
	logger   *logging.Logger
	metrics  *metrics.Collector

	once sync.Once
	err  error
}

// Init validates cfg, builds the enabled sinks and installs a new pipeline
// on the scope. Configuration errors are returned before any sink is
// created.
//
//	guard, err := tracing.Init(&cfg.Telemetry.Tracing, tracing.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer guard.Close(context.Background())
//
//	ctx, span := guard.Pipeline().Start(ctx, "work")
func (sc *Scope) Init(cfg *config.TracingConfig, opts ...Option) (*Guard, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	o := options{serviceVersion: DefaultServiceVersion}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}

	c := *cfg
	config.ApplyTracingDefaults(&c)

	chromeOn := c.Chrome.Enabled || o.chromeWriter != nil
	exportOn := c.Export.Enabled || o.exporter != nil

	// An injected exporter replaces the network settings entirely.
	validate := c
	if o.exporter != nil {
		validate.Export.Enabled = false
	}
	if o.chromeWriter != nil {
		validate.Chrome.Enabled = true
	}
	if err := config.ValidateTracing(&validate); err != nil {
		return nil, err
	}
	if o.chromeWriter != nil && c.Chrome.Path != "" {
		return nil, ErrConflictingDestination
	}
	if c.Chrome.Enabled && o.chromeWriter == nil && c.Chrome.Path == "" {
		return nil, config.ValidationError{Errors: []config.FieldError{{
			Field:   "telemetry.tracing.chrome.path",
			Message: "path is required when the chrome sink is enabled",
		}}}
	}
	if !chromeOn && !exportOn {
		return nil, ErrNoSinks
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.active != nil {
		return nil, ErrGuardActive
	}

	g := &Guard{
		scope:   sc,
		logger:  o.logger.With("component", "tracing"),
		metrics: o.metrics,
	}

	var stages []Stage

	if chromeOn {
		dst := o.chromeWriter
		if dst == nil {
			f, err := createTraceFile(c.Chrome.Path)
			if err != nil {
				return nil, err
			}
			dst = f
		}
		g.chrome = NewChromeWriter(dst, ChromeOptions{
			ProcessName: c.ServiceName,
			IncludeArgs: c.Chrome.ArgsIncluded(),
			Compress:    c.Chrome.Compress,
			LeaveOpen:   o.chromeBorrowed,
			Metrics:     o.metrics,
			Logger:      g.logger,
		})
		stages = append(stages, g.chrome)
	}

	if exportOn {
		forwarder, err := g.buildForwarder(&c, &o)
		if err != nil {
			if g.chrome != nil {
				_ = g.chrome.Close()
			}
			return nil, err
		}
		stages = append(stages, forwarder)
	}

	g.pipeline = NewPipeline(stages, WithPipelineMetrics(o.metrics))
	sc.active = g
	o.metrics.SetGuardActive(true)

	g.logger.Info("span pipeline installed",
		"chrome", chromeOn,
		"chrome_path", c.Chrome.Path,
		"export", exportOn,
		"exporter", c.Export.Exporter,
	)

	return g, nil
}

func (g *Guard) buildForwarder(c *config.TracingConfig, o *options) (*Forwarder, error) {
	ctx := context.Background()

	exporter := o.exporter
	if exporter == nil {
		var err error
		exporter, err = newExporter(ctx, &c.Export)
		if err != nil {
			return nil, err
		}
	}

	res, err := newResource(ctx, c.ServiceName, o.serviceVersion)
	if err != nil {
		return nil, err
	}

	g.exporter = &failureCountingExporter{SpanExporter: exporter, logger: g.logger, metrics: o.metrics}
	g.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(
			g.exporter,
			sdktrace.WithBatchTimeout(c.Export.BatchTimeout),
			sdktrace.WithMaxQueueSize(c.Export.MaxQueueSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	redactor := o.redactor
	if redactor == nil && c.Export.RedactPII {
		redactor = logging.NewRedactor(nil)
	}

	return NewForwarder(g.provider.Tracer(instrumentationName), ForwarderOptions{
		Redactor: redactor,
		Logger:   g.logger,
		Metrics:  o.metrics,
	}), nil
}

// Pipeline returns the installed pipeline.
func (g *Guard) Pipeline() *Pipeline {
	return g.pipeline
}

// ChromeErr returns the Chrome sink's first write error, or nil when the
// sink is healthy or disabled.
func (g *Guard) ChromeErr() error {
	if g.chrome == nil {
		return nil
	}
	return g.chrome.Err()
}

// ExportErr returns the error of the latest remote export, or nil when it
// succeeded or export is disabled.
func (g *Guard) ExportErr() error {
	if g.exporter == nil {
		return nil
	}
	return g.exporter.Err()
}

// Close stops the pipeline, closes the Chrome trace, shuts down the tracer
// provider (flushing queued spans and closing the exporter) and releases
// the scope. Only the first call does work; later calls return its result.
func (g *Guard) Close(ctx context.Context) error {
	g.once.Do(func() {
		g.pipeline.Stop()

		var errs []error
		if g.chrome != nil {
			if err := g.chrome.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if g.provider != nil {
			if err := g.provider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
			}
		}

		g.scope.mu.Lock()
		if g.scope.active == g {
			g.scope.active = nil
		}
		g.scope.mu.Unlock()

		g.metrics.SetGuardActive(false)
		g.err = errors.Join(errs...)

		if g.err != nil {
			g.logger.Warn("span pipeline released with errors", "error", g.err)
			return
		}
		g.logger.Info("span pipeline released", "open_spans", g.pipeline.OpenSpans())
	})
	return g.err
}

func createTraceFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	return f, nil
}
