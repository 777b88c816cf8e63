package metrics

import (
	"time"

	"mercator-hq/spanfan/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink labels used on spans_opened_total.
const (
	SinkChrome = "chrome"
	SinkRemote = "remote"
)

// Drop reasons used on events_dropped_total.
const (
	DropSkippedSpan = "skipped_span"
	DropOutsideSpan = "outside_span"
	DropUnknownSpan = "unknown_span"
	DropStopped     = "stopped"
)

// OtherSpanName replaces span names beyond the cardinality limit.
const OtherSpanName = "other"

// Collector owns every Prometheus metric of the span pipeline.
//
// All Record methods are safe on a nil *Collector and when metrics are
// disabled, so pipeline stages can call them unconditionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	sinkMetrics   *SinkMetrics
	exportMetrics *ExportMetrics
	spanMetrics   *SpanMetrics

	// span names are user controlled; cap the label set
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a private registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "spanfan",
//		Subsystem: "pipeline",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNS
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSub
	}
	if len(cfg.SpanDurationBuckets) == 0 {
		cfg.SpanDurationBuckets = append([]float64(nil), config.DefaultSpanDurationBuckets...)
	}
	if cfg.MaxSpanNames <= 0 {
		cfg.MaxSpanNames = config.DefaultMaxSpanNames
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		sinkMetrics:        NewSinkMetrics(cfg, registry),
		exportMetrics:      NewExportMetrics(cfg, registry),
		spanMetrics:        NewSpanMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxSpanNames),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordSpanOpened records a span accepted by a sink.
//
// Parameters:
//   - sink: SinkChrome or SinkRemote
func (c *Collector) RecordSpanOpened(sink string) {
	if !c.enabled() {
		return
	}

	c.sinkMetrics.RecordSpanOpened(sink)
}

// RecordSpanForwarded records a span handed to the remote exporter.
func (c *Collector) RecordSpanForwarded() {
	if !c.enabled() {
		return
	}

	c.exportMetrics.RecordForwarded()
}

// RecordSpanSkipped records a span withheld from the remote sink because it
// carries the skip flag.
func (c *Collector) RecordSpanSkipped() {
	if !c.enabled() {
		return
	}

	c.exportMetrics.RecordSkipped()
}

// RecordEventDropped records an event the remote sink did not forward.
//
// Parameters:
//   - reason: one of the Drop* constants
func (c *Collector) RecordEventDropped(reason string) {
	if !c.enabled() {
		return
	}

	c.sinkMetrics.RecordEventDropped(reason)
}

// RecordExportFailure records a failed export batch of n spans.
func (c *Collector) RecordExportFailure(spans int) {
	if !c.enabled() {
		return
	}

	c.exportMetrics.RecordFailure(spans)
}

// AddTraceBytes records bytes written to the Chrome trace destination.
func (c *Collector) AddTraceBytes(n int) {
	if !c.enabled() || n <= 0 {
		return
	}

	c.sinkMetrics.AddTraceBytes(n)
}

// ObserveSpanDuration records the duration of a closed span. Names past the
// cardinality limit are folded into OtherSpanName.
//
// Example:
//
//	collector.ObserveSpanDuration("load_block", 12*time.Millisecond)
func (c *Collector) ObserveSpanDuration(name string, duration time.Duration) {
	if !c.enabled() {
		return
	}

	if !c.cardinalityLimiter.Allow(name) {
		name = OtherSpanName
	}

	c.spanMetrics.ObserveDuration(name, duration)
}

// SetOpenSpans updates the number of spans currently open in the pipeline.
func (c *Collector) SetOpenSpans(n int) {
	if !c.enabled() {
		return
	}

	c.spanMetrics.SetOpen(n)
}

// SetGuardActive records whether a lifecycle guard is installed.
func (c *Collector) SetGuardActive(active bool) {
	if !c.enabled() {
		return
	}

	c.sinkMetrics.SetGuardActive(active)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
