package metrics

import (
	"mercator-hq/spanfan/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SinkMetrics tracks what each sink accepted and what it dropped.
//
// Metrics:
//   - spanfan_pipeline_spans_opened_total: spans accepted, by sink
//   - spanfan_pipeline_events_dropped_total: events not forwarded, by reason
//   - spanfan_pipeline_trace_bytes_written_total: bytes written to the Chrome trace
//   - spanfan_pipeline_guard_active: 1 while a lifecycle guard is installed
type SinkMetrics struct {
	spansOpened       *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	traceBytesWritten prometheus.Counter
	guardActive       prometheus.Gauge
}

// NewSinkMetrics creates and registers sink metrics with the provided registry.
func NewSinkMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SinkMetrics {
	sm := &SinkMetrics{
		spansOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "spans_opened_total",
				Help:      "Total number of spans accepted by a sink",
			},
			[]string{"sink"},
		),

		eventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_dropped_total",
				Help:      "Total number of events not forwarded to the remote sink",
			},
			[]string{"reason"},
		),

		traceBytesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "trace_bytes_written_total",
				Help:      "Total bytes written to the Chrome trace destination",
			},
		),

		guardActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guard_active",
				Help:      "Whether a pipeline lifecycle guard is installed (1=active, 0=released)",
			},
		),
	}

	registry.MustRegister(
		sm.spansOpened,
		sm.eventsDropped,
		sm.traceBytesWritten,
		sm.guardActive,
	)

	return sm
}

// RecordSpanOpened increments the opened counter for a sink.
func (sm *SinkMetrics) RecordSpanOpened(sink string) {
	sm.spansOpened.WithLabelValues(sink).Inc()
}

// RecordEventDropped increments the dropped counter for a reason.
func (sm *SinkMetrics) RecordEventDropped(reason string) {
	sm.eventsDropped.WithLabelValues(reason).Inc()
}

// AddTraceBytes adds n to the written bytes counter.
func (sm *SinkMetrics) AddTraceBytes(n int) {
	sm.traceBytesWritten.Add(float64(n))
}

// SetGuardActive sets the guard gauge.
func (sm *SinkMetrics) SetGuardActive(active bool) {
	if active {
		sm.guardActive.Set(1)
		return
	}
	sm.guardActive.Set(0)
}
