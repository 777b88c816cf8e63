package metrics

import (
	"time"

	"mercator-hq/spanfan/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SpanMetrics tracks span lifetimes.
type SpanMetrics struct {
	duration  *prometheus.HistogramVec
	openSpans prometheus.Gauge
}

// NewSpanMetrics creates and registers span metrics with the provided registry.
func NewSpanMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SpanMetrics {
	sm := &SpanMetrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "span_duration_seconds",
				Help:      "Duration of closed spans in seconds",
				Buckets:   cfg.SpanDurationBuckets,
			},
			[]string{"name"},
		),
		openSpans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "open_spans",
				Help:      "Number of spans opened and not yet closed",
			},
		),
	}

	registry.MustRegister(sm.duration, sm.openSpans)

	return sm
}

// ObserveDuration records a closed span's duration.
func (sm *SpanMetrics) ObserveDuration(name string, d time.Duration) {
	sm.duration.WithLabelValues(name).Observe(d.Seconds())
}

// SetOpen sets the open span gauge.
func (sm *SpanMetrics) SetOpen(n int) {
	sm.openSpans.Set(float64(n))
}
