package metrics

import (
	"mercator-hq/spanfan/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExportMetrics tracks the remote forwarding path.
//
// Metrics:
//   - spanfan_pipeline_spans_forwarded_total: spans handed to the exporter
//   - spanfan_pipeline_spans_skipped_total: spans withheld by the skip flag
//   - spanfan_pipeline_export_failures_total: failed export batches
//   - spanfan_pipeline_export_failed_spans_total: spans lost in failed batches
type ExportMetrics struct {
	spansForwarded    prometheus.Counter
	spansSkipped      prometheus.Counter
	exportFailures    prometheus.Counter
	exportFailedSpans prometheus.Counter
}

// NewExportMetrics creates and registers export metrics with the provided registry.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		spansForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "spans_forwarded_total",
			Help:      "Total number of spans forwarded to the remote backend",
		}),
		spansSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "spans_skipped_total",
			Help:      "Total number of spans withheld from the remote backend by the skip flag",
		}),
		exportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "export_failures_total",
			Help:      "Total number of failed export batches",
		}),
		exportFailedSpans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "export_failed_spans_total",
			Help:      "Total number of spans contained in failed export batches",
		}),
	}

	registry.MustRegister(
		em.spansForwarded,
		em.spansSkipped,
		em.exportFailures,
		em.exportFailedSpans,
	)

	return em
}

// RecordForwarded increments the forwarded counter.
func (em *ExportMetrics) RecordForwarded() {
	em.spansForwarded.Inc()
}

// RecordSkipped increments the skipped counter.
func (em *ExportMetrics) RecordSkipped() {
	em.spansSkipped.Inc()
}

// RecordFailure records one failed batch containing spans spans.
func (em *ExportMetrics) RecordFailure(spans int) {
	em.exportFailures.Inc()
	if spans > 0 {
		em.exportFailedSpans.Add(float64(spans))
	}
}
