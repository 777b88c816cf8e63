// Package metrics provides Prometheus metrics for the span pipeline.
//
// # Overview
//
// The collector tracks both sinks of the pipeline: how many spans each sink
// accepted, how many spans the skip flag withheld from the remote backend,
// events the remote sink dropped, export failures, bytes written to the
// Chrome trace, and span durations.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	guard, err := tracing.Init(&cfg.Telemetry.Tracing,
//		tracing.WithMetrics(collector),
//	)
//
//	mux.Handle("/metrics", collector.Handler())
//
// # Metrics
//
//	spanfan_pipeline_spans_opened_total{sink="chrome"|"remote"}
//	spanfan_pipeline_spans_forwarded_total
//	spanfan_pipeline_spans_skipped_total
//	spanfan_pipeline_events_dropped_total{reason}
//	spanfan_pipeline_export_failures_total
//	spanfan_pipeline_export_failed_spans_total
//	spanfan_pipeline_trace_bytes_written_total
//	spanfan_pipeline_span_duration_seconds{name}
//	spanfan_pipeline_open_spans
//	spanfan_pipeline_guard_active
//
// # Cardinality Management
//
// Span names are chosen by application code. The collector admits at most
// MetricsConfig.MaxSpanNames distinct names on span_duration_seconds and
// folds the rest into name="other".
package metrics
