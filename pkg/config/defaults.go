package config

import "time"

// Default values for configuration fields.
const (
	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultPrometheusPath = "/metrics"
	DefaultMetricsNS      = "spanfan"
	DefaultMetricsSub     = "pipeline"
	DefaultMaxSpanNames   = 1000

	// Tracing defaults
	DefaultServiceName       = "spanfan"
	DefaultChromeIncludeArgs = true
	DefaultExporter          = "otlp"
	DefaultOTLPTimeout       = 10 * time.Second
	DefaultBatchTimeout      = 5 * time.Second
	DefaultMaxQueueSize      = 2048
)

// DefaultSpanDurationBuckets are the span duration histogram buckets in seconds.
var DefaultSpanDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Telemetry.Logging)
	applyMetricsDefaults(&cfg.Telemetry.Metrics)
	ApplyTracingDefaults(&cfg.Telemetry.Tracing)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = DefaultLoggingLevel
	}
	if cfg.Format == "" {
		cfg.Format = DefaultLoggingFormat
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Path == "" {
		cfg.Path = DefaultPrometheusPath
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultMetricsNS
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = DefaultMetricsSub
	}
	if len(cfg.SpanDurationBuckets) == 0 {
		cfg.SpanDurationBuckets = append([]float64(nil), DefaultSpanDurationBuckets...)
	}
	if cfg.MaxSpanNames == 0 {
		cfg.MaxSpanNames = DefaultMaxSpanNames
	}
}

// ApplyTracingDefaults fills zero-valued tracing fields. It is exported so
// callers building a TracingConfig by hand get the same defaults as a
// loaded file.
func ApplyTracingDefaults(cfg *TracingConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Export.Exporter == "" {
		cfg.Export.Exporter = DefaultExporter
	}
	if cfg.Export.OTLP.Timeout == 0 {
		cfg.Export.OTLP.Timeout = DefaultOTLPTimeout
	}
	if cfg.Export.BatchTimeout == 0 {
		cfg.Export.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.Export.MaxQueueSize == 0 {
		cfg.Export.MaxQueueSize = DefaultMaxQueueSize
	}
}

// NewDefaultConfig returns a configuration with every default applied and
// both sinks disabled.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Logging.RedactPII = true
	ApplyDefaults(cfg)
	return cfg
}
