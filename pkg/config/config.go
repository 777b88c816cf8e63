package config

import "time"

// Config is the root configuration structure for spanfan.
// It only carries the telemetry section; sink selection for the span
// pipeline lives under telemetry.tracing.
type Config struct {
	// Telemetry contains configuration for logging, metrics, and the
	// dual-sink span pipeline.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains span pipeline configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	// Each pattern has a name, regex, and replacement string.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "spanfan"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "pipeline"
	Subsystem string `yaml:"subsystem"`

	// SpanDurationBuckets defines histogram buckets for span durations (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30]
	SpanDurationBuckets []float64 `yaml:"span_duration_buckets"`

	// MaxSpanNames caps the number of distinct span names used as a
	// metric label. Names beyond the cap are aggregated into "other".
	// Default: 1000
	MaxSpanNames int `yaml:"max_span_names"`
}

// TracingConfig selects which sinks of the span pipeline are active.
type TracingConfig struct {
	// ServiceName is the service name reported to the remote backend and
	// written as the process name of the local trace.
	// Default: "spanfan"
	ServiceName string `yaml:"service_name"`

	// Chrome configures the local full-fidelity trace file.
	Chrome ChromeConfig `yaml:"chrome"`

	// Export configures the filtered remote export.
	Export ExportConfig `yaml:"export"`
}

// ChromeConfig configures the local Chrome trace sink.
type ChromeConfig struct {
	// Enabled controls whether the local trace file is written.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the trace file destination. It may be left empty when the
	// destination writer is supplied programmatically.
	// Example: "./trace-1700000000.json"
	Path string `yaml:"path"`

	// IncludeArgs writes span and event fields into the args object.
	// Default: true
	IncludeArgs *bool `yaml:"include_args"`

	// Compress gzips the trace file.
	// Default: false
	Compress bool `yaml:"compress"`
}

// ExportConfig configures the filtered remote exporter.
type ExportConfig struct {
	// Enabled controls whether non-skipped spans are forwarded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Exporter determines the transport to the backend.
	// Options: "otlp" (gRPC), "otlphttp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector endpoint.
	// Example: "localhost:4317" (otlp), "localhost:4318" (otlphttp)
	Endpoint string `yaml:"endpoint"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// RedactPII scrubs PII from string attributes before they leave the process.
	// Default: false
	RedactPII bool `yaml:"redact_pii"`

	// BatchTimeout is the maximum delay before a batch of spans is exported.
	// Default: 5s
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// MaxQueueSize is the number of finished spans buffered before new
	// spans are dropped.
	// Default: 2048
	MaxQueueSize int `yaml:"max_queue_size"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// ArgsIncluded reports whether span fields are written into the local
// trace, honoring the default when unset.
func (c ChromeConfig) ArgsIncluded() bool {
	if c.IncludeArgs == nil {
		return DefaultChromeIncludeArgs
	}
	return *c.IncludeArgs
}
