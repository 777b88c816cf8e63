package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: *NewDefaultConfig()}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithChrome enables the local trace sink.
func (b *ConfigBuilder) WithChrome(path string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Chrome.Enabled = true
	b.cfg.Telemetry.Tracing.Chrome.Path = path
	return b
}

// WithExport enables the remote sink.
func (b *ConfigBuilder) WithExport(exporter, endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Export.Enabled = true
	b.cfg.Telemetry.Tracing.Export.Exporter = exporter
	b.cfg.Telemetry.Tracing.Export.Endpoint = endpoint
	return b
}

// WithExportTimeout sets the OTLP export timeout.
func (b *ConfigBuilder) WithExportTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Export.OTLP.Timeout = d
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// MinimalConfig returns a valid configuration with no sinks enabled.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
