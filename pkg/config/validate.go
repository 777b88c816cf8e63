package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "telemetry.tracing.export.endpoint").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// ValidateTracing validates only the tracing section. The span pipeline
// calls it before wiring any sink so that configuration errors surface
// before events are processed.
func ValidateTracing(cfg *TracingConfig) error {
	if errs := validateTracing("telemetry.tracing", cfg); len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	// Validate metrics prometheus path
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}
	if cfg.Metrics.Path != "" && cfg.Metrics.Path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}
	if cfg.Metrics.MaxSpanNames < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.max_span_names",
			Message: "max span names must be non-negative",
		})
	}

	errs = append(errs, validateTracing("telemetry.tracing", &cfg.Tracing)...)

	return errs
}

// validateTracing validates sink selection for the span pipeline.
func validateTracing(prefix string, cfg *TracingConfig) []FieldError {
	var errs []FieldError

	if cfg.ServiceName == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".service_name",
			Message: "service name is required",
		})
	}

	if cfg.Chrome.Compress && !cfg.Chrome.Enabled {
		errs = append(errs, FieldError{
			Field:   prefix + ".chrome.compress",
			Message: "compression requires the chrome sink to be enabled",
		})
	}

	if !cfg.Export.Enabled {
		return errs
	}

	validExporters := map[string]bool{"otlp": true, "otlphttp": true}
	if !validExporters[cfg.Export.Exporter] {
		errs = append(errs, FieldError{
			Field:   prefix + ".export.exporter",
			Message: fmt.Sprintf("unsupported exporter %q: must be 'otlp' or 'otlphttp'", cfg.Export.Exporter),
		})
	}

	if cfg.Export.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".export.endpoint",
			Message: "endpoint is required when export is enabled",
		})
	} else if strings.Contains(cfg.Export.Endpoint, "://") {
		// otlptracegrpc and otlptracehttp both take host:port, not URLs.
		if u, err := url.Parse(cfg.Export.Endpoint); err != nil || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".export.endpoint",
				Message: fmt.Sprintf("invalid endpoint %q", cfg.Export.Endpoint),
			})
		} else {
			errs = append(errs, FieldError{
				Field:   prefix + ".export.endpoint",
				Message: fmt.Sprintf("endpoint must be host:port, got URL %q (use %q)", cfg.Export.Endpoint, u.Host),
			})
		}
	}

	if cfg.Export.OTLP.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".export.otlp.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.Export.OTLP.Timeout > 5*time.Minute {
		errs = append(errs, FieldError{
			Field:   prefix + ".export.otlp.timeout",
			Message: "timeout exceeds reasonable limit (5m)",
		})
	}
	if cfg.Export.BatchTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".export.batch_timeout",
			Message: "batch timeout must be positive",
		})
	}
	if cfg.Export.MaxQueueSize < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".export.max_queue_size",
			Message: "max queue size must be non-negative",
		})
	}

	return errs
}
