package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "SPANFAN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Validate
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Logging.RedactPII = true

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SPANFAN_SECTION_FIELD (e.g., SPANFAN_TRACING_EXPORT_ENDPOINT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SPANFAN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Logging overrides
	if val := os.Getenv(EnvPrefix + "LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}

	// Metrics overrides
	if val := os.Getenv(EnvPrefix + "METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}

	// Tracing overrides
	tr := &cfg.Telemetry.Tracing
	if val := os.Getenv(EnvPrefix + "TRACING_SERVICE_NAME"); val != "" {
		tr.ServiceName = val
	}
	if val := os.Getenv(EnvPrefix + "TRACING_CHROME_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			tr.Chrome.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TRACING_CHROME_PATH"); val != "" {
		tr.Chrome.Path = val
	}
	if val := os.Getenv(EnvPrefix + "TRACING_CHROME_COMPRESS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			tr.Chrome.Compress = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TRACING_EXPORT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			tr.Export.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TRACING_EXPORT_EXPORTER"); val != "" {
		tr.Export.Exporter = val
	}
	if val := os.Getenv(EnvPrefix + "TRACING_EXPORT_ENDPOINT"); val != "" {
		tr.Export.Endpoint = val
	}
	if val := os.Getenv(EnvPrefix + "TRACING_EXPORT_INSECURE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			tr.Export.OTLP.Insecure = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TRACING_EXPORT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			tr.Export.OTLP.Timeout = d
		}
	}
}
