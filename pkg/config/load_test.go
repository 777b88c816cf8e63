package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "spanfan.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
telemetry:
  logging:
    level: "debug"
    format: "text"
  tracing:
    service_name: "indexer"
    chrome:
      enabled: true
      path: "./trace.json"
      include_args: false
    export:
      enabled: true
      exporter: "otlphttp"
      endpoint: "collector:4318"
      headers:
        x-team: "storage"
      otlp:
        insecure: true
        timeout: "3s"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	tr := cfg.Telemetry.Tracing
	if tr.ServiceName != "indexer" {
		t.Errorf("expected service name %q, got %q", "indexer", tr.ServiceName)
	}
	if !tr.Chrome.Enabled || tr.Chrome.Path != "./trace.json" {
		t.Errorf("unexpected chrome config: %+v", tr.Chrome)
	}
	if tr.Chrome.ArgsIncluded() {
		t.Error("expected include_args false to be honored")
	}
	if tr.Export.Exporter != "otlphttp" {
		t.Errorf("expected exporter %q, got %q", "otlphttp", tr.Export.Exporter)
	}
	if tr.Export.OTLP.Timeout != 3*time.Second {
		t.Errorf("expected timeout %v, got %v", 3*time.Second, tr.Export.OTLP.Timeout)
	}
	if !tr.Export.OTLP.Insecure {
		t.Error("expected insecure to be true")
	}
	if tr.Export.Headers["x-team"] != "storage" {
		t.Errorf("expected header x-team=storage, got %v", tr.Export.Headers)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, "telemetry: {}\n")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telemetry.Tracing.ServiceName != DefaultServiceName {
		t.Errorf("expected default service name, got %q", cfg.Telemetry.Tracing.ServiceName)
	}
	if cfg.Telemetry.Tracing.Export.Exporter != DefaultExporter {
		t.Errorf("expected default exporter, got %q", cfg.Telemetry.Tracing.Export.Exporter)
	}
	if !cfg.Telemetry.Tracing.Chrome.ArgsIncluded() {
		t.Error("expected include_args to default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to default to enabled")
	}
	if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNS {
		t.Errorf("expected namespace %q, got %q", DefaultMetricsNS, cfg.Telemetry.Metrics.Namespace)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "telemetry: [unclosed\n")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
telemetry:
  tracing:
    export:
      enabled: true
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError in chain, got %T", err)
	}
	if verr.Errors[0].Field != "telemetry.tracing.export.endpoint" {
		t.Errorf("unexpected field: %s", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
telemetry:
  tracing:
    chrome:
      enabled: true
      path: "./file.json"
`)

	t.Setenv("SPANFAN_TRACING_CHROME_PATH", "/tmp/env.json")
	t.Setenv("SPANFAN_TRACING_EXPORT_ENABLED", "true")
	t.Setenv("SPANFAN_TRACING_EXPORT_ENDPOINT", "otel:4317")
	t.Setenv("SPANFAN_TRACING_EXPORT_TIMEOUT", "2s")
	t.Setenv("SPANFAN_LOGGING_LEVEL", "warn")
	t.Setenv("SPANFAN_METRICS_ENABLED", "not-a-bool")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	tr := cfg.Telemetry.Tracing
	if tr.Chrome.Path != "/tmp/env.json" {
		t.Errorf("expected env chrome path, got %q", tr.Chrome.Path)
	}
	if !tr.Export.Enabled || tr.Export.Endpoint != "otel:4317" {
		t.Errorf("expected export override, got %+v", tr.Export)
	}
	if tr.Export.OTLP.Timeout != 2*time.Second {
		t.Errorf("expected timeout 2s, got %v", tr.Export.OTLP.Timeout)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("unparseable bool override should be ignored")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidAfterOverride(t *testing.T) {
	configPath := writeConfig(t, "telemetry: {}\n")
	t.Setenv("SPANFAN_TRACING_EXPORT_ENABLED", "true")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after overrides")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("unexpected error: %v", err)
	}
}
