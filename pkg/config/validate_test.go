package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := MinimalConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	if len(validationErr.Errors) < 2 {
		t.Errorf("expected multiple errors, got %d", len(validationErr.Errors))
	}

	if !strings.Contains(validationErr.Error(), "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
}

func TestValidate_Tracing(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*TracingConfig)
		wantError  bool
		errorField string
	}{
		{
			name:      "no sinks",
			modify:    func(*TracingConfig) {},
			wantError: false,
		},
		{
			name: "chrome only",
			modify: func(c *TracingConfig) {
				c.Chrome.Enabled = true
				c.Chrome.Path = "trace.json"
			},
			wantError: false,
		},
		{
			name: "export otlp",
			modify: func(c *TracingConfig) {
				c.Export.Enabled = true
				c.Export.Endpoint = "localhost:4317"
			},
			wantError: false,
		},
		{
			name: "export without endpoint",
			modify: func(c *TracingConfig) {
				c.Export.Enabled = true
			},
			wantError:  true,
			errorField: "telemetry.tracing.export.endpoint",
		},
		{
			name: "export endpoint given as URL",
			modify: func(c *TracingConfig) {
				c.Export.Enabled = true
				c.Export.Endpoint = "http://localhost:4318"
			},
			wantError:  true,
			errorField: "telemetry.tracing.export.endpoint",
		},
		{
			name: "unsupported exporter",
			modify: func(c *TracingConfig) {
				c.Export.Enabled = true
				c.Export.Exporter = "zipkin"
				c.Export.Endpoint = "localhost:9411"
			},
			wantError:  true,
			errorField: "telemetry.tracing.export.exporter",
		},
		{
			name: "disabled export ignores bad exporter",
			modify: func(c *TracingConfig) {
				c.Export.Exporter = "zipkin"
			},
			wantError: false,
		},
		{
			name: "timeout too large",
			modify: func(c *TracingConfig) {
				c.Export.Enabled = true
				c.Export.Endpoint = "localhost:4317"
				c.Export.OTLP.Timeout = time.Hour
			},
			wantError:  true,
			errorField: "telemetry.tracing.export.otlp.timeout",
		},
		{
			name: "compress without chrome",
			modify: func(c *TracingConfig) {
				c.Chrome.Compress = true
			},
			wantError:  true,
			errorField: "telemetry.tracing.chrome.compress",
		},
		{
			name: "empty service name",
			modify: func(c *TracingConfig) {
				c.ServiceName = ""
			},
			wantError:  true,
			errorField: "telemetry.tracing.service_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.modify(&cfg.Telemetry.Tracing)

			err := ValidateTracing(&cfg.Telemetry.Tracing)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateTracing() error = %v, wantError %v", err, tt.wantError)
			}
			if err == nil {
				return
			}

			verr := err.(ValidationError)
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.errorField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.errorField, verr.Errors)
			}
		})
	}
}

func TestValidate_Logging(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantError bool
	}{
		{name: "valid", level: "info", format: "json"},
		{name: "console format", level: "debug", format: "console"},
		{name: "bad level", level: "trace", format: "json", wantError: true},
		{name: "bad format", level: "info", format: "xml", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			cfg.Telemetry.Logging.Level = tt.level
			cfg.Telemetry.Logging.Format = tt.format

			err := Validate(cfg)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidate_BuiltConfigs(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		wantError bool
	}{
		{
			name: "both sinks",
			cfg: NewTestConfig().
				WithChrome("trace.json").
				WithExport("otlp", "localhost:4317").
				WithExportTimeout(5 * time.Second).
				WithLogLevel("debug").
				Build(),
		},
		{
			name:      "unknown exporter",
			cfg:       NewTestConfig().WithExport("zipkin", "localhost:9411").Build(),
			wantError: true,
		},
		{
			name:      "export timeout too long",
			cfg:       NewTestConfig().WithExport("otlphttp", "localhost:4318").WithExportTimeout(time.Hour).Build(),
			wantError: true,
		},
		{
			name:      "bad log level",
			cfg:       NewTestConfig().WithChrome("trace.json").WithLogLevel("verbose").Build(),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
