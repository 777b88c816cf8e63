// Package config provides configuration management for spanfan.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. The only section is
// telemetry: logging, metrics, and the sink selection for the span pipeline.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("spanfan.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("spanfan.yaml")
//
// # Example
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  tracing:
//	    service_name: indexer
//	    chrome:
//	      enabled: true
//	      path: ./trace.json
//	    export:
//	      enabled: true
//	      exporter: otlp
//	      endpoint: localhost:4317
//	      otlp:
//	        insecure: true
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SPANFAN_SECTION_FIELD:
//
//   - SPANFAN_LOGGING_LEVEL overrides telemetry.logging.level
//   - SPANFAN_TRACING_CHROME_PATH overrides telemetry.tracing.chrome.path
//   - SPANFAN_TRACING_EXPORT_ENDPOINT overrides telemetry.tracing.export.endpoint
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// WatchAndReload watches the configuration file with fsnotify and swaps the
// global configuration when the file changes and still validates.
package config
