// Package telemetry groups the observability packages of spanfan.
//
// # Components
//
//   - tracing: the dual-sink span pipeline (local Chrome trace and filtered
//     OpenTelemetry export) and its lifecycle guard
//   - logging: structured slog logging with PII redaction
//   - metrics: Prometheus counters and gauges for both sinks
//   - health: liveness and readiness probes over the pipeline and its sinks
//
// # Usage
//
//	cfg := config.GetConfig()
//	logger, _ := logging.New(logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	guard, err := tracing.Init(&cfg.Telemetry.Tracing,
//		tracing.WithLogger(logger),
//		tracing.WithMetrics(collector),
//	)
//	if err != nil {
//		return err
//	}
//	defer guard.Close(context.Background())
//
//	ctx, span := guard.Pipeline().Start(ctx, "load_index")
//	defer span.End()
//
// Spans carrying opentelemetry.skip=true still reach the Chrome trace but
// are not forwarded to the remote backend.
//
// # PII Protection
//
// When redact_pii is set, log attributes are redacted, and so are exported
// span attributes if telemetry.tracing.export.redact_pii is also set:
//
//   - API keys: sk-abc123 → sk-***
//   - Emails: user@example.com → ***@***
//   - IP addresses: 192.168.1.1 → *.*.*.*
package telemetry
