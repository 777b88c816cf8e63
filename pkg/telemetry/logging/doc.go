// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Automatic PII redaction (API keys, emails, SSN, etc.)
//   - Context-aware logging that picks up the active pipeline span
//   - Configurable log levels (debug, info, warn, error)
//
// The Redactor is shared with the span pipeline: when remote export
// redaction is enabled, string attributes are scrubbed with the same
// patterns before they are handed to the exporter.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	logger.Info("guard released",
//	    "chrome_bytes", 18234,
//	    "forwarded", 42,
//	)
//
//	// Inside a pipeline span, log lines carry span_id, span_name and lane.
//	ctx, span := pipeline.Start(ctx, "load_block")
//	logger.InfoContext(ctx, "loaded")
//
// Logs go to stderr by default so command output on stdout stays clean.
package logging
