package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"mercator-hq/spanfan/pkg/config"
	"mercator-hq/spanfan/pkg/telemetry/health"
	"mercator-hq/spanfan/pkg/telemetry/logging"
	"mercator-hq/spanfan/pkg/telemetry/metrics"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

type refusingExporter struct{}

func (refusingExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return errors.New("connection refused")
}

func (refusingExporter) Shutdown(context.Context) error { return nil }

func newTestSession(t *testing.T, exp sdktrace.SpanExporter) *session {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Telemetry.Tracing.Chrome.Enabled = true
	cfg.Telemetry.Tracing.Export.Enabled = true

	logger, err := logging.New(logging.Config{Level: "error", Format: "text", Writer: io.Discard})
	if err != nil {
		t.Fatalf("logging.New() error = %v", err)
	}
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	guard, err := tracing.NewScope().Init(&config.TracingConfig{},
		tracing.WithChromeWriter(&bytes.Buffer{}),
		tracing.WithSpanExporter(exp),
		tracing.WithMetrics(collector),
		tracing.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	return &session{cfg: cfg, logger: logger, collector: collector, guard: guard}
}

func getReadiness(t *testing.T, srv *httptest.Server) (int, health.HealthStatus) {
	t.Helper()

	resp, err := http.Get(srv.URL + health.ReadinessPath)
	if err != nil {
		t.Fatalf("GET %s: %v", health.ReadinessPath, err)
	}
	defer resp.Body.Close()

	var status health.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	return resp.StatusCode, status
}

func TestObservabilityMux(t *testing.T) {
	s := newTestSession(t, newRetainingExporter())
	srv := httptest.NewServer(s.observabilityMux())
	defer srv.Close()

	code, status := getReadiness(t, srv)
	if code != http.StatusOK || status.Status != health.StatusReady {
		t.Fatalf("readiness = %d %q, want 200 ready", code, status.Status)
	}
	for _, name := range []string{"pipeline", "chrome", "export"} {
		if _, ok := status.Checks[name]; !ok {
			t.Errorf("readiness is missing the %q check", name)
		}
	}

	resp, err := http.Get(srv.URL + s.cfg.Telemetry.Metrics.Path)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "spanfan_pipeline_guard_active 1") {
		t.Errorf("metrics output does not report an active guard:\n%s", body)
	}

	if err := s.release(); err != nil {
		t.Fatalf("release() error = %v", err)
	}

	code, status = getReadiness(t, srv)
	if code != http.StatusServiceUnavailable {
		t.Errorf("readiness after release = %d, want 503", code)
	}
	if status.Checks["pipeline"].Status != health.StatusUnhealthy {
		t.Errorf("pipeline check after release = %+v", status.Checks["pipeline"])
	}
}

func TestObservabilityMux_ExportFailure(t *testing.T) {
	s := newTestSession(t, refusingExporter{})
	srv := httptest.NewServer(s.observabilityMux())
	defer srv.Close()

	_, span := s.guard.Pipeline().Start(context.Background(), "forwarded")
	span.End()
	if err := s.release(); err != nil {
		t.Fatalf("release() error = %v, want export failure absorbed", err)
	}

	_, status := getReadiness(t, srv)
	export := status.Checks["export"]
	if export.Status != health.StatusUnhealthy || !strings.Contains(export.Message, "connection refused") {
		t.Errorf("export check = %+v, want unhealthy with the exporter error", export)
	}
	if chrome := status.Checks["chrome"]; chrome.Status != health.StatusOK {
		t.Errorf("chrome check = %+v, want ok", chrome)
	}
}

func TestServeMetrics_Disabled(t *testing.T) {
	s := &session{}
	stop, err := s.serveMetrics("")
	if err != nil {
		t.Fatalf("serveMetrics(\"\") error = %v", err)
	}
	stop()
}

func TestServeMetrics_Listen(t *testing.T) {
	s := newTestSession(t, newRetainingExporter())
	defer s.release()

	stop, err := s.serveMetrics("127.0.0.1:0")
	if err != nil {
		t.Fatalf("serveMetrics() error = %v", err)
	}
	stop()

	if _, err := s.serveMetrics("256.0.0.1:bad"); err == nil {
		t.Error("serveMetrics() on an invalid address succeeded")
	}
}

func TestSession_ReleaseWhenWorkPanics(t *testing.T) {
	buf := tracing.NewSharedBuffer()
	guard, err := tracing.NewScope().Init(&config.TracingConfig{},
		tracing.WithChromeWriter(buf.Clone()),
		tracing.WithSpanExporter(newRetainingExporter()),
	)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s := &session{cfg: config.NewDefaultConfig(), logger: logging.Discard(), guard: guard}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected the work to panic")
			}
		}()
		defer func() { _ = s.release() }()

		_, span := guard.Pipeline().Start(context.Background(), "interrupted")
		span.End()
		panic("worker failed")
	}()

	if !guard.Pipeline().Stopped() {
		t.Error("pipeline still running after the deferred release")
	}
	data, err := buf.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v, want the guard to have released its handle", err)
	}
	if !bytes.HasSuffix(bytes.TrimSpace(data), []byte("]")) {
		t.Errorf("chrome trace not terminated: %q", data)
	}
	if err := s.release(); err != nil {
		t.Errorf("second release() error = %v", err)
	}
}
