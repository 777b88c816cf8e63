package main

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/spanfan/pkg/config"
	"mercator-hq/spanfan/pkg/telemetry/tracing"
)

// retainingExporter keeps exported spans across Shutdown so they can be
// inspected after the guard is closed.
type retainingExporter struct {
	*tracetest.InMemoryExporter
}

func (retainingExporter) Shutdown(context.Context) error { return nil }

func newRetainingExporter() retainingExporter {
	return retainingExporter{tracetest.NewInMemoryExporter()}
}

// testGuard installs a pipeline writing the Chrome trace to buf and
// exporting to exp on a private scope.
func testGuard(t *testing.T, buf *bytes.Buffer, exp retainingExporter) *tracing.Guard {
	t.Helper()

	guard, err := tracing.NewScope().Init(&config.TracingConfig{},
		tracing.WithChromeWriter(buf),
		tracing.WithSpanExporter(exp),
	)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return guard
}

func closeGuard(t *testing.T, guard *tracing.Guard) {
	t.Helper()
	if err := guard.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func exportedNames(exp retainingExporter) map[string]int {
	names := make(map[string]int)
	for _, s := range exp.GetSpans() {
		names[s.Name]++
	}
	return names
}

func beginNames(t *testing.T, data []byte) map[string]int {
	t.Helper()
	records, err := tracing.ReadChromeTrace(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadChromeTrace() error = %v", err)
	}
	names := make(map[string]int)
	for _, r := range records {
		if r.Ph == tracing.PhaseBegin {
			names[r.Name]++
		}
	}
	return names
}
