package tracing

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestResolveSkip(t *testing.T) {
	tests := []struct {
		name   string
		fields []attribute.KeyValue
		want   bool
	}{
		{name: "no fields", fields: nil, want: false},
		{name: "unrelated fields", fields: []attribute.KeyValue{attribute.String("block", "7")}, want: false},
		{name: "marker", fields: []attribute.KeyValue{SkipExport()}, want: true},
		{name: "bool false", fields: []attribute.KeyValue{attribute.Bool(SkipExportKey, false)}, want: false},
		{name: "int one", fields: []attribute.KeyValue{attribute.Int(SkipExportKey, 1)}, want: true},
		{name: "int zero", fields: []attribute.KeyValue{attribute.Int(SkipExportKey, 0)}, want: false},
		{name: "float non-zero", fields: []attribute.KeyValue{attribute.Float64(SkipExportKey, 0.5)}, want: true},
		{name: "string true", fields: []attribute.KeyValue{attribute.String(SkipExportKey, "true")}, want: true},
		{name: "string TRUE padded", fields: []attribute.KeyValue{attribute.String(SkipExportKey, " TRUE ")}, want: true},
		{name: "string false", fields: []attribute.KeyValue{attribute.String(SkipExportKey, "false")}, want: false},
		{name: "string garbage", fields: []attribute.KeyValue{attribute.String(SkipExportKey, "yes please")}, want: false},
		{name: "empty string", fields: []attribute.KeyValue{attribute.String(SkipExportKey, "")}, want: false},
		{name: "slice", fields: []attribute.KeyValue{attribute.BoolSlice(SkipExportKey, []bool{true})}, want: false},
		{name: "similar key", fields: []attribute.KeyValue{attribute.Bool("opentelemetry.skipped", true)}, want: false},
		{
			name:   "inline false overrides static true",
			fields: []attribute.KeyValue{SkipExport(), attribute.Bool(SkipExportKey, false)},
			want:   false,
		},
		{
			name:   "inline true overrides static false",
			fields: []attribute.KeyValue{attribute.Bool(SkipExportKey, false), attribute.String("k", "v"), SkipExport()},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSkip(tt.fields); got != tt.want {
				t.Errorf("ResolveSkip() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithoutReserved(t *testing.T) {
	in := []attribute.KeyValue{
		attribute.String("a", "1"),
		SkipExport(),
		attribute.Int("b", 2),
	}

	out := withoutReserved(in)

	if len(out) != 2 {
		t.Fatalf("withoutReserved() = %v, want 2 fields", out)
	}
	for _, kv := range out {
		if kv.Key == SkipExportKey {
			t.Errorf("reserved key not stripped: %v", out)
		}
	}
	if len(in) != 3 {
		t.Error("withoutReserved() modified its input")
	}
}
