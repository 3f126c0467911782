package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "clock_in"),
		attribute.String("user_id", "456"),
		attribute.String("source", "receipt"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "kind" && attrs[1].Key != "kind" {
		t.Fatalf("expected kind to be retained")
	}
	if attrs[0].Key != "source" && attrs[1].Key != "source" {
		t.Fatalf("expected source to be retained")
	}
}

func TestRecordersAreNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordClockTransition(context.Background(), "clock_out", 5000)
	m.RecordMaterialUsage(context.Background(), "inventory", 1, 3500)
	m.RecordInvoiceGenerated(context.Background(), 10200)

	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordClockTransition(context.Background(), "clock_out", 5000)
}
