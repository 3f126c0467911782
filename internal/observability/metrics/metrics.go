package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes pushed business instruments. Engine latency and error
// reasons live in EngineMetrics and are scraped.
type Metrics struct {
	clockTransitions metric.Int64Counter
	laborCost        metric.Int64Counter
	materialUsage    metric.Int64Counter
	materialCost     metric.Int64Counter
	invoices         metric.Int64Counter
	invoiceAmount    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "constructtrack"
	}
	meter := provider.Meter(name)

	clockTransitions, err := meter.Int64Counter("constructtrack.clock.transitions")
	if err != nil {
		return nil, err
	}
	laborCost, err := meter.Int64Counter("constructtrack.labor.cost", metric.WithUnit("{minor}"))
	if err != nil {
		return nil, err
	}
	materialUsage, err := meter.Int64Counter("constructtrack.material.logs")
	if err != nil {
		return nil, err
	}
	materialCost, err := meter.Int64Counter("constructtrack.material.cost", metric.WithUnit("{minor}"))
	if err != nil {
		return nil, err
	}
	invoices, err := meter.Int64Counter("constructtrack.invoices.generated")
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := meter.Int64Counter("constructtrack.invoices.amount", metric.WithUnit("{minor}"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		clockTransitions: clockTransitions,
		laborCost:        laborCost,
		materialUsage:    materialUsage,
		materialCost:     materialCost,
		invoices:         invoices,
		invoiceAmount:    invoiceAmount,
	}, nil
}

// RecordClockTransition counts a clock in, clock out or job switch.
func (m *Metrics) RecordClockTransition(ctx context.Context, kind string, laborCostMinor int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.clockTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
	if laborCostMinor > 0 {
		m.laborCost.Add(ctx, laborCostMinor)
	}
}

// RecordMaterialUsage counts material logs written by one usage call.
func (m *Metrics) RecordMaterialUsage(ctx context.Context, source string, logs int, costMinor int64) {
	if m == nil || logs <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.materialUsage.Add(ctx, int64(logs), metric.WithAttributes(attrs...))
	if costMinor > 0 {
		m.materialCost.Add(ctx, costMinor, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) RecordInvoiceGenerated(ctx context.Context, totalMinor int64) {
	if m == nil {
		return
	}
	m.invoices.Add(ctx, 1)
	if totalMinor > 0 {
		m.invoiceAmount.Add(ctx, totalMinor)
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":        {},
	"source":      {},
	"op":          {},
	"reason":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
