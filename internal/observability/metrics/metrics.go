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

// Metrics exposes application-level instruments.
type Metrics struct {
	licensesIssued   metric.Int64Counter
	activations      metric.Int64Counter
	webhookEvents    metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
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
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "keyserver"
	}
	meter := provider.Meter(name)

	licensesIssued, err := meter.Int64Counter("keyserver_licenses_issued_total")
	if err != nil {
		return nil, err
	}
	activations, err := meter.Int64Counter("keyserver_activations_total")
	if err != nil {
		return nil, err
	}
	webhookEvents, err := meter.Int64Counter("keyserver_webhook_events_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("keyserver_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("keyserver_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		licensesIssued:   licensesIssued,
		activations:      activations,
		webhookEvents:    webhookEvents,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

func (m *Metrics) RecordIssued(ctx context.Context, source string) {
	if m == nil || m.licensesIssued == nil {
		return
	}
	m.licensesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordActivation(ctx context.Context, result string) {
	if m == nil || m.activations == nil {
		return
	}
	m.activations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *Metrics) RecordRateLimit(ctx context.Context, endpoint string, allowed bool) {
	if m == nil {
		return
	}
	counter := m.rateLimitAllowed
	if !allowed {
		counter = m.rateLimitDenied
	}
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch protocol {
	case "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
