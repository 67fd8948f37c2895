package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MeterProvider exports OpenTelemetry instruments, such as the otelhttp
// client metrics of the AI adapters, through the collector's Prometheus registry
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
}

// NewMeterProvider installs the global meter provider
func NewMeterProvider(metrics *MetricsCollector, logger *zap.Logger) (*MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(metrics.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	logger.Named("metrics").Debug("OpenTelemetry metrics bridged to Prometheus")
	return &MeterProvider{provider: mp}, nil
}

// Shutdown stops collection
func (p *MeterProvider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
