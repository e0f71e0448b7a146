// Package observability wires up the process-wide OpenTelemetry meter
// provider consumed by internal/rag/obs.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider installs a process-wide metric.MeterProvider tagged with
// serviceName and registers it as the global provider. Callers that want
// metrics exported pass a reader in opts (metric.WithReader); with no reader
// the provider records internal/rag/obs's counters and histograms but
// exports nothing.
func InitMeterProvider(ctx context.Context, serviceName string, opts ...metric.Option) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	allOpts := append([]metric.Option{metric.WithResource(res)}, opts...)
	mp := metric.NewMeterProvider(allOpts...)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
