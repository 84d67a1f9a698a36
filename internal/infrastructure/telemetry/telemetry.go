// Package telemetry wires OpenTelemetry metrics and traces around persistence.
//
// Telemetry is off by default; the disabled path installs no-op providers.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/garyjia/expense-requirement/persistence"

// Config toggles instrumentation
type Config struct {
	Enabled bool
}

// Provider owns the meter and tracer providers handed to instrumented components
type Provider struct {
	meters  metric.MeterProvider
	tracers trace.TracerProvider
	reader  *sdkmetric.ManualReader
	sdk     *sdkmetric.MeterProvider
}

// NewProvider returns an in-process SDK meter provider when enabled, no-ops otherwise.
// Metrics are pulled on demand through Collect.
func NewProvider(cfg Config) *Provider {
	if !cfg.Enabled {
		return &Provider{
			meters:  metricnoop.NewMeterProvider(),
			tracers: tracenoop.NewTracerProvider(),
		}
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &Provider{
		meters:  mp,
		tracers: tracenoop.NewTracerProvider(),
		reader:  reader,
		sdk:     mp,
	}
}

// Enabled reports whether metrics are being recorded
func (p *Provider) Enabled() bool {
	return p.reader != nil
}

// WithTracerProvider replaces the tracer provider, e.g. with an SDK one from the host process
func (p *Provider) WithTracerProvider(tp trace.TracerProvider) *Provider {
	p.tracers = tp
	return p
}

// Meter returns a meter for the persistence scope
func (p *Provider) Meter() metric.Meter {
	return p.meters.Meter(scopeName)
}

// Tracer returns a tracer for the persistence scope
func (p *Provider) Tracer() trace.Tracer {
	return p.tracers.Tracer(scopeName)
}

// Collect snapshots recorded metrics; it returns an empty result when disabled
func (p *Provider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if p.reader == nil {
		return rm, nil
	}
	err := p.reader.Collect(ctx, &rm)
	return rm, err
}

// Shutdown flushes and stops the SDK provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
