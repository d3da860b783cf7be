package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "repdata"

// TelemetryConfig selects where spans and metrics go.
type TelemetryConfig struct {
	Endpoint    string // host:port of an OTLP/gRPC collector, empty disables export
	ServiceName string
	Version     string
	Insecure    bool
}

// Telemetry bundles the tracer and the run instruments.
type Telemetry struct {
	Tracer trace.Tracer

	StageRows   metric.Int64Counter
	RowsWritten metric.Int64Counter
	RunDuration metric.Float64Histogram

	shutdown []func(context.Context) error
}

// NewNoopTelemetry returns telemetry that records nothing.
func NewNoopTelemetry() *Telemetry {
	t, _ := newTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	return t
}

// SetupTelemetry builds exporting providers when an endpoint is configured
// and no-op providers otherwise.
func SetupTelemetry(ctx context.Context, cfg TelemetryConfig) (*Telemetry, error) {
	if cfg.Endpoint == "" {
		return NewNoopTelemetry(), nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	)

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		_ = traceExp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)

	t, err := newTelemetry(tp, mp)
	if err != nil {
		return nil, err
	}
	t.shutdown = append(t.shutdown, tp.Shutdown, mp.Shutdown)
	return t, nil
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	meter := mp.Meter(instrumentationName)
	t := &Telemetry{Tracer: tp.Tracer(instrumentationName)}

	var err error
	if t.StageRows, err = meter.Int64Counter("repdata.stage.rows",
		metric.WithDescription("Rows produced by each pipeline stage")); err != nil {
		return nil, err
	}
	if t.RowsWritten, err = meter.Int64Counter("repdata.rows.written",
		metric.WithDescription("Rows loaded into destination tables")); err != nil {
		return nil, err
	}
	if t.RunDuration, err = meter.Float64Histogram("repdata.run.duration",
		metric.WithUnit("s"), metric.WithDescription("Wall time of a full run")); err != nil {
		return nil, err
	}
	return t, nil
}

// Shutdown flushes and stops the exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
