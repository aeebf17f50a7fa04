package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/pkg/config"
	"github.com/steemit/hnspool/pkg/logging"
)

const (
	instrumentationName = "github.com/steemit/hnspool"
	serviceVersion      = "0.1.0"
)

var tracer trace.Tracer

type shutdownFunc func(context.Context) error

// Init installs the Jaeger tracer provider and the Prometheus meter provider
// selected by cfg. The returned func flushes and stops them.
func Init(cfg *config.TelemetryConfig) (func(), error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Telemetry disabled")
		return func() {}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var stops []shutdownFunc

	if cfg.JaegerURL != "" {
		stop, err := installTracing(cfg.JaegerURL, res)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}

	if cfg.PrometheusEnabled {
		stop, err := installMetrics(res)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stop)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = otel.Tracer(cfg.ServiceName)

	return func() { shutdown(stops) }, nil
}

func installTracing(endpoint string, res *resource.Resource) (shutdownFunc, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logging.GetLogger().Info("Jaeger exporter initialized", zap.String("url", endpoint))
	return tp.Shutdown, nil
}

// installMetrics registers the OTel exporter with the default Prometheus
// registry, which MetricsHandler serves.
func installMetrics(res *resource.Resource) (shutdownFunc, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logging.GetLogger().Info("Prometheus exporter initialized")
	return mp.Shutdown, nil
}

func shutdown(stops []shutdownFunc) {
	for _, stop := range stops {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := stop(ctx); err != nil {
			logging.GetLogger().Error("Error shutting down telemetry", zap.Error(err))
		}
		cancel()
	}
}

// Tracer returns the application tracer, a no-op one until Init runs
func Tracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return tracer
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Meter returns the application meter
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// MetricsHandler serves the default Prometheus registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
