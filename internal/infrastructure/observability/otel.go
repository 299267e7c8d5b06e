package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rxgrid/pharmacy-discovery"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount           metric.Int64Counter
	RequestDuration        metric.Float64Histogram
	DBQueryDuration        metric.Float64Histogram
	CacheLookups           metric.Int64Counter
	EnrichmentDegradations metric.Int64Counter
	DispatchFailures       metric.Int64Counter
}

// appMetrics is the bundle created by InitMetrics. The Record* helpers below
// are no-ops until it is set, so code paths stay safe in tests and in
// binaries that skip metrics setup.
var appMetrics *Metrics

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		return tracerProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dbQueryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	enrichmentDegradations, err := meter.Int64Counter(
		"discovery.enrichment.degraded.count",
		metric.WithDescription("Number of candidates that fell back to conservative availability defaults"),
	)
	if err != nil {
		return nil, err
	}

	dispatchFailures, err := meter.Int64Counter(
		"notification.dispatch.failure.count",
		metric.WithDescription("Number of failed notification dispatches"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"cache.lookup.count",
		metric.WithDescription("Number of cache lookups, partitioned by hit/miss"),
	)
	if err != nil {
		return nil, err
	}

	appMetrics = &Metrics{
		RequestCount:           requestCount,
		RequestDuration:        requestDuration,
		DBQueryDuration:        dbQueryDuration,
		CacheLookups:           cacheLookups,
		EnrichmentDegradations: enrichmentDegradations,
		DispatchFailures:       dispatchFailures,
	}
	return appMetrics, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records a request metric with attributes
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDBQuery records the elapsed time of one database query. Meant to be
// deferred at the top of an adapter method with the start time captured at
// the defer site.
func RecordDBQuery(ctx context.Context, operation string, start time.Time) {
	m := appMetrics
	if m == nil {
		return
	}
	m.DBQueryDuration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("db.operation", operation)))
}

// RecordCacheLookup counts one cache lookup as a hit or a miss.
func RecordCacheLookup(ctx context.Context, kind string, hit bool) {
	m := appMetrics
	if m == nil {
		return
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.kind", kind),
		attribute.Bool("cache.hit", hit),
	))
}

// RecordEnrichmentDegradation counts one candidate that fell back to
// conservative availability defaults.
func RecordEnrichmentDegradation(ctx context.Context) {
	m := appMetrics
	if m == nil {
		return
	}
	m.EnrichmentDegradations.Add(ctx, 1)
}

// RecordDispatchFailure counts one failed notification dispatch.
func RecordDispatchFailure(ctx context.Context) {
	m := appMetrics
	if m == nil {
		return
	}
	m.DispatchFailures.Add(ctx, 1)
}
