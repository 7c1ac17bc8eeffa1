package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/formbricks/zeroshot/internal/observability"
	defaultServiceName = "zeroshot-api"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for request duration histograms.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// inferenceHistogramBoundaries cover model inference, which is slower than plain request handling.
var inferenceHistogramBoundaries = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// vocabularySizeBoundaries bucket the number of labels scored per classification.
var vocabularySizeBoundaries = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

// Metrics is the single metrics interface for the service (HTTP, classification, provider, labels).
type Metrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
	RecordClassification(ctx context.Context, outcome string, vocabularySize int, duration time.Duration)
	RecordEmbedding(ctx context.Context, operation, outcome string, duration time.Duration)
	RecordLabelMerge(ctx context.Context, outcome string, vocabularySize int)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: zeroshot-api).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and Metrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit. When metrics are disabled, pass nil for metrics at call sites.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics Metrics, err error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// Use a single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(histogramViews()...),
	)
	provider = mp

	metrics, err = newMetricsFromMeter(mp.Meter(meterScope))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, metricsHandler, metrics, nil
}

func histogramViews() []sdkmetric.View {
	buckets := func(name string, bounds []float64) sdkmetric.View {
		return sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: bounds}},
		)
	}

	return []sdkmetric.View{
		buckets(MetricNameRequestDuration, latencyHistogramBoundaries),
		buckets(MetricNameClassificationDuration, inferenceHistogramBoundaries),
		buckets(MetricNameEmbeddingDuration, inferenceHistogramBoundaries),
		buckets(MetricNameVocabularySize, vocabularySizeBoundaries),
	}
}

func newMetricsFromMeter(meter metric.Meter) (*metricsImpl, error) {
	requestCount, err := meter.Int64Counter(
		MetricNameRequestCount,
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("request_count: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameRequestDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("http.server.duration: %w", err)
	}

	bodyTooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected because the body exceeded the configured limit (413)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestBodyTooLarge, err)
	}

	classifications, err := meter.Int64Counter(
		MetricNameClassifications,
		metric.WithDescription("Classification requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameClassifications, err)
	}

	classificationDuration, err := meter.Float64Histogram(
		MetricNameClassificationDuration,
		metric.WithDescription("End-to-end classification duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameClassificationDuration, err)
	}

	vocabularySize, err := meter.Int64Histogram(
		MetricNameVocabularySize,
		metric.WithDescription("Number of labels scored per classification"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameVocabularySize, err)
	}

	embeddingDuration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding provider call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameEmbeddingDuration, err)
	}

	labelMerges, err := meter.Int64Counter(
		MetricNameLabelMerges,
		metric.WithDescription("Label vocabulary merges by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameLabelMerges, err)
	}

	labelVocabulary, err := meter.Int64Gauge(
		MetricNameLabelVocabularySize,
		metric.WithDescription("Number of labels in the vocabulary after the last successful merge"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameLabelVocabularySize, err)
	}

	return &metricsImpl{
		requestCount:           requestCount,
		requestDuration:        requestDuration,
		bodyTooLarge:           bodyTooLarge,
		classifications:        classifications,
		classificationDuration: classificationDuration,
		vocabularySize:         vocabularySize,
		embeddingDuration:      embeddingDuration,
		labelMerges:            labelMerges,
		labelVocabulary:        labelVocabulary,
	}, nil
}

type metricsImpl struct {
	requestCount           metric.Int64Counter
	requestDuration        metric.Float64Histogram
	bodyTooLarge           metric.Int64Counter
	classifications        metric.Int64Counter
	classificationDuration metric.Float64Histogram
	vocabularySize         metric.Int64Histogram
	embeddingDuration      metric.Float64Histogram
	labelMerges            metric.Int64Counter
	labelVocabulary        metric.Int64Gauge
}

func (m *metricsImpl) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *metricsImpl) RecordRequestBodyTooLarge(ctx context.Context) {
	m.bodyTooLarge.Add(ctx, 1)
}

func (m *metricsImpl) RecordClassification(ctx context.Context, outcome string, vocabularySize int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrOutcome, NormalizeOutcome(outcome)))

	m.classifications.Add(ctx, 1, attrs)
	m.classificationDuration.Record(ctx, duration.Seconds(), attrs)

	if vocabularySize > 0 {
		m.vocabularySize.Record(ctx, int64(vocabularySize))
	}
}

func (m *metricsImpl) RecordEmbedding(ctx context.Context, operation, outcome string, duration time.Duration) {
	m.embeddingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrOperation, normalizeOperation(operation)),
		attribute.String(AttrOutcome, NormalizeOutcome(outcome)),
	))
}

func (m *metricsImpl) RecordLabelMerge(ctx context.Context, outcome string, vocabularySize int) {
	outcome = NormalizeOutcome(outcome)
	m.labelMerges.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))

	if outcome == OutcomeSuccess {
		m.labelVocabulary.Record(ctx, int64(vocabularySize))
	}
}
