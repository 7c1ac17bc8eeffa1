package service

import (
	"context"
	"image"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formbricks/zeroshot/internal/embeddings"
	"github.com/formbricks/zeroshot/internal/observability"
)

// InstrumentedProvider wraps an embeddings.Provider with a span and a duration
// metric per call. It adds no retries and no caching.
type InstrumentedProvider struct {
	next    embeddings.Provider
	tracer  trace.Tracer
	metrics observability.Metrics
}

var _ embeddings.Provider = (*InstrumentedProvider)(nil)

// NewInstrumentedProvider wraps next. metrics may be nil when metrics are disabled.
func NewInstrumentedProvider(next embeddings.Provider, metrics observability.Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{
		next:    next,
		tracer:  observability.Tracer(),
		metrics: metrics,
	}
}

// EmbedImage implements embeddings.Provider.
func (p *InstrumentedProvider) EmbedImage(ctx context.Context, img image.Image) (embeddings.ImageEmbedding, error) {
	ctx, span := p.tracer.Start(ctx, "embeddings.EmbedImage")
	defer span.End()

	if img != nil {
		b := img.Bounds()
		span.SetAttributes(attribute.Int("image.width", b.Dx()), attribute.Int("image.height", b.Dy()))
	}

	start := time.Now()
	out, err := p.next.EmbedImage(ctx, img)
	p.finish(ctx, span, observability.OperationEmbedImage, start, err)

	return out, err
}

// EmbedTexts implements embeddings.Provider.
func (p *InstrumentedProvider) EmbedTexts(ctx context.Context, texts []string, maxTokens int) (embeddings.TextEmbeddings, error) {
	ctx, span := p.tracer.Start(ctx, "embeddings.EmbedTexts", trace.WithAttributes(
		attribute.Int("texts.count", len(texts)),
		attribute.Int("texts.max_tokens", maxTokens),
	))
	defer span.End()

	start := time.Now()
	out, err := p.next.EmbedTexts(ctx, texts, maxTokens)
	p.finish(ctx, span, observability.OperationEmbedTexts, start, err)

	return out, err
}

func (p *InstrumentedProvider) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeProviderError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if p.metrics != nil {
		p.metrics.RecordEmbedding(ctx, op, outcome, time.Since(start))
	}
}
