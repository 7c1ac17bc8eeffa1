package service

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formbricks/zeroshot/internal/classifier"
	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/imaging"
	"github.com/formbricks/zeroshot/internal/observability"
)

// LabelSnapshotter provides the vocabulary a classification runs against.
type LabelSnapshotter interface {
	Snapshot(ctx context.Context) ([]string, error)
}

// Classifier scores a decoded image against labels.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, labels []string) ([]classifier.Prediction, error)
}

// ClassificationService decodes an upload, snapshots the label vocabulary and
// ranks the labels for the image.
type ClassificationService struct {
	labels  LabelSnapshotter
	engine  Classifier
	metrics observability.Metrics
	tracer  trace.Tracer
}

// NewClassificationService creates a ClassificationService. metrics may be nil.
func NewClassificationService(labels LabelSnapshotter, engine Classifier, metrics observability.Metrics) *ClassificationService {
	return &ClassificationService{
		labels:  labels,
		engine:  engine,
		metrics: metrics,
		tracer:  observability.Tracer(),
	}
}

// Classify ranks the current vocabulary against the image read from r.
// The vocabulary is checked before the image is decoded.
func (s *ClassificationService) Classify(ctx context.Context, r io.Reader) (predictions []classifier.Prediction, err error) {
	ctx, span := s.tracer.Start(ctx, "ClassificationService.Classify")
	defer span.End()

	start := time.Now()
	vocabularySize := 0

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		if s.metrics != nil {
			s.metrics.RecordClassification(ctx, outcomeFor(err), vocabularySize, time.Since(start))
		}
	}()

	labels, err := s.labels.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	vocabularySize = len(labels)
	span.SetAttributes(attribute.Int("labels.count", vocabularySize))

	if vocabularySize == 0 {
		return nil, huberrors.ErrEmptyVocabulary
	}

	img, err := imaging.Decode(r)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("image.format", img.Format))

	predictions, err = s.engine.Classify(ctx, img.RGB, labels)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "image classified",
		"labels", vocabularySize,
		"format", img.Format,
		"top_label", predictions[0].Label,
		"top_score", predictions[0].Score,
	)

	return predictions, nil
}
