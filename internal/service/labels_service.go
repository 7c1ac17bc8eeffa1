package service

import (
	"context"
	"log/slog"

	"github.com/formbricks/zeroshot/internal/observability"
)

// LabelRepository is the label store surface used by LabelsService.
type LabelRepository interface {
	Read(ctx context.Context) ([]string, error)
	Merge(ctx context.Context, labels []string) ([]string, error)
}

// LabelsService reads and extends the label vocabulary.
type LabelsService struct {
	repo    LabelRepository
	metrics observability.Metrics
}

// NewLabelsService creates a LabelsService. metrics may be nil.
func NewLabelsService(repo LabelRepository, metrics observability.Metrics) *LabelsService {
	return &LabelsService{repo: repo, metrics: metrics}
}

// ListLabels returns the current vocabulary, empty if it was never written.
func (s *LabelsService) ListLabels(ctx context.Context) ([]string, error) {
	return s.repo.Read(ctx)
}

// MergeLabels adds labels to the vocabulary and returns the full result.
func (s *LabelsService) MergeLabels(ctx context.Context, labels []string) ([]string, error) {
	merged, err := s.repo.Merge(ctx, labels)

	if s.metrics != nil {
		s.metrics.RecordLabelMerge(ctx, outcomeFor(err), len(merged))
	}

	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "label vocabulary updated", "submitted", len(labels), "total", len(merged))

	return merged, nil
}
