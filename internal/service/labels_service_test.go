package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/observability"
)

type mockLabelRepository struct {
	readFunc  func(ctx context.Context) ([]string, error)
	mergeFunc func(ctx context.Context, labels []string) ([]string, error)
}

func (m *mockLabelRepository) Read(ctx context.Context) ([]string, error) {
	if m.readFunc != nil {
		return m.readFunc(ctx)
	}

	return []string{}, nil
}

func (m *mockLabelRepository) Merge(ctx context.Context, labels []string) ([]string, error) {
	if m.mergeFunc != nil {
		return m.mergeFunc(ctx, labels)
	}

	return labels, nil
}

func TestLabelsService_MergeLabels(t *testing.T) {
	t.Run("returns the merged vocabulary", func(t *testing.T) {
		metrics := &recordingMetrics{}
		repo := &mockLabelRepository{mergeFunc: func(_ context.Context, labels []string) ([]string, error) {
			return append([]string{"existing"}, labels...), nil
		}}
		svc := NewLabelsService(repo, metrics)

		got, err := svc.MergeLabels(context.Background(), []string{"new"})
		require.NoError(t, err)

		assert.Equal(t, []string{"existing", "new"}, got)
		assert.Equal(t, []string{observability.OutcomeSuccess}, metrics.merges)
		assert.Equal(t, []int{2}, metrics.mergeSizes)
	})

	t.Run("store failure", func(t *testing.T) {
		metrics := &recordingMetrics{}
		repo := &mockLabelRepository{mergeFunc: func(context.Context, []string) ([]string, error) {
			return nil, huberrors.NewPersistenceUnavailableError("disk full", nil)
		}}
		svc := NewLabelsService(repo, metrics)

		got, err := svc.MergeLabels(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, huberrors.ErrPersistenceUnavailable)
		assert.Nil(t, got)
		assert.Equal(t, []string{observability.OutcomePersistenceUnavailable}, metrics.merges)
	})

	t.Run("nil metrics", func(t *testing.T) {
		svc := NewLabelsService(&mockLabelRepository{}, nil)

		got, err := svc.MergeLabels(context.Background(), []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got)
	})
}

func TestLabelsService_ListLabels(t *testing.T) {
	repo := &mockLabelRepository{readFunc: func(context.Context) ([]string, error) {
		return []string{"cat", "dog"}, nil
	}}

	got, err := NewLabelsService(repo, nil).ListLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, got)
}
