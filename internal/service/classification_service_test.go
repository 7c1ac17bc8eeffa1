package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/zeroshot/internal/classifier"
	"github.com/formbricks/zeroshot/internal/embeddings"
	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/observability"
)

type mockSnapshotter struct {
	snapshotFunc func(ctx context.Context) ([]string, error)
}

func (m *mockSnapshotter) Snapshot(ctx context.Context) ([]string, error) {
	return m.snapshotFunc(ctx)
}

func staticLabels(labels ...string) *mockSnapshotter {
	return &mockSnapshotter{snapshotFunc: func(context.Context) ([]string, error) { return labels, nil }}
}

type mockClassifier struct {
	classifyFunc func(ctx context.Context, img image.Image, labels []string) ([]classifier.Prediction, error)
}

func (m *mockClassifier) Classify(ctx context.Context, img image.Image, labels []string) ([]classifier.Prediction, error) {
	return m.classifyFunc(ctx, img, labels)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.SetRGBA(3, 3, color.RGBA{R: 200, G: 30, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestClassificationService_Classify(t *testing.T) {
	t.Run("ranks the stored vocabulary", func(t *testing.T) {
		metrics := &recordingMetrics{}
		engine := classifier.NewEngine(embeddings.NewMockProviderWithDimensions(16))
		svc := NewClassificationService(staticLabels("cat", "dog", "bird"), engine, metrics)

		got, err := svc.Classify(context.Background(), bytes.NewReader(pngBytes(t)))
		require.NoError(t, err)

		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{got[0].Rank, got[1].Rank, got[2].Rank})
		assert.InDelta(t, 1.0, got[0].Score+got[1].Score+got[2].Score, 1e-9)
		assert.Equal(t, []string{observability.OutcomeSuccess}, metrics.classifications)
		assert.Equal(t, []int{3}, metrics.vocabularySizes)
	})

	t.Run("engine receives an opaque RGB image", func(t *testing.T) {
		var gotImg image.Image

		engine := &mockClassifier{classifyFunc: func(_ context.Context, img image.Image, labels []string) ([]classifier.Prediction, error) {
			gotImg = img
			return []classifier.Prediction{{Label: labels[0], Score: 1, Rank: 1}}, nil
		}}
		svc := NewClassificationService(staticLabels("x"), engine, nil)

		_, err := svc.Classify(context.Background(), bytes.NewReader(pngBytes(t)))
		require.NoError(t, err)

		rgba, ok := gotImg.(*image.RGBA)
		require.True(t, ok)
		assert.Equal(t, color.RGBA{R: 200, G: 30, B: 30, A: 255}, rgba.RGBAAt(3, 3))
		assert.Equal(t, uint8(255), rgba.RGBAAt(0, 0).A)
	})

	t.Run("missing vocabulary", func(t *testing.T) {
		metrics := &recordingMetrics{}
		store := &mockSnapshotter{snapshotFunc: func(context.Context) ([]string, error) {
			return nil, huberrors.NewPersistenceUnavailableError("labels file not found", nil)
		}}
		svc := NewClassificationService(store, &mockClassifier{}, metrics)

		_, err := svc.Classify(context.Background(), bytes.NewReader(pngBytes(t)))
		assert.ErrorIs(t, err, huberrors.ErrPersistenceUnavailable)
		assert.Equal(t, []string{observability.OutcomePersistenceUnavailable}, metrics.classifications)
	})

	t.Run("empty vocabulary is reported before decoding", func(t *testing.T) {
		metrics := &recordingMetrics{}
		svc := NewClassificationService(staticLabels(), &mockClassifier{}, metrics)

		_, err := svc.Classify(context.Background(), strings.NewReader("not an image"))
		assert.ErrorIs(t, err, huberrors.ErrEmptyVocabulary)
		assert.Equal(t, []string{observability.OutcomeEmptyVocabulary}, metrics.classifications)
	})

	t.Run("undecodable image", func(t *testing.T) {
		called := false
		engine := &mockClassifier{classifyFunc: func(context.Context, image.Image, []string) ([]classifier.Prediction, error) {
			called = true
			return nil, nil
		}}
		svc := NewClassificationService(staticLabels("cat"), engine, nil)

		_, err := svc.Classify(context.Background(), strings.NewReader("not an image"))
		assert.ErrorIs(t, err, huberrors.ErrImageDecode)
		assert.False(t, called)
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		metrics := &recordingMetrics{}
		engine := &mockClassifier{classifyFunc: func(context.Context, image.Image, []string) ([]classifier.Prediction, error) {
			return nil, huberrors.NewEmbeddingProviderError("embed image", errors.New("connection refused"))
		}}
		svc := NewClassificationService(staticLabels("cat"), engine, metrics)

		got, err := svc.Classify(context.Background(), bytes.NewReader(pngBytes(t)))
		assert.ErrorIs(t, err, huberrors.ErrEmbeddingProvider)
		assert.Nil(t, got)
		assert.Equal(t, []string{observability.OutcomeProviderError}, metrics.classifications)
	})
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, observability.OutcomeSuccess},
		{context.Canceled, observability.OutcomeCanceled},
		{huberrors.NewImageDecodeError("", nil), observability.OutcomeImageDecode},
		{huberrors.ErrEmptyVocabulary, observability.OutcomeEmptyVocabulary},
		{huberrors.NewInvalidLabelFormatError(0, ""), observability.OutcomeInvalidLabelFormat},
		{huberrors.NewEmbeddingProviderError("x", nil), observability.OutcomeProviderError},
		{huberrors.NewPersistenceUnavailableError("", nil), observability.OutcomePersistenceUnavailable},
		{errors.New("boom"), observability.OutcomeOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, outcomeFor(tt.err), "error %v", tt.err)
	}
}
