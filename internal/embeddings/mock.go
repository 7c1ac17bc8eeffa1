package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"
	"hash"
	"image"

	normalize "github.com/formbricks/zeroshot/pkg/embeddings"
)

// MockProvider implements the Provider interface for testing purposes.
// It generates deterministic embeddings from a hash of the input text or pixels.
type MockProvider struct {
	dimensions int
	logitScale float64
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with 512 dimensions and CLIP's usual logit scale of 100.
func NewMockProvider() *MockProvider {
	return &MockProvider{dimensions: 512, logitScale: 100}
}

// NewMockProviderWithDimensions creates a mock provider with custom dimensions.
func NewMockProviderWithDimensions(dimensions int) *MockProvider {
	return &MockProvider{dimensions: dimensions, logitScale: 100}
}

// EmbedImage hashes the image pixels into a unit vector.
func (m *MockProvider) EmbedImage(_ context.Context, img image.Image) (ImageEmbedding, error) {
	if img == nil || img.Bounds().Empty() {
		return ImageEmbedding{}, ErrEmptyImage
	}

	h := sha256.New()
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			h.Write([]byte{byte(r >> 8), byte(g >> 8), byte(bl >> 8)})
		}
	}

	return ImageEmbedding{Vector: m.vectorFrom(h), LogitScale: m.logitScale}, nil
}

// EmbedTexts hashes every text into a unit vector. Returns an error if any text is empty.
func (m *MockProvider) EmbedTexts(_ context.Context, texts []string, _ int) (TextEmbeddings, error) {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		if text == "" {
			return TextEmbeddings{}, errors.New("mock: text cannot be empty")
		}

		h := sha256.New()
		h.Write([]byte(text))
		vectors[i] = m.vectorFrom(h)
	}

	return TextEmbeddings{Vectors: vectors, LogitScale: m.logitScale}, nil
}

// vectorFrom expands the hash sum cyclically into a normalized vector.
func (m *MockProvider) vectorFrom(h hash.Hash) []float32 {
	sum := h.Sum(nil)
	embedding := make([]float32, m.dimensions)

	for i := range embedding {
		// Convert to float in range [-1, 1]
		embedding[i] = (float32(sum[i%len(sum)]) / 127.5) - 1.0
	}

	normalize.NormalizeL2(embedding)

	return embedding
}
