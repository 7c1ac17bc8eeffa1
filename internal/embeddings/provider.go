// Package embeddings is the handle to the joint image-text embedding model.
//
// The model itself runs out of process; this package loads its artifacts at startup,
// preprocesses images the way the model expects and talks to the inference server.
package embeddings

import (
	"context"
	"image"
)

// ImageEmbedding is the embedding of one image together with the model's learned logit scale.
type ImageEmbedding struct {
	Vector     []float32
	LogitScale float64
}

// TextEmbeddings holds one embedding per input text, in input order.
type TextEmbeddings struct {
	Vectors    [][]float32
	LogitScale float64
}

// Provider computes embeddings for images and texts in a shared vector space.
// Implementations must be safe for concurrent use or be wrapped with NewLimitedProvider.
type Provider interface {
	// EmbedImage returns the embedding of a single decoded RGB image.
	EmbedImage(ctx context.Context, img image.Image) (ImageEmbedding, error)

	// EmbedTexts embeds all texts in one batch. Texts longer than maxTokens
	// tokens are truncated by the model, never rejected.
	EmbedTexts(ctx context.Context, texts []string, maxTokens int) (TextEmbeddings, error)
}
