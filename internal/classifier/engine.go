// Package classifier scores an image against a label vocabulary with a CLIP-style model.
package classifier

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/formbricks/zeroshot/internal/embeddings"
	"github.com/formbricks/zeroshot/internal/huberrors"
	normalize "github.com/formbricks/zeroshot/pkg/embeddings"
)

const (
	// Template is prepended to each label to form the text prompt.
	Template = "this is a photo of "
	// MaxTokens is the tokenizer context length used for every prompt.
	MaxTokens = 256
)

// Prediction is one label's share of the probability mass for an image.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Engine runs zero-shot classification through an embedding provider.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	provider embeddings.Provider
}

// NewEngine creates an engine bound to provider.
func NewEngine(provider embeddings.Provider) *Engine {
	return &Engine{provider: provider}
}

// Prompts returns the text prompt for each label, in order.
func Prompts(labels []string) []string {
	prompts := make([]string, len(labels))
	for i, label := range labels {
		prompts[i] = Template + label
	}

	return prompts
}

// Classify scores img against labels and returns one prediction per label,
// sorted by descending score. Equal scores keep vocabulary order. Duplicate
// labels are scored independently.
func (e *Engine) Classify(ctx context.Context, img image.Image, labels []string) ([]Prediction, error) {
	if len(labels) == 0 {
		return nil, huberrors.ErrEmptyVocabulary
	}

	imageEmb, err := e.provider.EmbedImage(ctx, img)
	if err != nil {
		return nil, huberrors.NewEmbeddingProviderError("embed image", err)
	}

	textEmb, err := e.provider.EmbedTexts(ctx, Prompts(labels), MaxTokens)
	if err != nil {
		return nil, huberrors.NewEmbeddingProviderError("embed texts", err)
	}

	if len(textEmb.Vectors) != len(labels) {
		return nil, huberrors.NewEmbeddingProviderError("embed texts",
			fmt.Errorf("got %d embeddings for %d labels", len(textEmb.Vectors), len(labels)))
	}

	scale := imageEmb.LogitScale
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return nil, huberrors.NewEmbeddingProviderError("logit scale", fmt.Errorf("invalid scale %v", scale))
	}

	if textEmb.LogitScale != 0 && textEmb.LogitScale != scale {
		return nil, huberrors.NewEmbeddingProviderError("logit scale",
			fmt.Errorf("image scale %v differs from text scale %v", scale, textEmb.LogitScale))
	}

	logits := make([]float64, len(labels))
	for i, vec := range textEmb.Vectors {
		dot, err := normalize.Dot(imageEmb.Vector, vec)
		if err != nil {
			return nil, huberrors.NewEmbeddingProviderError("similarity", fmt.Errorf("label %d: %w", i, err))
		}

		logits[i] = scale * dot
	}

	probs := Softmax(logits)

	predictions := make([]Prediction, len(labels))
	for i, label := range labels {
		predictions[i] = Prediction{Label: label, Score: probs[i]}
	}

	Rank(predictions)

	return predictions, nil
}

// Softmax returns exp(x_i) / sum(exp(x)) for each element. The maximum is
// subtracted first so large logits do not overflow.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	peak := slices.Max(logits)

	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - peak)
		sum += out[i]
	}

	for i := range out {
		out[i] /= sum
	}

	return out
}

// Rank sorts predictions by descending score in place and assigns ranks 1..N.
// The sort is stable, so tied predictions keep their relative order.
func Rank(predictions []Prediction) {
	slices.SortStableFunc(predictions, func(a, b Prediction) int {
		return cmp.Compare(b.Score, a.Score)
	})

	for i := range predictions {
		predictions[i].Rank = i + 1
	}
}
