package embeddings

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/semaphore"
)

// LimitedProvider bounds the number of concurrent calls into a Provider that is
// not reentrant. Waiting callers give up when their context is done.
type LimitedProvider struct {
	next Provider
	sem  *semaphore.Weighted
}

var _ Provider = (*LimitedProvider)(nil)

// NewLimitedProvider wraps next so that at most maxConcurrent calls run at once.
// maxConcurrent <= 0 returns next unchanged.
func NewLimitedProvider(next Provider, maxConcurrent int) Provider {
	if maxConcurrent <= 0 {
		return next
	}

	return &LimitedProvider{
		next: next,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// EmbedImage implements Provider.
func (l *LimitedProvider) EmbedImage(ctx context.Context, img image.Image) (ImageEmbedding, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return ImageEmbedding{}, fmt.Errorf("wait for embedding slot: %w", err)
	}
	defer l.sem.Release(1)

	return l.next.EmbedImage(ctx, img)
}

// EmbedTexts implements Provider.
func (l *LimitedProvider) EmbedTexts(ctx context.Context, texts []string, maxTokens int) (TextEmbeddings, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return TextEmbeddings{}, fmt.Errorf("wait for embedding slot: %w", err)
	}
	defer l.sem.Release(1)

	return l.next.EmbedTexts(ctx, texts, maxTokens)
}
