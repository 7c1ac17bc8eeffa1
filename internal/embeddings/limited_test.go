package embeddings

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingProvider records the peak number of concurrent calls and blocks until released.
type blockingProvider struct {
	active  atomic.Int32
	peak    atomic.Int32
	release chan struct{}
}

func (b *blockingProvider) enter() {
	n := b.active.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}

	<-b.release
	b.active.Add(-1)
}

func (b *blockingProvider) EmbedImage(context.Context, image.Image) (ImageEmbedding, error) {
	b.enter()
	return ImageEmbedding{Vector: []float32{1}, LogitScale: 1}, nil
}

func (b *blockingProvider) EmbedTexts(_ context.Context, texts []string, _ int) (TextEmbeddings, error) {
	b.enter()
	return TextEmbeddings{Vectors: make([][]float32, len(texts)), LogitScale: 1}, nil
}

func TestNewLimitedProvider_Unbounded(t *testing.T) {
	mock := NewMockProvider()

	assert.Same(t, mock, NewLimitedProvider(mock, 0))
	assert.Same(t, mock, NewLimitedProvider(mock, -3))
}

func TestLimitedProvider_BoundsConcurrency(t *testing.T) {
	inner := &blockingProvider{release: make(chan struct{})}
	p := NewLimitedProvider(inner, 2)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.EmbedTexts(context.Background(), []string{"a"}, 256)
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return inner.active.Load() == 2 }, time.Second, time.Millisecond)

	for range 6 {
		inner.release <- struct{}{}
	}

	wg.Wait()
	assert.Equal(t, int32(2), inner.peak.Load())
}

func TestLimitedProvider_ContextCancelled(t *testing.T) {
	inner := &blockingProvider{release: make(chan struct{})}
	p := NewLimitedProvider(inner, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.EmbedImage(context.Background(), nil)
	}()

	require.Eventually(t, func() bool { return inner.active.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.EmbedTexts(ctx, []string{"a"}, 256)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "wait for embedding slot")

	inner.release <- struct{}{}
	<-done
}
