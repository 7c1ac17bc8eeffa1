package service

import (
	"context"
	"sync"
	"time"
)

// recordingMetrics captures the outcomes recorded through observability.Metrics.
type recordingMetrics struct {
	mu              sync.Mutex
	classifications []string
	vocabularySizes []int
	embeddings      []string
	merges          []string
	mergeSizes      []int
}

func (m *recordingMetrics) RecordRequest(context.Context, string, string, string, time.Duration) {}

func (m *recordingMetrics) RecordRequestBodyTooLarge(context.Context) {}

func (m *recordingMetrics) RecordClassification(_ context.Context, outcome string, vocabularySize int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.classifications = append(m.classifications, outcome)
	m.vocabularySizes = append(m.vocabularySizes, vocabularySize)
}

func (m *recordingMetrics) RecordEmbedding(_ context.Context, operation, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.embeddings = append(m.embeddings, operation+":"+outcome)
}

func (m *recordingMetrics) RecordLabelMerge(_ context.Context, outcome string, vocabularySize int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.merges = append(m.merges, outcome)
	m.mergeSizes = append(m.mergeSizes, vocabularySize)
}
