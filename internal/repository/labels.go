package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/formbricks/zeroshot/internal/huberrors"
)

// LabelStore persists the label vocabulary: a deduplicated list of label strings.
type LabelStore interface {
	// Read returns the current vocabulary, or an empty list if it was never written.
	Read(ctx context.Context) ([]string, error)
	// Snapshot returns the vocabulary for classification. Unlike Read it
	// reports PersistenceUnavailable when the vocabulary was never written.
	Snapshot(ctx context.Context) ([]string, error)
	// Merge adds labels not already present, persists the result and returns
	// the full vocabulary. Concurrent merges are serialized.
	Merge(ctx context.Context, labels []string) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}

// ParseLabels validates a raw JSON value as a list of strings. An absent value
// is an empty list. Anything else, including null, a non-array or an array
// with a non-string element, is rejected as a whole.
func ParseLabels(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []string{}, nil
	}

	var elems []json.RawMessage
	if raw[0] != '[' || json.Unmarshal(raw, &elems) != nil {
		return nil, huberrors.NewInvalidLabelFormatError(-1, "")
	}

	labels := make([]string, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '"' {
			return nil, huberrors.NewInvalidLabelFormatError(i, "")
		}

		if err := json.Unmarshal(elem, &labels[i]); err != nil {
			return nil, huberrors.NewInvalidLabelFormatError(i, "")
		}
	}

	return labels, nil
}

// mergeLabels returns existing followed by each label of incoming not seen
// before, in first-occurrence order. Duplicates already present in existing
// are collapsed too.
func mergeLabels(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))

	for _, group := range [][]string{existing, incoming} {
		for _, label := range group {
			if _, ok := seen[label]; ok {
				continue
			}

			seen[label] = struct{}{}
			merged = append(merged, label)
		}
	}

	return merged
}

// decodeVocabulary parses a persisted vocabulary document.
func decodeVocabulary(data []byte) ([]string, error) {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("decode label vocabulary: %w", err)
	}

	if labels == nil {
		labels = []string{}
	}

	return labels, nil
}

// encodeVocabulary renders labels as a JSON array indented with two spaces.
func encodeVocabulary(labels []string) ([]byte, error) {
	if labels == nil {
		labels = []string{}
	}

	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode label vocabulary: %w", err)
	}

	return data, nil
}
