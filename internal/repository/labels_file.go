package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio"

	"github.com/formbricks/zeroshot/internal/huberrors"
)

// FileLabelStore keeps the vocabulary in a single JSON file. Writes replace
// the file atomically, so readers never observe a partial document.
type FileLabelStore struct {
	path string
	mu   sync.Mutex
}

// NewFileLabelStore creates a store backed by the file at path. The file is
// not created until the first merge.
func NewFileLabelStore(path string) (*FileLabelStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create label directory: %w", err)
		}
	}

	return &FileLabelStore{path: path}, nil
}

// Read implements LabelStore.
func (s *FileLabelStore) Read(ctx context.Context) ([]string, error) {
	labels, _, err := s.load(ctx)

	return labels, err
}

// Snapshot implements LabelStore.
func (s *FileLabelStore) Snapshot(ctx context.Context) ([]string, error) {
	labels, found, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, huberrors.NewPersistenceUnavailableError("labels file not found", nil)
	}

	return labels, nil
}

// Merge implements LabelStore.
func (s *FileLabelStore) Merge(ctx context.Context, labels []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	merged := mergeLabels(existing, labels)

	data, err := encodeVocabulary(merged)
	if err != nil {
		return nil, err
	}

	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to write labels file", err)
	}

	slog.DebugContext(ctx, "label vocabulary written", "path", s.path, "count", len(merged))

	return merged, nil
}

// Close implements LabelStore.
func (s *FileLabelStore) Close() error { return nil }

// load reads the vocabulary file. found is false when the file does not exist.
func (s *FileLabelStore) load(ctx context.Context) (labels []string, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, false, nil
	}

	if err != nil {
		return nil, false, huberrors.NewPersistenceUnavailableError("failed to read labels file", err)
	}

	labels, err = decodeVocabulary(data)
	if err != nil {
		return nil, true, huberrors.NewPersistenceUnavailableError("labels file is corrupt", err)
	}

	return labels, true, nil
}
