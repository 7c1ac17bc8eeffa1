package repository

import (
	"context"
	"fmt"
	"strings"
)

// DefaultLabelsPath is used when no DSN is configured.
const DefaultLabelsPath = "labels.json"

// NewLabelStore creates a label store based on the DSN.
//   - Empty DSN: JSON file at labels.json
//   - postgres:// or postgresql://: PostgreSQL
//   - sqlite://path: SQLite database at path
//   - Anything else: JSON file at the specified path
func NewLabelStore(ctx context.Context, dsn string) (LabelStore, error) {
	switch {
	case dsn == "":
		return newFileStore(DefaultLabelsPath)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err := NewPostgresLabelStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}

		return store, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		store, err := NewSQLiteLabelStore(ctx, strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}

		return store, nil
	default:
		return newFileStore(dsn)
	}
}

func newFileStore(path string) (LabelStore, error) {
	store, err := NewFileLabelStore(path)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}

	return store, nil
}
