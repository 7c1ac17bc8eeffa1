package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/repository/migrations"
)

// SQLiteLabelStore keeps the vocabulary as a JSON document in a single-row table.
type SQLiteLabelStore struct {
	db *sql.DB
}

// NewSQLiteLabelStore opens (creating if needed) the database at path and applies the schema.
func NewSQLiteLabelStore(ctx context.Context, path string) (*SQLiteLabelStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes every transaction in this process.
	db.SetMaxOpenConns(1)

	if err := runSQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteLabelStore{db: db}, nil
}

func runSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	data, err := migrations.SQLite.ReadFile("sqlite/001_labels.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}

	return nil
}

type sqlQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteLabelStore) load(ctx context.Context, q sqlQueryer) ([]string, bool, error) {
	var doc string

	err := q.QueryRowContext(ctx, `SELECT labels FROM label_vocabulary WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, false, nil
	}

	if err != nil {
		return nil, false, huberrors.NewPersistenceUnavailableError("failed to read label vocabulary", err)
	}

	labels, err := decodeVocabulary([]byte(doc))
	if err != nil {
		return nil, true, huberrors.NewPersistenceUnavailableError("stored label vocabulary is corrupt", err)
	}

	return labels, true, nil
}

// Read implements LabelStore.
func (s *SQLiteLabelStore) Read(ctx context.Context) ([]string, error) {
	labels, _, err := s.load(ctx, s.db)

	return labels, err
}

// Snapshot implements LabelStore.
func (s *SQLiteLabelStore) Snapshot(ctx context.Context) ([]string, error) {
	labels, found, err := s.load(ctx, s.db)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, huberrors.NewPersistenceUnavailableError("label vocabulary not initialized", nil)
	}

	return labels, nil
}

// Merge implements LabelStore.
func (s *SQLiteLabelStore) Merge(ctx context.Context, labels []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to begin transaction", err)
	}

	defer func() { _ = tx.Rollback() }()

	existing, _, err := s.load(ctx, tx)
	if err != nil {
		return nil, err
	}

	merged := mergeLabels(existing, labels)

	doc, err := encodeVocabulary(merged)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO label_vocabulary (id, labels, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET labels = excluded.labels, updated_at = excluded.updated_at`,
		string(doc),
	)
	if err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to write label vocabulary", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to commit label vocabulary", err)
	}

	return merged, nil
}

// Close implements LabelStore.
func (s *SQLiteLabelStore) Close() error {
	return s.db.Close()
}
