package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/repository/migrations"
	"github.com/formbricks/zeroshot/pkg/database"
)

// labelStorePoolSize is enough for one merge and concurrent reads of a single row.
const labelStorePoolSize = 4

// labelMergeLockKey identifies the transaction-scoped advisory lock taken by Merge.
const labelMergeLockKey int64 = 0x6c6162656c73

// PostgresLabelStore keeps the vocabulary as a JSONB array in a single-row table.
type PostgresLabelStore struct {
	db *pgxpool.Pool
}

// NewPostgresLabelStore connects to dsn and applies the schema.
func NewPostgresLabelStore(ctx context.Context, dsn string) (*PostgresLabelStore, error) {
	pool, err := database.NewPostgresPool(ctx, dsn,
		database.WithMaxConns(labelStorePoolSize),
		database.WithApplicationName("zeroshot-labels"),
	)
	if err != nil {
		return nil, err
	}

	data, err := migrations.Postgres.ReadFile("postgres/001_labels.sql")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("read migration: %w", err)
	}

	if _, err := pool.Exec(ctx, string(data)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("exec migration: %w", err)
	}

	return &PostgresLabelStore{db: pool}, nil
}

type pgQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresLabelStore) load(ctx context.Context, q pgQueryer, forUpdate bool) ([]string, bool, error) {
	query := `SELECT labels FROM label_vocabulary WHERE id = 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var doc []byte

	err := q.QueryRow(ctx, query).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{}, false, nil
	}

	if err != nil {
		return nil, false, huberrors.NewPersistenceUnavailableError("failed to read label vocabulary", err)
	}

	labels, err := decodeVocabulary(doc)
	if err != nil {
		return nil, true, huberrors.NewPersistenceUnavailableError("stored label vocabulary is corrupt", err)
	}

	return labels, true, nil
}

// Read implements LabelStore.
func (s *PostgresLabelStore) Read(ctx context.Context) ([]string, error) {
	labels, _, err := s.load(ctx, s.db, false)

	return labels, err
}

// Snapshot implements LabelStore.
func (s *PostgresLabelStore) Snapshot(ctx context.Context) ([]string, error) {
	labels, found, err := s.load(ctx, s.db, false)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, huberrors.NewPersistenceUnavailableError("label vocabulary not initialized", nil)
	}

	return labels, nil
}

// Merge implements LabelStore. The advisory lock also covers the first write,
// when there is no row for FOR UPDATE to lock yet.
func (s *PostgresLabelStore) Merge(ctx context.Context, labels []string) ([]string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to begin transaction", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, labelMergeLockKey); err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to lock label vocabulary", err)
	}

	existing, _, err := s.load(ctx, tx, true)
	if err != nil {
		return nil, err
	}

	merged := mergeLabels(existing, labels)

	doc, err := encodeVocabulary(merged)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO label_vocabulary (id, labels, updated_at)
		VALUES (1, $1::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET labels = EXCLUDED.labels, updated_at = EXCLUDED.updated_at`,
		string(doc),
	)
	if err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to write label vocabulary", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, huberrors.NewPersistenceUnavailableError("failed to commit label vocabulary", err)
	}

	return merged, nil
}

// Close implements LabelStore.
func (s *PostgresLabelStore) Close() error {
	s.db.Close()

	return nil
}
