package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/zeroshot/internal/huberrors"
)

func newTestSQLiteStore(t *testing.T) *SQLiteLabelStore {
	t.Helper()

	store, err := NewSQLiteLabelStore(context.Background(), filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteLabelStore_Contract(t *testing.T) {
	runLabelStoreContract(t, func(t *testing.T) LabelStore {
		return newTestSQLiteStore(t)
	})
}

func TestSQLiteLabelStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "labels.db")

	store, err := NewSQLiteLabelStore(ctx, path)
	require.NoError(t, err)

	_, err = store.Merge(ctx, []string{"cat", "dog"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteLabelStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	labels, err := reopened.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, labels)
}

func TestSQLiteLabelStore_CorruptRow(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	_, err := store.db.ExecContext(ctx, `INSERT INTO label_vocabulary (id, labels) VALUES (1, '{"not":"a list"}')`)
	require.NoError(t, err)

	_, err = store.Snapshot(ctx)
	assert.ErrorIs(t, err, huberrors.ErrPersistenceUnavailable)

	_, err = store.Merge(ctx, []string{"a"})
	assert.ErrorIs(t, err, huberrors.ErrPersistenceUnavailable)
}

func TestSQLiteLabelStore_ClosedDatabase(t *testing.T) {
	store, err := NewSQLiteLabelStore(context.Background(), filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Read(context.Background())
	assert.ErrorIs(t, err, huberrors.ErrPersistenceUnavailable)
}
