package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-admin/internal/port"
)

func TestFileStore_WritesOneFilePerKey(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	store, err := NewFileStore(fsys, "/data")
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, "products", []byte(`[{"id":1}]`), 0))

	raw, err := afero.ReadFile(fsys, "/data/products.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(raw))

	entries, err := afero.ReadDir(fsys, "/data")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_ReadsExistingFile(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/orders.json", []byte(`[]`), 0o644))

	store, err := NewFileStore(fsys, "/data")
	require.NoError(t, err)

	snap, err := store.Load(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(snap.Data))
	assert.Equal(t, int64(0), snap.Version)
}

func TestFileStore_StaleVersion(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, "orders", []byte(`[1]`), 0))
	assert.ErrorIs(t, store.Store(ctx, "orders", []byte(`[2]`), 0), port.ErrOptimisticLock)

	snap, err := store.Load(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(snap.Data))
	assert.Equal(t, int64(1), snap.Version)
}

func TestFileStore_Ping(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store, err := NewFileStore(fsys, "/data")
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))

	require.NoError(t, fsys.RemoveAll("/data"))
	assert.Error(t, store.Ping(context.Background()))
}
