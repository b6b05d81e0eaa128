package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-admin/internal/port"
)

func TestMemoryStore_MissingEntry(t *testing.T) {
	store := NewMemoryStore()

	snap, err := store.Load(context.Background(), "products")
	require.NoError(t, err)
	assert.Nil(t, snap.Data)
	assert.Equal(t, int64(0), snap.Version)
}

func TestMemoryStore_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Store(ctx, "orders", []byte(`[1]`), 0))
	assert.ErrorIs(t, store.Store(ctx, "orders", []byte(`[2]`), 0), port.ErrOptimisticLock)

	snap, err := store.Load(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(snap.Data))
	assert.Equal(t, int64(1), snap.Version)

	require.NoError(t, store.Store(ctx, "orders", []byte(`[1,2]`), 1))
	snap, _ = store.Load(ctx, "orders")
	assert.Equal(t, int64(2), snap.Version)
}

func TestMemoryStore_ConcurrentWritersOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Store(ctx, "products", []byte(`[]`), 0) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
