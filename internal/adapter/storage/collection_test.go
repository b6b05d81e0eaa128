package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

func TestOrderStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderStore(NewMemoryStore())

	loaded, version, err := orders.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.NotNil(t, loaded)
	assert.Equal(t, int64(0), version)

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	want := []domain.Order{{
		ID:               "ORD-1740823200000",
		ClientName:       "Rahim",
		DeliveryAddress:  "12 Lake Road",
		SelectedProducts: []string{"1", "2"},
		Quantities:       map[string]int{"1": 2, "2": 3},
		PaymentStatus:    domain.PaymentStatusPaid,
		DeliveryStatus:   domain.DeliveryStatusShipped,
		ExpectedDelivery: "2025-03-10",
		TotalAmount:      350,
		CreatedAt:        created,
	}}
	require.NoError(t, orders.SaveOrders(ctx, want, version))

	got, version, err := orders.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, want, got)
}

func TestCatalogStore_StaleVersion(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalogStore(NewMemoryStore())

	require.NoError(t, catalog.SaveProducts(ctx, []domain.Product{{ID: 1, ProductName: "Keyboard"}}, 0))

	err := catalog.SaveProducts(ctx, nil, 0)
	assert.ErrorIs(t, err, port.ErrOptimisticLock)
}

func TestCatalogStore_WritesJSONArray(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	catalog := NewCatalogStore(mem)

	require.NoError(t, catalog.SaveProducts(ctx, nil, 0))

	snap, err := mem.Load(ctx, ProductsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(snap.Data))
}

func TestCatalogStore_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Store(ctx, ProductsKey, []byte(`{not json`), 0))

	_, _, err := NewCatalogStore(mem).LoadProducts(ctx)
	assert.Error(t, err)
}

func TestCollection_Reset(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	orders := NewOrderStore(mem)
	require.NoError(t, orders.SaveOrders(ctx, []domain.Order{{ID: "ORD-1"}}, 0))

	require.NoError(t, orders.Reset(ctx))

	got, version, err := orders.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(2), version)
}
