package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-admin/internal/adapter/storage"
	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
	"github.com/rl1809/shop-admin/internal/port"
)

func stateStores(t *testing.T) map[string]port.StateStore {
	t.Helper()
	files, err := storage.NewFileStore(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)

	return map[string]port.StateStore{
		"memory": storage.NewMemoryStore(),
		"file":   files,
	}
}

func seedCatalog(t *testing.T, catalog *service.CatalogService) []domain.Product {
	t.Helper()
	drafts := []domain.ProductDraft{
		{ProductName: "Keyboard", SKU: "KB-1", Category: "Peripherals", Price: 100, Stock: 5},
		{ProductName: "Mouse", SKU: "MS-1", Category: "Peripherals", Price: 50, Stock: 5},
	}
	var out []domain.Product
	for _, d := range drafts {
		p, err := catalog.Create(context.Background(), d, nil)
		require.NoError(t, err)
		out = append(out, *p)
	}
	return out
}

func TestOrderLifecycle(t *testing.T) {
	for name, store := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			catalog := service.NewCatalogService(storage.NewCatalogStore(store))
			orders := service.NewOrderService(storage.NewOrderStore(store), catalog)
			products := seedCatalog(t, catalog)

			created, err := orders.Create(ctx, domain.OrderDraft{
				ClientName:       "Rahim",
				DeliveryAddress:  "12 Lake Road",
				SelectedProducts: []string{products[0].Key(), products[1].Key()},
				Quantities:       map[string]int{products[0].Key(): 2, products[1].Key(): 3},
				PaymentStatus:    domain.PaymentStatusPending,
				DeliveryStatus:   domain.DeliveryStatusPending,
				ExpectedDelivery: "2025-03-10",
			})
			require.NoError(t, err)
			assert.Equal(t, 350.0, created.TotalAmount)

			// a fresh service over the same store sees the persisted order
			reopened := service.NewOrderService(storage.NewOrderStore(store), catalog)
			got, err := reopened.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.Quantities, got.Quantities)

			updated, err := reopened.Update(ctx, created.ID, domain.OrderPatch{
				Quantities: map[string]any{products[0].Key(): "abc", products[1].Key(): 0},
			})
			require.NoError(t, err)
			assert.Equal(t, 150.0, updated.TotalAmount)

			require.NoError(t, reopened.Delete(ctx, created.ID))
			_, err = reopened.Get(ctx, created.ID)
			assert.True(t, errors.Is(err, domain.ErrNotFound))
		})
	}
}

func TestConcurrentOrders(t *testing.T) {
	for name, store := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			catalog := service.NewCatalogService(storage.NewCatalogStore(store))
			orders := service.NewOrderService(storage.NewOrderStore(store), catalog)
			products := seedCatalog(t, catalog)

			const total = 40
			var wg sync.WaitGroup
			for i := 0; i < total; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := orders.Create(ctx, domain.OrderDraft{
						ClientName:       fmt.Sprintf("client-%d", i),
						DeliveryAddress:  "somewhere",
						SelectedProducts: []string{products[1].Key()},
						Quantities:       map[string]int{products[1].Key(): 1},
						PaymentStatus:    domain.PaymentStatusPaid,
						DeliveryStatus:   domain.DeliveryStatusPending,
						ExpectedDelivery: "2025-03-10",
					})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			page, err := orders.List(ctx, 1, total)
			require.NoError(t, err)
			assert.Equal(t, total, page.Total)

			seen := map[string]bool{}
			for _, o := range page.Orders {
				assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
				seen[o.ID] = true
				assert.Equal(t, 50.0, o.TotalAmount)
			}
		})
	}
}

func TestTwoServicesSameStoreConflict(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := storage.NewCatalogStore(store)

	products, version, err := repo.LoadProducts(ctx)
	require.NoError(t, err)

	// another process writes in between
	other := service.NewCatalogService(storage.NewCatalogStore(store))
	_, err = other.Create(ctx, domain.ProductDraft{ProductName: "Hub", SKU: "H", Category: "x", Price: 1}, nil)
	require.NoError(t, err)

	err = repo.SaveProducts(ctx, append(products, domain.Product{ID: 1}), version)
	assert.ErrorIs(t, err, port.ErrOptimisticLock)
}
