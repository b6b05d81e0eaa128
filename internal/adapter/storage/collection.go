package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

const (
	ProductsKey = "products"
	OrdersKey   = "orders"
)

// collection stores a whole slice as one JSON array under a state key.
// A missing or empty entry reads as an empty slice.
type collection[T any] struct {
	store port.StateStore
	key   string
}

func (c collection[T]) load(ctx context.Context) ([]T, int64, error) {
	snap, err := c.store.Load(ctx, c.key)
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", c.key, err)
	}

	items := []T{}
	if len(snap.Data) > 0 {
		if err := json.Unmarshal(snap.Data, &items); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", c.key, err)
		}
	}
	return items, snap.Version, nil
}

func (c collection[T]) save(ctx context.Context, items []T, version int64) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Store(ctx, c.key, data, version); err != nil {
		return fmt.Errorf("store %s: %w", c.key, err)
	}
	return nil
}

// reset empties the entry regardless of its current content.
func (c collection[T]) reset(ctx context.Context) error {
	snap, err := c.store.Load(ctx, c.key)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.key, err)
	}
	return c.save(ctx, nil, snap.Version)
}

// CatalogStore persists the product list under the "products" key.
type CatalogStore struct {
	c collection[domain.Product]
}

func NewCatalogStore(store port.StateStore) *CatalogStore {
	return &CatalogStore{c: collection[domain.Product]{store: store, key: ProductsKey}}
}

func (s *CatalogStore) LoadProducts(ctx context.Context) ([]domain.Product, int64, error) {
	return s.c.load(ctx)
}

func (s *CatalogStore) SaveProducts(ctx context.Context, products []domain.Product, version int64) error {
	return s.c.save(ctx, products, version)
}

func (s *CatalogStore) Reset(ctx context.Context) error {
	return s.c.reset(ctx)
}

// OrderStore persists the order list under the "orders" key.
type OrderStore struct {
	c collection[domain.Order]
}

func NewOrderStore(store port.StateStore) *OrderStore {
	return &OrderStore{c: collection[domain.Order]{store: store, key: OrdersKey}}
}

func (s *OrderStore) LoadOrders(ctx context.Context) ([]domain.Order, int64, error) {
	return s.c.load(ctx)
}

func (s *OrderStore) SaveOrders(ctx context.Context, orders []domain.Order, version int64) error {
	return s.c.save(ctx, orders, version)
}

func (s *OrderStore) Reset(ctx context.Context) error {
	return s.c.reset(ctx)
}
