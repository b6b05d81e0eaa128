package port

import (
	"context"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

type CatalogRepository interface {
	// LoadProducts returns the whole catalog in insertion order plus the version it was read at
	LoadProducts(ctx context.Context) ([]domain.Product, int64, error)

	// SaveProducts replaces the catalog, guarded by the version returned from LoadProducts
	SaveProducts(ctx context.Context, products []domain.Product, version int64) error
}

type OrderRepository interface {
	// LoadOrders returns all orders in insertion order plus the version it was read at
	LoadOrders(ctx context.Context) ([]domain.Order, int64, error)

	// SaveOrders replaces the order collection, guarded by the version returned from LoadOrders
	SaveOrders(ctx context.Context, orders []domain.Order, version int64) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
