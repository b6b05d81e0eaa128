package service

import (
	"context"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

// Mock CatalogRepository
type mockCatalogRepo struct {
	mu       sync.Mutex
	products []domain.Product
	version  int64
	saves    int
	conflict bool
}

func (m *mockCatalogRepo) LoadProducts(ctx context.Context) ([]domain.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.products), m.version, nil
}

func (m *mockCatalogRepo) SaveProducts(ctx context.Context, products []domain.Product, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflict || version != m.version {
		return port.ErrOptimisticLock
	}
	m.products = slices.Clone(products)
	m.version++
	m.saves++
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu      sync.Mutex
	orders  []domain.Order
	version int64
	saves   int
}

func (m *mockOrderRepo) LoadOrders(ctx context.Context) ([]domain.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, len(m.orders))
	for i, o := range m.orders {
		o.SelectedProducts = slices.Clone(o.SelectedProducts)
		o.Quantities = maps.Clone(o.Quantities)
		out[i] = o
	}
	return out, m.version, nil
}

func (m *mockOrderRepo) SaveOrders(ctx context.Context, orders []domain.Order, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != m.version {
		return port.ErrOptimisticLock
	}
	m.orders = slices.Clone(orders)
	m.version++
	m.saves++
	return nil
}

type staticCatalog []domain.Product

func (c staticCatalog) Snapshot(ctx context.Context) ([]domain.Product, error) {
	return slices.Clone([]domain.Product(c)), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type stubUploader struct {
	url   string
	err   error
	calls int
}

func (u *stubUploader) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

// fixedClock returns t and advances by step on every call.
func fixedClock(t time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(step)
		return now
	}
}
