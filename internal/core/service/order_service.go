package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

// ProductSource supplies the catalog snapshot orders are priced against.
type ProductSource interface {
	Snapshot(ctx context.Context) ([]domain.Product, error)
}

// OrderService owns the order collection and keeps each order's cached total
// in line with its selection at save time.
type OrderService struct {
	mu      sync.Mutex
	repo    port.OrderRepository
	catalog ProductSource
	opts    options
}

func NewOrderService(repo port.OrderRepository, catalog ProductSource, opts ...Option) *OrderService {
	return &OrderService{repo: repo, catalog: catalog, opts: buildOptions(opts)}
}

func (s *OrderService) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	if err := ValidateSelection(draft.SelectedProducts); err != nil {
		return nil, err
	}
	if err := validateStruct(draft); err != nil {
		return nil, err
	}

	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	err = s.withLock(func() error {
		orders, version, err := s.repo.LoadOrders(ctx)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}

		now := s.opts.now()
		quantities := maps.Clone(draft.Quantities)
		if quantities == nil {
			quantities = map[string]int{}
		}
		order = domain.Order{
			ID:               nextOrderID(orders, now),
			ClientName:       draft.ClientName,
			DeliveryAddress:  draft.DeliveryAddress,
			SelectedProducts: slices.Clone(draft.SelectedProducts),
			Quantities:       quantities,
			PaymentStatus:    draft.PaymentStatus,
			DeliveryStatus:   draft.DeliveryStatus,
			ExpectedDelivery: draft.ExpectedDelivery,
			TotalAmount:      ComputeTotal(draft.SelectedProducts, quantities, products),
			CreatedAt:        now,
		}
		return s.save(ctx, append(orders, order), version)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventOrderCreated, order)
	return &order, nil
}

// Update merges the patch into the stored order, normalizes quantities to at
// least one per selected product and recomputes the total. Id and createdAt
// never change.
func (s *OrderService) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var merged domain.Order
	err = s.withLock(func() error {
		orders, version, err := s.repo.LoadOrders(ctx)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}

		idx := slices.IndexFunc(orders, func(o domain.Order) bool { return o.ID == id })
		if idx < 0 {
			return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}

		merged = applyPatch(orders[idx], patch)
		if err := ValidateSelection(merged.SelectedProducts); err != nil {
			return err
		}
		merged.TotalAmount = ComputeTotal(merged.SelectedProducts, merged.Quantities, products)
		orders[idx] = merged
		return s.save(ctx, orders, version)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventOrderUpdated, merged)
	return &merged, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	var deleted domain.Order
	err := s.withLock(func() error {
		orders, version, err := s.repo.LoadOrders(ctx)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}

		idx := slices.IndexFunc(orders, func(o domain.Order) bool { return o.ID == id })
		if idx < 0 {
			return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		deleted = orders[idx]
		return s.save(ctx, slices.Delete(orders, idx, idx+1), version)
	})
	if err != nil {
		return err
	}

	s.emit(ctx, domain.EventOrderDeleted, deleted)
	return nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	orders, _, err := s.repo.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	idx := slices.IndexFunc(orders, func(o domain.Order) bool { return o.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return &orders[idx], nil
}

// List returns one page of orders, most recent first.
func (s *OrderService) List(ctx context.Context, page, pageSize int) (*domain.OrderPage, error) {
	orders, _, err := s.repo.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	slices.Reverse(orders)

	if pageSize <= 0 {
		pageSize = s.opts.pageSize
	}
	items, page, totalPages := paginate(orders, page, pageSize)

	return &domain.OrderPage{
		Orders:     items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      len(orders),
	}, nil
}

// Quote prices an unsaved selection against current prices. Quantities use
// the drafting floor of zero.
func (s *OrderService) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	quote := Breakdown(req.SelectedProducts, NormalizeQuantities(req.Quantities, FloorCreate), products)
	return &quote, nil
}

// Reprice recomputes a stored order against current prices without saving,
// reporting whether the cached total has drifted.
func (s *OrderService) Reprice(ctx context.Context, id string) (*domain.Repricing, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	quote := Breakdown(order.SelectedProducts, order.Quantities, products)
	return &domain.Repricing{
		OrderID:     order.ID,
		Lines:       quote.Lines,
		StoredTotal: order.TotalAmount,
		LiveTotal:   quote.Total,
		Stale:       quote.Total != order.TotalAmount,
	}, nil
}

func applyPatch(o domain.Order, p domain.OrderPatch) domain.Order {
	if p.ClientName != nil {
		o.ClientName = *p.ClientName
	}
	if p.DeliveryAddress != nil {
		o.DeliveryAddress = *p.DeliveryAddress
	}
	if p.SelectedProducts != nil {
		o.SelectedProducts = slices.Clone(p.SelectedProducts)
	} else {
		o.SelectedProducts = slices.Clone(o.SelectedProducts)
	}
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.DeliveryStatus != nil {
		o.DeliveryStatus = *p.DeliveryStatus
	}
	if p.ExpectedDelivery != nil {
		o.ExpectedDelivery = *p.ExpectedDelivery
	}

	raw := p.Quantities
	if raw == nil {
		raw = rawQuantities(o.Quantities)
	}
	quantities := NormalizeQuantities(raw, FloorEdit)
	for _, id := range o.SelectedProducts {
		if _, ok := quantities[id]; !ok {
			quantities[id] = FloorEdit
		}
	}
	o.Quantities = quantities
	return o
}

// nextOrderID derives the id from the creation time, moving forward one
// millisecond at a time until it is free.
func nextOrderID(orders []domain.Order, now time.Time) string {
	taken := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		taken[o.ID] = struct{}{}
	}
	ms := now.UnixMilli()
	for {
		id := domain.OrderIDPrefix + strconv.FormatInt(ms, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

// withLock runs one load, modify, save cycle. Events are emitted by the
// caller after it returns, never while the lock is held.
func (s *OrderService) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *OrderService) save(ctx context.Context, orders []domain.Order, version int64) error {
	if err := s.repo.SaveOrders(ctx, orders, version); err != nil {
		if errors.Is(err, port.ErrOptimisticLock) {
			return fmt.Errorf("save orders: %w", domain.ErrConflict)
		}
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}

func (s *OrderService) emit(ctx context.Context, t domain.EventType, o domain.Order) {
	event := newEvent(t, o.ID, o, s.opts.now())
	if err := s.opts.events.Publish(ctx, event); err != nil {
		s.opts.logger.Warn("publish event failed", "type", t, "order_id", o.ID, "error", err)
	}
}
