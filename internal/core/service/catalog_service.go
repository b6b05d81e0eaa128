package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

// CatalogService owns the product collection. Every mutation is one
// serialized load, modify, save cycle.
type CatalogService struct {
	mu   sync.Mutex
	repo port.CatalogRepository
	opts options
}

func NewCatalogService(repo port.CatalogRepository, opts ...Option) *CatalogService {
	return &CatalogService{repo: repo, opts: buildOptions(opts)}
}

func (s *CatalogService) Create(ctx context.Context, draft domain.ProductDraft, image *domain.ImageUpload) (*domain.Product, error) {
	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	if err := s.attachImage(ctx, &draft, image); err != nil {
		return nil, err
	}

	var product domain.Product
	err := s.withLock(func() error {
		products, version, err := s.repo.LoadProducts(ctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		product = productFromDraft(s.nextID(products), draft)
		return s.save(ctx, append(products, product), version)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventProductCreated, product)
	return &product, nil
}

// Update replaces the product at its position, keeping its id. An empty image
// in the draft keeps the current one. Nothing is uploaded for a missing id.
func (s *CatalogService) Update(ctx context.Context, id int64, draft domain.ProductDraft, image *domain.ImageUpload) (*domain.Product, error) {
	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	if image != nil {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := s.attachImage(ctx, &draft, image); err != nil {
		return nil, err
	}

	var product domain.Product
	err := s.withLock(func() error {
		products, version, err := s.repo.LoadProducts(ctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		idx := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
		if idx < 0 {
			return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}

		if draft.Image == "" {
			draft.Image = products[idx].Image
		}
		product = productFromDraft(id, draft)
		products[idx] = product
		return s.save(ctx, products, version)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventProductUpdated, product)
	return &product, nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	removed, err := s.remove(ctx, map[int64]struct{}{id: {}})
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// BulkDelete removes every listed product and reports how many existed.
func (s *CatalogService) BulkDelete(ctx context.Context, ids []int64) (int, error) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return s.remove(ctx, set)
}

func (s *CatalogService) remove(ctx context.Context, ids map[int64]struct{}) (int, error) {
	var deleted []domain.Product
	err := s.withLock(func() error {
		products, version, err := s.repo.LoadProducts(ctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		kept := slices.DeleteFunc(slices.Clone(products), func(p domain.Product) bool {
			if _, ok := ids[p.ID]; ok {
				deleted = append(deleted, p)
				return true
			}
			return false
		})
		if len(deleted) == 0 {
			return nil
		}
		return s.save(ctx, kept, version)
	})
	if err != nil {
		return 0, err
	}

	for _, p := range deleted {
		s.emit(ctx, domain.EventProductDeleted, p)
	}
	return len(deleted), nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	products, _, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	idx := slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return &products[idx], nil
}

// Snapshot returns the full catalog in insertion order.
func (s *CatalogService) Snapshot(ctx context.Context) ([]domain.Product, error) {
	products, _, err := s.repo.LoadProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

// List filters, sorts and pages the catalog. The sort is stable so equal keys
// keep insertion order.
func (s *CatalogService) List(ctx context.Context, filter domain.ProductFilter, order domain.ProductSort, page, pageSize int) (*domain.ProductPage, error) {
	products, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	matched := FilterProducts(products, filter)
	SortProducts(matched, order)

	if pageSize <= 0 {
		pageSize = s.opts.pageSize
	}
	items, page, totalPages := paginate(matched, page, pageSize)

	return &domain.ProductPage{
		Products:   items,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      len(matched),
	}, nil
}

// Categories lists distinct non-empty categories in first-seen order.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	products, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories, nil
}

func FilterProducts(products []domain.Product, f domain.ProductFilter) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out
}

func SortProducts(products []domain.Product, order domain.ProductSort) {
	var compare func(a, b domain.Product) int
	switch order.Key {
	case domain.SortName:
		compare = func(a, b domain.Product) int {
			return strings.Compare(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName))
		}
	case domain.SortPrice:
		compare = func(a, b domain.Product) int {
			return cmp.Compare(a.Price, b.Price)
		}
	default:
		return
	}
	if order.Desc {
		asc := compare
		compare = func(a, b domain.Product) int { return asc(b, a) }
	}
	slices.SortStableFunc(products, compare)
}

func (s *CatalogService) attachImage(ctx context.Context, draft *domain.ProductDraft, image *domain.ImageUpload) error {
	if image == nil {
		return nil
	}
	if s.opts.uploader == nil {
		return &domain.UploadError{Err: errors.New("no image uploader configured")}
	}
	url, err := s.opts.uploader.Upload(ctx, image.Filename, image.Content)
	if err != nil {
		var uerr *domain.UploadError
		if errors.As(err, &uerr) {
			return err
		}
		return &domain.UploadError{Err: err}
	}
	draft.Image = url
	return nil
}

// nextID derives the id from the clock, moving past the largest id in use so
// two creations in the same millisecond stay distinct.
func (s *CatalogService) nextID(products []domain.Product) int64 {
	id := s.opts.now().UnixMilli()
	for _, p := range products {
		if p.ID >= id {
			id = p.ID + 1
		}
	}
	return id
}

// withLock runs one load, modify, save cycle. Events are emitted by the
// caller after it returns.
func (s *CatalogService) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *CatalogService) save(ctx context.Context, products []domain.Product, version int64) error {
	if err := s.repo.SaveProducts(ctx, products, version); err != nil {
		if errors.Is(err, port.ErrOptimisticLock) {
			return fmt.Errorf("save products: %w", domain.ErrConflict)
		}
		return fmt.Errorf("save products: %w", err)
	}
	return nil
}

func (s *CatalogService) emit(ctx context.Context, t domain.EventType, p domain.Product) {
	event := newEvent(t, p.Key(), p, s.opts.now())
	if err := s.opts.events.Publish(ctx, event); err != nil {
		s.opts.logger.Warn("publish event failed", "type", t, "product_id", p.ID, "error", err)
	}
}

func productFromDraft(id int64, d domain.ProductDraft) domain.Product {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return domain.Product{
		ID:          id,
		ProductName: d.ProductName,
		SKU:         d.SKU,
		Category:    d.Category,
		Price:       d.Price,
		Stock:       d.Stock,
		Description: d.Description,
		Image:       d.Image,
		Active:      active,
	}
}
