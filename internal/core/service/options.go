package service

import (
	"log/slog"
	"time"

	"github.com/rl1809/shop-admin/internal/port"
)

const DefaultPageSize = 8

type options struct {
	events   port.EventPublisher
	uploader port.ImageUploader
	now      func() time.Time
	pageSize int
	logger   *slog.Logger
}

type Option func(*options)

// WithEvents sets where domain events go. Events are dropped when unset.
func WithEvents(p port.EventPublisher) Option {
	return func(o *options) { o.events = p }
}

func WithUploader(u port.ImageUploader) Option {
	return func(o *options) { o.uploader = u }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		events:   nopPublisher{},
		now:      time.Now,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// paginate slices a 1-based page out of items. Out of range pages are empty.
// size must be positive; page and size may be arbitrarily large.
func paginate[T any](items []T, page, size int) ([]T, int, int) {
	if page < 1 {
		page = 1
	}
	totalPages := len(items) / size
	if len(items)%size != 0 {
		totalPages++
	}
	if page > totalPages {
		return []T{}, page, totalPages
	}
	start := (page - 1) * size
	end := start + min(size, len(items)-start)
	return items[start:end], page, totalPages
}
