package port

import (
	"context"
	"io"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

type ImageUploader interface {
	// Upload sends one image to the hosting service and returns its public URL
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
