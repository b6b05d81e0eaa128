package messaging

import (
	"context"
	"log/slog"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_id", event.ID,
		"type", event.Type,
		"aggregate_id", event.AggregateID,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
