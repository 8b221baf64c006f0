package outbox

import (
	"context"
	"time"
)

// Repository stores pending outbox events. Save and SaveAll must be called
// inside the same transaction as the aggregate write.
type Repository interface {
	Save(ctx context.Context, event *OutboxEvent) error
	SaveAll(ctx context.Context, events []*OutboxEvent) error
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID string) error
	IncrementRetry(ctx context.Context, eventID string, lastError string) error
	DeletePublished(ctx context.Context, olderThan time.Time) (int64, error)
	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}
