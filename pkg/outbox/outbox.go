package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slspinola/bee2waste-sub002/pkg/cloudevents"
)

// DefaultMaxRetries is how often the publisher retries a failed event
// before parking it for manual inspection.
const DefaultMaxRetries = 10

// OutboxEvent is one pending event row. Events are written in the same
// transaction as the aggregate change and published asynchronously, which
// is what makes transition events exactly-once with respect to the commit.
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	Headers       map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

// NewOutboxEventFromCloudEvent wraps a CloudEvent envelope as a pending
// outbox row destined for the given topic.
func NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic string, event *cloudevents.ParkCloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	return &OutboxEvent{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     event.Type,
		Topic:         topic,
		Payload:       payload,
		Headers:       event.KafkaHeaders(),
		CreatedAt:     time.Now(),
		RetryCount:    0,
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// IsExhausted reports whether the event has used up its retries.
func (e *OutboxEvent) IsExhausted() bool {
	return e.RetryCount >= e.MaxRetries
}
