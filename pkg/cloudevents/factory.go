package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for park domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new ParkCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *ParkCloudEvent {
	event := &ParkCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
	if v, ok := ctx.Value(contextKeyCorrelationID).(string); ok {
		event.CorrelationID = v
	}
	return event
}

// CreateEntryEvent creates an event scoped to a waste entry
func (f *EventFactory) CreateEntryEvent(ctx context.Context, eventType, parkID, entryID string, data interface{}) *ParkCloudEvent {
	event := f.CreateEvent(ctx, eventType, "entry/"+entryID, data)
	event.ParkID = parkID
	event.EntryID = entryID
	return event
}

type factoryContextKey string

const contextKeyCorrelationID factoryContextKey = "correlationId"

// WithCorrelationID stores a correlation id for events created from ctx.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, contextKeyCorrelationID, correlationID)
}
