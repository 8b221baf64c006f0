package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slspinola/bee2waste-sub002/pkg/outbox"
)

const collectionName = "outbox_events"

// OutboxRepository is the MongoDB implementation of outbox.Repository.
type OutboxRepository struct {
	collection *mongo.Collection
}

// NewOutboxRepository creates the repository on the service database.
func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the indexes backing the polling queries.
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "aggregateId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save stores one pending event.
func (r *OutboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

// SaveAll stores pending events in insertion order.
func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, len(events))
	for i, e := range events {
		docs[i] = e
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// FindUnpublished returns the oldest pending events.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	filter := bson.M{"publishedAt": nil}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*outbox.OutboxEvent
	err = cursor.All(ctx, &events)
	return events, err
}

// MarkPublished stamps the event as sent.
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"publishedAt": now}},
	)
	return err
}

// IncrementRetry bumps the retry counter with the failure reason.
func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, lastError string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{
			"$inc": bson.M{"retryCount": 1},
			"$set": bson.M{"lastError": lastError},
		},
	)
	return err
}

// DeletePublished prunes events published before the cutoff.
func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"publishedAt": bson.M{"$ne": nil, "$lt": olderThan},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindByAggregateID returns every outbox row of one aggregate.
func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"aggregateId": aggregateID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*outbox.OutboxEvent
	err = cursor.All(ctx, &events)
	return events, err
}
