package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/pkg/cloudevents"
	"github.com/slspinola/bee2waste-sub002/pkg/kafka"
	"github.com/slspinola/bee2waste-sub002/pkg/outbox"
	outboxMongo "github.com/slspinola/bee2waste-sub002/pkg/outbox/mongodb"
)

// WasteEntryRepository persists entries with their domain events in one
// transaction via the outbox.
type WasteEntryRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewWasteEntryRepository creates the repository and its indexes.
func NewWasteEntryRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *WasteEntryRepository {
	repo := &WasteEntryRepository{
		collection:   db.Collection("waste_entries"),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *WasteEntryRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "entryId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parkId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "vehicle.registration", Value: 1}}},
		{Keys: bson.D{{Key: "manifest.reference", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Save persists the entry and writes its domain events to the outbox in a
// single transaction, so a committed transition always has its events.
//
// The write is guarded by the entry's version: the replace filter demands the
// version the caller loaded. A writer holding a stale version matches no
// document, the upsert then collides with the unique entryId index, and the
// caller gets ConcurrentModificationError instead of silently overwriting the
// winner's transition.
func (r *WasteEntryRepository) Save(ctx context.Context, entry *domain.WasteEntry) error {
	entry.UpdatedAt = time.Now()
	expected := entry.Version

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		entry.Version = expected + 1

		opts := options.Replace().SetUpsert(true)
		filter := bson.M{"entryId": entry.EntryID, "version": expected}
		if _, err := r.collection.ReplaceOne(sessCtx, filter, entry, opts); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, &domain.ConcurrentModificationError{EntryID: entry.EntryID}
			}
			return nil, fmt.Errorf("failed to save waste entry: %w", err)
		}

		outboxEvents, err := r.buildOutboxEvents(sessCtx, entry)
		if err != nil {
			return nil, err
		}
		if len(outboxEvents) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return nil, fmt.Errorf("failed to save outbox events: %w", err)
			}
		}
		return nil, nil
	})

	if err != nil {
		entry.Version = expected
		var conflict *domain.ConcurrentModificationError
		if errors.As(err, &conflict) {
			return conflict
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	entry.ClearDomainEvents()
	return nil
}

func (r *WasteEntryRepository) buildOutboxEvents(ctx context.Context, entry *domain.WasteEntry) ([]*outbox.OutboxEvent, error) {
	domainEvents := entry.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil, nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := r.eventFactory.CreateEntryEvent(ctx, event.EventType(), entry.ParkID, entry.EntryID, event)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			entry.EntryID,
			"WasteEntry",
			kafka.Topics.IntakeEvents,
			cloudEvent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxEvents, nil
}

// FindByID returns the entry or nil when absent.
func (r *WasteEntryRepository) FindByID(ctx context.Context, entryID string) (*domain.WasteEntry, error) {
	var entry domain.WasteEntry
	err := r.collection.FindOne(ctx, bson.M{"entryId": entryID}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &entry, err
}

// FindByPark lists a park's entries, newest first.
func (r *WasteEntryRepository) FindByPark(ctx context.Context, parkID string, p domain.Pagination) ([]*domain.WasteEntry, error) {
	return r.find(ctx, bson.M{"parkId": parkID}, p)
}

// FindByStatus lists a park's entries in a given status.
func (r *WasteEntryRepository) FindByStatus(ctx context.Context, parkID string, status domain.EntryStatus, p domain.Pagination) ([]*domain.WasteEntry, error) {
	return r.find(ctx, bson.M{"parkId": parkID, "status": status}, p)
}

func (r *WasteEntryRepository) find(ctx context.Context, filter bson.M, p domain.Pagination) ([]*domain.WasteEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(p.Offset).
		SetLimit(p.Limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*domain.WasteEntry
	err = cursor.All(ctx, &entries)
	return entries, err
}

// GetOutboxRepository returns the outbox repository for the publisher.
func (r *WasteEntryRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}
