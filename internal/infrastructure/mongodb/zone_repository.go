package mongodb

import (
	"context"
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

// StorageZoneRepository persists zones. Zone writes during allocation go
// through the allocator's transaction; Save here covers administration.
type StorageZoneRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewStorageZoneRepository creates the repository and its indexes.
func NewStorageZoneRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *StorageZoneRepository {
	repo := &StorageZoneRepository{
		collection:   db.Collection("storage_zones"),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StorageZoneRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "zoneId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parkId", Value: 1}, {Key: "zoneCode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parkId", Value: 1}, {Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the zone and its events in one transaction.
func (r *StorageZoneRepository) Save(ctx context.Context, zone *domain.StorageZone) error {
	zone.UpdatedAt = time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		if _, err := r.collection.UpdateOne(sessCtx,
			bson.M{"zoneId": zone.ZoneID},
			bson.M{"$set": zone},
			opts,
		); err != nil {
			return nil, fmt.Errorf("failed to save zone: %w", err)
		}

		domainEvents := zone.GetDomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
			for _, event := range domainEvents {
				cloudEvent := r.eventFactory.CreateEvent(sessCtx, event.EventType(), "zone/"+zone.ZoneID, event)
				cloudEvent.ParkID = zone.ParkID

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					zone.ZoneID, "StorageZone", kafka.Topics.StorageEvents, cloudEvent)
				if err != nil {
					return nil, fmt.Errorf("failed to create outbox event: %w", err)
				}
				outboxEvents = append(outboxEvents, outboxEvent)
			}
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return nil, fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		zone.ClearDomainEvents()
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// FindByZoneID returns the zone or nil when absent.
func (r *StorageZoneRepository) FindByZoneID(ctx context.Context, zoneID string) (*domain.StorageZone, error) {
	var zone domain.StorageZone
	err := r.collection.FindOne(ctx, bson.M{"zoneId": zoneID}).Decode(&zone)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &zone, err
}

// FindByPark lists a park's zones by ascending code.
func (r *StorageZoneRepository) FindByPark(ctx context.Context, parkID string) ([]*domain.StorageZone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "zoneCode", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"parkId": parkID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []*domain.StorageZone
	err = cursor.All(ctx, &zones)
	return zones, err
}
