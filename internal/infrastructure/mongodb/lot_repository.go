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

// LotRepository persists lots and lot-zone assignments. The partial unique
// index on active assignments is the "one active lot per zone" guard: a
// concurrent second assignment hits a duplicate key error.
type LotRepository struct {
	lots         *mongo.Collection
	assignments  *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewLotRepository creates the repository and its indexes.
func NewLotRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *LotRepository {
	repo := &LotRepository{
		lots:         db.Collection("lots"),
		assignments:  db.Collection("lot_zone_assignments"),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *LotRepository) ensureIndexes(ctx context.Context) {
	r.lots.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "lotId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parkId", Value: 1}, {Key: "status", Value: 1}}},
	})
	r.assignments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "zoneId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"removedAt": bson.M{"$type": "null"}}),
		},
		{Keys: bson.D{{Key: "lotId", Value: 1}}},
	})
}

// Save upserts the lot and its events in one transaction.
func (r *LotRepository) Save(ctx context.Context, lot *domain.Lot) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := r.saveInSession(sessCtx, lot); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// saveInSession writes the lot and its outbox events using the caller's
// session context. The allocator reuses it inside its own transaction.
// Closing a lot releases its active zone assignments in the same write, so
// the freed zones become allocatable the instant the close commits.
func (r *LotRepository) saveInSession(sessCtx mongo.SessionContext, lot *domain.Lot) error {
	opts := options.Update().SetUpsert(true)
	if _, err := r.lots.UpdateOne(sessCtx,
		bson.M{"lotId": lot.LotID},
		bson.M{"$set": lot},
		opts,
	); err != nil {
		return fmt.Errorf("failed to save lot: %w", err)
	}

	if lot.Status == domain.LotStatusClosed {
		if _, err := r.assignments.UpdateMany(sessCtx,
			bson.M{"lotId": lot.LotID, "removedAt": nil},
			bson.M{"$set": bson.M{"removedAt": time.Now()}},
		); err != nil {
			return fmt.Errorf("failed to release lot assignments: %w", err)
		}
	}

	domainEvents := lot.GetDomainEvents()
	if len(domainEvents) > 0 {
		outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
		for _, event := range domainEvents {
			cloudEvent := r.eventFactory.CreateEvent(sessCtx, event.EventType(), "lot/"+lot.LotID, event)
			cloudEvent.ParkID = lot.ParkID

			outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
				lot.LotID, "Lot", kafka.Topics.StorageEvents, cloudEvent)
			if err != nil {
				return fmt.Errorf("failed to create outbox event: %w", err)
			}
			outboxEvents = append(outboxEvents, outboxEvent)
		}
		if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
			return fmt.Errorf("failed to save outbox events: %w", err)
		}
	}

	lot.ClearDomainEvents()
	return nil
}

// FindByLotID returns the lot or nil when absent.
func (r *LotRepository) FindByLotID(ctx context.Context, lotID string) (*domain.Lot, error) {
	var lot domain.Lot
	err := r.lots.FindOne(ctx, bson.M{"lotId": lotID}).Decode(&lot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &lot, err
}

// FindActiveByZone resolves the zone's active assignment and its lot. Both
// are nil for a free zone.
func (r *LotRepository) FindActiveByZone(ctx context.Context, zoneID string) (*domain.Lot, *domain.LotZoneAssignment, error) {
	var assignment domain.LotZoneAssignment
	err := r.assignments.FindOne(ctx, bson.M{"zoneId": zoneID, "removedAt": nil}).Decode(&assignment)
	if err == mongo.ErrNoDocuments {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	lot, err := r.FindByLotID(ctx, assignment.LotID)
	if err != nil {
		return nil, nil, err
	}
	return lot, &assignment, nil
}

// insertAssignment creates an active assignment inside the caller's
// transaction. The partial unique index turns a concurrent double
// assignment into a duplicate key error.
func (r *LotRepository) insertAssignment(sessCtx mongo.SessionContext, assignment *domain.LotZoneAssignment) error {
	_, err := r.assignments.InsertOne(sessCtx, assignment)
	return err
}
