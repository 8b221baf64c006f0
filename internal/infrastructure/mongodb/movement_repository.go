package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/internal/infrastructure/projections"
	"github.com/slspinola/bee2waste-sub002/pkg/cloudevents"
	"github.com/slspinola/bee2waste-sub002/pkg/kafka"
	"github.com/slspinola/bee2waste-sub002/pkg/outbox"
	outboxMongo "github.com/slspinola/bee2waste-sub002/pkg/outbox/mongodb"
)

// StockMovementRepository is the append-only ledger store. Rows are only
// ever inserted; there is no update or delete path.
type StockMovementRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	projection   *projections.ZoneStockProjection
}

// NewStockMovementRepository creates the repository and its indexes.
func NewStockMovementRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, projection *projections.ZoneStockProjection) *StockMovementRepository {
	repo := &StockMovementRepository{
		collection:   db.Collection("stock_movements"),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
		projection:   projection,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StockMovementRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "movementId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "zoneId", Value: 1}, {Key: "postedAt", Value: -1}}},
		{Keys: bson.D{{Key: "lotId", Value: 1}}},
		{Keys: bson.D{{Key: "entryId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Post appends one movement with its event and projection update in a
// single transaction.
func (r *StockMovementRepository) Post(ctx context.Context, movement *domain.StockMovement) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := r.postInSession(sessCtx, movement); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// postInSession appends the movement using the caller's session. The
// allocator calls this inside its own allocation transaction.
func (r *StockMovementRepository) postInSession(sessCtx mongo.SessionContext, movement *domain.StockMovement) error {
	if _, err := r.collection.InsertOne(sessCtx, movement); err != nil {
		return fmt.Errorf("failed to insert stock movement: %w", err)
	}

	event := &domain.StockMovementPostedEvent{
		MovementID:   movement.MovementID,
		ParkID:       movement.ParkID,
		ZoneID:       movement.ZoneID,
		LotID:        movement.LotID,
		EntryID:      movement.EntryID,
		MaterialCode: movement.MaterialCode,
		Kind:         movement.Kind,
		DeltaKg:      movement.DeltaKg,
		PostedBy:     movement.PostedBy,
		OccurredAt_:  movement.PostedAt,
	}
	cloudEvent := r.eventFactory.CreateEvent(sessCtx, event.EventType(), "movement/"+movement.MovementID, event)
	cloudEvent.ParkID = movement.ParkID
	cloudEvent.EntryID = movement.EntryID

	outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
		movement.MovementID, "StockMovement", kafka.Topics.StockEvents, cloudEvent)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := r.outboxRepo.Save(sessCtx, outboxEvent); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := r.projection.Apply(sessCtx, movement); err != nil {
		return fmt.Errorf("failed to update stock projection: %w", err)
	}
	return nil
}

// FindByZone lists a zone's ledger rows, newest first.
func (r *StockMovementRepository) FindByZone(ctx context.Context, zoneID string, p domain.Pagination) ([]*domain.StockMovement, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "postedAt", Value: -1}}).
		SetSkip(p.Offset).
		SetLimit(p.Limit)

	cursor, err := r.collection.Find(ctx, bson.M{"zoneId": zoneID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var movements []*domain.StockMovement
	err = cursor.All(ctx, &movements)
	return movements, err
}

// FindByEntry lists the ledger rows referencing an entry.
func (r *StockMovementRepository) FindByEntry(ctx context.Context, entryID string) ([]*domain.StockMovement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "postedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"entryId": entryID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var movements []*domain.StockMovement
	err = cursor.All(ctx, &movements)
	return movements, err
}

// SumByZone computes the authoritative zone stock from the ledger.
func (r *StockMovementRepository) SumByZone(ctx context.Context, zoneID string) (float64, error) {
	return r.sum(ctx, bson.M{"zoneId": zoneID})
}

// SumByLot computes the ledger stock of a lot.
func (r *StockMovementRepository) SumByLot(ctx context.Context, lotID string) (float64, error) {
	return r.sum(ctx, bson.M{"lotId": lotID})
}

func (r *StockMovementRepository) sum(ctx context.Context, match bson.M) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$deltaKg"}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
