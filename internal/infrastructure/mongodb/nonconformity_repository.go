package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/pkg/cloudevents"
	"github.com/slspinola/bee2waste-sub002/pkg/kafka"
	"github.com/slspinola/bee2waste-sub002/pkg/outbox"
	outboxMongo "github.com/slspinola/bee2waste-sub002/pkg/outbox/mongodb"
)

// NonConformityRepository persists inspection tickets.
type NonConformityRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewNonConformityRepository creates the repository and its indexes.
func NewNonConformityRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *NonConformityRepository {
	repo := &NonConformityRepository{
		collection:   db.Collection("non_conformities"),
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *NonConformityRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ticketId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "entryId", Value: 1}}},
		{Keys: bson.D{{Key: "parkId", Value: 1}, {Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the ticket and its events in one transaction.
func (r *NonConformityRepository) Save(ctx context.Context, nc *domain.NonConformity) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		if _, err := r.collection.UpdateOne(sessCtx,
			bson.M{"ticketId": nc.TicketID},
			bson.M{"$set": nc},
			opts,
		); err != nil {
			return nil, fmt.Errorf("failed to save non-conformity: %w", err)
		}

		domainEvents := nc.GetDomainEvents()
		if len(domainEvents) > 0 {
			outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
			for _, event := range domainEvents {
				cloudEvent := r.eventFactory.CreateEntryEvent(sessCtx, event.EventType(), nc.ParkID, nc.EntryID, event)

				outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
					nc.TicketID, "NonConformity", kafka.Topics.IntakeEvents, cloudEvent)
				if err != nil {
					return nil, fmt.Errorf("failed to create outbox event: %w", err)
				}
				outboxEvents = append(outboxEvents, outboxEvent)
			}
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return nil, fmt.Errorf("failed to save outbox events: %w", err)
			}
		}

		nc.ClearDomainEvents()
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// FindByTicketID returns the ticket or nil when absent.
func (r *NonConformityRepository) FindByTicketID(ctx context.Context, ticketID string) (*domain.NonConformity, error) {
	var nc domain.NonConformity
	err := r.collection.FindOne(ctx, bson.M{"ticketId": ticketID}).Decode(&nc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &nc, err
}

// FindOpenByPark lists a park's open tickets, oldest first.
func (r *NonConformityRepository) FindOpenByPark(ctx context.Context, parkID string) ([]*domain.NonConformity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "raisedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx,
		bson.M{"parkId": parkID, "status": domain.NonConformityStatusOpen}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*domain.NonConformity
	err = cursor.All(ctx, &tickets)
	return tickets, err
}
