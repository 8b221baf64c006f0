package projections

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
)

const collectionName = "zone_stock_projection"

// zoneStockDoc is the cached counter row. It is a read model only: the
// ledger stays authoritative and the projection can be rebuilt from it at
// any time.
type zoneStockDoc struct {
	ZoneID    string    `bson:"zoneId"`
	StockKg   float64   `bson:"stockKg"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ZoneStockProjection maintains per-zone stock counters from committed
// movements.
type ZoneStockProjection struct {
	collection *mongo.Collection
}

// NewZoneStockProjection creates the projection store.
func NewZoneStockProjection(db *mongo.Database) *ZoneStockProjection {
	p := &ZoneStockProjection{collection: db.Collection(collectionName)}
	p.ensureIndexes(context.Background())
	return p
}

func (p *ZoneStockProjection) ensureIndexes(ctx context.Context) {
	p.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "zoneId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}

// Apply folds one committed movement into the counter.
func (p *ZoneStockProjection) Apply(ctx context.Context, movement *domain.StockMovement) error {
	_, err := p.collection.UpdateOne(ctx,
		bson.M{"zoneId": movement.ZoneID},
		bson.M{
			"$inc": bson.M{"stockKg": movement.DeltaKg},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// Stock returns the cached counter, zero when the zone has none yet.
func (p *ZoneStockProjection) Stock(ctx context.Context, zoneID string) (float64, error) {
	var doc zoneStockDoc
	err := p.collection.FindOne(ctx, bson.M{"zoneId": zoneID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.StockKg, nil
}

// Set overwrites the counter, used by rebuilds from the ledger.
func (p *ZoneStockProjection) Set(ctx context.Context, zoneID string, stockKg float64) error {
	_, err := p.collection.UpdateOne(ctx,
		bson.M{"zoneId": zoneID},
		bson.M{"$set": bson.M{"stockKg": stockKg, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}
