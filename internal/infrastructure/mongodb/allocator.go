package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
)

// Allocator commits storage allocations. Ranking happens outside the
// transaction on a snapshot of the park; the commit re-validates the chosen
// zone under a version check so that two concurrent allocations against the
// same zone cannot both succeed.
type Allocator struct {
	zones     *StorageZoneRepository
	lots      *LotRepository
	movements *StockMovementRepository
	db        *mongo.Database
}

// NewAllocator wires the allocator over the storage repositories.
func NewAllocator(db *mongo.Database, zones *StorageZoneRepository, lots *LotRepository, movements *StockMovementRepository) *Allocator {
	return &Allocator{
		zones:     zones,
		lots:      lots,
		movements: movements,
		db:        db,
	}
}

// Snapshots loads the allocation view of a park: every zone with its active
// lot and current ledger stock.
func (a *Allocator) Snapshots(ctx context.Context, parkID string) ([]domain.ZoneSnapshot, error) {
	zones, err := a.zones.FindByPark(ctx, parkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	snapshots := make([]domain.ZoneSnapshot, 0, len(zones))
	for _, zone := range zones {
		lot, _, err := a.lots.FindActiveByZone(ctx, zone.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("failed to load active lot for zone %s: %w", zone.ZoneID, err)
		}
		stock, err := a.movements.SumByZone(ctx, zone.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum stock for zone %s: %w", zone.ZoneID, err)
		}
		snapshots = append(snapshots, domain.ZoneSnapshot{
			Zone:           zone,
			ActiveLot:      lot,
			CurrentStockKg: stock,
		})
	}
	return snapshots, nil
}

// Allocate picks the best zone for the request and commits the allocation:
// lot (opened if the zone was free), assignment, ledger movement, projection
// update and outbox events, all in one transaction. A concurrent writer on
// the same zone surfaces as a ConcurrentAllocationConflictError.
func (a *Allocator) Allocate(ctx context.Context, req domain.AllocationRequest, kind domain.MovementKind, entryID, requestedBy string) (*domain.AllocationResult, error) {
	snapshots, err := a.Snapshots(ctx, req.ParkID)
	if err != nil {
		return nil, err
	}
	candidate, err := domain.SelectZone(req, snapshots)
	if err != nil {
		return nil, err
	}

	session, err := a.db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return a.commit(sessCtx, req, kind, entryID, requestedBy, candidate)
	})
	if err != nil {
		var conflict *domain.ConcurrentAllocationConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race on the active-assignment unique index.
			return nil, &domain.ConcurrentAllocationConflictError{ZoneID: candidate.ZoneID, Attempts: 1}
		}
		return nil, fmt.Errorf("allocation transaction failed: %w", err)
	}
	return result.(*domain.AllocationResult), nil
}

func (a *Allocator) commit(sessCtx mongo.SessionContext, req domain.AllocationRequest, kind domain.MovementKind, entryID, requestedBy string, candidate *domain.Candidate) (*domain.AllocationResult, error) {
	// Claim the zone at the version the ranking saw. A concurrent allocation
	// or an administrative change bumps the version and this match fails.
	res, err := a.zones.collection.UpdateOne(sessCtx,
		bson.M{"zoneId": candidate.ZoneID, "version": candidate.Zone.Version, "status": domain.ZoneStatusActive},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim zone: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, &domain.ConcurrentAllocationConflictError{ZoneID: candidate.ZoneID, Attempts: 1}
	}

	// Re-check headroom against the in-transaction ledger sum. The version
	// match above keeps the common race out; this guards against stock that
	// moved without touching the zone document.
	if candidate.Zone.CapacityKg != nil {
		stock, err := a.movements.SumByZone(sessCtx, candidate.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-sum zone stock: %w", err)
		}
		if *candidate.Zone.CapacityKg-stock < req.WeightKg {
			return nil, &domain.ConcurrentAllocationConflictError{ZoneID: candidate.ZoneID, Attempts: 1}
		}
	}

	result := &domain.AllocationResult{
		ZoneID:   candidate.ZoneID,
		ZoneCode: candidate.ZoneCode,
	}

	var lot *domain.Lot
	if candidate.OpensLot {
		lot, err = domain.NewLot(uuid.New().String(), req.ParkID, req.MaterialCode, requestedBy)
		if err != nil {
			return nil, err
		}
		if err := a.lots.saveInSession(sessCtx, lot); err != nil {
			return nil, err
		}
		assignment, err := domain.NewLotZoneAssignment(uuid.New().String(), candidate.ZoneID, lot.LotID)
		if err != nil {
			return nil, err
		}
		if err := a.lots.insertAssignment(sessCtx, assignment); err != nil {
			return nil, err
		}
		result.LotOpened = true
	} else {
		// The active lot can change between ranking and commit. Reload it
		// and make sure it still takes this material.
		lot, _, err = a.lots.FindActiveByZone(sessCtx, candidate.ZoneID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload active lot: %w", err)
		}
		if lot == nil || lot.LotID != candidate.LotID || !lot.IsOpen() || !lot.Allows(req.MaterialCode) {
			return nil, &domain.ConcurrentAllocationConflictError{ZoneID: candidate.ZoneID, Attempts: 1}
		}
	}
	result.LotID = lot.LotID
	result.LotNumber = lot.LotNumber

	movement, err := domain.NewStockMovement(
		uuid.New().String(),
		req.ParkID,
		candidate.ZoneID,
		lot.LotID,
		entryID,
		req.MaterialCode,
		kind,
		req.WeightKg,
		entryID,
		requestedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := a.movements.postInSession(sessCtx, movement); err != nil {
		return nil, err
	}
	result.MovementID = movement.MovementID

	return result, nil
}
