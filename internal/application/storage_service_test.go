package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
)

type storageFixture struct {
	service   *StorageService
	zones     *fakeZoneRepo
	lots      *fakeLotRepo
	movements *fakeMovementRepo
	allocator *fakeAllocator
}

func newStorageFixture(t *testing.T) *storageFixture {
	t.Helper()
	movements := &fakeMovementRepo{}
	f := &storageFixture{
		zones:     newFakeZoneRepo(),
		lots:      newFakeLotRepo(),
		movements: movements,
		allocator: &fakeAllocator{movements: movements},
	}
	f.service = NewStorageService(f.zones, f.lots, f.movements, f.allocator, nil, testLogger())
	return f
}

func allocationRequest() domain.AllocationRequest {
	return domain.AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 1500}
}

func TestAllocateRetriesOnceAfterConflict(t *testing.T) {
	f := newStorageFixture(t)
	f.allocator.errs = []error{
		&domain.ConcurrentAllocationConflictError{ZoneID: "zone-1", Attempts: 1},
		nil,
	}
	f.allocator.results = []*domain.AllocationResult{
		nil,
		{ZoneID: "zone-2", ZoneCode: "W", LotID: "lot-2", LotNumber: "LOT-2", MovementID: "mov-1"},
	}

	result, err := f.service.Allocate(context.Background(), allocationRequest(), domain.MovementKindEntry, "ENT-001", "op-1")

	require.NoError(t, err)
	assert.Equal(t, "W", result.ZoneCode)
	assert.Equal(t, 2, f.allocator.calls, "a lost race is retried exactly once")
}

func TestAllocateSurfacesConflictAfterSecondLoss(t *testing.T) {
	f := newStorageFixture(t)
	f.allocator.errs = []error{
		&domain.ConcurrentAllocationConflictError{ZoneID: "zone-1", Attempts: 1},
		&domain.ConcurrentAllocationConflictError{ZoneID: "zone-1", Attempts: 1},
	}

	_, err := f.service.Allocate(context.Background(), allocationRequest(), domain.MovementKindEntry, "ENT-001", "op-1")

	var conflict *domain.ConcurrentAllocationConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Attempts)
	assert.Equal(t, 2, f.allocator.calls)
}

func TestAllocatePassesNoCapacityThroughWithoutRetry(t *testing.T) {
	f := newStorageFixture(t)
	f.allocator.errs = []error{&domain.NoCapacityError{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 1500}}

	_, err := f.service.Allocate(context.Background(), allocationRequest(), domain.MovementKindEntry, "ENT-001", "op-1")

	var noCapacity *domain.NoCapacityError
	require.ErrorAs(t, err, &noCapacity)
	assert.Equal(t, 1, f.allocator.calls, "no capacity is final, not a race")
}

func TestSuggestAllocationsRanksWithoutCommitting(t *testing.T) {
	f := newStorageFixture(t)
	capacity := 10000.0
	zoneZ, err := domain.NewStorageZone("zone-z", "Z", "park-1", &capacity)
	require.NoError(t, err)
	f.allocator.snapshots = []domain.ZoneSnapshot{{Zone: zoneZ, CurrentStockKg: 2000}}

	candidates, rejected, err := f.service.SuggestAllocations(context.Background(), allocationRequest())

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "Z", candidates[0].ZoneCode)
	assert.Empty(t, f.movements.movements, "suggestions must not post anything")

	_, _, err = f.service.SuggestAllocations(context.Background(), domain.AllocationRequest{})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestTransferPostsPairedMovements(t *testing.T) {
	f := newStorageFixture(t)
	capacity := 10000.0
	source, err := domain.NewStorageZone("zone-src", "SRC", "park-1", &capacity)
	require.NoError(t, err)
	require.NoError(t, f.zones.Save(context.Background(), source))

	sourceLot, err := domain.NewLot("lot-src", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	require.NoError(t, f.lots.Save(context.Background(), sourceLot))
	assignment, err := domain.NewLotZoneAssignment("assign-1", "zone-src", "lot-src")
	require.NoError(t, err)
	f.lots.assignments["zone-src"] = assignment

	// Seed source stock.
	seed, err := domain.NewStockMovement("mov-seed", "park-1", "zone-src", "lot-src", "",
		"17.01", domain.MovementKindEntry, 3000, "", "op-1")
	require.NoError(t, err)
	require.NoError(t, f.movements.Post(context.Background(), seed))

	f.allocator.results = []*domain.AllocationResult{
		{ZoneID: "zone-dst", ZoneCode: "DST", LotID: "lot-dst", LotNumber: "LOT-DST", MovementID: "mov-in"},
	}

	result, err := f.service.Transfer(context.Background(), TransferCommand{
		ParkID:       "park-1",
		FromZoneID:   "zone-src",
		MaterialCode: "17.01",
		WeightKg:     1000,
		RequestedBy:  "op-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "DST", result.ZoneCode)

	// The destination search must not offer the source zone back.
	require.Len(t, f.allocator.reqs, 1)
	assert.Equal(t, "zone-src", f.allocator.reqs[0].ExcludeZoneID)

	// Incoming and outgoing sides both landed through the movement
	// repository, netting out to a pure move.
	require.Len(t, f.movements.movements, 3)
	out := f.movements.movements[2]
	assert.Equal(t, domain.MovementKindTransferOut, out.Kind)
	assert.Equal(t, -1000.0, out.DeltaKg)
	assert.Equal(t, "zone-src", out.ZoneID)

	sourceStock, err := f.movements.SumByZone(context.Background(), "zone-src")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, sourceStock)
	destStock, err := f.movements.SumByZone(context.Background(), "zone-dst")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, destStock)
}

func TestTransferRejectsInsufficientStock(t *testing.T) {
	f := newStorageFixture(t)
	source, err := domain.NewStorageZone("zone-src", "SRC", "park-1", nil)
	require.NoError(t, err)
	require.NoError(t, f.zones.Save(context.Background(), source))
	sourceLot, err := domain.NewLot("lot-src", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	require.NoError(t, f.lots.Save(context.Background(), sourceLot))
	assignment, err := domain.NewLotZoneAssignment("assign-1", "zone-src", "lot-src")
	require.NoError(t, err)
	f.lots.assignments["zone-src"] = assignment

	_, err = f.service.Transfer(context.Background(), TransferCommand{
		ParkID:       "park-1",
		FromZoneID:   "zone-src",
		MaterialCode: "17.01",
		WeightKg:     1000,
		RequestedBy:  "op-1",
	})

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Equal(t, 0, f.allocator.calls, "nothing is allocated when the source cannot cover the weight")
}

func TestCloseLotFreesZoneForAllocation(t *testing.T) {
	f := newStorageFixture(t)
	ctx := context.Background()
	capacity := 10000.0

	zone, err := f.service.RegisterZone(ctx, RegisterZoneCommand{
		ZoneID: "zone-1", ZoneCode: "Z", ParkID: "park-1", CapacityKg: &capacity,
	})
	require.NoError(t, err)
	lot, err := domain.NewLot("lot-1", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	require.NoError(t, f.lots.Save(ctx, lot))
	assignment, err := domain.NewLotZoneAssignment("assign-1", "zone-1", "lot-1")
	require.NoError(t, err)
	f.lots.assignments["zone-1"] = assignment

	// While the lot holds the zone, a different material has nowhere to go.
	otherMaterial := domain.AllocationRequest{ParkID: "park-1", MaterialCode: "20.01", WeightKg: 500}
	candidates, rejected := domain.RankCandidates(otherMaterial,
		[]domain.ZoneSnapshot{{Zone: zone, ActiveLot: lot}})
	assert.Empty(t, candidates)
	require.Len(t, rejected, 1)

	_, err = f.service.MarkLotInTreatment(ctx, MarkLotInTreatmentCommand{LotID: "lot-1", StartedBy: "op-1"})
	require.NoError(t, err)
	closed, err := f.service.CloseLot(ctx, CloseLotCommand{LotID: "lot-1", QualityGrade: "A", ClosedBy: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.LotStatusClosed, closed.Status)
	assert.Equal(t, "A", closed.QualityGrade)

	// Closing released the assignment, so the zone reads as free again.
	activeLot, activeAssignment, err := f.lots.FindActiveByZone(ctx, "zone-1")
	require.NoError(t, err)
	assert.Nil(t, activeLot)
	assert.Nil(t, activeAssignment)

	// And the freed zone ranks as a candidate that opens a fresh lot.
	candidates, _ = domain.RankCandidates(otherMaterial,
		[]domain.ZoneSnapshot{{Zone: zone}})
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].OpensLot)
}

func TestLotLifecycleRequiresTreatmentBeforeClose(t *testing.T) {
	f := newStorageFixture(t)
	ctx := context.Background()
	lot, err := domain.NewLot("lot-1", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	require.NoError(t, f.lots.Save(ctx, lot))

	_, err = f.service.CloseLot(ctx, CloseLotCommand{LotID: "lot-1", QualityGrade: "B", ClosedBy: "op-1"})
	var invalid *domain.InvalidLotTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.LotStatusOpen, invalid.From)

	_, err = f.service.MarkLotInTreatment(ctx, MarkLotInTreatmentCommand{LotID: "lot-1", StartedBy: "op-1"})
	require.NoError(t, err)
	_, err = f.service.CloseLot(ctx, CloseLotCommand{LotID: "lot-1", QualityGrade: "B", ClosedBy: "op-1"})
	require.NoError(t, err)

	// A closed lot cannot re-enter treatment.
	_, err = f.service.MarkLotInTreatment(ctx, MarkLotInTreatmentCommand{LotID: "lot-1", StartedBy: "op-1"})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.LotStatusClosed, invalid.From)
}

func TestPostAdjustmentGuards(t *testing.T) {
	f := newStorageFixture(t)
	ctx := context.Background()

	// Missing reason.
	err := f.service.PostAdjustment(ctx, AdjustmentCommand{
		ParkID: "park-1", ZoneID: "zone-1", LotID: "lot-1", MaterialCode: "17.01", DeltaKg: -100, PostedBy: "op-1",
	})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	// Negative adjustment below current stock.
	err = f.service.PostAdjustment(ctx, AdjustmentCommand{
		ParkID: "park-1", ZoneID: "zone-1", LotID: "lot-1", MaterialCode: "17.01", DeltaKg: -100,
		Reason: "spillage", PostedBy: "op-1",
	})
	appErr, ok = apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// Positive correction is fine on an empty zone.
	err = f.service.PostAdjustment(ctx, AdjustmentCommand{
		ParkID: "park-1", ZoneID: "zone-1", LotID: "lot-1", MaterialCode: "17.01", DeltaKg: 100,
		Reason: "recount", PostedBy: "op-1",
	})
	require.NoError(t, err)
	require.Len(t, f.movements.movements, 1)
	assert.Equal(t, domain.MovementKindAdjustment, f.movements.movements[0].Kind)
}

func TestBlockZoneAndUnblockZone(t *testing.T) {
	f := newStorageFixture(t)
	ctx := context.Background()

	zone, err := f.service.RegisterZone(ctx, RegisterZoneCommand{ZoneCode: "Z", ParkID: "park-1"})
	require.NoError(t, err)

	blocked, err := f.service.BlockZone(ctx, BlockZoneCommand{ZoneID: zone.ZoneID, Reason: "maintenance", BlockedBy: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneStatusBlocked, blocked.Status)

	unblocked, err := f.service.UnblockZone(ctx, UnblockZoneCommand{ZoneID: zone.ZoneID, UnblockedBy: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneStatusActive, unblocked.Status)

	_, err = f.service.BlockZone(ctx, BlockZoneCommand{ZoneID: "zone-missing", Reason: "x", BlockedBy: "op-1"})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
