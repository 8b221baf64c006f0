package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slspinola/bee2waste-sub002/internal/config"
	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
)

type intakeFixture struct {
	service   *IntakeService
	storage   *StorageService
	entries   *fakeEntryRepo
	tickets   *fakeTicketRepo
	readings  *fakeReadings
	allocator *fakeAllocator
	movements *fakeMovementRepo
	labels    *fakeLabelPrinter
	parkCfg   *config.ParkConfig
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	logger := testLogger()

	movements := &fakeMovementRepo{}
	f := &intakeFixture{
		entries:   newFakeEntryRepo(),
		tickets:   newFakeTicketRepo(),
		readings:  newFakeReadings(),
		allocator: &fakeAllocator{movements: movements},
		movements: movements,
		labels:    &fakeLabelPrinter{},
		parkCfg:   config.Default(),
	}
	f.storage = NewStorageService(newFakeZoneRepo(), newFakeLotRepo(), f.movements, f.allocator, nil, logger)
	f.service = NewIntakeService(f.entries, f.tickets, f.readings, f.storage, f.labels, f.parkCfg, nil, logger)
	return f
}

func stableReading(deviceID string, weightKg float64) domain.ScaleReading {
	return domain.ScaleReading{DeviceID: deviceID, WeightKg: weightKg, Stable: true, Timestamp: time.Now()}
}

// driveToClassified walks a fresh entry to the classified state.
func (f *intakeFixture) driveToClassified(t *testing.T, lines []domain.MaterialClassification) *domain.WasteEntry {
	t.Helper()
	ctx := context.Background()

	entry, err := f.service.OpenEntry(ctx, OpenEntryCommand{ParkID: "park-1", OpenedBy: "op-1"})
	require.NoError(t, err)
	id := entry.EntryID

	_, err = f.service.RecordVehicleArrival(ctx, RecordVehicleArrivalCommand{EntryID: id, Registration: "AA-12-BB", RecordedBy: "op-1"})
	require.NoError(t, err)
	gross := stableReading("scale-1", 12000)
	_, err = f.service.RecordGrossWeight(ctx, RecordWeighingCommand{EntryID: id, Reading: &gross, RecordedBy: "op-1"})
	require.NoError(t, err)
	_, err = f.service.ValidateManifest(ctx, ValidateManifestCommand{EntryID: id, Reference: "PT20260001", OperatorConfirmed: true, ValidatedBy: "op-1"})
	require.NoError(t, err)
	_, err = f.service.RecordInspection(ctx, RecordInspectionCommand{EntryID: id, Passed: true, InspectedBy: "op-2"})
	require.NoError(t, err)
	tare := stableReading("scale-1", 4000)
	_, err = f.service.RecordTareWeight(ctx, RecordWeighingCommand{EntryID: id, Reading: &tare, RecordedBy: "op-1"})
	require.NoError(t, err)
	entry, err = f.service.ClassifyEntry(ctx, ClassifyEntryCommand{EntryID: id, Lines: lines, ClassifiedBy: "op-2"})
	require.NoError(t, err)
	return entry
}

func TestRecordGrossWeightUsesCachedDeviceReading(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	entry, err := f.service.OpenEntry(ctx, OpenEntryCommand{ParkID: "park-1", OpenedBy: "op-1"})
	require.NoError(t, err)
	_, err = f.service.RecordVehicleArrival(ctx, RecordVehicleArrivalCommand{EntryID: entry.EntryID, Registration: "AA-12-BB"})
	require.NoError(t, err)

	// No reading cached for the device yet.
	_, err = f.service.RecordGrossWeight(ctx, RecordWeighingCommand{EntryID: entry.EntryID, DeviceID: "scale-9", RecordedBy: "op-1"})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)

	f.readings.put(stableReading("scale-9", 11500))
	updated, err := f.service.RecordGrossWeight(ctx, RecordWeighingCommand{EntryID: entry.EntryID, DeviceID: "scale-9", RecordedBy: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, 11500.0, updated.GrossWeighing.WeightKg)
	assert.Equal(t, "scale-9", updated.GrossWeighing.DeviceID)
}

func TestRecordInspectionFailureOpensTicket(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	entry, err := f.service.OpenEntry(ctx, OpenEntryCommand{ParkID: "park-1", OpenedBy: "op-1"})
	require.NoError(t, err)
	id := entry.EntryID
	_, err = f.service.RecordVehicleArrival(ctx, RecordVehicleArrivalCommand{EntryID: id, Registration: "AA-12-BB"})
	require.NoError(t, err)
	gross := stableReading("scale-1", 12000)
	_, err = f.service.RecordGrossWeight(ctx, RecordWeighingCommand{EntryID: id, Reading: &gross})
	require.NoError(t, err)
	_, err = f.service.ValidateManifest(ctx, ValidateManifestCommand{EntryID: id, Reference: "PT20260001", OperatorConfirmed: true})
	require.NoError(t, err)

	updated, err := f.service.RecordInspection(ctx, RecordInspectionCommand{
		EntryID:     id,
		Passed:      false,
		Notes:       "contaminated with organics",
		Severity:    domain.SeverityMajor,
		InspectedBy: "op-2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusInspected, updated.Status, "failed inspection must not block")

	open, err := f.service.ListOpenNonConformities(ctx, "park-1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, id, open[0].EntryID)
	assert.Equal(t, domain.SeverityMajor, open[0].Severity)

	// Re-submitting the inspection must not open a second ticket.
	_, err = f.service.RecordInspection(ctx, RecordInspectionCommand{EntryID: id, Passed: false, Notes: "again", InspectedBy: "op-2"})
	require.NoError(t, err)
	open, err = f.service.ListOpenNonConformities(ctx, "park-1")
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestClassifyEntryRejectsUnknownMaterial(t *testing.T) {
	f := newIntakeFixture(t)
	f.parkCfg.Materials = []config.Material{{Code: "17.01", Description: "concrete"}}

	f.driveToClassifiedExpectError(t, []domain.MaterialClassification{
		{MaterialCode: "99.99", WeightKg: 8000},
	})
}

func (f *intakeFixture) driveToClassifiedExpectError(t *testing.T, lines []domain.MaterialClassification) {
	t.Helper()
	ctx := context.Background()

	entry, err := f.service.OpenEntry(ctx, OpenEntryCommand{ParkID: "park-1", OpenedBy: "op-1"})
	require.NoError(t, err)
	id := entry.EntryID
	_, err = f.service.RecordVehicleArrival(ctx, RecordVehicleArrivalCommand{EntryID: id, Registration: "AA-12-BB"})
	require.NoError(t, err)
	gross := stableReading("scale-1", 12000)
	_, err = f.service.RecordGrossWeight(ctx, RecordWeighingCommand{EntryID: id, Reading: &gross})
	require.NoError(t, err)
	_, err = f.service.ValidateManifest(ctx, ValidateManifestCommand{EntryID: id, Reference: "PT20260001", OperatorConfirmed: true})
	require.NoError(t, err)
	_, err = f.service.RecordInspection(ctx, RecordInspectionCommand{EntryID: id, Passed: true})
	require.NoError(t, err)
	tare := stableReading("scale-1", 4000)
	_, err = f.service.RecordTareWeight(ctx, RecordWeighingCommand{EntryID: id, Reading: &tare})
	require.NoError(t, err)

	_, err = f.service.ClassifyEntry(ctx, ClassifyEntryCommand{EntryID: id, Lines: lines, ClassifiedBy: "op-2"})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestStoreEntryCommitsOneAllocationPerLine(t *testing.T) {
	f := newIntakeFixture(t)
	f.allocator.results = []*domain.AllocationResult{
		{ZoneID: "zone-1", ZoneCode: "Z", LotID: "lot-1", LotNumber: "LOT-1", MovementID: "mov-1", LotOpened: true},
		{ZoneID: "zone-2", ZoneCode: "W", LotID: "lot-2", LotNumber: "LOT-2", MovementID: "mov-2"},
	}
	entry := f.driveToClassified(t, []domain.MaterialClassification{
		{MaterialCode: "17.01", WeightKg: 5000},
		{MaterialCode: "20.01", WeightKg: 3000},
	})

	stored, err := f.service.StoreEntry(context.Background(), StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-1"})

	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusStored, stored.Status)
	require.Len(t, stored.Allocations, 2)
	assert.Equal(t, "Z", stored.Allocations[0].ZoneCode)
	assert.Equal(t, "mov-2", stored.Allocations[1].MovementID)
	assert.Equal(t, 2, f.allocator.calls)
	assert.Len(t, f.labels.printed, 2)
}

func TestStoreEntryIsIdempotent(t *testing.T) {
	f := newIntakeFixture(t)
	f.allocator.results = []*domain.AllocationResult{
		{ZoneID: "zone-1", ZoneCode: "Z", LotID: "lot-1", LotNumber: "LOT-1", MovementID: "mov-1"},
	}
	entry := f.driveToClassified(t, []domain.MaterialClassification{{MaterialCode: "17.01", WeightKg: 8000}})
	ctx := context.Background()

	_, err := f.service.StoreEntry(ctx, StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-1"})
	require.NoError(t, err)

	again, err := f.service.StoreEntry(ctx, StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusStored, again.Status)
	assert.Equal(t, 1, f.allocator.calls, "a re-submitted store must not allocate again")
}

func TestStoreEntryConcurrentSubmissionLosesAndRollsBack(t *testing.T) {
	f := newIntakeFixture(t)
	f.allocator.results = []*domain.AllocationResult{
		{ZoneID: "zone-1", ZoneCode: "Z", LotID: "lot-1", LotNumber: "LOT-1", MovementID: "mov-1"},
		{ZoneID: "zone-2", ZoneCode: "W", LotID: "lot-2", LotNumber: "LOT-2", MovementID: "mov-2"},
	}
	entry := f.driveToClassified(t, []domain.MaterialClassification{{MaterialCode: "17.01", WeightKg: 8000}})
	ctx := context.Background()

	// A second submission lands between the first one's read and its save.
	f.entries.onFind = func() {
		_, err := f.service.StoreEntry(ctx, StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-2"})
		require.NoError(t, err)
	}

	_, err := f.service.StoreEntry(ctx, StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-1"})

	var conflict *domain.ConcurrentModificationError
	require.ErrorAs(t, err, &conflict)

	// The winner's allocation stands; the loser's was reversed, so the line
	// is not in stock twice.
	current, gerr := f.service.GetEntry(ctx, entry.EntryID)
	require.NoError(t, gerr)
	assert.Equal(t, domain.EntryStatusStored, current.Status)
	require.Len(t, current.Allocations, 1)
	assert.Equal(t, "zone-1", current.Allocations[0].ZoneID)
	assert.Equal(t, 2, f.allocator.calls)

	winnerStock, serr := f.movements.SumByZone(ctx, "zone-1")
	require.NoError(t, serr)
	assert.Equal(t, 8000.0, winnerStock)
	loserStock, serr := f.movements.SumByZone(ctx, "zone-2")
	require.NoError(t, serr)
	assert.Equal(t, 0.0, loserStock)
}

func TestStoreEntryRollsBackCommittedLinesOnFailure(t *testing.T) {
	f := newIntakeFixture(t)
	// First line commits, second line finds no capacity.
	f.allocator.results = []*domain.AllocationResult{
		{ZoneID: "zone-1", ZoneCode: "Z", LotID: "lot-1", LotNumber: "LOT-1", MovementID: "mov-1"},
	}
	f.allocator.errs = []error{nil, &domain.NoCapacityError{ParkID: "park-1", MaterialCode: "20.01", WeightKg: 3000}}
	entry := f.driveToClassified(t, []domain.MaterialClassification{
		{MaterialCode: "17.01", WeightKg: 5000},
		{MaterialCode: "20.01", WeightKg: 3000},
	})

	_, err := f.service.StoreEntry(context.Background(), StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-1"})

	var noCapacity *domain.NoCapacityError
	require.ErrorAs(t, err, &noCapacity)

	current, ferr := f.service.GetEntry(context.Background(), entry.EntryID)
	require.NoError(t, ferr)
	assert.Equal(t, domain.EntryStatusClassified, current.Status)

	// The committed first line was reversed with a negative adjustment,
	// leaving the zone where it started.
	require.Len(t, f.movements.movements, 2)
	reversal := f.movements.movements[1]
	assert.Equal(t, domain.MovementKindAdjustment, reversal.Kind)
	assert.Equal(t, -5000.0, reversal.DeltaKg)
	assert.Equal(t, "zone-1", reversal.ZoneID)

	stock, err := f.movements.SumByZone(context.Background(), "zone-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stock)
}

func TestConfirmEntryIsPointOfNoReturn(t *testing.T) {
	f := newIntakeFixture(t)
	f.allocator.results = []*domain.AllocationResult{
		{ZoneID: "zone-1", ZoneCode: "Z", LotID: "lot-1", LotNumber: "LOT-1", MovementID: "mov-1"},
	}
	entry := f.driveToClassified(t, []domain.MaterialClassification{{MaterialCode: "17.01", WeightKg: 8000}})
	ctx := context.Background()

	_, err := f.service.StoreEntry(ctx, StoreEntryCommand{EntryID: entry.EntryID, StoredBy: "op-1"})
	require.NoError(t, err)
	confirmed, err := f.service.ConfirmEntry(ctx, ConfirmEntryCommand{EntryID: entry.EntryID, ConfirmedBy: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusConfirmed, confirmed.Status)

	_, err = f.service.CancelEntry(ctx, CancelEntryCommand{EntryID: entry.EntryID, Reason: "mistake", CancelledBy: "op-1"})
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestGetEntryStatusReportsNextTransitions(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	entry, err := f.service.OpenEntry(ctx, OpenEntryCommand{ParkID: "park-1", OpenedBy: "op-1"})
	require.NoError(t, err)

	view, err := f.service.GetEntryStatus(ctx, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusDraft, view.Status)
	assert.Equal(t, []domain.EntryStatus{domain.EntryStatusVehicleArrived, domain.EntryStatusCancelled}, view.NextTransitions)

	_, err = f.service.GetEntryStatus(ctx, "ENT-missing")
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestResolveNonConformity(t *testing.T) {
	f := newIntakeFixture(t)
	ctx := context.Background()

	ticket, err := domain.NewNonConformity("ticket-1", "ENT-001", "park-1", "broken pallet", domain.SeverityMinor, "op-2")
	require.NoError(t, err)
	require.NoError(t, f.tickets.Save(ctx, ticket))

	resolved, err := f.service.ResolveNonConformity(ctx, ResolveNonConformityCommand{
		TicketID:   "ticket-1",
		Resolution: "pallet replaced",
		ResolvedBy: "op-3",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NonConformityStatusResolved, resolved.Status)

	_, err = f.service.ResolveNonConformity(ctx, ResolveNonConformityCommand{TicketID: "ticket-9", Resolution: "x", ResolvedBy: "op-3"})
	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
