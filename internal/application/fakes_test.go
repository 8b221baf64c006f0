package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Format: "text", Service: "test"})
}

// fakeEntryRepo mimics the versioned store: FindByID hands out copies and
// Save refuses a write whose version is no longer current, like the real
// repository's guarded replace does.
type fakeEntryRepo struct {
	entries map[string]*domain.WasteEntry
	saves   int
	failOn  int    // fail the nth save, 0 disables
	onFind  func() // runs once after the next FindByID snapshots its result
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[string]*domain.WasteEntry)}
}

func cloneEntry(e *domain.WasteEntry) *domain.WasteEntry {
	clone := *e
	clone.Classification = append([]domain.MaterialClassification(nil), e.Classification...)
	clone.Allocations = append([]domain.StorageAllocation(nil), e.Allocations...)
	clone.DomainEvents = nil
	return &clone
}

func (r *fakeEntryRepo) Save(_ context.Context, entry *domain.WasteEntry) error {
	r.saves++
	if r.failOn > 0 && r.saves == r.failOn {
		return fmt.Errorf("save failed")
	}
	if existing, ok := r.entries[entry.EntryID]; ok && existing.Version != entry.Version {
		return &domain.ConcurrentModificationError{EntryID: entry.EntryID}
	}
	entry.Version++
	r.entries[entry.EntryID] = cloneEntry(entry)
	entry.ClearDomainEvents()
	return nil
}

func (r *fakeEntryRepo) FindByID(_ context.Context, entryID string) (*domain.WasteEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return nil, nil
	}
	snapshot := cloneEntry(e)
	if r.onFind != nil {
		hook := r.onFind
		r.onFind = nil
		hook()
	}
	return snapshot, nil
}

func (r *fakeEntryRepo) FindByPark(_ context.Context, parkID string, _ domain.Pagination) ([]*domain.WasteEntry, error) {
	var out []*domain.WasteEntry
	for _, e := range r.entries {
		if e.ParkID == parkID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) FindByStatus(_ context.Context, parkID string, status domain.EntryStatus, _ domain.Pagination) ([]*domain.WasteEntry, error) {
	var out []*domain.WasteEntry
	for _, e := range r.entries {
		if e.ParkID == parkID && e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeTicketRepo struct {
	tickets map[string]*domain.NonConformity
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.NonConformity)}
}

func (r *fakeTicketRepo) Save(_ context.Context, nc *domain.NonConformity) error {
	r.tickets[nc.TicketID] = nc
	nc.ClearDomainEvents()
	return nil
}

func (r *fakeTicketRepo) FindByTicketID(_ context.Context, ticketID string) (*domain.NonConformity, error) {
	return r.tickets[ticketID], nil
}

func (r *fakeTicketRepo) FindOpenByPark(_ context.Context, parkID string) ([]*domain.NonConformity, error) {
	var out []*domain.NonConformity
	for _, nc := range r.tickets {
		if nc.ParkID == parkID && nc.Status == domain.NonConformityStatusOpen {
			out = append(out, nc)
		}
	}
	return out, nil
}

type fakeReadings struct {
	mu       sync.Mutex
	readings map[string]domain.ScaleReading
}

func newFakeReadings() *fakeReadings {
	return &fakeReadings{readings: make(map[string]domain.ScaleReading)}
}

func (f *fakeReadings) put(r domain.ScaleReading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings[r.DeviceID] = r
}

func (f *fakeReadings) Latest(deviceID string) (domain.ScaleReading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.readings[deviceID]
	return r, ok
}

type fakeZoneRepo struct {
	zones map[string]*domain.StorageZone
}

func newFakeZoneRepo() *fakeZoneRepo {
	return &fakeZoneRepo{zones: make(map[string]*domain.StorageZone)}
}

func (r *fakeZoneRepo) Save(_ context.Context, zone *domain.StorageZone) error {
	r.zones[zone.ZoneID] = zone
	zone.ClearDomainEvents()
	return nil
}

func (r *fakeZoneRepo) FindByZoneID(_ context.Context, zoneID string) (*domain.StorageZone, error) {
	return r.zones[zoneID], nil
}

func (r *fakeZoneRepo) FindByPark(_ context.Context, parkID string) ([]*domain.StorageZone, error) {
	var out []*domain.StorageZone
	for _, z := range r.zones {
		if z.ParkID == parkID {
			out = append(out, z)
		}
	}
	return out, nil
}

type fakeLotRepo struct {
	lots        map[string]*domain.Lot
	assignments map[string]*domain.LotZoneAssignment // by zoneID, active only
}

func newFakeLotRepo() *fakeLotRepo {
	return &fakeLotRepo{
		lots:        make(map[string]*domain.Lot),
		assignments: make(map[string]*domain.LotZoneAssignment),
	}
}

func (r *fakeLotRepo) Save(_ context.Context, lot *domain.Lot) error {
	r.lots[lot.LotID] = lot
	if lot.Status == domain.LotStatusClosed {
		for zoneID, assignment := range r.assignments {
			if assignment.LotID == lot.LotID {
				assignment.Remove()
				delete(r.assignments, zoneID)
			}
		}
	}
	lot.ClearDomainEvents()
	return nil
}

func (r *fakeLotRepo) FindByLotID(_ context.Context, lotID string) (*domain.Lot, error) {
	return r.lots[lotID], nil
}

func (r *fakeLotRepo) FindActiveByZone(_ context.Context, zoneID string) (*domain.Lot, *domain.LotZoneAssignment, error) {
	assignment, ok := r.assignments[zoneID]
	if !ok {
		return nil, nil, nil
	}
	return r.lots[assignment.LotID], assignment, nil
}

type fakeMovementRepo struct {
	movements []*domain.StockMovement
}

func (r *fakeMovementRepo) Post(_ context.Context, movement *domain.StockMovement) error {
	r.movements = append(r.movements, movement)
	return nil
}

func (r *fakeMovementRepo) FindByZone(_ context.Context, zoneID string, _ domain.Pagination) ([]*domain.StockMovement, error) {
	var out []*domain.StockMovement
	for _, m := range r.movements {
		if m.ZoneID == zoneID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindByEntry(_ context.Context, entryID string) ([]*domain.StockMovement, error) {
	var out []*domain.StockMovement
	for _, m := range r.movements {
		if m.EntryID == entryID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) SumByZone(_ context.Context, zoneID string) (float64, error) {
	var sum float64
	for _, m := range r.movements {
		if m.ZoneID == zoneID {
			sum += m.DeltaKg
		}
	}
	return sum, nil
}

func (r *fakeMovementRepo) SumByLot(_ context.Context, lotID string) (float64, error) {
	var sum float64
	for _, m := range r.movements {
		if m.LotID == lotID {
			sum += m.DeltaKg
		}
	}
	return sum, nil
}

// fakeAllocator replays a scripted sequence of results and errors. When
// movements is set, a successful call posts the ledger movement the real
// allocator would commit.
type fakeAllocator struct {
	results   []*domain.AllocationResult
	errs      []error
	calls     int
	reqs      []domain.AllocationRequest
	snapshots []domain.ZoneSnapshot
	movements *fakeMovementRepo
}

func (a *fakeAllocator) Allocate(ctx context.Context, req domain.AllocationRequest, kind domain.MovementKind, entryID, requestedBy string) (*domain.AllocationResult, error) {
	i := a.calls
	a.calls++
	a.reqs = append(a.reqs, req)
	if i < len(a.errs) && a.errs[i] != nil {
		return nil, a.errs[i]
	}
	if i >= len(a.results) {
		return nil, fmt.Errorf("unscripted allocator call %d", i)
	}
	result := a.results[i]
	if a.movements != nil {
		movementID := result.MovementID
		if movementID == "" {
			movementID = fmt.Sprintf("mov-%d", i)
		}
		movement, err := domain.NewStockMovement(movementID, req.ParkID,
			result.ZoneID, result.LotID, entryID, req.MaterialCode, kind, req.WeightKg,
			"", requestedBy)
		if err != nil {
			return nil, err
		}
		if err := a.movements.Post(ctx, movement); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (a *fakeAllocator) Snapshots(_ context.Context, _ string) ([]domain.ZoneSnapshot, error) {
	return a.snapshots, nil
}

type fakeLabelPrinter struct {
	printed []string
	err     error
}

func (p *fakeLabelPrinter) PrintLabel(_ context.Context, entry *domain.WasteEntry, allocation domain.StorageAllocation) error {
	if p.err != nil {
		return p.err
	}
	p.printed = append(p.printed, entry.EntryID+"/"+allocation.MaterialCode)
	return nil
}
