package domain

import "context"

// Pagination controls list queries.
type Pagination struct {
	Limit  int64
	Offset int64
}

// DefaultPagination returns sane list defaults.
func DefaultPagination() Pagination {
	return Pagination{Limit: 50, Offset: 0}
}

// WasteEntryRepository persists intake entries.
type WasteEntryRepository interface {
	Save(ctx context.Context, entry *WasteEntry) error
	FindByID(ctx context.Context, entryID string) (*WasteEntry, error)
	FindByPark(ctx context.Context, parkID string, p Pagination) ([]*WasteEntry, error)
	FindByStatus(ctx context.Context, parkID string, status EntryStatus, p Pagination) ([]*WasteEntry, error)
}

// StorageZoneRepository persists zones.
type StorageZoneRepository interface {
	Save(ctx context.Context, zone *StorageZone) error
	FindByZoneID(ctx context.Context, zoneID string) (*StorageZone, error)
	FindByPark(ctx context.Context, parkID string) ([]*StorageZone, error)
}

// LotRepository persists lots and their zone assignments. Saving a closed
// lot also ends the lot's active zone assignments in the same transaction,
// so the freed zones re-enter allocation atomically with the close.
type LotRepository interface {
	Save(ctx context.Context, lot *Lot) error
	FindByLotID(ctx context.Context, lotID string) (*Lot, error)
	FindActiveByZone(ctx context.Context, zoneID string) (*Lot, *LotZoneAssignment, error)
}

// StockMovementRepository is the append-only ledger store.
type StockMovementRepository interface {
	FindByZone(ctx context.Context, zoneID string, p Pagination) ([]*StockMovement, error)
	FindByEntry(ctx context.Context, entryID string) ([]*StockMovement, error)
	SumByZone(ctx context.Context, zoneID string) (float64, error)
	SumByLot(ctx context.Context, lotID string) (float64, error)
	Post(ctx context.Context, movement *StockMovement) error
}

// NonConformityRepository persists inspection tickets.
type NonConformityRepository interface {
	Save(ctx context.Context, nc *NonConformity) error
	FindByTicketID(ctx context.Context, ticketID string) (*NonConformity, error)
	FindOpenByPark(ctx context.Context, parkID string) ([]*NonConformity, error)
}

// Allocator commits one allocation atomically: zone selection, lot opening
// when needed, assignment and ledger posting in a single transaction.
// Implementations return ConcurrentAllocationConflictError when the
// optimistic check fails so callers can retry with a fresh ranking.
type Allocator interface {
	Allocate(ctx context.Context, req AllocationRequest, kind MovementKind, entryID, requestedBy string) (*AllocationResult, error)
	Snapshots(ctx context.Context, parkID string) ([]ZoneSnapshot, error)
}

// WeighbridgeReadings exposes the latest reading per scale device as fed by
// the weighbridge stream.
type WeighbridgeReadings interface {
	Latest(deviceID string) (ScaleReading, bool)
}
