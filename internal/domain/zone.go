package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ZoneStatus represents the operational state of a storage zone.
type ZoneStatus string

const (
	ZoneStatusActive   ZoneStatus = "active"
	ZoneStatusBlocked  ZoneStatus = "blocked"
	ZoneStatusInactive ZoneStatus = "inactive"
)

// IsValid checks if the zone status is a known value
func (s ZoneStatus) IsValid() bool {
	switch s {
	case ZoneStatusActive, ZoneStatusBlocked, ZoneStatusInactive:
		return true
	}
	return false
}

// StorageZone is a physical storage location inside a park. CapacityKg nil
// means the zone is unbounded. Version backs the optimistic check during
// allocation: every allocation that touches the zone bumps it.
type StorageZone struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ZoneID      string             `bson:"zoneId" json:"zoneId"`
	ZoneCode    string             `bson:"zoneCode" json:"zoneCode"`
	ParkID      string             `bson:"parkId" json:"parkId"`
	Status      ZoneStatus         `bson:"status" json:"status"`
	CapacityKg  *float64           `bson:"capacityKg,omitempty" json:"capacityKg,omitempty"`
	BlockReason string             `bson:"blockReason,omitempty" json:"blockReason,omitempty"`
	Version     int64              `bson:"version" json:"version"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewStorageZone registers a zone in a park. A nil capacity means unbounded.
func NewStorageZone(zoneID, zoneCode, parkID string, capacityKg *float64) (*StorageZone, error) {
	if zoneID == "" || zoneCode == "" {
		return nil, fmt.Errorf("zone id and code are required")
	}
	if parkID == "" {
		return nil, fmt.Errorf("park id is required")
	}
	if capacityKg != nil && *capacityKg <= 0 {
		return nil, fmt.Errorf("zone capacity must be positive when bounded")
	}

	now := time.Now()
	return &StorageZone{
		ZoneID:     zoneID,
		ZoneCode:   zoneCode,
		ParkID:     parkID,
		Status:     ZoneStatusActive,
		CapacityKg: capacityKg,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsAllocatable reports whether the zone may receive new stock.
func (z *StorageZone) IsAllocatable() bool {
	return z.Status == ZoneStatusActive
}

// Headroom returns the remaining capacity given the current ledger stock.
// A nil return means unbounded.
func (z *StorageZone) Headroom(currentStockKg float64) *float64 {
	if z.CapacityKg == nil {
		return nil
	}
	h := *z.CapacityKg - currentStockKg
	return &h
}

// Block takes the zone out of allocation, keeping its stock in place.
func (z *StorageZone) Block(reason, blockedBy string) error {
	if z.Status == ZoneStatusBlocked {
		return nil
	}
	if reason == "" {
		return fmt.Errorf("blocking zone %s requires a reason", z.ZoneCode)
	}
	z.Status = ZoneStatusBlocked
	z.BlockReason = reason
	z.UpdatedAt = time.Now()
	z.addDomainEvent(&ZoneBlockedEvent{
		ZoneID:      z.ZoneID,
		ZoneCode:    z.ZoneCode,
		ParkID:      z.ParkID,
		Reason:      reason,
		BlockedBy:   blockedBy,
		OccurredAt_: z.UpdatedAt,
	})
	return nil
}

// Unblock returns a blocked zone to active service.
func (z *StorageZone) Unblock(unblockedBy string) error {
	if z.Status == ZoneStatusActive {
		return nil
	}
	if z.Status != ZoneStatusBlocked {
		return fmt.Errorf("zone %s is %s, only blocked zones can be unblocked", z.ZoneCode, z.Status)
	}
	z.Status = ZoneStatusActive
	z.BlockReason = ""
	z.UpdatedAt = time.Now()
	z.addDomainEvent(&ZoneUnblockedEvent{
		ZoneID:      z.ZoneID,
		ZoneCode:    z.ZoneCode,
		ParkID:      z.ParkID,
		UnblockedBy: unblockedBy,
		OccurredAt_: z.UpdatedAt,
	})
	return nil
}

func (z *StorageZone) addDomainEvent(event DomainEvent) {
	z.DomainEvents = append(z.DomainEvents, event)
}

// GetDomainEvents returns the uncommitted domain events
func (z *StorageZone) GetDomainEvents() []DomainEvent {
	return z.DomainEvents
}

// ClearDomainEvents clears the domain events after publishing
func (z *StorageZone) ClearDomainEvents() {
	z.DomainEvents = nil
}
