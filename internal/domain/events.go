package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// EntryOpenedEvent is emitted when a new waste entry is opened
type EntryOpenedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	ProducerID  string    `json:"producerId,omitempty"`
	OpenedBy    string    `json:"openedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *EntryOpenedEvent) EventType() string     { return "intake.entry.opened" }
func (e *EntryOpenedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// VehicleArrivedEvent is emitted when the vehicle is registered at the gate
type VehicleArrivedEvent struct {
	EntryID      string    `json:"entryId"`
	ParkID       string    `json:"parkId"`
	Registration string    `json:"registration"`
	Transporter  string    `json:"transporter,omitempty"`
	ArrivedAt    time.Time `json:"arrivedAt"`
}

func (e *VehicleArrivedEvent) EventType() string     { return "intake.entry.vehicle_arrived" }
func (e *VehicleArrivedEvent) OccurredAt() time.Time { return e.ArrivedAt }

// GrossWeightRecordedEvent is emitted on the loaded weighbridge pass
type GrossWeightRecordedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	WeightKg    float64   `json:"weightKg"`
	DeviceID    string    `json:"deviceId"`
	RecordedBy  string    `json:"recordedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *GrossWeightRecordedEvent) EventType() string     { return "intake.entry.gross_weighed" }
func (e *GrossWeightRecordedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ManifestValidatedEvent is emitted when the e-GAR manifest is confirmed
type ManifestValidatedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	Reference   string    `json:"reference"`
	ValidatedBy string    `json:"validatedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ManifestValidatedEvent) EventType() string     { return "intake.entry.egar_validated" }
func (e *ManifestValidatedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// EntryInspectedEvent is emitted after the visual inspection
type EntryInspectedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	Passed      bool      `json:"passed"`
	Notes       string    `json:"notes,omitempty"`
	InspectedBy string    `json:"inspectedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *EntryInspectedEvent) EventType() string     { return "intake.entry.inspected" }
func (e *EntryInspectedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// TareWeightRecordedEvent is emitted on the empty weighbridge pass
type TareWeightRecordedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	TareKg      float64   `json:"tareKg"`
	NetKg       float64   `json:"netKg"`
	DeviceID    string    `json:"deviceId"`
	RecordedBy  string    `json:"recordedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *TareWeightRecordedEvent) EventType() string     { return "intake.entry.tare_weighed" }
func (e *TareWeightRecordedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// EntryClassifiedEvent is emitted when material lines are accepted
type EntryClassifiedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	LineCount   int       `json:"lineCount"`
	TotalKg     float64   `json:"totalKg"`
	ClassifiedBy string   `json:"classifiedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *EntryClassifiedEvent) EventType() string     { return "intake.entry.classified" }
func (e *EntryClassifiedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// EntryStoredEvent is emitted when every material line has a committed
// allocation and ledger posting
type EntryStoredEvent struct {
	EntryID     string              `json:"entryId"`
	ParkID      string              `json:"parkId"`
	Allocations []StorageAllocation `json:"allocations"`
	OccurredAt_ time.Time           `json:"occurredAt"`
}

func (e *EntryStoredEvent) EventType() string     { return "intake.entry.stored" }
func (e *EntryStoredEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// EntryConfirmedEvent is emitted at the point of no return
type EntryConfirmedEvent struct {
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	NetKg       float64   `json:"netKg"`
	ConfirmedBy string    `json:"confirmedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *EntryConfirmedEvent) EventType() string     { return "intake.entry.confirmed" }
func (e *EntryConfirmedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// EntryCancelledEvent is emitted when an entry is abandoned
type EntryCancelledEvent struct {
	EntryID     string      `json:"entryId"`
	ParkID      string      `json:"parkId"`
	FromStatus  EntryStatus `json:"fromStatus"`
	Reason      string      `json:"reason"`
	CancelledBy string      `json:"cancelledBy"`
	OccurredAt_ time.Time   `json:"occurredAt"`
}

func (e *EntryCancelledEvent) EventType() string     { return "intake.entry.cancelled" }
func (e *EntryCancelledEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// NonConformityOpenedEvent is emitted when an inspection raises a ticket
type NonConformityOpenedEvent struct {
	TicketID    string    `json:"ticketId"`
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	Description string    `json:"description"`
	RaisedBy    string    `json:"raisedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *NonConformityOpenedEvent) EventType() string     { return "intake.nonconformity.opened" }
func (e *NonConformityOpenedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// NonConformityResolvedEvent is emitted when a ticket is closed
type NonConformityResolvedEvent struct {
	TicketID    string    `json:"ticketId"`
	EntryID     string    `json:"entryId"`
	ParkID      string    `json:"parkId"`
	Resolution  string    `json:"resolution"`
	ResolvedBy  string    `json:"resolvedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *NonConformityResolvedEvent) EventType() string     { return "intake.nonconformity.resolved" }
func (e *NonConformityResolvedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// LotOpenedEvent is emitted when allocation opens a lot on a free zone
type LotOpenedEvent struct {
	LotID        string    `json:"lotId"`
	LotNumber    string    `json:"lotNumber"`
	ParkID       string    `json:"parkId"`
	ZoneID       string    `json:"zoneId,omitempty"`
	MaterialCode string    `json:"materialCode"`
	OpenedBy     string    `json:"openedBy"`
	OccurredAt_  time.Time `json:"occurredAt"`
}

func (e *LotOpenedEvent) EventType() string     { return "storage.lot.opened" }
func (e *LotOpenedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// LotTreatmentStartedEvent is emitted when an open lot enters treatment
type LotTreatmentStartedEvent struct {
	LotID       string    `json:"lotId"`
	LotNumber   string    `json:"lotNumber"`
	ParkID      string    `json:"parkId"`
	StartedBy   string    `json:"startedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *LotTreatmentStartedEvent) EventType() string     { return "storage.lot.treatment_started" }
func (e *LotTreatmentStartedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// LotClosedEvent is emitted when a graded lot leaves treatment for good
type LotClosedEvent struct {
	LotID        string    `json:"lotId"`
	LotNumber    string    `json:"lotNumber"`
	ParkID       string    `json:"parkId"`
	QualityGrade string    `json:"qualityGrade,omitempty"`
	ClosedBy     string    `json:"closedBy"`
	OccurredAt_  time.Time `json:"occurredAt"`
}

func (e *LotClosedEvent) EventType() string     { return "storage.lot.closed" }
func (e *LotClosedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ZoneBlockedEvent is emitted when a zone is taken out of allocation
type ZoneBlockedEvent struct {
	ZoneID      string    `json:"zoneId"`
	ZoneCode    string    `json:"zoneCode"`
	ParkID      string    `json:"parkId"`
	Reason      string    `json:"reason"`
	BlockedBy   string    `json:"blockedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ZoneBlockedEvent) EventType() string     { return "storage.zone.blocked" }
func (e *ZoneBlockedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// ZoneUnblockedEvent is emitted when a blocked zone returns to service
type ZoneUnblockedEvent struct {
	ZoneID      string    `json:"zoneId"`
	ZoneCode    string    `json:"zoneCode"`
	ParkID      string    `json:"parkId"`
	UnblockedBy string    `json:"unblockedBy"`
	OccurredAt_ time.Time `json:"occurredAt"`
}

func (e *ZoneUnblockedEvent) EventType() string     { return "storage.zone.unblocked" }
func (e *ZoneUnblockedEvent) OccurredAt() time.Time { return e.OccurredAt_ }

// StockMovementPostedEvent is emitted for every committed ledger row
type StockMovementPostedEvent struct {
	MovementID   string       `json:"movementId"`
	ParkID       string       `json:"parkId"`
	ZoneID       string       `json:"zoneId"`
	LotID        string       `json:"lotId"`
	EntryID      string       `json:"entryId,omitempty"`
	MaterialCode string       `json:"materialCode"`
	Kind         MovementKind `json:"kind"`
	DeltaKg      float64      `json:"deltaKg"`
	PostedBy     string       `json:"postedBy"`
	OccurredAt_  time.Time    `json:"occurredAt"`
}

func (e *StockMovementPostedEvent) EventType() string     { return "stock.movement.posted" }
func (e *StockMovementPostedEvent) OccurredAt() time.Time { return e.OccurredAt_ }
