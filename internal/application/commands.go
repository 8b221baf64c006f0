package application

import "github.com/slspinola/bee2waste-sub002/internal/domain"

// OpenEntryCommand opens a draft entry.
type OpenEntryCommand struct {
	EntryID    string
	ParkID     string
	ProducerID string
	OpenedBy   string
}

// RecordVehicleArrivalCommand registers the vehicle at the gate.
type RecordVehicleArrivalCommand struct {
	EntryID      string
	Registration string
	Transporter  string
	RecordedBy   string
}

// RecordWeighingCommand accepts a weighbridge pass. Either Reading is set
// inline or DeviceID points at the latest cached reading of that scale.
type RecordWeighingCommand struct {
	EntryID    string
	DeviceID   string
	Reading    *domain.ScaleReading
	RecordedBy string
}

// ValidateManifestCommand records the e-GAR check.
type ValidateManifestCommand struct {
	EntryID           string
	Reference         string
	OperatorConfirmed bool
	ValidatedBy       string
}

// RecordInspectionCommand attaches the inspection outcome.
type RecordInspectionCommand struct {
	EntryID     string
	Passed      bool
	Notes       string
	Severity    domain.NonConformitySeverity
	InspectedBy string
}

// ClassifyEntryCommand attaches the material lines.
type ClassifyEntryCommand struct {
	EntryID      string
	Lines        []domain.MaterialClassification
	ClassifiedBy string
}

// StoreEntryCommand allocates storage for every classified line.
type StoreEntryCommand struct {
	EntryID  string
	StoredBy string
}

// ConfirmEntryCommand closes the entry.
type ConfirmEntryCommand struct {
	EntryID     string
	ConfirmedBy string
}

// CancelEntryCommand abandons the entry.
type CancelEntryCommand struct {
	EntryID     string
	Reason      string
	CancelledBy string
}

// ResolveNonConformityCommand closes an inspection ticket.
type ResolveNonConformityCommand struct {
	TicketID   string
	Resolution string
	ResolvedBy string
}

// RegisterZoneCommand creates a storage zone.
type RegisterZoneCommand struct {
	ZoneID     string
	ZoneCode   string
	ParkID     string
	CapacityKg *float64
}

// BlockZoneCommand takes a zone out of allocation.
type BlockZoneCommand struct {
	ZoneID    string
	Reason    string
	BlockedBy string
}

// UnblockZoneCommand returns a zone to service.
type UnblockZoneCommand struct {
	ZoneID      string
	UnblockedBy string
}

// MarkLotInTreatmentCommand moves an open lot into treatment.
type MarkLotInTreatmentCommand struct {
	LotID     string
	StartedBy string
}

// CloseLotCommand ends a treated lot and frees its zone.
type CloseLotCommand struct {
	LotID        string
	QualityGrade string
	ClosedBy     string
}

// TransferCommand moves stock between zones.
type TransferCommand struct {
	ParkID       string
	FromZoneID   string
	MaterialCode string
	WeightKg     float64
	RequestedBy  string
}

// AdjustmentCommand posts a post-confirmation correction movement.
type AdjustmentCommand struct {
	ParkID       string
	ZoneID       string
	LotID        string
	EntryID      string
	MaterialCode string
	DeltaKg      float64
	Reason       string
	PostedBy     string
}
