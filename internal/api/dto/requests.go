package dto

import "time"

// OpenEntryRequest opens a draft intake entry.
type OpenEntryRequest struct {
	EntryID    string `json:"entryId,omitempty"`
	ParkID     string `json:"parkId" binding:"required"`
	ProducerID string `json:"producerId,omitempty"`
}

// VehicleArrivalRequest registers the vehicle at the gate.
type VehicleArrivalRequest struct {
	Registration string `json:"registration" binding:"required"`
	Transporter  string `json:"transporter,omitempty"`
}

// ScaleReadingRequest is an inline weighbridge sample.
type ScaleReadingRequest struct {
	DeviceID  string    `json:"deviceId" binding:"required"`
	WeightKg  float64   `json:"weightKg" binding:"required,gt=0"`
	Stable    bool      `json:"stable"`
	Timestamp time.Time `json:"timestamp" binding:"required"`
}

// WeighingRequest accepts a weighbridge pass: either an inline reading or a
// device id pointing at the latest cached sample of that scale.
type WeighingRequest struct {
	DeviceID string               `json:"deviceId,omitempty"`
	Reading  *ScaleReadingRequest `json:"reading,omitempty"`
}

// ManifestRequest records the e-GAR manifest check.
type ManifestRequest struct {
	Reference         string `json:"reference" binding:"required"`
	OperatorConfirmed bool   `json:"operatorConfirmed"`
}

// InspectionRequest attaches the visual inspection outcome.
type InspectionRequest struct {
	Passed   *bool  `json:"passed" binding:"required"`
	Notes    string `json:"notes,omitempty"`
	Severity string `json:"severity,omitempty" binding:"omitempty,oneof=minor major critical"`
}

// ClassificationLineRequest is one material line of a classification.
type ClassificationLineRequest struct {
	MaterialCode string  `json:"materialCode" binding:"required,materialcode"`
	Description  string  `json:"description,omitempty"`
	WeightKg     float64 `json:"weightKg" binding:"required,gt=0"`
}

// ClassificationRequest attaches the material breakdown of the load.
type ClassificationRequest struct {
	Lines []ClassificationLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CancelEntryRequest abandons the entry.
type CancelEntryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveNonConformityRequest closes an inspection ticket.
type ResolveNonConformityRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// RegisterZoneRequest creates a storage zone. CapacityKg nil means the zone
// is unbounded.
type RegisterZoneRequest struct {
	ZoneID     string   `json:"zoneId,omitempty"`
	ZoneCode   string   `json:"zoneCode" binding:"required,zonecode"`
	ParkID     string   `json:"parkId" binding:"required"`
	CapacityKg *float64 `json:"capacityKg,omitempty" binding:"omitempty,gt=0"`
}

// BlockZoneRequest takes a zone out of allocation.
type BlockZoneRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CloseLotRequest carries the quality grade assigned when a treated lot is
// closed.
type CloseLotRequest struct {
	QualityGrade string `json:"qualityGrade,omitempty"`
}

// TransferRequest moves stock from a source zone to a destination picked by
// the allocation engine.
type TransferRequest struct {
	ParkID       string  `json:"parkId" binding:"required"`
	FromZoneID   string  `json:"fromZoneId" binding:"required"`
	MaterialCode string  `json:"materialCode" binding:"required,materialcode"`
	WeightKg     float64 `json:"weightKg" binding:"required,gt=0"`
}

// AdjustmentRequest posts a correction movement.
type AdjustmentRequest struct {
	ParkID       string  `json:"parkId" binding:"required"`
	ZoneID       string  `json:"zoneId" binding:"required"`
	LotID        string  `json:"lotId,omitempty"`
	EntryID      string  `json:"entryId,omitempty"`
	MaterialCode string  `json:"materialCode,omitempty" binding:"omitempty,materialcode"`
	DeltaKg      float64 `json:"deltaKg" binding:"required"`
	Reason       string  `json:"reason" binding:"required"`
}
