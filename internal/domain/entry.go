package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryStatus represents the lifecycle state of a waste entry.
type EntryStatus string

const (
	EntryStatusDraft          EntryStatus = "draft"
	EntryStatusVehicleArrived EntryStatus = "vehicle_arrived"
	EntryStatusGrossWeighed   EntryStatus = "gross_weighed"
	EntryStatusEgarValidated  EntryStatus = "egar_validated"
	EntryStatusInspected      EntryStatus = "inspected"
	EntryStatusTareWeighed    EntryStatus = "tare_weighed"
	EntryStatusClassified     EntryStatus = "classified"
	EntryStatusStored         EntryStatus = "stored"
	EntryStatusConfirmed      EntryStatus = "confirmed"
	EntryStatusCancelled      EntryStatus = "cancelled"
)

// entryTransitions is the single forward chain of the intake lifecycle.
// Cancellation from any non-terminal state is handled separately.
var entryTransitions = map[EntryStatus]EntryStatus{
	EntryStatusDraft:          EntryStatusVehicleArrived,
	EntryStatusVehicleArrived: EntryStatusGrossWeighed,
	EntryStatusGrossWeighed:   EntryStatusEgarValidated,
	EntryStatusEgarValidated:  EntryStatusInspected,
	EntryStatusInspected:      EntryStatusTareWeighed,
	EntryStatusTareWeighed:    EntryStatusClassified,
	EntryStatusClassified:     EntryStatusStored,
	EntryStatusStored:         EntryStatusConfirmed,
}

// IsValid checks if the status is a known value
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusVehicleArrived, EntryStatusGrossWeighed,
		EntryStatusEgarValidated, EntryStatusInspected, EntryStatusTareWeighed,
		EntryStatusClassified, EntryStatusStored, EntryStatusConfirmed,
		EntryStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusConfirmed || s == EntryStatusCancelled
}

// CanTransitionTo checks if the status can legally move to the target.
func (s EntryStatus) CanTransitionTo(target EntryStatus) bool {
	if target == EntryStatusCancelled {
		return !s.IsTerminal()
	}
	return entryTransitions[s] == target
}

// NextTransitions returns the states reachable from this one.
func (s EntryStatus) NextTransitions() []EntryStatus {
	if s.IsTerminal() {
		return nil
	}
	next := []EntryStatus{entryTransitions[s], EntryStatusCancelled}
	return next
}

// VehicleInfo identifies the delivering vehicle.
type VehicleInfo struct {
	Registration string    `bson:"registration" json:"registration"`
	Transporter  string    `bson:"transporter,omitempty" json:"transporter,omitempty"`
	ArrivedAt    time.Time `bson:"arrivedAt" json:"arrivedAt"`
}

// ManifestValidation records the e-GAR transport manifest check.
type ManifestValidation struct {
	Reference         string    `bson:"reference" json:"reference"`
	OperatorConfirmed bool      `bson:"operatorConfirmed" json:"operatorConfirmed"`
	ValidatedBy       string    `bson:"validatedBy" json:"validatedBy"`
	ValidatedAt       time.Time `bson:"validatedAt" json:"validatedAt"`
}

// InspectionRecord is the visual inspection outcome. A failed inspection
// raises a non-conformity ticket but never blocks the lifecycle.
type InspectionRecord struct {
	Passed      bool      `bson:"passed" json:"passed"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`
	InspectedBy string    `bson:"inspectedBy" json:"inspectedBy"`
	InspectedAt time.Time `bson:"inspectedAt" json:"inspectedAt"`
}

// StorageAllocation links one classified material line to its committed
// zone, lot and ledger movement.
type StorageAllocation struct {
	MaterialCode string    `bson:"materialCode" json:"materialCode"`
	WeightKg     float64   `bson:"weightKg" json:"weightKg"`
	ZoneID       string    `bson:"zoneId" json:"zoneId"`
	ZoneCode     string    `bson:"zoneCode" json:"zoneCode"`
	LotID        string    `bson:"lotId" json:"lotId"`
	LotNumber    string    `bson:"lotNumber" json:"lotNumber"`
	MovementID   string    `bson:"movementId" json:"movementId"`
	AllocatedAt  time.Time `bson:"allocatedAt" json:"allocatedAt"`
}

// WasteEntry is the aggregate root of the intake lifecycle. Its status only
// moves forward along the chain; re-submitting a transition the entry has
// already made is a benign no-op that emits nothing.
type WasteEntry struct {
	ID             primitive.ObjectID       `bson:"_id,omitempty" json:"-"`
	EntryID        string                   `bson:"entryId" json:"entryId"`
	ParkID         string                   `bson:"parkId" json:"parkId"`
	ProducerID     string                   `bson:"producerId,omitempty" json:"producerId,omitempty"`
	Status         EntryStatus              `bson:"status" json:"status"`
	Vehicle        *VehicleInfo             `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	GrossWeighing  *Weighing                `bson:"grossWeighing,omitempty" json:"grossWeighing,omitempty"`
	TareWeighing   *Weighing                `bson:"tareWeighing,omitempty" json:"tareWeighing,omitempty"`
	NetWeightKg    float64                  `bson:"netWeightKg" json:"netWeightKg"`
	Manifest       *ManifestValidation      `bson:"manifest,omitempty" json:"manifest,omitempty"`
	Inspection     *InspectionRecord        `bson:"inspection,omitempty" json:"inspection,omitempty"`
	Classification []MaterialClassification `bson:"classification,omitempty" json:"classification,omitempty"`
	Allocations    []StorageAllocation      `bson:"allocations,omitempty" json:"allocations,omitempty"`
	CancelReason   string                   `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CancelledBy    string                   `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	OpenedBy       string                   `bson:"openedBy" json:"openedBy"`
	ConfirmedBy    string                   `bson:"confirmedBy,omitempty" json:"confirmedBy,omitempty"`
	CreatedAt      time.Time                `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time                `bson:"updatedAt" json:"updatedAt"`
	// Version is the optimistic concurrency token. Save bumps it and refuses
	// to overwrite a document written by someone who saw a newer version.
	Version int64 `bson:"version" json:"-"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewWasteEntry opens a draft entry for a park.
func NewWasteEntry(entryID, parkID, producerID, openedBy string) (*WasteEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("entry id is required")
	}
	if parkID == "" {
		return nil, fmt.Errorf("park id is required")
	}

	now := time.Now()
	entry := &WasteEntry{
		EntryID:    entryID,
		ParkID:     parkID,
		ProducerID: producerID,
		Status:     EntryStatusDraft,
		OpenedBy:   openedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	entry.addDomainEvent(&EntryOpenedEvent{
		EntryID:     entryID,
		ParkID:      parkID,
		ProducerID:  producerID,
		OpenedBy:    openedBy,
		OccurredAt_: now,
	})
	return entry, nil
}

// guardTransition applies the idempotency and ordering rules shared by every
// lifecycle step. It returns (true, nil) when the caller should proceed with
// the mutation, (false, nil) for a benign re-submission.
func (e *WasteEntry) guardTransition(target EntryStatus) (bool, error) {
	if e.Status == target {
		return false, nil
	}
	if !e.Status.CanTransitionTo(target) {
		return false, &InvalidTransitionError{EntryID: e.EntryID, From: e.Status, To: target}
	}
	return true, nil
}

// RecordVehicleArrival registers the vehicle at the gate.
func (e *WasteEntry) RecordVehicleArrival(registration, transporter string) error {
	proceed, err := e.guardTransition(EntryStatusVehicleArrived)
	if err != nil || !proceed {
		return err
	}
	if registration == "" {
		return fmt.Errorf("entry %s: vehicle registration is required", e.EntryID)
	}

	now := time.Now()
	e.Vehicle = &VehicleInfo{Registration: registration, Transporter: transporter, ArrivedAt: now}
	e.Status = EntryStatusVehicleArrived
	e.UpdatedAt = now
	e.addDomainEvent(&VehicleArrivedEvent{
		EntryID:      e.EntryID,
		ParkID:       e.ParkID,
		Registration: registration,
		Transporter:  transporter,
		ArrivedAt:    now,
	})
	return nil
}

// RecordGrossWeight accepts a stable scale reading as the loaded weight.
func (e *WasteEntry) RecordGrossWeight(reading ScaleReading, maxReadingAge time.Duration, recordedBy string) error {
	proceed, err := e.guardTransition(EntryStatusGrossWeighed)
	if err != nil || !proceed {
		return err
	}

	weighing, err := NewWeighing(WeighingTypeGross, reading, maxReadingAge, recordedBy)
	if err != nil {
		return err
	}

	e.GrossWeighing = weighing
	e.Status = EntryStatusGrossWeighed
	e.UpdatedAt = time.Now()
	e.addDomainEvent(&GrossWeightRecordedEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		WeightKg:    weighing.WeightKg,
		DeviceID:    weighing.DeviceID,
		RecordedBy:  recordedBy,
		OccurredAt_: e.UpdatedAt,
	})
	return nil
}

// ValidateManifest records the e-GAR reference with explicit operator
// confirmation.
func (e *WasteEntry) ValidateManifest(reference string, operatorConfirmed bool, validatedBy string) error {
	proceed, err := e.guardTransition(EntryStatusEgarValidated)
	if err != nil || !proceed {
		return err
	}
	if reference == "" {
		return fmt.Errorf("entry %s: manifest reference is required", e.EntryID)
	}
	if !operatorConfirmed {
		return fmt.Errorf("entry %s: manifest validation requires operator confirmation", e.EntryID)
	}

	now := time.Now()
	e.Manifest = &ManifestValidation{
		Reference:         reference,
		OperatorConfirmed: true,
		ValidatedBy:       validatedBy,
		ValidatedAt:       now,
	}
	e.Status = EntryStatusEgarValidated
	e.UpdatedAt = now
	e.addDomainEvent(&ManifestValidatedEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		Reference:   reference,
		ValidatedBy: validatedBy,
		OccurredAt_: now,
	})
	return nil
}

// RecordInspection attaches the inspection outcome. A failed inspection
// still advances the entry; the caller opens a non-conformity ticket for it.
func (e *WasteEntry) RecordInspection(passed bool, notes, inspectedBy string) error {
	proceed, err := e.guardTransition(EntryStatusInspected)
	if err != nil || !proceed {
		return err
	}
	if !passed && notes == "" {
		return fmt.Errorf("entry %s: a failed inspection requires notes", e.EntryID)
	}

	now := time.Now()
	e.Inspection = &InspectionRecord{Passed: passed, Notes: notes, InspectedBy: inspectedBy, InspectedAt: now}
	e.Status = EntryStatusInspected
	e.UpdatedAt = now
	e.addDomainEvent(&EntryInspectedEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		Passed:      passed,
		Notes:       notes,
		InspectedBy: inspectedBy,
		OccurredAt_: now,
	})
	return nil
}

// RecordTareWeight accepts the empty-vehicle weighing and derives the net
// weight. A tare above gross leaves the entry untouched.
func (e *WasteEntry) RecordTareWeight(reading ScaleReading, maxReadingAge time.Duration, recordedBy string) error {
	proceed, err := e.guardTransition(EntryStatusTareWeighed)
	if err != nil || !proceed {
		return err
	}
	if e.GrossWeighing == nil {
		return fmt.Errorf("entry %s: gross weighing missing", e.EntryID)
	}

	weighing, err := NewWeighing(WeighingTypeTare, reading, maxReadingAge, recordedBy)
	if err != nil {
		return err
	}

	net := e.GrossWeighing.WeightKg - weighing.WeightKg
	if net < 0 {
		return &NegativeNetWeightError{EntryID: e.EntryID, GrossKg: e.GrossWeighing.WeightKg, TareKg: weighing.WeightKg}
	}

	e.TareWeighing = weighing
	e.NetWeightKg = net
	e.Status = EntryStatusTareWeighed
	e.UpdatedAt = time.Now()
	e.addDomainEvent(&TareWeightRecordedEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		TareKg:      weighing.WeightKg,
		NetKg:       net,
		DeviceID:    weighing.DeviceID,
		RecordedBy:  recordedBy,
		OccurredAt_: e.UpdatedAt,
	})
	return nil
}

// Classify attaches material lines. The lines must cover the net weight
// within the park's tolerance.
func (e *WasteEntry) Classify(lines []MaterialClassification, toleranceKg float64, classifiedBy string) error {
	proceed, err := e.guardTransition(EntryStatusClassified)
	if err != nil || !proceed {
		return err
	}
	if err := ValidateClassification(e.EntryID, lines, e.NetWeightKg, toleranceKg); err != nil {
		return err
	}

	now := time.Now()
	stamped := make([]MaterialClassification, len(lines))
	var total float64
	for i, line := range lines {
		line.AddedBy = classifiedBy
		line.AddedAt = now
		stamped[i] = line
		total += line.WeightKg
	}

	e.Classification = stamped
	e.Status = EntryStatusClassified
	e.UpdatedAt = now
	e.addDomainEvent(&EntryClassifiedEvent{
		EntryID:      e.EntryID,
		ParkID:       e.ParkID,
		LineCount:    len(stamped),
		TotalKg:      total,
		ClassifiedBy: classifiedBy,
		OccurredAt_:  now,
	})
	return nil
}

// MarkStored records the committed allocations, one per classification line.
func (e *WasteEntry) MarkStored(allocations []StorageAllocation) error {
	proceed, err := e.guardTransition(EntryStatusStored)
	if err != nil || !proceed {
		return err
	}
	if len(allocations) != len(e.Classification) {
		return fmt.Errorf("entry %s: %d allocations for %d classification lines",
			e.EntryID, len(allocations), len(e.Classification))
	}
	allocated := make(map[string]bool, len(allocations))
	for _, a := range allocations {
		allocated[a.MaterialCode] = true
	}
	for _, line := range e.Classification {
		if !allocated[line.MaterialCode] {
			return fmt.Errorf("entry %s: material %s has no allocation", e.EntryID, line.MaterialCode)
		}
	}

	now := time.Now()
	e.Allocations = allocations
	e.Status = EntryStatusStored
	e.UpdatedAt = now
	e.addDomainEvent(&EntryStoredEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		Allocations: allocations,
		OccurredAt_: now,
	})
	return nil
}

// Confirm closes the entry. Past this point corrections happen only through
// adjustment movements on the ledger.
func (e *WasteEntry) Confirm(confirmedBy string) error {
	proceed, err := e.guardTransition(EntryStatusConfirmed)
	if err != nil || !proceed {
		return err
	}

	now := time.Now()
	e.ConfirmedBy = confirmedBy
	e.Status = EntryStatusConfirmed
	e.UpdatedAt = now
	e.addDomainEvent(&EntryConfirmedEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		NetKg:       e.NetWeightKg,
		ConfirmedBy: confirmedBy,
		OccurredAt_: now,
	})
	return nil
}

// Cancel abandons the entry from any non-terminal state.
func (e *WasteEntry) Cancel(reason, cancelledBy string) error {
	if e.Status == EntryStatusCancelled {
		return nil
	}
	if e.Status.IsTerminal() {
		return &InvalidTransitionError{EntryID: e.EntryID, From: e.Status, To: EntryStatusCancelled}
	}
	if reason == "" {
		return fmt.Errorf("entry %s: cancellation requires a reason", e.EntryID)
	}

	now := time.Now()
	from := e.Status
	e.Status = EntryStatusCancelled
	e.CancelReason = reason
	e.CancelledBy = cancelledBy
	e.UpdatedAt = now
	e.addDomainEvent(&EntryCancelledEvent{
		EntryID:     e.EntryID,
		ParkID:      e.ParkID,
		FromStatus:  from,
		Reason:      reason,
		CancelledBy: cancelledBy,
		OccurredAt_: now,
	})
	return nil
}

func (e *WasteEntry) addDomainEvent(event DomainEvent) {
	e.DomainEvents = append(e.DomainEvents, event)
}

// GetDomainEvents returns the uncommitted domain events
func (e *WasteEntry) GetDomainEvents() []DomainEvent {
	return e.DomainEvents
}

// ClearDomainEvents clears the domain events after publishing
func (e *WasteEntry) ClearDomainEvents() {
	e.DomainEvents = nil
}
