package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotStatus represents the lifecycle state of a storage lot.
type LotStatus string

const (
	LotStatusOpen        LotStatus = "open"
	LotStatusInTreatment LotStatus = "in_treatment"
	LotStatusClosed      LotStatus = "closed"
)

// Lot groups stored material of compatible codes. A lot opened for a free
// zone allows exactly the material that triggered it.
type Lot struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	LotID                string             `bson:"lotId" json:"lotId"`
	LotNumber            string             `bson:"lotNumber" json:"lotNumber"`
	ParkID               string             `bson:"parkId" json:"parkId"`
	Status               LotStatus          `bson:"status" json:"status"`
	AllowedMaterialCodes []string           `bson:"allowedMaterialCodes" json:"allowedMaterialCodes"`
	QualityGrade         string             `bson:"qualityGrade,omitempty" json:"qualityGrade,omitempty"`
	OpenedBy             string             `bson:"openedBy" json:"openedBy"`
	OpenedAt             time.Time          `bson:"openedAt" json:"openedAt"`
	TreatmentStartedBy   string             `bson:"treatmentStartedBy,omitempty" json:"treatmentStartedBy,omitempty"`
	TreatmentStartedAt   *time.Time         `bson:"treatmentStartedAt,omitempty" json:"treatmentStartedAt,omitempty"`
	ClosedBy             string             `bson:"closedBy,omitempty" json:"closedBy,omitempty"`
	ClosedAt             *time.Time         `bson:"closedAt,omitempty" json:"closedAt,omitempty"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewLot opens a lot for a single material code.
func NewLot(lotID, parkID, materialCode, openedBy string) (*Lot, error) {
	if lotID == "" {
		return nil, fmt.Errorf("lot id is required")
	}
	if parkID == "" {
		return nil, fmt.Errorf("park id is required")
	}
	if materialCode == "" {
		return nil, fmt.Errorf("opening a lot requires a material code")
	}

	now := time.Now()
	lot := &Lot{
		LotID:                lotID,
		LotNumber:            generateLotNumber(),
		ParkID:               parkID,
		Status:               LotStatusOpen,
		AllowedMaterialCodes: []string{materialCode},
		OpenedBy:             openedBy,
		OpenedAt:             now,
	}
	lot.addDomainEvent(&LotOpenedEvent{
		LotID:        lot.LotID,
		LotNumber:    lot.LotNumber,
		ParkID:       parkID,
		MaterialCode: materialCode,
		OpenedBy:     openedBy,
		OccurredAt_:  now,
	})
	return lot, nil
}

// IsOpen reports whether the lot can still receive material.
func (l *Lot) IsOpen() bool {
	return l.Status == LotStatusOpen
}

// Allows reports whether the lot accepts the given material code.
func (l *Lot) Allows(materialCode string) bool {
	for _, code := range l.AllowedMaterialCodes {
		if code == materialCode {
			return true
		}
	}
	return false
}

// StartTreatment moves an open lot into treatment. A lot in treatment no
// longer accepts material but is not yet graded and closed.
func (l *Lot) StartTreatment(startedBy string) error {
	if l.Status == LotStatusInTreatment {
		return nil
	}
	if l.Status != LotStatusOpen {
		return &InvalidLotTransitionError{LotID: l.LotID, From: l.Status, To: LotStatusInTreatment}
	}
	now := time.Now()
	l.Status = LotStatusInTreatment
	l.TreatmentStartedBy = startedBy
	l.TreatmentStartedAt = &now
	l.addDomainEvent(&LotTreatmentStartedEvent{
		LotID:       l.LotID,
		LotNumber:   l.LotNumber,
		ParkID:      l.ParkID,
		StartedBy:   startedBy,
		OccurredAt_: now,
	})
	return nil
}

// Close ends a lot that finished treatment, recording the outgoing quality
// grade. Closed lots drop out of allocation; persistence releases their zone
// assignments so the zone becomes free again.
func (l *Lot) Close(qualityGrade, closedBy string) error {
	if l.Status == LotStatusClosed {
		return nil
	}
	if l.Status != LotStatusInTreatment {
		return &InvalidLotTransitionError{LotID: l.LotID, From: l.Status, To: LotStatusClosed}
	}
	now := time.Now()
	l.Status = LotStatusClosed
	l.QualityGrade = qualityGrade
	l.ClosedBy = closedBy
	l.ClosedAt = &now
	l.addDomainEvent(&LotClosedEvent{
		LotID:        l.LotID,
		LotNumber:    l.LotNumber,
		ParkID:       l.ParkID,
		QualityGrade: qualityGrade,
		ClosedBy:     closedBy,
		OccurredAt_:  now,
	})
	return nil
}

func (l *Lot) addDomainEvent(event DomainEvent) {
	l.DomainEvents = append(l.DomainEvents, event)
}

// GetDomainEvents returns the uncommitted domain events
func (l *Lot) GetDomainEvents() []DomainEvent {
	return l.DomainEvents
}

// ClearDomainEvents clears the domain events after publishing
func (l *Lot) ClearDomainEvents() {
	l.DomainEvents = nil
}

// LotZoneAssignment binds a lot to the zone holding it. The active
// assignment of a zone is the one with RemovedAt nil; persistence enforces
// at most one active assignment per zone.
type LotZoneAssignment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AssignmentID string             `bson:"assignmentId" json:"assignmentId"`
	ZoneID       string             `bson:"zoneId" json:"zoneId"`
	LotID        string             `bson:"lotId" json:"lotId"`
	AssignedAt   time.Time          `bson:"assignedAt" json:"assignedAt"`
	// RemovedAt stays an explicit null while active so the partial unique
	// index on active assignments can match it.
	RemovedAt *time.Time `bson:"removedAt" json:"removedAt,omitempty"`
}

// NewLotZoneAssignment creates an active assignment.
func NewLotZoneAssignment(assignmentID, zoneID, lotID string) (*LotZoneAssignment, error) {
	if assignmentID == "" || zoneID == "" || lotID == "" {
		return nil, fmt.Errorf("assignment, zone and lot ids are required")
	}
	return &LotZoneAssignment{
		AssignmentID: assignmentID,
		ZoneID:       zoneID,
		LotID:        lotID,
		AssignedAt:   time.Now(),
	}, nil
}

// IsActive reports whether this assignment is the zone's current one.
func (a *LotZoneAssignment) IsActive() bool {
	return a.RemovedAt == nil
}

// Remove ends the assignment, freeing the zone for a new lot.
func (a *LotZoneAssignment) Remove() {
	if a.RemovedAt != nil {
		return
	}
	now := time.Now()
	a.RemovedAt = &now
}

func generateLotNumber() string {
	return fmt.Sprintf("LOT-%s", time.Now().Format("20060102-150405.000"))
}
