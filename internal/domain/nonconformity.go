package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NonConformityStatus represents the lifecycle of an inspection ticket.
type NonConformityStatus string

const (
	NonConformityStatusOpen     NonConformityStatus = "open"
	NonConformityStatusResolved NonConformityStatus = "resolved"
)

// NonConformitySeverity grades how bad the finding is.
type NonConformitySeverity string

const (
	SeverityMinor    NonConformitySeverity = "minor"
	SeverityMajor    NonConformitySeverity = "major"
	SeverityCritical NonConformitySeverity = "critical"
)

// NonConformity is a ticket raised by a failed inspection. It tracks the
// finding independently of the entry, which continues its lifecycle.
type NonConformity struct {
	ID          primitive.ObjectID    `bson:"_id,omitempty" json:"-"`
	TicketID    string                `bson:"ticketId" json:"ticketId"`
	EntryID     string                `bson:"entryId" json:"entryId"`
	ParkID      string                `bson:"parkId" json:"parkId"`
	Status      NonConformityStatus   `bson:"status" json:"status"`
	Severity    NonConformitySeverity `bson:"severity" json:"severity"`
	Description string                `bson:"description" json:"description"`
	RaisedBy    string                `bson:"raisedBy" json:"raisedBy"`
	RaisedAt    time.Time             `bson:"raisedAt" json:"raisedAt"`
	Resolution  string                `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ResolvedBy  string                `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time            `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewNonConformity opens a ticket for a failed inspection.
func NewNonConformity(ticketID, entryID, parkID, description string, severity NonConformitySeverity, raisedBy string) (*NonConformity, error) {
	if ticketID == "" || entryID == "" || parkID == "" {
		return nil, fmt.Errorf("ticket, entry and park ids are required")
	}
	if description == "" {
		return nil, fmt.Errorf("a non-conformity requires a description")
	}
	if severity == "" {
		severity = SeverityMinor
	}

	now := time.Now()
	nc := &NonConformity{
		TicketID:    ticketID,
		EntryID:     entryID,
		ParkID:      parkID,
		Status:      NonConformityStatusOpen,
		Severity:    severity,
		Description: description,
		RaisedBy:    raisedBy,
		RaisedAt:    now,
	}
	nc.addDomainEvent(&NonConformityOpenedEvent{
		TicketID:    ticketID,
		EntryID:     entryID,
		ParkID:      parkID,
		Description: description,
		RaisedBy:    raisedBy,
		OccurredAt_: now,
	})
	return nc, nil
}

// Resolve closes the ticket with a resolution note.
func (nc *NonConformity) Resolve(resolution, resolvedBy string) error {
	if nc.Status == NonConformityStatusResolved {
		return nil
	}
	if resolution == "" {
		return fmt.Errorf("resolving ticket %s requires a resolution note", nc.TicketID)
	}
	now := time.Now()
	nc.Status = NonConformityStatusResolved
	nc.Resolution = resolution
	nc.ResolvedBy = resolvedBy
	nc.ResolvedAt = &now
	nc.addDomainEvent(&NonConformityResolvedEvent{
		TicketID:    nc.TicketID,
		EntryID:     nc.EntryID,
		ParkID:      nc.ParkID,
		Resolution:  resolution,
		ResolvedBy:  resolvedBy,
		OccurredAt_: now,
	})
	return nil
}

func (nc *NonConformity) addDomainEvent(event DomainEvent) {
	nc.DomainEvents = append(nc.DomainEvents, event)
}

// GetDomainEvents returns the uncommitted domain events
func (nc *NonConformity) GetDomainEvents() []DomainEvent {
	return nc.DomainEvents
}

// ClearDomainEvents clears the domain events after publishing
func (nc *NonConformity) ClearDomainEvents() {
	nc.DomainEvents = nil
}
