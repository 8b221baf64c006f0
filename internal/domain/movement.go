package domain

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovementKind classifies a stock movement.
type MovementKind string

const (
	MovementKindEntry             MovementKind = "entry"
	MovementKindExit              MovementKind = "exit"
	MovementKindTransferIn        MovementKind = "transfer_in"
	MovementKindTransferOut       MovementKind = "transfer_out"
	MovementKindClassificationIn  MovementKind = "classification_in"
	MovementKindClassificationOut MovementKind = "classification_out"
	MovementKindAdjustment        MovementKind = "adjustment"
)

// IsValid checks if the movement kind is a known value
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementKindEntry, MovementKindExit,
		MovementKindTransferIn, MovementKindTransferOut,
		MovementKindClassificationIn, MovementKindClassificationOut,
		MovementKindAdjustment:
		return true
	}
	return false
}

// ExpectedSign returns +1 for incoming kinds, -1 for outgoing kinds and 0
// for kinds that may carry either sign (adjustments).
func (k MovementKind) ExpectedSign() int {
	switch k {
	case MovementKindEntry, MovementKindTransferIn, MovementKindClassificationIn:
		return 1
	case MovementKindExit, MovementKindTransferOut, MovementKindClassificationOut:
		return -1
	default:
		return 0
	}
}

// StockMovement is one immutable row of the stock ledger. The ledger is
// append-only: corrections are new adjustment movements, never edits.
type StockMovement struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MovementID   string             `bson:"movementId" json:"movementId"`
	ParkID       string             `bson:"parkId" json:"parkId"`
	ZoneID       string             `bson:"zoneId" json:"zoneId"`
	LotID        string             `bson:"lotId" json:"lotId"`
	EntryID      string             `bson:"entryId,omitempty" json:"entryId,omitempty"`
	MaterialCode string             `bson:"materialCode" json:"materialCode"`
	Kind         MovementKind       `bson:"kind" json:"kind"`
	DeltaKg      float64            `bson:"deltaKg" json:"deltaKg"`
	Reference    string             `bson:"reference,omitempty" json:"reference,omitempty"`
	PostedBy     string             `bson:"postedBy" json:"postedBy"`
	PostedAt     time.Time          `bson:"postedAt" json:"postedAt"`
}

// NewStockMovement validates and builds a ledger row. Zero deltas and
// sign/kind mismatches are rejected here; the no-negative-stock rule needs
// the current ledger sum and is enforced at posting time.
func NewStockMovement(movementID, parkID, zoneID, lotID, entryID, materialCode string, kind MovementKind, deltaKg float64, reference, postedBy string) (*StockMovement, error) {
	if movementID == "" {
		return nil, fmt.Errorf("movement id is required")
	}
	if parkID == "" || zoneID == "" || lotID == "" {
		return nil, fmt.Errorf("movement requires park, zone and lot ids")
	}
	if materialCode == "" {
		return nil, fmt.Errorf("movement requires a material code")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown movement kind: %s", kind)
	}
	if deltaKg == 0 {
		return nil, fmt.Errorf("movement delta must be non-zero")
	}
	switch sign := kind.ExpectedSign(); {
	case sign > 0 && deltaKg < 0:
		return nil, fmt.Errorf("%s movements must carry a positive delta, got %.2f", kind, deltaKg)
	case sign < 0 && deltaKg > 0:
		return nil, fmt.Errorf("%s movements must carry a negative delta, got %.2f", kind, deltaKg)
	}

	return &StockMovement{
		MovementID:   movementID,
		ParkID:       parkID,
		ZoneID:       zoneID,
		LotID:        lotID,
		EntryID:      entryID,
		MaterialCode: materialCode,
		Kind:         kind,
		DeltaKg:      deltaKg,
		Reference:    reference,
		PostedBy:     postedBy,
		PostedAt:     time.Now(),
	}, nil
}

// CheckOutgoing verifies an outgoing movement would not drive the zone's
// stock negative given the current ledger sum.
func (m *StockMovement) CheckOutgoing(currentStockKg float64) error {
	if m.DeltaKg >= 0 {
		return nil
	}
	if currentStockKg+m.DeltaKg < 0 {
		return fmt.Errorf("movement %s would drive zone %s stock negative: %.2fkg + %.2fkg",
			m.MovementID, m.ZoneID, currentStockKg, m.DeltaKg)
	}
	return nil
}

// reconcileEpsilon absorbs float accumulation noise when comparing sums.
const reconcileEpsilon = 1e-6

// Reconcile compares the authoritative ledger sum of a zone against its
// cached projection. Divergence is reported as LedgerImbalanceError and is
// never patched: the projection gets rebuilt from the ledger.
func Reconcile(zoneID string, ledgerSumKg, projectedKg float64) error {
	if math.Abs(ledgerSumKg-projectedKg) > reconcileEpsilon {
		return &LedgerImbalanceError{ZoneID: zoneID, LedgerKg: ledgerSumKg, ProjectedKg: projectedKg}
	}
	return nil
}
