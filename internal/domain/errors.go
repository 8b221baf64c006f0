package domain

import (
	"fmt"
	"time"
)

// InvalidTransitionError is returned when an entry is asked to move to a
// state that is not a legal successor of its current state.
type InvalidTransitionError struct {
	EntryID string
	From    EntryStatus
	To      EntryStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for entry %s: %s -> %s", e.EntryID, e.From, e.To)
}

// InvalidLotTransitionError is returned when a lot is asked to move to a
// status that is not a legal successor of its current status. Lots only move
// forward: open -> in_treatment -> closed.
type InvalidLotTransitionError struct {
	LotID string
	From  LotStatus
	To    LotStatus
}

func (e *InvalidLotTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for lot %s: %s -> %s", e.LotID, e.From, e.To)
}

// ConcurrentModificationError is returned when saving an entry lost a race
// with another writer that advanced the same entry first. The caller should
// reload the entry before deciding anything else.
type ConcurrentModificationError struct {
	EntryID string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("entry %s was modified concurrently", e.EntryID)
}

// StaleWeighingError is returned when a scale reading is unstable or too old
// to be accepted as an official weighing.
type StaleWeighingError struct {
	DeviceID string
	Stable   bool
	Age      time.Duration
}

func (e *StaleWeighingError) Error() string {
	if !e.Stable {
		return fmt.Sprintf("scale reading from device %s is not stable", e.DeviceID)
	}
	return fmt.Sprintf("scale reading from device %s is stale (age %s)", e.DeviceID, e.Age)
}

// NegativeNetWeightError is returned when tare exceeds gross.
type NegativeNetWeightError struct {
	EntryID string
	GrossKg float64
	TareKg  float64
}

func (e *NegativeNetWeightError) Error() string {
	return fmt.Sprintf("negative net weight for entry %s: gross %.2fkg - tare %.2fkg", e.EntryID, e.GrossKg, e.TareKg)
}

// ClassificationMismatchError is returned when classification lines do not
// sum to the net weight within the configured tolerance.
type ClassificationMismatchError struct {
	EntryID     string
	ExpectedKg  float64
	ActualKg    float64
	ToleranceKg float64
}

func (e *ClassificationMismatchError) Error() string {
	return fmt.Sprintf("classification for entry %s sums to %.2fkg, net weight is %.2fkg (tolerance %.2fkg)",
		e.EntryID, e.ActualKg, e.ExpectedKg, e.ToleranceKg)
}

// NoCapacityError is returned when no storage zone can take the requested
// weight. Rejected carries the ranked candidates with the reason each one
// was discarded, so operators can diagnose why the park is full.
type NoCapacityError struct {
	ParkID       string
	MaterialCode string
	WeightKg     float64
	Rejected     []RejectedCandidate
}

func (e *NoCapacityError) Error() string {
	return fmt.Sprintf("no storage capacity in park %s for %.2fkg of material %s (%d zones rejected)",
		e.ParkID, e.WeightKg, e.MaterialCode, len(e.Rejected))
}

// ConcurrentAllocationConflictError is returned when an allocation lost the
// race for a zone twice in a row (initial attempt plus one retry).
type ConcurrentAllocationConflictError struct {
	ZoneID   string
	Attempts int
}

func (e *ConcurrentAllocationConflictError) Error() string {
	return fmt.Sprintf("allocation conflict on zone %s after %d attempts", e.ZoneID, e.Attempts)
}

// LedgerImbalanceError signals that a cached stock counter diverged from the
// movement ledger. This is a fatal diagnostic: the projection is rebuilt from
// the ledger, never the other way around.
type LedgerImbalanceError struct {
	ZoneID      string
	LedgerKg    float64
	ProjectedKg float64
}

func (e *LedgerImbalanceError) Error() string {
	return fmt.Sprintf("ledger imbalance on zone %s: ledger sum %.2fkg, projected %.2fkg", e.ZoneID, e.LedgerKg, e.ProjectedKg)
}
