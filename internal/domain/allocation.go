package domain

import (
	"fmt"
	"sort"
)

// Candidate ranks. Zones with a compatible open lot win over free zones so
// material keeps concentrating in lots already holding it.
const (
	rankCompatibleLot = 0
	rankFreeZone      = 1
)

// AllocationRequest asks for storage space for one classified material line.
// ExcludeZoneID takes a zone out of the running, e.g. the source zone of a
// transfer, which must never be picked as its own destination.
type AllocationRequest struct {
	ParkID        string  `json:"parkId"`
	MaterialCode  string  `json:"materialCode"`
	WeightKg      float64 `json:"weightKg"`
	ExcludeZoneID string  `json:"excludeZoneId,omitempty"`
}

// Validate checks the request fields.
func (r AllocationRequest) Validate() error {
	if r.ParkID == "" {
		return fmt.Errorf("allocation request requires a park id")
	}
	if r.MaterialCode == "" {
		return fmt.Errorf("allocation request requires a material code")
	}
	if r.WeightKg <= 0 {
		return fmt.Errorf("allocation request weight must be positive, got %.2f", r.WeightKg)
	}
	return nil
}

// ZoneSnapshot is the allocation engine's view of one zone at ranking time:
// the zone, its active lot (nil for a free zone) and its ledger stock.
type ZoneSnapshot struct {
	Zone           *StorageZone
	ActiveLot      *Lot
	CurrentStockKg float64
}

// Candidate is a zone that qualifies for a request, ordered by the ranking
// rules. HeadroomKg nil means unbounded capacity.
type Candidate struct {
	Zone       *StorageZone `json:"-"`
	ZoneID     string       `json:"zoneId"`
	ZoneCode   string       `json:"zoneCode"`
	Lot        *Lot         `json:"-"`
	LotID      string       `json:"lotId,omitempty"`
	Rank       int          `json:"rank"`
	HeadroomKg *float64     `json:"headroomKg,omitempty"`
	OpensLot   bool         `json:"opensLot"`
}

// RejectedCandidate explains why a zone was discarded, for NoCapacity
// diagnosis.
type RejectedCandidate struct {
	ZoneID     string   `json:"zoneId"`
	ZoneCode   string   `json:"zoneCode"`
	Reason     string   `json:"reason"`
	HeadroomKg *float64 `json:"headroomKg,omitempty"`
}

// RankCandidates evaluates every snapshot against the request and returns
// the qualifying zones in selection order plus the rejected ones with
// reasons. Ordering: compatible open lots before free zones; within a rank
// most headroom first with unbounded zones last; ties by ascending zone code.
func RankCandidates(req AllocationRequest, snapshots []ZoneSnapshot) ([]Candidate, []RejectedCandidate) {
	candidates := make([]Candidate, 0, len(snapshots))
	rejected := make([]RejectedCandidate, 0)

	for _, snap := range snapshots {
		zone := snap.Zone
		if zone.ParkID != req.ParkID {
			continue
		}

		reject := func(reason string, headroom *float64) {
			rejected = append(rejected, RejectedCandidate{
				ZoneID:     zone.ZoneID,
				ZoneCode:   zone.ZoneCode,
				Reason:     reason,
				HeadroomKg: headroom,
			})
		}

		if req.ExcludeZoneID != "" && zone.ZoneID == req.ExcludeZoneID {
			reject("zone excluded from this request", nil)
			continue
		}
		if zone.Status == ZoneStatusBlocked {
			reject(fmt.Sprintf("zone blocked: %s", zone.BlockReason), nil)
			continue
		}
		if !zone.IsAllocatable() {
			reject("zone inactive", nil)
			continue
		}

		rank := rankFreeZone
		opensLot := true
		if snap.ActiveLot != nil {
			if !snap.ActiveLot.IsOpen() {
				reject(fmt.Sprintf("lot %s is %s", snap.ActiveLot.LotNumber, snap.ActiveLot.Status), nil)
				continue
			}
			if !snap.ActiveLot.Allows(req.MaterialCode) {
				reject(fmt.Sprintf("lot %s does not accept material %s", snap.ActiveLot.LotNumber, req.MaterialCode), nil)
				continue
			}
			rank = rankCompatibleLot
			opensLot = false
		}

		headroom := zone.Headroom(snap.CurrentStockKg)
		if headroom != nil && *headroom < req.WeightKg {
			reject(fmt.Sprintf("insufficient headroom: %.2fkg available, %.2fkg requested", *headroom, req.WeightKg), headroom)
			continue
		}

		candidate := Candidate{
			Zone:       zone,
			ZoneID:     zone.ZoneID,
			ZoneCode:   zone.ZoneCode,
			Lot:        snap.ActiveLot,
			Rank:       rank,
			HeadroomKg: headroom,
			OpensLot:   opensLot,
		}
		if snap.ActiveLot != nil {
			candidate.LotID = snap.ActiveLot.LotID
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		// Bounded headroom descending, unbounded zones last.
		switch {
		case a.HeadroomKg != nil && b.HeadroomKg == nil:
			return true
		case a.HeadroomKg == nil && b.HeadroomKg != nil:
			return false
		case a.HeadroomKg != nil && b.HeadroomKg != nil && *a.HeadroomKg != *b.HeadroomKg:
			return *a.HeadroomKg > *b.HeadroomKg
		}
		return a.ZoneCode < b.ZoneCode
	})

	return candidates, rejected
}

// SelectZone picks the winning candidate for the request, or NoCapacityError
// carrying the rejected list when nothing qualifies.
func SelectZone(req AllocationRequest, snapshots []ZoneSnapshot) (*Candidate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	candidates, rejectedList := RankCandidates(req, snapshots)
	if len(candidates) == 0 {
		return nil, &NoCapacityError{
			ParkID:       req.ParkID,
			MaterialCode: req.MaterialCode,
			WeightKg:     req.WeightKg,
			Rejected:     rejectedList,
		}
	}
	winner := candidates[0]
	return &winner, nil
}

// AllocationResult is a committed allocation: the chosen zone and lot plus
// the ledger movement that recorded the stock.
type AllocationResult struct {
	ZoneID     string `json:"zoneId"`
	ZoneCode   string `json:"zoneCode"`
	LotID      string `json:"lotId"`
	LotNumber  string `json:"lotNumber"`
	MovementID string `json:"movementId"`
	LotOpened  bool   `json:"lotOpened"`
}
