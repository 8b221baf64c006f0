package dto

import "github.com/slspinola/bee2waste-sub002/internal/domain"

// ZoneResponse is a zone with its ledger stock and headroom.
type ZoneResponse struct {
	*domain.StorageZone
	CurrentStockKg float64  `json:"currentStockKg"`
	HeadroomKg     *float64 `json:"headroomKg,omitempty"`
}

// NewZoneResponse builds a ZoneResponse from the zone and its ledger sum.
func NewZoneResponse(zone *domain.StorageZone, stockKg float64) *ZoneResponse {
	return &ZoneResponse{
		StorageZone:    zone,
		CurrentStockKg: stockKg,
		HeadroomKg:     zone.Headroom(stockKg),
	}
}

// SuggestionsResponse is the non-committing ranked allocation view.
type SuggestionsResponse struct {
	Candidates []domain.Candidate         `json:"candidates"`
	Rejected   []domain.RejectedCandidate `json:"rejected"`
}

// StockResponse answers a single stock figure query.
type StockResponse struct {
	StockKg float64 `json:"stockKg"`
}
