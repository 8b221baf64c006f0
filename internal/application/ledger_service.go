package application

import (
	"context"
	"errors"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
)

// StockProjection is the cached per-zone stock counter the ledger is
// reconciled against.
type StockProjection interface {
	Stock(ctx context.Context, zoneID string) (float64, error)
	Set(ctx context.Context, zoneID string, stockKg float64) error
}

// LedgerService answers stock queries and runs the reconciliation check
// between the movement ledger and the cached zone stock projection.
type LedgerService struct {
	movements  domain.StockMovementRepository
	zones      domain.StorageZoneRepository
	projection StockProjection
	metrics    *metrics.Registry
	logger     *logging.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(
	movements domain.StockMovementRepository,
	zones domain.StorageZoneRepository,
	projection StockProjection,
	m *metrics.Registry,
	logger *logging.Logger,
) *LedgerService {
	return &LedgerService{
		movements:  movements,
		zones:      zones,
		projection: projection,
		metrics:    m,
		logger:     logger,
	}
}

// ZoneStock returns the authoritative stock of a zone: the ledger sum.
func (s *LedgerService) ZoneStock(ctx context.Context, zoneID string) (float64, error) {
	return s.movements.SumByZone(ctx, zoneID)
}

// LotStock returns the ledger sum for a lot.
func (s *LedgerService) LotStock(ctx context.Context, lotID string) (float64, error) {
	return s.movements.SumByLot(ctx, lotID)
}

// ZoneMovements lists a zone's ledger rows.
func (s *LedgerService) ZoneMovements(ctx context.Context, zoneID string, p domain.Pagination) ([]*domain.StockMovement, error) {
	return s.movements.FindByZone(ctx, zoneID, p)
}

// EntryMovements lists the ledger rows referencing an entry.
func (s *LedgerService) EntryMovements(ctx context.Context, entryID string) ([]*domain.StockMovement, error) {
	return s.movements.FindByEntry(ctx, entryID)
}

// ReconciliationReport is the outcome of a park reconciliation run.
type ReconciliationReport struct {
	ParkID       string                         `json:"parkId"`
	ZonesChecked int                            `json:"zonesChecked"`
	Imbalances   []*domain.LedgerImbalanceError `json:"imbalances,omitempty"`
}

// Balanced reports whether every zone checked out.
func (r *ReconciliationReport) Balanced() bool {
	return len(r.Imbalances) == 0
}

// Reconcile compares every zone's projection against its ledger sum. An
// imbalance is reported, never patched; the fix is rebuilding the
// projection from the ledger.
func (s *LedgerService) Reconcile(ctx context.Context, parkID string) (*ReconciliationReport, error) {
	zones, err := s.zones.FindByPark(ctx, parkID)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{ParkID: parkID}
	for _, zone := range zones {
		ledgerSum, err := s.movements.SumByZone(ctx, zone.ZoneID)
		if err != nil {
			return nil, err
		}
		projected, err := s.projection.Stock(ctx, zone.ZoneID)
		if err != nil {
			return nil, err
		}
		report.ZonesChecked++

		if err := domain.Reconcile(zone.ZoneID, ledgerSum, projected); err != nil {
			var imbalance *domain.LedgerImbalanceError
			if errors.As(err, &imbalance) {
				report.Imbalances = append(report.Imbalances, imbalance)
				s.logger.Error("Ledger imbalance detected",
					"zoneId", zone.ZoneID,
					"ledgerKg", imbalance.LedgerKg,
					"projectedKg", imbalance.ProjectedKg,
				)
				continue
			}
			return nil, err
		}
	}

	outcome := "balanced"
	if !report.Balanced() {
		outcome = "imbalanced"
	}
	if s.metrics != nil {
		s.metrics.ReconciliationRuns.WithLabelValues(parkID, outcome).Inc()
	}
	s.logger.Info("Reconciliation run finished",
		"parkId", parkID,
		"zonesChecked", report.ZonesChecked,
		"imbalances", len(report.Imbalances),
	)
	return report, nil
}

// RebuildProjection recomputes a zone's cached counter from the ledger.
func (s *LedgerService) RebuildProjection(ctx context.Context, zoneID string) (float64, error) {
	ledgerSum, err := s.movements.SumByZone(ctx, zoneID)
	if err != nil {
		return 0, err
	}
	if err := s.projection.Set(ctx, zoneID, ledgerSum); err != nil {
		return 0, err
	}
	s.logger.Info("Zone stock projection rebuilt", "zoneId", zoneID, "stockKg", ledgerSum)
	return ledgerSum, nil
}
