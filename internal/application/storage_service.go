package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
)

// StorageService manages zones, lots and the allocation engine.
type StorageService struct {
	zones     domain.StorageZoneRepository
	lots      domain.LotRepository
	movements domain.StockMovementRepository
	allocator domain.Allocator
	metrics   *metrics.Registry
	logger    *logging.Logger
}

// NewStorageService creates a StorageService.
func NewStorageService(
	zones domain.StorageZoneRepository,
	lots domain.LotRepository,
	movements domain.StockMovementRepository,
	allocator domain.Allocator,
	m *metrics.Registry,
	logger *logging.Logger,
) *StorageService {
	return &StorageService{
		zones:     zones,
		lots:      lots,
		movements: movements,
		allocator: allocator,
		metrics:   m,
		logger:    logger,
	}
}

// Allocate commits storage for one material line. A lost optimistic race is
// retried once with a freshly computed ranking before the conflict
// surfaces.
func (s *StorageService) Allocate(ctx context.Context, req domain.AllocationRequest, kind domain.MovementKind, entryID, requestedBy string) (*domain.AllocationResult, error) {
	result, err := s.allocator.Allocate(ctx, req, kind, entryID, requestedBy)
	if err != nil {
		var conflict *domain.ConcurrentAllocationConflictError
		if errors.As(err, &conflict) {
			s.countConflict()
			s.logger.Warn("Allocation conflict, retrying with fresh ranking",
				"parkId", req.ParkID,
				"materialCode", req.MaterialCode,
				"zoneId", conflict.ZoneID,
			)
			result, err = s.allocator.Allocate(ctx, req, kind, entryID, requestedBy)
			if err != nil {
				if errors.As(err, &conflict) {
					s.countConflict()
					s.countAllocation(req.ParkID, "conflict")
					return nil, &domain.ConcurrentAllocationConflictError{ZoneID: conflict.ZoneID, Attempts: 2}
				}
				s.countAllocation(req.ParkID, "error")
				return nil, err
			}
		} else {
			var noCapacity *domain.NoCapacityError
			if errors.As(err, &noCapacity) {
				s.countAllocation(req.ParkID, "no_capacity")
			} else {
				s.countAllocation(req.ParkID, "error")
			}
			return nil, err
		}
	}

	s.countAllocation(req.ParkID, "committed")
	s.countPosting(req.ParkID, kind)
	if result.LotOpened {
		s.countAllocation(req.ParkID, "lot_opened")
	}
	s.logger.Info("Allocation committed",
		"parkId", req.ParkID,
		"materialCode", req.MaterialCode,
		"weightKg", req.WeightKg,
		"zoneCode", result.ZoneCode,
		"lotNumber", result.LotNumber,
		"lotOpened", result.LotOpened,
	)
	return result, nil
}

// SuggestAllocations returns the ranked candidates for a request without
// committing anything. The ranking can be stale by the time it is used;
// only Allocate decides.
func (s *StorageService) SuggestAllocations(ctx context.Context, req domain.AllocationRequest) ([]domain.Candidate, []domain.RejectedCandidate, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, apperrors.ErrValidation(err.Error())
	}
	snapshots, err := s.allocator.Snapshots(ctx, req.ParkID)
	if err != nil {
		return nil, nil, err
	}
	candidates, rejected := domain.RankCandidates(req, snapshots)
	return candidates, rejected, nil
}

// RegisterZone creates a storage zone.
func (s *StorageService) RegisterZone(ctx context.Context, cmd RegisterZoneCommand) (*domain.StorageZone, error) {
	zoneID := cmd.ZoneID
	if zoneID == "" {
		zoneID = uuid.New().String()
	}
	zone, err := domain.NewStorageZone(zoneID, cmd.ZoneCode, cmd.ParkID, cmd.CapacityKg)
	if err != nil {
		return nil, err
	}
	if err := s.zones.Save(ctx, zone); err != nil {
		return nil, err
	}

	s.logger.Info("Zone registered",
		"zoneId", zone.ZoneID,
		"zoneCode", cmd.ZoneCode,
		"parkId", cmd.ParkID,
	)
	return zone, nil
}

// BlockZone takes a zone out of allocation.
func (s *StorageService) BlockZone(ctx context.Context, cmd BlockZoneCommand) (*domain.StorageZone, error) {
	zone, err := s.loadZone(ctx, cmd.ZoneID)
	if err != nil {
		return nil, err
	}
	if err := zone.Block(cmd.Reason, cmd.BlockedBy); err != nil {
		return nil, err
	}
	if err := s.zones.Save(ctx, zone); err != nil {
		return nil, err
	}

	s.logger.Audit("zone.blocked", cmd.BlockedBy,
		"zoneId", cmd.ZoneID,
		"reason", cmd.Reason,
	)
	return zone, nil
}

// UnblockZone returns a blocked zone to service.
func (s *StorageService) UnblockZone(ctx context.Context, cmd UnblockZoneCommand) (*domain.StorageZone, error) {
	zone, err := s.loadZone(ctx, cmd.ZoneID)
	if err != nil {
		return nil, err
	}
	if err := zone.Unblock(cmd.UnblockedBy); err != nil {
		return nil, err
	}
	if err := s.zones.Save(ctx, zone); err != nil {
		return nil, err
	}

	s.logger.Audit("zone.unblocked", cmd.UnblockedBy, "zoneId", cmd.ZoneID)
	return zone, nil
}

// MarkLotInTreatment takes an open lot out of allocation and into treatment.
func (s *StorageService) MarkLotInTreatment(ctx context.Context, cmd MarkLotInTreatmentCommand) (*domain.Lot, error) {
	lot, err := s.loadLot(ctx, cmd.LotID)
	if err != nil {
		return nil, err
	}
	if err := lot.StartTreatment(cmd.StartedBy); err != nil {
		return nil, err
	}
	if err := s.lots.Save(ctx, lot); err != nil {
		return nil, err
	}

	s.logger.Audit("lot.treatment_started", cmd.StartedBy,
		"lotId", cmd.LotID,
		"lotNumber", lot.LotNumber,
	)
	return lot, nil
}

// CloseLot ends a treated lot with its quality grade. Saving the closed lot
// releases its zone assignments, so the zone re-enters allocation with the
// same commit.
func (s *StorageService) CloseLot(ctx context.Context, cmd CloseLotCommand) (*domain.Lot, error) {
	lot, err := s.loadLot(ctx, cmd.LotID)
	if err != nil {
		return nil, err
	}
	if err := lot.Close(cmd.QualityGrade, cmd.ClosedBy); err != nil {
		return nil, err
	}
	if err := s.lots.Save(ctx, lot); err != nil {
		return nil, err
	}

	s.logger.Audit("lot.closed", cmd.ClosedBy,
		"lotId", cmd.LotID,
		"lotNumber", lot.LotNumber,
		"qualityGrade", cmd.QualityGrade,
	)
	return lot, nil
}

// Transfer moves stock from one zone to a destination chosen by the
// allocation engine. The outgoing and incoming movements post as a pair.
func (s *StorageService) Transfer(ctx context.Context, cmd TransferCommand) (*domain.AllocationResult, error) {
	if cmd.WeightKg <= 0 {
		return nil, apperrors.ErrValidation("transfer weight must be positive")
	}

	fromZone, err := s.loadZone(ctx, cmd.FromZoneID)
	if err != nil {
		return nil, err
	}
	fromLot, _, err := s.lots.FindActiveByZone(ctx, cmd.FromZoneID)
	if err != nil {
		return nil, err
	}
	if fromLot == nil {
		return nil, apperrors.ErrValidation(fmt.Sprintf("zone %s has no active lot to transfer from", fromZone.ZoneCode))
	}

	currentStock, err := s.movements.SumByZone(ctx, cmd.FromZoneID)
	if err != nil {
		return nil, err
	}
	if currentStock < cmd.WeightKg {
		return nil, apperrors.ErrValidation(
			fmt.Sprintf("zone %s holds %.2fkg, cannot transfer %.2fkg", fromZone.ZoneCode, currentStock, cmd.WeightKg))
	}

	req := domain.AllocationRequest{
		ParkID:        cmd.ParkID,
		MaterialCode:  cmd.MaterialCode,
		WeightKg:      cmd.WeightKg,
		ExcludeZoneID: cmd.FromZoneID,
	}
	result, err := s.Allocate(ctx, req, domain.MovementKindTransferIn, "", cmd.RequestedBy)
	if err != nil {
		return nil, err
	}

	out, err := domain.NewStockMovement(
		uuid.New().String(),
		cmd.ParkID, cmd.FromZoneID, fromLot.LotID, "",
		cmd.MaterialCode,
		domain.MovementKindTransferOut,
		-cmd.WeightKg,
		"transfer to "+result.ZoneCode,
		cmd.RequestedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := out.CheckOutgoing(currentStock); err != nil {
		err = apperrors.ErrConflict(err.Error())
		s.compensateTransferIn(ctx, cmd, result)
		return nil, err
	}
	if err := s.movements.Post(ctx, out); err != nil {
		s.compensateTransferIn(ctx, cmd, result)
		return nil, err
	}

	s.countPosting(cmd.ParkID, domain.MovementKindTransferOut)
	s.logger.Info("Transfer committed",
		"fromZoneId", cmd.FromZoneID,
		"toZoneCode", result.ZoneCode,
		"weightKg", cmd.WeightKg,
	)
	return result, nil
}

// compensateTransferIn reverses the destination posting when the source
// side of a transfer could not be committed.
func (s *StorageService) compensateTransferIn(ctx context.Context, cmd TransferCommand, result *domain.AllocationResult) {
	err := s.PostAdjustment(ctx, AdjustmentCommand{
		ParkID:       cmd.ParkID,
		ZoneID:       result.ZoneID,
		LotID:        result.LotID,
		MaterialCode: cmd.MaterialCode,
		DeltaKg:      -cmd.WeightKg,
		Reason:       "transfer rollback from " + cmd.FromZoneID,
		PostedBy:     cmd.RequestedBy,
	})
	if err != nil {
		s.logger.Error("Transfer rollback failed, ledger needs manual adjustment",
			"zoneId", result.ZoneID,
			"weightKg", cmd.WeightKg,
			"error", err.Error(),
		)
	}
}

// PostAdjustment records a correction movement. This is the only way to
// change quantities after an entry is confirmed.
func (s *StorageService) PostAdjustment(ctx context.Context, cmd AdjustmentCommand) error {
	if cmd.Reason == "" {
		return apperrors.ErrValidation("an adjustment requires a reason")
	}

	movement, err := domain.NewStockMovement(
		uuid.New().String(),
		cmd.ParkID, cmd.ZoneID, cmd.LotID, cmd.EntryID,
		cmd.MaterialCode,
		domain.MovementKindAdjustment,
		cmd.DeltaKg,
		cmd.Reason,
		cmd.PostedBy,
	)
	if err != nil {
		return apperrors.ErrValidation(err.Error())
	}

	if cmd.DeltaKg < 0 {
		currentStock, err := s.movements.SumByZone(ctx, cmd.ZoneID)
		if err != nil {
			return err
		}
		if err := movement.CheckOutgoing(currentStock); err != nil {
			return apperrors.ErrConflict(err.Error())
		}
	}

	if err := s.movements.Post(ctx, movement); err != nil {
		return err
	}

	s.countPosting(cmd.ParkID, domain.MovementKindAdjustment)
	s.logger.Audit("stock.adjusted", cmd.PostedBy,
		"zoneId", cmd.ZoneID,
		"deltaKg", cmd.DeltaKg,
		"reason", cmd.Reason,
	)
	return nil
}

// GetZone retrieves a zone with its ledger stock.
func (s *StorageService) GetZone(ctx context.Context, zoneID string) (*domain.StorageZone, float64, error) {
	zone, err := s.loadZone(ctx, zoneID)
	if err != nil {
		return nil, 0, err
	}
	stock, err := s.movements.SumByZone(ctx, zoneID)
	if err != nil {
		return nil, 0, err
	}
	return zone, stock, nil
}

// ListZones lists the zones of a park.
func (s *StorageService) ListZones(ctx context.Context, parkID string) ([]*domain.StorageZone, error) {
	return s.zones.FindByPark(ctx, parkID)
}

func (s *StorageService) loadLot(ctx context.Context, lotID string) (*domain.Lot, error) {
	lot, err := s.lots.FindByLotID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, apperrors.ErrNotFoundWithID("lot", lotID)
	}
	return lot, nil
}

func (s *StorageService) loadZone(ctx context.Context, zoneID string) (*domain.StorageZone, error) {
	zone, err := s.zones.FindByZoneID(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, apperrors.ErrNotFoundWithID("zone", zoneID)
	}
	return zone, nil
}

func (s *StorageService) countAllocation(parkID, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AllocationsTotal.WithLabelValues(parkID, outcome).Inc()
}

func (s *StorageService) countConflict() {
	if s.metrics == nil {
		return
	}
	s.metrics.AllocationConflicts.Inc()
}

func (s *StorageService) countPosting(parkID string, kind domain.MovementKind) {
	if s.metrics == nil {
		return
	}
	s.metrics.LedgerPostingsTotal.WithLabelValues(parkID, string(kind)).Inc()
}
