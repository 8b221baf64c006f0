package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slspinola/bee2waste-sub002/internal/config"
	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
)

// LabelPrinter requests a material label for a stored allocation. Printing
// is cosmetic: failures are logged and never block the lifecycle.
type LabelPrinter interface {
	PrintLabel(ctx context.Context, entry *domain.WasteEntry, allocation domain.StorageAllocation) error
}

// IntakeService drives the waste entry lifecycle.
type IntakeService struct {
	entries  domain.WasteEntryRepository
	tickets  domain.NonConformityRepository
	readings domain.WeighbridgeReadings
	storage  *StorageService
	labels   LabelPrinter
	parkCfg  *config.ParkConfig
	metrics  *metrics.Registry
	logger   *logging.Logger
}

// NewIntakeService creates an IntakeService.
func NewIntakeService(
	entries domain.WasteEntryRepository,
	tickets domain.NonConformityRepository,
	readings domain.WeighbridgeReadings,
	storage *StorageService,
	labels LabelPrinter,
	parkCfg *config.ParkConfig,
	m *metrics.Registry,
	logger *logging.Logger,
) *IntakeService {
	return &IntakeService{
		entries:  entries,
		tickets:  tickets,
		readings: readings,
		storage:  storage,
		labels:   labels,
		parkCfg:  parkCfg,
		metrics:  m,
		logger:   logger,
	}
}

// OpenEntry opens a draft entry.
func (s *IntakeService) OpenEntry(ctx context.Context, cmd OpenEntryCommand) (*domain.WasteEntry, error) {
	entryID := cmd.EntryID
	if entryID == "" {
		entryID = fmt.Sprintf("ENT-%s", time.Now().Format("20060102150405"))
	}

	entry, err := domain.NewWasteEntry(entryID, cmd.ParkID, cmd.ProducerID, cmd.OpenedBy)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Info("Opened waste entry",
		"entryId", entry.EntryID,
		"parkId", cmd.ParkID,
		"openedBy", cmd.OpenedBy,
	)
	return entry, nil
}

// RecordVehicleArrival registers the vehicle at the gate.
func (s *IntakeService) RecordVehicleArrival(ctx context.Context, cmd RecordVehicleArrivalCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	if err := entry.RecordVehicleArrival(cmd.Registration, cmd.Transporter); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Info("Vehicle arrived",
		"entryId", cmd.EntryID,
		"registration", cmd.Registration,
	)
	return entry, nil
}

// RecordGrossWeight accepts the loaded weighbridge pass.
func (s *IntakeService) RecordGrossWeight(ctx context.Context, cmd RecordWeighingCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	reading, err := s.resolveReading(cmd)
	if err != nil {
		return nil, err
	}

	if err := entry.RecordGrossWeight(reading, s.parkCfg.MaxReadingAge(), cmd.RecordedBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Info("Gross weight recorded",
		"entryId", cmd.EntryID,
		"weightKg", reading.WeightKg,
		"deviceId", reading.DeviceID,
	)
	return entry, nil
}

// ValidateManifest records the e-GAR manifest check.
func (s *IntakeService) ValidateManifest(ctx context.Context, cmd ValidateManifestCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	if err := entry.ValidateManifest(cmd.Reference, cmd.OperatorConfirmed, cmd.ValidatedBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Info("Manifest validated",
		"entryId", cmd.EntryID,
		"reference", cmd.Reference,
	)
	return entry, nil
}

// RecordInspection attaches the inspection outcome. A failed inspection
// opens a non-conformity ticket but the entry continues.
func (s *IntakeService) RecordInspection(ctx context.Context, cmd RecordInspectionCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	wasInspected := entry.Status == domain.EntryStatusInspected
	if err := entry.RecordInspection(cmd.Passed, cmd.Notes, cmd.InspectedBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	if !cmd.Passed && !wasInspected {
		ticket, err := domain.NewNonConformity(
			uuid.New().String(),
			entry.EntryID,
			entry.ParkID,
			cmd.Notes,
			cmd.Severity,
			cmd.InspectedBy,
		)
		if err != nil {
			return nil, err
		}
		if err := s.tickets.Save(ctx, ticket); err != nil {
			return nil, err
		}
		s.logger.Warn("Inspection failed, non-conformity opened",
			"entryId", cmd.EntryID,
			"ticketId", ticket.TicketID,
		)
	}

	s.countTransition(entry)
	s.logger.Info("Entry inspected",
		"entryId", cmd.EntryID,
		"passed", cmd.Passed,
	)
	return entry, nil
}

// RecordTareWeight accepts the empty weighbridge pass and derives the net.
func (s *IntakeService) RecordTareWeight(ctx context.Context, cmd RecordWeighingCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	reading, err := s.resolveReading(cmd)
	if err != nil {
		return nil, err
	}

	if err := entry.RecordTareWeight(reading, s.parkCfg.MaxReadingAge(), cmd.RecordedBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Info("Tare weight recorded",
		"entryId", cmd.EntryID,
		"tareKg", reading.WeightKg,
		"netKg", entry.NetWeightKg,
	)
	return entry, nil
}

// ClassifyEntry attaches material lines covering the net weight.
func (s *IntakeService) ClassifyEntry(ctx context.Context, cmd ClassifyEntryCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	for _, line := range cmd.Lines {
		if !s.parkCfg.KnownMaterial(line.MaterialCode) {
			return nil, apperrors.ErrValidation(
				fmt.Sprintf("material %s is not in the park catalogue", line.MaterialCode))
		}
	}

	if err := entry.Classify(cmd.Lines, s.parkCfg.ClassificationToleranceKg, cmd.ClassifiedBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Info("Entry classified",
		"entryId", cmd.EntryID,
		"lines", len(cmd.Lines),
	)
	return entry, nil
}

// StoreEntry allocates storage for every classified line and posts the
// ledger movements. Each line's allocation and posting commit atomically;
// lines already committed are reversed if a later one fails.
func (s *IntakeService) StoreEntry(ctx context.Context, cmd StoreEntryCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == domain.EntryStatusStored {
		return entry, nil
	}
	if !entry.Status.CanTransitionTo(domain.EntryStatusStored) {
		return nil, &domain.InvalidTransitionError{
			EntryID: entry.EntryID,
			From:    entry.Status,
			To:      domain.EntryStatusStored,
		}
	}

	allocations := make([]domain.StorageAllocation, 0, len(entry.Classification))
	for _, line := range entry.Classification {
		req := domain.AllocationRequest{
			ParkID:       entry.ParkID,
			MaterialCode: line.MaterialCode,
			WeightKg:     line.WeightKg,
		}
		result, err := s.storage.Allocate(ctx, req, domain.MovementKindEntry, entry.EntryID, cmd.StoredBy)
		if err != nil {
			s.rollbackAllocations(ctx, entry, allocations, cmd.StoredBy)
			return nil, err
		}
		allocations = append(allocations, domain.StorageAllocation{
			MaterialCode: line.MaterialCode,
			WeightKg:     line.WeightKg,
			ZoneID:       result.ZoneID,
			ZoneCode:     result.ZoneCode,
			LotID:        result.LotID,
			LotNumber:    result.LotNumber,
			MovementID:   result.MovementID,
			AllocatedAt:  time.Now(),
		})
	}

	if err := entry.MarkStored(allocations); err != nil {
		s.rollbackAllocations(ctx, entry, allocations, cmd.StoredBy)
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		s.rollbackAllocations(ctx, entry, allocations, cmd.StoredBy)
		return nil, err
	}

	s.printLabels(ctx, entry, allocations)
	s.countTransition(entry)
	s.logger.Info("Entry stored",
		"entryId", cmd.EntryID,
		"allocations", len(allocations),
	)
	return entry, nil
}

// ConfirmEntry closes the entry; further corrections go through adjustment
// movements.
func (s *IntakeService) ConfirmEntry(ctx context.Context, cmd ConfirmEntryCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	if err := entry.Confirm(cmd.ConfirmedBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Audit("entry.confirmed", cmd.ConfirmedBy, "entryId", cmd.EntryID)
	return entry, nil
}

// CancelEntry abandons the entry from any non-terminal state.
func (s *IntakeService) CancelEntry(ctx context.Context, cmd CancelEntryCommand) (*domain.WasteEntry, error) {
	entry, err := s.load(ctx, cmd.EntryID)
	if err != nil {
		return nil, err
	}

	if err := entry.Cancel(cmd.Reason, cmd.CancelledBy); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.countTransition(entry)
	s.logger.Audit("entry.cancelled", cmd.CancelledBy,
		"entryId", cmd.EntryID,
		"reason", cmd.Reason,
	)
	return entry, nil
}

// ResolveNonConformity closes an inspection ticket.
func (s *IntakeService) ResolveNonConformity(ctx context.Context, cmd ResolveNonConformityCommand) (*domain.NonConformity, error) {
	ticket, err := s.tickets.FindByTicketID(ctx, cmd.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.ErrNotFoundWithID("non-conformity", cmd.TicketID)
	}

	if err := ticket.Resolve(cmd.Resolution, cmd.ResolvedBy); err != nil {
		return nil, err
	}
	if err := s.tickets.Save(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("Non-conformity resolved",
		"ticketId", cmd.TicketID,
		"resolvedBy", cmd.ResolvedBy,
	)
	return ticket, nil
}

// GetEntry retrieves an entry by ID.
func (s *IntakeService) GetEntry(ctx context.Context, entryID string) (*domain.WasteEntry, error) {
	return s.entries.FindByID(ctx, entryID)
}

// EntryStatusView is the status query result: where the entry is and where
// it may legally go next.
type EntryStatusView struct {
	EntryID         string               `json:"entryId"`
	Status          domain.EntryStatus   `json:"status"`
	NextTransitions []domain.EntryStatus `json:"nextTransitions"`
}

// GetEntryStatus returns the entry status and its legal next transitions.
func (s *IntakeService) GetEntryStatus(ctx context.Context, entryID string) (*EntryStatusView, error) {
	entry, err := s.load(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return &EntryStatusView{
		EntryID:         entry.EntryID,
		Status:          entry.Status,
		NextTransitions: entry.Status.NextTransitions(),
	}, nil
}

// ListEntriesByStatus lists entries of a park, optionally filtered by
// status.
func (s *IntakeService) ListEntriesByStatus(ctx context.Context, parkID string, status domain.EntryStatus) ([]*domain.WasteEntry, error) {
	if status == "" {
		return s.entries.FindByPark(ctx, parkID, domain.DefaultPagination())
	}
	return s.entries.FindByStatus(ctx, parkID, status, domain.DefaultPagination())
}

// ListOpenNonConformities lists open tickets for a park.
func (s *IntakeService) ListOpenNonConformities(ctx context.Context, parkID string) ([]*domain.NonConformity, error) {
	return s.tickets.FindOpenByPark(ctx, parkID)
}

func (s *IntakeService) load(ctx context.Context, entryID string) (*domain.WasteEntry, error) {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.ErrNotFoundWithID("entry", entryID)
	}
	return entry, nil
}

func (s *IntakeService) resolveReading(cmd RecordWeighingCommand) (domain.ScaleReading, error) {
	if cmd.Reading != nil {
		return *cmd.Reading, nil
	}
	if cmd.DeviceID == "" {
		return domain.ScaleReading{}, apperrors.ErrValidation("a scale reading or device id is required")
	}
	reading, ok := s.readings.Latest(cmd.DeviceID)
	if !ok {
		return domain.ScaleReading{}, apperrors.ErrValidation(
			fmt.Sprintf("no reading available from device %s", cmd.DeviceID))
	}
	return reading, nil
}

// rollbackAllocations reverses committed line allocations with adjustment
// movements when a later step of StoreEntry fails.
func (s *IntakeService) rollbackAllocations(ctx context.Context, entry *domain.WasteEntry, allocations []domain.StorageAllocation, actor string) {
	for _, alloc := range allocations {
		err := s.storage.PostAdjustment(ctx, AdjustmentCommand{
			ParkID:       entry.ParkID,
			ZoneID:       alloc.ZoneID,
			LotID:        alloc.LotID,
			EntryID:      entry.EntryID,
			MaterialCode: alloc.MaterialCode,
			DeltaKg:      -alloc.WeightKg,
			Reason:       "storage rollback: " + entry.EntryID,
			PostedBy:     actor,
		})
		if err != nil {
			s.logger.Error("Allocation rollback failed, ledger needs manual adjustment",
				"entryId", entry.EntryID,
				"zoneId", alloc.ZoneID,
				"movementId", alloc.MovementID,
				"error", err.Error(),
			)
		}
	}
}

func (s *IntakeService) printLabels(ctx context.Context, entry *domain.WasteEntry, allocations []domain.StorageAllocation) {
	if s.labels == nil {
		return
	}
	for _, alloc := range allocations {
		if err := s.labels.PrintLabel(ctx, entry, alloc); err != nil {
			s.logger.Warn("Label printing failed",
				"entryId", entry.EntryID,
				"materialCode", alloc.MaterialCode,
				"error", err.Error(),
			)
		}
	}
}

func (s *IntakeService) countTransition(entry *domain.WasteEntry) {
	if s.metrics == nil {
		return
	}
	s.metrics.EntryTransitionsTotal.WithLabelValues(entry.ParkID, string(entry.Status)).Inc()
}
