package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slspinola/bee2waste-sub002/internal/api/dto"
	"github.com/slspinola/bee2waste-sub002/internal/application"
	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/middleware"
)

// EntryHandlers serves the intake lifecycle endpoints.
type EntryHandlers struct {
	intake    *application.IntakeService
	responder *middleware.ErrorResponder
}

// NewEntryHandlers creates the entry handler set.
func NewEntryHandlers(intake *application.IntakeService, logger *logging.Logger) *EntryHandlers {
	return &EntryHandlers{
		intake:    intake,
		responder: middleware.NewErrorResponder(logger),
	}
}

// RegisterRoutes mounts the entry endpoints. Every mutating endpoint
// requires an authenticated operator.
func (h *EntryHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	entries := rg.Group("/entries")
	{
		entries.POST("", middleware.OperatorIdentity(true), h.OpenEntry)
		entries.GET("", h.ListEntries)
		entries.GET("/:entryId", h.GetEntry)
		entries.GET("/:entryId/status", h.GetEntryStatus)
		entries.POST("/:entryId/arrival", middleware.OperatorIdentity(true), h.RecordVehicleArrival)
		entries.POST("/:entryId/gross-weight", middleware.OperatorIdentity(true), h.RecordGrossWeight)
		entries.POST("/:entryId/manifest", middleware.OperatorIdentity(true), h.ValidateManifest)
		entries.POST("/:entryId/inspection", middleware.OperatorIdentity(true), h.RecordInspection)
		entries.POST("/:entryId/tare-weight", middleware.OperatorIdentity(true), h.RecordTareWeight)
		entries.POST("/:entryId/classification", middleware.OperatorIdentity(true), h.ClassifyEntry)
		entries.POST("/:entryId/store", middleware.OperatorIdentity(true), h.StoreEntry)
		entries.POST("/:entryId/confirm", middleware.OperatorIdentity(true), h.ConfirmEntry)
		entries.POST("/:entryId/cancel", middleware.OperatorIdentity(true), h.CancelEntry)
	}

	tickets := rg.Group("/non-conformities")
	{
		tickets.GET("", h.ListOpenNonConformities)
		tickets.POST("/:ticketId/resolve", middleware.OperatorIdentity(true), h.ResolveNonConformity)
	}
}

// OpenEntry handles POST /entries
func (h *EntryHandlers) OpenEntry(c *gin.Context) {
	var req dto.OpenEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	entry, err := h.intake.OpenEntry(c.Request.Context(), application.OpenEntryCommand{
		EntryID:    req.EntryID,
		ParkID:     req.ParkID,
		ProducerID: req.ProducerID,
		OpenedBy:   middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetEntry handles GET /entries/:entryId
func (h *EntryHandlers) GetEntry(c *gin.Context) {
	entry, err := h.intake.GetEntry(c.Request.Context(), c.Param("entryId"))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	if entry == nil {
		h.responder.Respond(c, apperrors.ErrNotFoundWithID("entry", c.Param("entryId")))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetEntryStatus handles GET /entries/:entryId/status
func (h *EntryHandlers) GetEntryStatus(c *gin.Context) {
	view, err := h.intake.GetEntryStatus(c.Request.Context(), c.Param("entryId"))
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListEntries handles GET /entries?parkId=&status=
func (h *EntryHandlers) ListEntries(c *gin.Context) {
	parkID := h.parkID(c)
	if parkID == "" {
		h.responder.Respond(c, apperrors.ErrValidation("a park id is required"))
		return
	}
	status := domain.EntryStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		h.responder.Respond(c, apperrors.ErrValidation("unknown entry status: "+string(status)))
		return
	}

	entries, err := h.intake.ListEntriesByStatus(c.Request.Context(), parkID, status)
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// RecordVehicleArrival handles POST /entries/:entryId/arrival
func (h *EntryHandlers) RecordVehicleArrival(c *gin.Context) {
	var req dto.VehicleArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	entry, err := h.intake.RecordVehicleArrival(c.Request.Context(), application.RecordVehicleArrivalCommand{
		EntryID:      c.Param("entryId"),
		Registration: req.Registration,
		Transporter:  req.Transporter,
		RecordedBy:   middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RecordGrossWeight handles POST /entries/:entryId/gross-weight
func (h *EntryHandlers) RecordGrossWeight(c *gin.Context) {
	cmd, ok := h.bindWeighing(c)
	if !ok {
		return
	}
	entry, err := h.intake.RecordGrossWeight(c.Request.Context(), cmd)
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RecordTareWeight handles POST /entries/:entryId/tare-weight
func (h *EntryHandlers) RecordTareWeight(c *gin.Context) {
	cmd, ok := h.bindWeighing(c)
	if !ok {
		return
	}
	entry, err := h.intake.RecordTareWeight(c.Request.Context(), cmd)
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ValidateManifest handles POST /entries/:entryId/manifest
func (h *EntryHandlers) ValidateManifest(c *gin.Context) {
	var req dto.ManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	entry, err := h.intake.ValidateManifest(c.Request.Context(), application.ValidateManifestCommand{
		EntryID:           c.Param("entryId"),
		Reference:         req.Reference,
		OperatorConfirmed: req.OperatorConfirmed,
		ValidatedBy:       middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// RecordInspection handles POST /entries/:entryId/inspection
func (h *EntryHandlers) RecordInspection(c *gin.Context) {
	var req dto.InspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	entry, err := h.intake.RecordInspection(c.Request.Context(), application.RecordInspectionCommand{
		EntryID:     c.Param("entryId"),
		Passed:      *req.Passed,
		Notes:       req.Notes,
		Severity:    domain.NonConformitySeverity(req.Severity),
		InspectedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ClassifyEntry handles POST /entries/:entryId/classification
func (h *EntryHandlers) ClassifyEntry(c *gin.Context) {
	var req dto.ClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	lines := make([]domain.MaterialClassification, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, domain.MaterialClassification{
			MaterialCode: line.MaterialCode,
			Description:  line.Description,
			WeightKg:     line.WeightKg,
		})
	}

	entry, err := h.intake.ClassifyEntry(c.Request.Context(), application.ClassifyEntryCommand{
		EntryID:      c.Param("entryId"),
		Lines:        lines,
		ClassifiedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// StoreEntry handles POST /entries/:entryId/store
func (h *EntryHandlers) StoreEntry(c *gin.Context) {
	entry, err := h.intake.StoreEntry(c.Request.Context(), application.StoreEntryCommand{
		EntryID:  c.Param("entryId"),
		StoredBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ConfirmEntry handles POST /entries/:entryId/confirm
func (h *EntryHandlers) ConfirmEntry(c *gin.Context) {
	entry, err := h.intake.ConfirmEntry(c.Request.Context(), application.ConfirmEntryCommand{
		EntryID:     c.Param("entryId"),
		ConfirmedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CancelEntry handles POST /entries/:entryId/cancel
func (h *EntryHandlers) CancelEntry(c *gin.Context) {
	var req dto.CancelEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	entry, err := h.intake.CancelEntry(c.Request.Context(), application.CancelEntryCommand{
		EntryID:     c.Param("entryId"),
		Reason:      req.Reason,
		CancelledBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ListOpenNonConformities handles GET /non-conformities?parkId=
func (h *EntryHandlers) ListOpenNonConformities(c *gin.Context) {
	parkID := h.parkID(c)
	if parkID == "" {
		h.responder.Respond(c, apperrors.ErrValidation("a park id is required"))
		return
	}
	tickets, err := h.intake.ListOpenNonConformities(c.Request.Context(), parkID)
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonConformities": tickets, "count": len(tickets)})
}

// ResolveNonConformity handles POST /non-conformities/:ticketId/resolve
func (h *EntryHandlers) ResolveNonConformity(c *gin.Context) {
	var req dto.ResolveNonConformityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	ticket, err := h.intake.ResolveNonConformity(c.Request.Context(), application.ResolveNonConformityCommand{
		TicketID:   c.Param("ticketId"),
		Resolution: req.Resolution,
		ResolvedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *EntryHandlers) bindWeighing(c *gin.Context) (application.RecordWeighingCommand, bool) {
	var req dto.WeighingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return application.RecordWeighingCommand{}, false
	}

	cmd := application.RecordWeighingCommand{
		EntryID:    c.Param("entryId"),
		DeviceID:   req.DeviceID,
		RecordedBy: middleware.GetOperatorID(c),
	}
	if req.Reading != nil {
		cmd.Reading = &domain.ScaleReading{
			DeviceID:  req.Reading.DeviceID,
			WeightKg:  req.Reading.WeightKg,
			Stable:    req.Reading.Stable,
			Timestamp: req.Reading.Timestamp,
		}
	}
	return cmd, true
}

// parkID resolves the park scope: gateway header first, query fallback.
func (h *EntryHandlers) parkID(c *gin.Context) string {
	if parkID := middleware.GetParkID(c); parkID != "" {
		return parkID
	}
	if parkID := c.GetHeader(middleware.HeaderParkID); parkID != "" {
		return parkID
	}
	return c.Query("parkId")
}
