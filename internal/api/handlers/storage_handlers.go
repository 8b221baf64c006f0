package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/slspinola/bee2waste-sub002/internal/api/dto"
	"github.com/slspinola/bee2waste-sub002/internal/application"
	"github.com/slspinola/bee2waste-sub002/internal/domain"
	apperrors "github.com/slspinola/bee2waste-sub002/pkg/errors"
	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/middleware"
)

// StorageHandlers serves zone administration, lots, suggestions, transfers
// and adjustments.
type StorageHandlers struct {
	storage   *application.StorageService
	responder *middleware.ErrorResponder
}

// NewStorageHandlers creates the storage handler set.
func NewStorageHandlers(storage *application.StorageService, logger *logging.Logger) *StorageHandlers {
	return &StorageHandlers{
		storage:   storage,
		responder: middleware.NewErrorResponder(logger),
	}
}

// RegisterRoutes mounts the storage endpoints.
func (h *StorageHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	zones := rg.Group("/zones")
	{
		zones.POST("", middleware.OperatorIdentity(true), h.RegisterZone)
		zones.GET("", h.ListZones)
		zones.GET("/:zoneId", h.GetZone)
		zones.POST("/:zoneId/block", middleware.OperatorIdentity(true), h.BlockZone)
		zones.POST("/:zoneId/unblock", middleware.OperatorIdentity(true), h.UnblockZone)
	}

	lots := rg.Group("/lots")
	{
		lots.POST("/:lotId/treatment", middleware.OperatorIdentity(true), h.MarkLotInTreatment)
		lots.POST("/:lotId/close", middleware.OperatorIdentity(true), h.CloseLot)
	}

	rg.GET("/allocations/suggestions", h.SuggestAllocations)
	rg.POST("/transfers", middleware.OperatorIdentity(true), h.Transfer)
	rg.POST("/adjustments", middleware.OperatorIdentity(true), h.PostAdjustment)
}

// RegisterZone handles POST /zones
func (h *StorageHandlers) RegisterZone(c *gin.Context) {
	var req dto.RegisterZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	zone, err := h.storage.RegisterZone(c.Request.Context(), application.RegisterZoneCommand{
		ZoneID:     req.ZoneID,
		ZoneCode:   req.ZoneCode,
		ParkID:     req.ParkID,
		CapacityKg: req.CapacityKg,
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, zone)
}

// ListZones handles GET /zones?parkId=
func (h *StorageHandlers) ListZones(c *gin.Context) {
	parkID := h.parkID(c)
	if parkID == "" {
		h.responder.Respond(c, apperrors.ErrValidation("a park id is required"))
		return
	}
	zones, err := h.storage.ListZones(c.Request.Context(), parkID)
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones, "count": len(zones)})
}

// GetZone handles GET /zones/:zoneId
func (h *StorageHandlers) GetZone(c *gin.Context) {
	zone, stock, err := h.storage.GetZone(c.Request.Context(), c.Param("zoneId"))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewZoneResponse(zone, stock))
}

// BlockZone handles POST /zones/:zoneId/block
func (h *StorageHandlers) BlockZone(c *gin.Context) {
	var req dto.BlockZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	zone, err := h.storage.BlockZone(c.Request.Context(), application.BlockZoneCommand{
		ZoneID:    c.Param("zoneId"),
		Reason:    req.Reason,
		BlockedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, zone)
}

// UnblockZone handles POST /zones/:zoneId/unblock
func (h *StorageHandlers) UnblockZone(c *gin.Context) {
	zone, err := h.storage.UnblockZone(c.Request.Context(), application.UnblockZoneCommand{
		ZoneID:      c.Param("zoneId"),
		UnblockedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, zone)
}

// MarkLotInTreatment handles POST /lots/:lotId/treatment
func (h *StorageHandlers) MarkLotInTreatment(c *gin.Context) {
	lot, err := h.storage.MarkLotInTreatment(c.Request.Context(), application.MarkLotInTreatmentCommand{
		LotID:     c.Param("lotId"),
		StartedBy: middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, lot)
}

// CloseLot handles POST /lots/:lotId/close. The body is optional; a grade
// may be assigned with the close.
func (h *StorageHandlers) CloseLot(c *gin.Context) {
	var req dto.CloseLotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.responder.BadRequest(c, err)
			return
		}
	}

	lot, err := h.storage.CloseLot(c.Request.Context(), application.CloseLotCommand{
		LotID:        c.Param("lotId"),
		QualityGrade: req.QualityGrade,
		ClosedBy:     middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, lot)
}

// SuggestAllocations handles GET /allocations/suggestions. The ranking is a
// preview; nothing is reserved.
func (h *StorageHandlers) SuggestAllocations(c *gin.Context) {
	parkID := h.parkID(c)
	materialCode := c.Query("materialCode")
	weightKg, err := strconv.ParseFloat(c.Query("weightKg"), 64)
	if err != nil {
		h.responder.Respond(c, apperrors.ErrValidation("weightKg must be a number"))
		return
	}

	candidates, rejected, err := h.storage.SuggestAllocations(c.Request.Context(), domain.AllocationRequest{
		ParkID:       parkID,
		MaterialCode: materialCode,
		WeightKg:     weightKg,
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, dto.SuggestionsResponse{Candidates: candidates, Rejected: rejected})
}

// Transfer handles POST /transfers
func (h *StorageHandlers) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	result, err := h.storage.Transfer(c.Request.Context(), application.TransferCommand{
		ParkID:       req.ParkID,
		FromZoneID:   req.FromZoneID,
		MaterialCode: req.MaterialCode,
		WeightKg:     req.WeightKg,
		RequestedBy:  middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostAdjustment handles POST /adjustments
func (h *StorageHandlers) PostAdjustment(c *gin.Context) {
	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err)
		return
	}

	err := h.storage.PostAdjustment(c.Request.Context(), application.AdjustmentCommand{
		ParkID:       req.ParkID,
		ZoneID:       req.ZoneID,
		LotID:        req.LotID,
		EntryID:      req.EntryID,
		MaterialCode: req.MaterialCode,
		DeltaKg:      req.DeltaKg,
		Reason:       req.Reason,
		PostedBy:     middleware.GetOperatorID(c),
	})
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "posted"})
}

func (h *StorageHandlers) parkID(c *gin.Context) string {
	if parkID := middleware.GetParkID(c); parkID != "" {
		return parkID
	}
	if parkID := c.GetHeader(middleware.HeaderParkID); parkID != "" {
		return parkID
	}
	return c.Query("parkId")
}
