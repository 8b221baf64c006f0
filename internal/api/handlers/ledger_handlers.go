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

// LedgerHandlers serves the stock ledger queries and reconciliation.
type LedgerHandlers struct {
	ledger    *application.LedgerService
	responder *middleware.ErrorResponder
}

// NewLedgerHandlers creates the ledger handler set.
func NewLedgerHandlers(ledger *application.LedgerService, logger *logging.Logger) *LedgerHandlers {
	return &LedgerHandlers{
		ledger:    ledger,
		responder: middleware.NewErrorResponder(logger),
	}
}

// RegisterRoutes mounts the ledger endpoints.
func (h *LedgerHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	ledger := rg.Group("/ledger")
	{
		ledger.GET("/zones/:zoneId/stock", h.ZoneStock)
		ledger.GET("/zones/:zoneId/movements", h.ZoneMovements)
		ledger.GET("/lots/:lotId/stock", h.LotStock)
		ledger.GET("/entries/:entryId/movements", h.EntryMovements)
		ledger.POST("/reconciliation", middleware.OperatorIdentity(true), h.Reconcile)
		ledger.POST("/zones/:zoneId/projection/rebuild", middleware.OperatorIdentity(true), h.RebuildProjection)
	}
}

// ZoneStock handles GET /ledger/zones/:zoneId/stock
func (h *LedgerHandlers) ZoneStock(c *gin.Context) {
	stock, err := h.ledger.ZoneStock(c.Request.Context(), c.Param("zoneId"))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StockResponse{StockKg: stock})
}

// LotStock handles GET /ledger/lots/:lotId/stock
func (h *LedgerHandlers) LotStock(c *gin.Context) {
	stock, err := h.ledger.LotStock(c.Request.Context(), c.Param("lotId"))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StockResponse{StockKg: stock})
}

// ZoneMovements handles GET /ledger/zones/:zoneId/movements
func (h *LedgerHandlers) ZoneMovements(c *gin.Context) {
	movements, err := h.ledger.ZoneMovements(c.Request.Context(), c.Param("zoneId"), h.pagination(c))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
}

// EntryMovements handles GET /ledger/entries/:entryId/movements
func (h *LedgerHandlers) EntryMovements(c *gin.Context) {
	movements, err := h.ledger.EntryMovements(c.Request.Context(), c.Param("entryId"))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
}

// Reconcile handles POST /ledger/reconciliation?parkId=
func (h *LedgerHandlers) Reconcile(c *gin.Context) {
	parkID := middleware.GetParkID(c)
	if parkID == "" {
		parkID = c.Query("parkId")
	}
	if parkID == "" {
		h.responder.Respond(c, apperrors.ErrValidation("a park id is required"))
		return
	}

	report, err := h.ledger.Reconcile(c.Request.Context(), parkID)
	if err != nil {
		h.responder.Respond(c, mapDomainError(err))
		return
	}
	status := http.StatusOK
	if !report.Balanced() {
		status = http.StatusConflict
	}
	c.JSON(status, report)
}

// RebuildProjection handles POST /ledger/zones/:zoneId/projection/rebuild
func (h *LedgerHandlers) RebuildProjection(c *gin.Context) {
	stock, err := h.ledger.RebuildProjection(c.Request.Context(), c.Param("zoneId"))
	if err != nil {
		h.responder.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StockResponse{StockKg: stock})
}

func (h *LedgerHandlers) pagination(c *gin.Context) domain.Pagination {
	p := domain.DefaultPagination()
	if limit, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil && limit > 0 {
		p.Limit = limit
	}
	if offset, err := strconv.ParseInt(c.Query("offset"), 10, 64); err == nil && offset >= 0 {
		p.Offset = offset
	}
	return p
}
