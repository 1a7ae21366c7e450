package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
	"stock-reconciliation-service/internal/services"
)

type StockHandler struct {
	coordinator *services.Coordinator
}

func NewStockHandler(coordinator *services.Coordinator) *StockHandler {
	return &StockHandler{coordinator: coordinator}
}

// GetStockLevel retrieves the level for one product at one location
func (h *StockHandler) GetStockLevel(c *gin.Context) {
	productID := c.Param("productId")
	location := c.Param("location")

	level, err := h.coordinator.GetStockLevel(c.Request.Context(), productID, location)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockLevelResponse{
		Success: true,
		Data:    level,
	})
}

// ListStockLevels pages through stock levels
func (h *StockHandler) ListStockLevels(c *gin.Context) {
	page, limit := parsePagination(c)

	levels, total, err := h.coordinator.ListStockLevels(c.Request.Context(), locationFilter(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockLevelListResponse{
		Success:    true,
		Data:       levels,
		Pagination: paginationMeta(page, limit, total),
	})
}

// GetLowStock lists levels at or below their reorder point
func (h *StockHandler) GetLowStock(c *gin.Context) {
	levels, err := h.coordinator.GetLowStock(c.Request.Context(), locationFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockLevelListResponse{
		Success: true,
		Data:    levels,
	})
}

// UpdateStockPolicy sets replenishment thresholds on a level
func (h *StockHandler) UpdateStockPolicy(c *gin.Context) {
	var req models.UpdateStockPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	level, err := h.coordinator.UpdateStockPolicy(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockLevelResponse{
		Success: true,
		Data:    level,
		Message: stringPtr("Stock policy updated"),
	})
}

// SetReservation records the absolute reserved quantity for a level
func (h *StockHandler) SetReservation(c *gin.Context) {
	var req models.SetReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	level, err := h.coordinator.SetReservation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockLevelResponse{
		Success: true,
		Data:    level,
		Message: stringPtr("Reservation updated"),
	})
}

// ListMovements pages through the audit trail
func (h *StockHandler) ListMovements(c *gin.Context) {
	page, limit := parsePagination(c)
	filter := movementFilterFromQuery(c)

	movements, total, err := h.coordinator.ListMovements(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MovementListResponse{
		Success:    true,
		Data:       movements,
		Pagination: paginationMeta(page, limit, total),
	})
}

// GetOperationMovements lists every movement of one logical operation
func (h *StockHandler) GetOperationMovements(c *gin.Context) {
	operationID, err := uuid.Parse(c.Param("operationId"))
	if err != nil {
		respondInvalidID(c, "operation")
		return
	}

	movements, err := h.coordinator.GetOperationMovements(c.Request.Context(), operationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MovementListResponse{
		Success: true,
		Data:    movements,
	})
}

// SyncLocations upserts the location registry
func (h *StockHandler) SyncLocations(c *gin.Context) {
	var req models.SyncLocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	locations, err := h.coordinator.SyncLocations(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LocationListResponse{
		Success: true,
		Data:    locations,
	})
}

// ListLocations returns the location registry
func (h *StockHandler) ListLocations(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "false") == "true"

	locations, err := h.coordinator.ListLocations(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LocationListResponse{
		Success: true,
		Data:    locations,
	})
}

func movementFilterFromQuery(c *gin.Context) repository.MovementFilter {
	filter := repository.MovementFilter{}
	if productID := c.Query("productId"); productID != "" {
		filter.ProductID = &productID
	}
	if location := c.Query("location"); location != "" {
		filter.Location = &location
	}
	if source := c.Query("sourceType"); source != "" {
		sourceType := models.MovementSourceType(source)
		filter.SourceType = &sourceType
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	return filter
}
