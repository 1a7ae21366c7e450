package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stock-reconciliation-service/internal/middleware"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/services"
)

type AdjustmentHandler struct {
	coordinator *services.Coordinator
}

func NewAdjustmentHandler(coordinator *services.Coordinator) *AdjustmentHandler {
	return &AdjustmentHandler{coordinator: coordinator}
}

// SubmitAdjustment creates a PENDING stock adjustment proposal
func (h *AdjustmentHandler) SubmitAdjustment(c *gin.Context) {
	var req models.SubmitAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	adjustment, err := h.coordinator.SubmitAdjustment(c.Request.Context(), &req, middleware.GetActorID(c), idempotencyKey(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AdjustmentResponse{
		Success: true,
		Data:    adjustment,
		Message: stringPtr("Adjustment submitted for approval"),
	})
}

// GetAdjustment retrieves an adjustment by ID
func (h *AdjustmentHandler) GetAdjustment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "adjustment")
		return
	}

	adjustment, err := h.coordinator.GetAdjustment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdjustmentResponse{
		Success: true,
		Data:    adjustment,
	})
}

// ListAdjustments lists adjustments with optional status and location filters
func (h *AdjustmentHandler) ListAdjustments(c *gin.Context) {
	page, limit := parsePagination(c)

	var status *models.AdjustmentStatus
	if s := c.Query("status"); s != "" {
		statusVal := models.AdjustmentStatus(s)
		status = &statusVal
	}

	adjustments, total, err := h.coordinator.ListAdjustments(c.Request.Context(), status, locationFilter(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdjustmentListResponse{
		Success:    true,
		Data:       adjustments,
		Pagination: paginationMeta(page, limit, total),
	})
}

// ApproveAdjustment applies a PENDING adjustment to the ledger
func (h *AdjustmentHandler) ApproveAdjustment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "adjustment")
		return
	}

	adjustment, err := h.coordinator.ApproveAdjustment(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdjustmentResponse{
		Success: true,
		Data:    adjustment,
		Message: stringPtr("Adjustment approved and applied"),
	})
}

// RejectAdjustment declines a PENDING adjustment
func (h *AdjustmentHandler) RejectAdjustment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "adjustment")
		return
	}

	var req models.RejectAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	adjustment, err := h.coordinator.RejectAdjustment(c.Request.Context(), id, middleware.GetActorID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdjustmentResponse{
		Success: true,
		Data:    adjustment,
		Message: stringPtr("Adjustment rejected"),
	})
}

// CancelAdjustment withdraws a PENDING adjustment
func (h *AdjustmentHandler) CancelAdjustment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "adjustment")
		return
	}

	adjustment, err := h.coordinator.CancelAdjustment(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AdjustmentResponse{
		Success: true,
		Data:    adjustment,
		Message: stringPtr("Adjustment cancelled"),
	})
}
