package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stock-reconciliation-service/internal/middleware"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/services"
)

type TransferHandler struct {
	coordinator *services.Coordinator
}

func NewTransferHandler(coordinator *services.Coordinator) *TransferHandler {
	return &TransferHandler{coordinator: coordinator}
}

// CreateTransfer raises a PENDING transfer request
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req models.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	transfer, err := h.coordinator.CreateTransfer(c.Request.Context(), &req, middleware.GetActorID(c), idempotencyKey(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.TransferResponse{
		Success: true,
		Data:    transfer,
		Message: stringPtr("Transfer request created"),
	})
}

// GetTransfer retrieves a transfer by ID
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "transfer")
		return
	}

	transfer, err := h.coordinator.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransferResponse{
		Success: true,
		Data:    transfer,
	})
}

// ListTransfers lists transfers with optional status and location filters
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	page, limit := parsePagination(c)

	var status *models.TransferStatus
	if s := c.Query("status"); s != "" {
		statusVal := models.TransferStatus(s)
		status = &statusVal
	}

	transfers, total, err := h.coordinator.ListTransfers(c.Request.Context(), status, locationFilter(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransferListResponse{
		Success:    true,
		Data:       transfers,
		Pagination: paginationMeta(page, limit, total),
	})
}

// ShipTransfer debits the source location and moves the transfer to
// IN_TRANSIT
func (h *TransferHandler) ShipTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "transfer")
		return
	}

	transfer, err := h.coordinator.ShipTransfer(c.Request.Context(), id, middleware.GetActorID(c), idempotencyKey(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransferResponse{
		Success: true,
		Data:    transfer,
		Message: stringPtr("Transfer shipped"),
	})
}

// RecordReceipt records a cumulative per-line receipt at the destination
func (h *TransferHandler) RecordReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "transfer")
		return
	}

	var req models.RecordReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	transfer, err := h.coordinator.RecordReceipt(c.Request.Context(), id, &req, middleware.GetActorID(c), idempotencyKey(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransferResponse{
		Success: true,
		Data:    transfer,
		Message: stringPtr("Receipt recorded"),
	})
}

// CompleteTransfer closes a fully received transfer
func (h *TransferHandler) CompleteTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "transfer")
		return
	}

	transfer, err := h.coordinator.CompleteTransfer(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransferResponse{
		Success: true,
		Data:    transfer,
		Message: stringPtr("Transfer completed"),
	})
}

// CancelTransfer withdraws a PENDING transfer
func (h *TransferHandler) CancelTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "transfer")
		return
	}

	transfer, err := h.coordinator.CancelTransfer(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransferResponse{
		Success: true,
		Data:    transfer,
		Message: stringPtr("Transfer cancelled"),
	})
}
