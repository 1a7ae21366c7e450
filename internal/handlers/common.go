// Package handlers exposes the reconciliation engine over HTTP
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
	"stock-reconciliation-service/internal/services"
)

// respondError maps coordinator and repository sentinels onto HTTP
// status codes and the shared error envelope
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
		code = "VALIDATION_ERROR"
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, services.ErrInvalidState):
		status = http.StatusConflict
		code = "INVALID_STATE"
	case errors.Is(err, repository.ErrStockChanged):
		status = http.StatusConflict
		code = "STOCK_CHANGED"
	case errors.Is(err, repository.ErrVersionConflict):
		status = http.StatusConflict
		code = "CONFLICT"
	case errors.Is(err, repository.ErrInsufficientStock):
		status = http.StatusUnprocessableEntity
		code = "INSUFFICIENT_STOCK"
	case errors.Is(err, repository.ErrNegativeStock):
		status = http.StatusInternalServerError
		code = "NEGATIVE_STOCK"
	}

	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		},
	})
}

func respondInvalidID(c *gin.Context, what string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INVALID_ID",
			Message: "Invalid " + what + " ID",
		},
	})
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func paginationMeta(page, limit int, total int64) *models.PaginationMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func locationFilter(c *gin.Context) *string {
	if location := c.Query("location"); location != "" {
		return &location
	}
	return nil
}

func idempotencyKey(c *gin.Context) string {
	return c.GetHeader("Idempotency-Key")
}

func stringPtr(s string) *string {
	return &s
}
