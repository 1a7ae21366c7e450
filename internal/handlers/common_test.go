package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
	"stock-reconciliation-service/internal/services"
)

func TestRespondError_SentinelMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("%w: bad reason", services.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid state", fmt.Errorf("%w: already decided", services.ErrInvalidState), http.StatusConflict, "INVALID_STATE"},
		{"stock changed", fmt.Errorf("%w: drifted", repository.ErrStockChanged), http.StatusConflict, "STOCK_CHANGED"},
		{"version conflict", repository.ErrVersionConflict, http.StatusConflict, "CONFLICT"},
		{"insufficient stock", fmt.Errorf("%w: short", repository.ErrInsufficientStock), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"negative stock", fmt.Errorf("%w: below zero", repository.ErrNegativeStock), http.StatusInternalServerError, "NEGATIVE_STOCK"},
		{"unknown", fmt.Errorf("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}
