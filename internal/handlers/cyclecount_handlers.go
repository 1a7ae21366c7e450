package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stock-reconciliation-service/internal/middleware"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/services"
)

type CycleCountHandler struct {
	coordinator *services.Coordinator
}

func NewCycleCountHandler(coordinator *services.Coordinator) *CycleCountHandler {
	return &CycleCountHandler{coordinator: coordinator}
}

// CreateCycleCount opens a blind counting session. The response is the
// counter projection; system quantities stay hidden until completion.
func (h *CycleCountHandler) CreateCycleCount(c *gin.Context) {
	var req models.CreateCycleCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.coordinator.CreateCycleCount(c.Request.Context(), &req, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CycleCountCounterResponse{
		Success: true,
		Data:    session.CounterView(),
		Message: stringPtr("Cycle count session opened"),
	})
}

// GetCycleCount retrieves the counter projection of a session
func (h *CycleCountHandler) GetCycleCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	view, err := h.coordinator.GetCycleCountForCounter(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CycleCountCounterResponse{
		Success: true,
		Data:    view,
	})
}

// ReviewCycleCount retrieves the full session including frozen system
// quantities. Supervisor route; counters use GetCycleCount.
func (h *CycleCountHandler) ReviewCycleCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	session, err := h.coordinator.GetCycleCount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CycleCountReviewerResponse{
		Success: true,
		Data:    session,
	})
}

// ListCycleCounts lists sessions as counter projections
func (h *CycleCountHandler) ListCycleCounts(c *gin.Context) {
	page, limit := parsePagination(c)

	var status *models.CycleCountStatus
	if s := c.Query("status"); s != "" {
		statusVal := models.CycleCountStatus(s)
		status = &statusVal
	}

	sessions, total, err := h.coordinator.ListCycleCounts(c.Request.Context(), status, locationFilter(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.CycleCountCounterView, 0, len(sessions))
	for i := range sessions {
		views = append(views, *sessions[i].CounterView())
	}

	c.JSON(http.StatusOK, models.CycleCountListResponse{
		Success:    true,
		Data:       views,
		Pagination: paginationMeta(page, limit, total),
	})
}

// RecordCount stores a counted quantity against one session line
func (h *CycleCountHandler) RecordCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	var req models.RecordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	view, err := h.coordinator.RecordCount(c.Request.Context(), id, &req, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CycleCountCounterResponse{
		Success: true,
		Data:    view,
		Message: stringPtr("Count recorded"),
	})
}

// CompleteCycleCount closes the session and reveals the variance report
func (h *CycleCountHandler) CompleteCycleCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	report, err := h.coordinator.CompleteCycleCount(c.Request.Context(), id, middleware.GetActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VarianceReportResponse{
		Success: true,
		Data:    report,
	})
}

// GetVarianceReport returns the variance report of a COMPLETED session
func (h *CycleCountHandler) GetVarianceReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	report, err := h.coordinator.GetVarianceReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VarianceReportResponse{
		Success: true,
		Data:    report,
	})
}

// CancelCycleCount abandons an OPEN session
func (h *CycleCountHandler) CancelCycleCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	if err := h.coordinator.CancelCycleCount(c.Request.Context(), id, middleware.GetActorID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Cycle count session cancelled"),
	})
}

// ConvertCycleCount turns a completed session's variances into a PENDING
// stock adjustment
func (h *CycleCountHandler) ConvertCycleCount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondInvalidID(c, "session")
		return
	}

	adjustment, err := h.coordinator.ConvertCycleCount(c.Request.Context(), id, middleware.GetActorID(c), idempotencyKey(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AdjustmentResponse{
		Success: true,
		Data:    adjustment,
		Message: stringPtr("Variances submitted as adjustment"),
	})
}
