package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

// ReconciliationHandler exposes full balance recalculation.
type ReconciliationHandler struct {
	reconciliationService services.ReconciliationServicer
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationService services.ReconciliationServicer) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: reconciliationService}
}

// RecalculateAll rebuilds every stored balance from the transaction log
// @Summary     Run reconciliation
// @Description ADMIN/OWNER only. Recomputes register balances and investment totals, writes corrections and returns every mismatch found.
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ReconciliationResult "Run summary"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     409 {object} ErrorResponse "Another run is in progress"
// @Router      /reconciliation/run [post]
func (h *ReconciliationHandler) RecalculateAll(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.run(c, actor, true)
}

// Verify reports drift without correcting it
// @Summary     Verify balances
// @Description Same computation as a reconciliation run, but nothing is written.
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ReconciliationResult "Drift report"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     409 {object} ErrorResponse "Another run is in progress"
// @Router      /reconciliation/verify [post]
func (h *ReconciliationHandler) Verify(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.run(c, actor, false)
}

// OperatorRecalculateAll is RecalculateAll for external schedulers
// authenticated by API key.
// @Summary     Run reconciliation (operator)
// @Tags        ops
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} services.ReconciliationResult "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     409 {object} ErrorResponse "Another run is in progress"
// @Router      /ops/reconcile [post]
func (h *ReconciliationHandler) OperatorRecalculateAll(c *gin.Context) {
	h.run(c, authz.SystemActor, true)
}

func (h *ReconciliationHandler) run(c *gin.Context, actor authz.Actor, apply bool) {
	var (
		result *services.ReconciliationResult
		err    error
	)
	if apply {
		result, err = h.reconciliationService.RecalculateAll(c.Request.Context(), actor)
	} else {
		result, err = h.reconciliationService.Verify(c.Request.Context(), actor)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListReports lists persisted mismatch rows
// @Summary     List reconciliation reports
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       run_id    query string false "Only rows of this run"
// @Success     200 {object} pagination.PageResponse[models.ReconciliationReport] "Paginated reports"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Router      /reconciliation/reports [get]
func (h *ReconciliationHandler) ListReports(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	runID := c.Query("run_id")
	if runID != "" {
		parsed, err := parseOptionalID("run_id", &runID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		runID = *parsed
	}

	result, err := h.reconciliationService.ListReports(c.Request.Context(), actor, page, runID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
