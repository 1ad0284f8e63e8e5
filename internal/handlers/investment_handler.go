package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/models"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

// InvestmentHandler handles construction project requests.
type InvestmentHandler struct {
	investmentService services.InvestmentServicer
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investmentService services.InvestmentServicer) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

// CreateInvestmentRequest represents the request payload for creating an investment.
type CreateInvestmentRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Address string `json:"address" binding:"max=300"`
	Notes   string `json:"notes" binding:"max=2000"`
}

// UpdateInvestmentRequest represents the request payload for updating an investment.
// The cost and income totals are not accepted.
type UpdateInvestmentRequest struct {
	Name    *string                  `json:"name" binding:"omitempty,min=1,max=200"`
	Status  *models.InvestmentStatus `json:"status" binding:"omitempty,investment_status"`
	Address *string                  `json:"address" binding:"omitempty,max=300"`
	Notes   *string                  `json:"notes" binding:"omitempty,max=2000"`
}

// CreateInvestment handles the creation of an investment
// @Summary     Create an investment
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateInvestmentRequest true "Investment details"
// @Success     201 {object} models.Investment "Investment created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /investments [post]
func (h *InvestmentHandler) CreateInvestment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	inv, err := h.investmentService.CreateInvestment(c.Request.Context(), actor, services.InvestmentInput{
		Name:    req.Name,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"investment": inv})
}

// ListInvestments handles listing investments
// @Summary     List investments
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       sort      query string false "Sort key, prefix with - for descending"
// @Param       status    query string false "active or completed"
// @Success     200 {object} pagination.PageResponse[models.Investment] "Paginated investments"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /investments [get]
func (h *InvestmentHandler) ListInvestments(c *gin.Context) {
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

	var status *models.InvestmentStatus
	if v := c.Query("status"); v != "" {
		s := models.InvestmentStatus(v)
		if s != models.InvestmentStatusActive && s != models.InvestmentStatusCompleted {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be active or completed"))
			return
		}
		status = &s
	}

	result, err := h.investmentService.ListInvestments(c.Request.Context(), actor, page, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInvestment handles retrieving an investment
// @Summary     Get investment by ID
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investment ID"
// @Success     200 {object} models.Investment "Investment with derived totals"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Router      /investments/{id} [get]
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.investmentService.GetInvestmentByID(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": inv})
}

// UpdateInvestment handles updating an investment
// @Summary     Update investment
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Investment ID"
// @Param       request body UpdateInvestmentRequest true "Fields to update"
// @Success     200 {object} models.Investment "Updated investment"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /investments/{id} [put]
func (h *InvestmentHandler) UpdateInvestment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	inv, err := h.investmentService.UpdateInvestment(c.Request.Context(), actor, id, services.InvestmentUpdateFields{
		Name:    req.Name,
		Status:  req.Status,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": inv})
}
