package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

// CashRegisterHandler handles cash register requests.
type CashRegisterHandler struct {
	registerService services.CashRegisterServicer
}

// NewCashRegisterHandler creates a new CashRegisterHandler.
func NewCashRegisterHandler(registerService services.CashRegisterServicer) *CashRegisterHandler {
	return &CashRegisterHandler{registerService: registerService}
}

// CreateCashRegisterRequest represents the request payload for creating a register.
type CreateCashRegisterRequest struct {
	Name        string              `json:"name" binding:"required,min=1,max=100"`
	OwnerID     string              `json:"owner_id" binding:"required,uuid"`
	Type        models.RegisterType `json:"type" binding:"omitempty,register_type"`
	Description string              `json:"description" binding:"max=500"`
}

// UpdateCashRegisterRequest represents the request payload for updating a register.
type UpdateCashRegisterRequest struct {
	Name        *string              `json:"name" binding:"omitempty,min=1,max=100"`
	OwnerID     *string              `json:"owner_id" binding:"omitempty,uuid"`
	Type        *models.RegisterType `json:"type" binding:"omitempty,register_type"`
	Description *string              `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool                `json:"is_active"`
}

// OverrideBalanceRequest sets a register balance by hand.
type OverrideBalanceRequest struct {
	Balance money.Amount `json:"balance"`
	Reason  string       `json:"reason" binding:"required,max=500"`
}

// CreateCashRegister handles the creation of a register
// @Summary     Create a cash register
// @Tags        cash-registers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCashRegisterRequest true "Register details"
// @Success     201 {object} models.CashRegister "Register created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Owner not found"
// @Router      /cash-registers [post]
func (h *CashRegisterHandler) CreateCashRegister(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCashRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	register, err := h.registerService.CreateCashRegister(c.Request.Context(), actor, services.CashRegisterInput{
		Name:        req.Name,
		OwnerID:     req.OwnerID,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cash_register": register})
}

// ListCashRegisters handles listing registers
// @Summary     List cash registers
// @Description Registers visible to the caller. Managers and employees only see registers they own.
// @Tags        cash-registers
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       sort      query string false "Sort key, prefix with - for descending (name, balance, created_at)"
// @Param       is_active query bool   false "Filter by active flag"
// @Param       type      query string false "MAIN or AUXILIARY"
// @Param       owner_id  query string false "Filter by owner"
// @Success     200 {object} pagination.PageResponse[models.CashRegister] "Paginated registers"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /cash-registers [get]
func (h *CashRegisterHandler) ListCashRegisters(c *gin.Context) {
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

	var filter services.CashRegisterFilter
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid is_active"))
			return
		}
		filter.IsActive = &active
	}
	if v := c.Query("type"); v != "" {
		t := models.RegisterType(v)
		if t != models.RegisterTypeMain && t != models.RegisterTypeAuxiliary {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be MAIN or AUXILIARY"))
			return
		}
		filter.Type = &t
	}
	if v := c.Query("owner_id"); v != "" {
		owner, err := parseOptionalID("owner_id", &v)
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.OwnerID = owner
	}

	result, err := h.registerService.ListCashRegisters(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCashRegister handles retrieving a register
// @Summary     Get cash register by ID
// @Tags        cash-registers
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Register ID"
// @Success     200 {object} models.CashRegister "Register details"
// @Failure     404 {object} ErrorResponse "Register not found"
// @Router      /cash-registers/{id} [get]
func (h *CashRegisterHandler) GetCashRegister(c *gin.Context) {
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

	register, err := h.registerService.GetCashRegisterByID(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cash_register": register})
}

// UpdateCashRegister handles updating a register
// @Summary     Update cash register
// @Description Partial update. The balance cannot be set here.
// @Tags        cash-registers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Register ID"
// @Param       request body UpdateCashRegisterRequest true "Fields to update"
// @Success     200 {object} models.CashRegister "Updated register"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Register not found"
// @Router      /cash-registers/{id} [put]
func (h *CashRegisterHandler) UpdateCashRegister(c *gin.Context) {
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

	var req UpdateCashRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	register, err := h.registerService.UpdateCashRegister(c.Request.Context(), actor, id, services.CashRegisterUpdateFields{
		Name:        req.Name,
		OwnerID:     req.OwnerID,
		Type:        req.Type,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cash_register": register})
}

// OverrideBalance handles a manual balance correction
// @Summary     Override register balance
// @Description ADMIN/OWNER only. The next reconciliation run will report and undo any drift from the transaction log.
// @Tags        cash-registers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Register ID"
// @Param       request body OverrideBalanceRequest true "New balance"
// @Success     200 {object} models.CashRegister "Updated register"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Register not found"
// @Router      /cash-registers/{id}/balance [put]
func (h *CashRegisterHandler) OverrideBalance(c *gin.Context) {
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

	var req OverrideBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	register, err := h.registerService.OverrideBalance(c.Request.Context(), actor, id, req.Balance, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cash_register": register})
}
