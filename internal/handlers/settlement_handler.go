package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wykonczymy/internal/ledger"
	"wykonczymy/internal/money"
	"wykonczymy/internal/services"
)

// SettlementHandler handles invoice settlements.
type SettlementHandler struct {
	settlementService services.SettlementServicer
	now               func() time.Time
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementService services.SettlementServicer) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService, now: time.Now}
}

// SettlementLineRequest is one invoice position.
type SettlementLineRequest struct {
	Amount      money.Amount `json:"amount" swaggertype:"string" example:"50.00"`
	Description string       `json:"description" binding:"max=500"`
	Note        string       `json:"note" binding:"max=500"`
}

// CreateSettlementRequest fans one invoice out into worker expenses.
type CreateSettlementRequest struct {
	WorkerID       string                  `json:"worker_id" binding:"omitempty,uuid"`
	InvestmentID   string                  `json:"investment_id" binding:"omitempty,uuid"`
	CashRegisterID string                  `json:"cash_register_id" binding:"omitempty,uuid"`
	PaymentMethod  ledger.PaymentMethod    `json:"payment_method"`
	Date           *string                 `json:"date"`
	InvoiceID      *string                 `json:"invoice_id"`
	InvoiceNote    string                  `json:"invoice_note" binding:"max=500"`
	Lines          []SettlementLineRequest `json:"lines" binding:"max=200,dive"`
}

// CreateSettlement handles a multi-line invoice settlement
// @Summary     Create a settlement
// @Description Creates one EMPLOYEE_EXPENSE per line, all sharing a settlement ID. Violations are reported per line as lines[i].field; nothing is created unless every line is valid.
// @Tags        settlements
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSettlementRequest true "Settlement details"
// @Success     201 {object} services.SettlementResult "Created lines"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Referenced record not found"
// @Failure     422 {object} ErrorResponse "Field violations"
// @Router      /settlements [post]
func (h *SettlementHandler) CreateSettlement(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	invoiceID, err := parseOptionalID("invoice_id", req.InvoiceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	date := h.now()
	if parsed, err := parseOptionalTime("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	} else if parsed != nil {
		date = *parsed
	}

	lines := make([]services.SettlementLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = services.SettlementLine{Amount: l.Amount, Description: l.Description, Note: l.Note}
	}

	result, err := h.settlementService.CreateSettlement(c.Request.Context(), actor, services.SettlementInput{
		WorkerID:       req.WorkerID,
		InvestmentID:   req.InvestmentID,
		CashRegisterID: req.CashRegisterID,
		PaymentMethod:  req.PaymentMethod,
		Date:           date,
		InvoiceID:      invoiceID,
		InvoiceNote:    req.InvoiceNote,
		Lines:          lines,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetSettlement returns the lines of a settlement
// @Summary     Get settlement
// @Tags        settlements
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Settlement ID"
// @Success     200 {object} services.SettlementResult "Settlement lines"
// @Failure     404 {object} ErrorResponse "Settlement not found"
// @Router      /settlements/{id} [get]
func (h *SettlementHandler) GetSettlement(c *gin.Context) {
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

	result, err := h.settlementService.GetSettlement(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
