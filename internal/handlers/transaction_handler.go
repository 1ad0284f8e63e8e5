package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/export"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	now                func() time.Time
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, now: time.Now}
}

// CreateTransactionRequest represents the request payload for creating a
// transaction. Which references are required depends on the type; missing
// ones are reported together as field violations.
type CreateTransactionRequest struct {
	Type            ledger.TransactionType `json:"type"`
	Amount          money.Amount           `json:"amount" swaggertype:"string" example:"123.45"`
	Description     string                 `json:"description" binding:"max=500"`
	Date            *string                `json:"date"`
	PaymentMethod   ledger.PaymentMethod   `json:"payment_method"`
	CashRegisterID  string                 `json:"cash_register_id"`
	InvestmentID    *string                `json:"investment_id"`
	WorkerID        *string                `json:"worker_id"`
	OtherCategoryID *string                `json:"other_category_id"`
	InvoiceID       *string                `json:"invoice_id"`
	InvoiceNote     string                 `json:"invoice_note" binding:"max=500"`
}

// UpdateTransactionRequest represents the request payload for updating a
// transaction. An empty string clears an optional reference.
type UpdateTransactionRequest struct {
	Type            *ledger.TransactionType `json:"type"`
	Amount          *money.Amount           `json:"amount" swaggertype:"string" example:"123.45"`
	Description     *string                 `json:"description" binding:"omitempty,max=500"`
	Date            *string                 `json:"date"`
	PaymentMethod   *ledger.PaymentMethod   `json:"payment_method"`
	CashRegisterID  *string                 `json:"cash_register_id"`
	InvestmentID    *string                 `json:"investment_id"`
	WorkerID        *string                 `json:"worker_id"`
	OtherCategoryID *string                 `json:"other_category_id"`
	InvoiceID       *string                 `json:"invoice_id"`
	InvoiceNote     *string                 `json:"invoice_note" binding:"omitempty,max=500"`
}

// CreateTransferRequest represents the request payload for a register transfer.
type CreateTransferRequest struct {
	SourceRegisterID      string               `json:"source_register_id"`
	DestinationRegisterID string               `json:"destination_register_id"`
	Amount                money.Amount         `json:"amount" swaggertype:"string" example:"300.00"`
	PaymentMethod         ledger.PaymentMethod `json:"payment_method"`
	Date                  *string              `json:"date"`
	Description           string               `json:"description" binding:"max=500"`
}

// parseReferences validates the format of every optional ID in place.
func parseReferences(refs map[string]**string) error {
	for name, ref := range refs {
		parsed, err := parseOptionalID(name, *ref)
		if err != nil {
			return err
		}
		*ref = parsed
	}
	return nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record a ledger entry and apply its effect to the register, investment and worker saldo. Register transfers use POST /transactions/transfer.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Referenced record not found"
// @Failure     409 {object} ErrorResponse "Inactive register or concurrent change"
// @Failure     422 {object} ErrorResponse "Field violations"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	if err := parseReferences(map[string]**string{
		"investment_id":     &req.InvestmentID,
		"worker_id":         &req.WorkerID,
		"other_category_id": &req.OtherCategoryID,
		"invoice_id":        &req.InvoiceID,
	}); err != nil {
		respondWithError(c, err)
		return
	}
	if req.CashRegisterID != "" {
		id, err := parseOptionalID("cash_register_id", &req.CashRegisterID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		req.CashRegisterID = *id
	}

	date := h.now()
	if parsed, err := parseOptionalTime("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	} else if parsed != nil {
		date = *parsed
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), actor, services.TransactionInput{
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     req.Description,
		Date:            date,
		PaymentMethod:   req.PaymentMethod,
		CashRegisterID:  req.CashRegisterID,
		InvestmentID:    req.InvestmentID,
		WorkerID:        req.WorkerID,
		OtherCategoryID: req.OtherCategoryID,
		InvoiceID:       req.InvoiceID,
		InvoiceNote:     req.InvoiceNote,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Partial update. The old effect is reversed and the merged row revalidated and applied atomically. Transfer legs cannot be edited.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or non-editable transaction"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     422 {object} ErrorResponse "Field violations"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
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

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	if err := parseReferences(map[string]**string{
		"cash_register_id":  &req.CashRegisterID,
		"investment_id":     &req.InvestmentID,
		"worker_id":         &req.WorkerID,
		"other_category_id": &req.OtherCategoryID,
		"invoice_id":        &req.InvoiceID,
	}); err != nil {
		respondWithError(c, err)
		return
	}

	date, err := parseOptionalTime("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), actor, id, services.TransactionUpdateFields{
		Type:            req.Type,
		Amount:          req.Amount,
		Description:     req.Description,
		Date:            date,
		PaymentMethod:   req.PaymentMethod,
		CashRegisterID:  req.CashRegisterID,
		InvestmentID:    req.InvestmentID,
		WorkerID:        req.WorkerID,
		OtherCategoryID: req.OtherCategoryID,
		InvoiceID:       req.InvoiceID,
		InvoiceNote:     req.InvoiceNote,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Removes the transaction and reverses its effect. Deleting one leg of a transfer removes both legs.
// @Tags        transactions
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Transaction deleted"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
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

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), actor, id); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
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

	transaction, err := h.transactionService.GetTransactionByID(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// ListTransactions handles listing transactions
// @Summary     List transactions
// @Description Paginated transactions visible to the caller, with optional filters.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page              query int    false "Page number (default 1)"
// @Param       page_size         query int    false "Items per page (default 20, max 100)"
// @Param       sort              query string false "date, amount, type or created_at; prefix with - for descending"
// @Param       from_date         query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date           query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       type              query string false "Transaction type"
// @Param       payment_method    query string false "Payment method"
// @Param       cash_register_id  query string false "Register ID"
// @Param       investment_id     query string false "Investment ID"
// @Param       worker_id         query string false "Worker ID"
// @Param       other_category_id query string false "Category ID"
// @Param       settlement_id     query string false "Settlement ID"
// @Param       min_amount        query string false "Minimum amount, e.g. 100.00"
// @Param       max_amount        query string false "Maximum amount"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRegisterTransactions handles listing the transactions of one register
// @Summary     List register transactions
// @Description Every transaction booked on a register the caller can see.
// @Tags        cash-registers,transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Register ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       sort      query string false "Sort key"
// @Param       from_date query string false "Start date"
// @Param       to_date   query string false "End date"
// @Param       type      query string false "Transaction type"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     404 {object} ErrorResponse "Register not found"
// @Router      /cash-registers/{id}/transactions [get]
func (h *TransactionHandler) GetRegisterTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	registerID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListRegisterTransactions(c.Request.Context(), actor, registerID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateTransfer handles a register-to-register transfer
// @Summary     Create a transfer
// @Description Move money between two registers as a pair of linked entries. Both legs are created or neither is.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} services.TransferResult "Both legs"
// @Failure     400 {object} ErrorResponse "Invalid input or same register"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Register not found"
// @Failure     409 {object} ErrorResponse "Inactive register"
// @Failure     422 {object} ErrorResponse "Field violations"
// @Router      /transactions/transfer [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	for name, ref := range map[string]*string{
		"source_register_id":      &req.SourceRegisterID,
		"destination_register_id": &req.DestinationRegisterID,
	} {
		if *ref == "" {
			continue
		}
		id, err := parseOptionalID(name, ref)
		if err != nil {
			respondWithError(c, err)
			return
		}
		*ref = *id
	}

	date := h.now()
	if parsed, err := parseOptionalTime("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	} else if parsed != nil {
		date = *parsed
	}

	result, err := h.transactionService.CreateTransfer(c.Request.Context(), actor, services.TransferInput{
		SourceRegisterID:      req.SourceRegisterID,
		DestinationRegisterID: req.DestinationRegisterID,
		Amount:                req.Amount,
		PaymentMethod:         req.PaymentMethod,
		Date:                  date,
		Description:           req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetWorkerSaldo returns a worker's running balance
// @Summary     Get worker saldo
// @Description Sum of ACCOUNT_FUNDING minus EMPLOYEE_EXPENSE for a worker. Employees may only ask for themselves.
// @Tags        users,transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Worker (user) ID"
// @Success     200 {object} services.WorkerSaldo "Saldo"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /users/{id}/saldo [get]
func (h *TransactionHandler) GetWorkerSaldo(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	workerID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	saldo, err := h.transactionService.GetWorkerSaldo(c.Request.Context(), actor, workerID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, saldo)
}

// ExportTransactions streams the filtered transaction list as XLSX
// @Summary     Export transactions
// @Description Same filters as the list endpoint, oldest first, as an Excel workbook.
// @Tags        transactions
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Param       from_date query string false "Start date"
// @Param       to_date   query string false "End date"
// @Param       type      query string false "Transaction type"
// @Success     200 {file} file "XLSX workbook"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions/export [get]
func (h *TransactionHandler) ExportTransactions(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.ExportTransactions(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTransactionsXLSX(&buf, transactions); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.Filename(h.now()))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter
	var err error

	if filter.FromDate, err = parseOptionalTime("from_date", optionalQuery(c, "from_date")); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseOptionalTime("to_date", optionalQuery(c, "to_date")); err != nil {
		return filter, err
	}

	if v := c.Query("type"); v != "" {
		txType := ledger.TransactionType(v)
		if !txType.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type")
		}
		filter.Type = &txType
	}

	if v := c.Query("payment_method"); v != "" {
		method := ledger.PaymentMethod(v)
		if !method.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid payment_method")
		}
		filter.PaymentMethod = &method
	}

	for name, dst := range map[string]**string{
		"cash_register_id":  &filter.CashRegisterID,
		"investment_id":     &filter.InvestmentID,
		"worker_id":         &filter.WorkerID,
		"other_category_id": &filter.OtherCategoryID,
		"settlement_id":     &filter.SettlementID,
	} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		if *dst, err = parseOptionalID(name, &v); err != nil {
			return filter, err
		}
	}

	if v := c.Query("min_amount"); v != "" {
		if filter.MinAmount, err = parseAmountQuery("min_amount", v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("max_amount"); v != "" {
		if filter.MaxAmount, err = parseAmountQuery("max_amount", v); err != nil {
			return filter, err
		}
	}

	return filter, nil
}

func optionalQuery(c *gin.Context, key string) *string {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	return &v
}
