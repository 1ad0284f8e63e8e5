package handlers

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"wykonczymy/internal/authz"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/export"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn  func(actor authz.Actor, input services.TransactionInput) (*models.Transaction, error)
	updateTransactionFn  func(actor authz.Actor, id string, fields services.TransactionUpdateFields) (*models.Transaction, error)
	deleteTransactionFn  func(actor authz.Actor, id string) error
	getTransactionByIDFn func(actor authz.Actor, id string) (*models.Transaction, error)
	listTransactionsFn   func(actor authz.Actor, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	listRegisterFn       func(actor authz.Actor, registerID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	createTransferFn     func(actor authz.Actor, input services.TransferInput) (*services.TransferResult, error)
	getWorkerSaldoFn     func(actor authz.Actor, workerID string) (*services.WorkerSaldo, error)
	exportFn             func(actor authz.Actor, filter services.TransactionFilter) ([]models.Transaction, error)
}

func (m *mockTransactionService) CreateTransaction(_ context.Context, actor authz.Actor, input services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(actor, input)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(_ context.Context, actor authz.Actor, id string, fields services.TransactionUpdateFields) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(actor, id, fields)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(_ context.Context, actor authz.Actor, id string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(actor, id)
	}
	return nil
}

func (m *mockTransactionService) GetTransactionByID(_ context.Context, actor authz.Actor, id string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(actor, id)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) ListTransactions(_ context.Context, actor authz.Actor, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(actor, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) ListRegisterTransactions(_ context.Context, actor authz.Actor, registerID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.listRegisterFn != nil {
		return m.listRegisterFn(actor, registerID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) CreateTransfer(_ context.Context, actor authz.Actor, input services.TransferInput) (*services.TransferResult, error) {
	if m.createTransferFn != nil {
		return m.createTransferFn(actor, input)
	}
	return &services.TransferResult{}, nil
}

func (m *mockTransactionService) GetWorkerSaldo(_ context.Context, actor authz.Actor, workerID string) (*services.WorkerSaldo, error) {
	if m.getWorkerSaldoFn != nil {
		return m.getWorkerSaldoFn(actor, workerID)
	}
	return &services.WorkerSaldo{WorkerID: workerID}, nil
}

func (m *mockTransactionService) ExportTransactions(_ context.Context, actor authz.Actor, filter services.TransactionFilter) ([]models.Transaction, error) {
	if m.exportFn != nil {
		return m.exportFn(actor, filter)
	}
	return nil, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

const (
	testRegisterID   = "0190a5b2-0000-7000-8000-0000000000a1"
	testRegister2ID  = "0190a5b2-0000-7000-8000-0000000000a2"
	testInvestmentID = "0190a5b2-0000-7000-8000-0000000000b1"
	testTxID         = "0190a5b2-0000-7000-8000-0000000000c1"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func setupTransactionRouter(svc services.TransactionServicer, role authz.Role) *gin.Engine {
	h := NewTransactionHandler(svc)
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	g := r.Group("", injectActor(testUserID, role))
	g.POST("/transactions", h.CreateTransaction)
	g.POST("/transactions/transfer", h.CreateTransfer)
	g.GET("/transactions/export", h.ExportTransactions)
	g.GET("/transactions", h.ListTransactions)
	g.GET("/transactions/:id", h.GetTransactionByID)
	g.PUT("/transactions/:id", h.UpdateTransaction)
	g.DELETE("/transactions/:id", h.DeleteTransaction)
	g.GET("/cash-registers/:id/transactions", h.GetRegisterTransactions)
	g.GET("/users/:id/saldo", h.GetWorkerSaldo)
	return r
}

func TestTransactionHandler_Create(t *testing.T) {
	t.Run("returns 201 and forwards the caller and payload", func(t *testing.T) {
		var got services.TransactionInput
		var gotActor authz.Actor
		svc := &mockTransactionService{
			createTransactionFn: func(actor authz.Actor, input services.TransactionInput) (*models.Transaction, error) {
				gotActor, got = actor, input
				return &models.Transaction{
					Base:   models.Base{ID: testTxID},
					Type:   input.Type,
					Amount: input.Amount,
				}, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions", `{
			"type": "INVESTMENT_EXPENSE",
			"amount": "123.45",
			"payment_method": "CASH",
			"cash_register_id": "`+testRegisterID+`",
			"investment_id": "`+testInvestmentID+`",
			"invoice_note": "paragon zgubiony"
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActor.ID != testUserID || gotActor.Role != authz.RoleManager {
			t.Errorf("unexpected actor %+v", gotActor)
		}
		if got.Amount != money.Amount(12345) {
			t.Errorf("expected amount 12345 minor units, got %d", got.Amount)
		}
		if got.InvestmentID == nil || *got.InvestmentID != testInvestmentID {
			t.Errorf("expected investment id to be forwarded, got %v", got.InvestmentID)
		}
		if got.WorkerID != nil {
			t.Errorf("expected no worker id, got %v", *got.WorkerID)
		}
		if !got.Date.Equal(fixedNow) {
			t.Errorf("expected date to default to now, got %v", got.Date)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["amount"] != "123.45" {
			t.Errorf("expected amount 123.45, got %v", tx["amount"])
		}
	})

	t.Run("accepts a plain date", func(t *testing.T) {
		var got time.Time
		svc := &mockTransactionService{
			createTransactionFn: func(_ authz.Actor, input services.TransactionInput) (*models.Transaction, error) {
				got = input.Date
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleOwner)

		rec := doRequest(r, "POST", "/transactions", `{"type":"COMPANY_FUNDING","amount":"10","payment_method":"CASH","cash_register_id":"`+testRegisterID+`","date":"2026-02-01"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected date %v", got)
		}
	})

	t.Run("returns 422 with field violations", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(authz.Actor, services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.WithDetails(apperrors.ErrValidationFailed, ledger.Violations{
					{Field: "investment", Rule: ledger.RuleRequired, Message: "investment is required"},
					{Field: "invoice", Rule: ledger.RuleEvidence, Message: "invoice or invoice note is required"},
				})
			},
		}
		r := setupTransactionRouter(svc, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions", `{"type":"INVESTMENT_EXPENSE","amount":"5","payment_method":"CASH","cash_register_id":"`+testRegisterID+`"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "VALIDATION_FAILED")
		details := result["error"].(map[string]interface{})["details"].([]interface{})
		if len(details) != 2 {
			t.Fatalf("expected 2 violations, got %d", len(details))
		}
		if details[0].(map[string]interface{})["field"] != "investment" {
			t.Errorf("unexpected first violation %v", details[0])
		}
	})

	t.Run("returns 400 for malformed reference id", func(t *testing.T) {
		called := false
		svc := &mockTransactionService{
			createTransactionFn: func(authz.Actor, services.TransactionInput) (*models.Transaction, error) {
				called = true
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions", `{"type":"OTHER","amount":"5","payment_method":"CASH","cash_register_id":"`+testRegisterID+`","other_category_id":"nope"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		if called {
			t.Error("service must not be called")
		}
	})

	t.Run("returns 400 for an amount with three decimals", func(t *testing.T) {
		r := setupTransactionRouter(&mockTransactionService{}, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions", `{"type":"OTHER","amount":"1.005","payment_method":"CASH","cash_register_id":"`+testRegisterID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for a bad date", func(t *testing.T) {
		r := setupTransactionRouter(&mockTransactionService{}, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions", `{"type":"OTHER","amount":"1","date":"14.03.2026"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes through forbidden", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(authz.Actor, services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupTransactionRouter(svc, authz.RoleEmployee)

		rec := doRequest(r, "POST", "/transactions", `{"type":"OTHER","amount":"1"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FORBIDDEN")
	})
}

func TestTransactionHandler_Update(t *testing.T) {
	t.Run("empty reference clears it", func(t *testing.T) {
		var got services.TransactionUpdateFields
		svc := &mockTransactionService{
			updateTransactionFn: func(_ authz.Actor, id string, fields services.TransactionUpdateFields) (*models.Transaction, error) {
				if id != testTxID {
					t.Errorf("unexpected id %s", id)
				}
				got = fields
				return &models.Transaction{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleManager)

		rec := doRequest(r, "PUT", "/transactions/"+testTxID, `{"amount":"99.90","worker_id":""}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount == nil || *got.Amount != money.Amount(9990) {
			t.Errorf("unexpected amount %v", got.Amount)
		}
		if got.WorkerID == nil || *got.WorkerID != "" {
			t.Errorf("expected worker_id to be cleared, got %v", got.WorkerID)
		}
		if got.InvestmentID != nil || got.Type != nil || got.Date != nil {
			t.Error("expected untouched fields to stay nil")
		}
	})

	t.Run("transfer legs are not editable", func(t *testing.T) {
		svc := &mockTransactionService{
			updateTransactionFn: func(authz.Actor, string, services.TransactionUpdateFields) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotEditable
			},
		}
		r := setupTransactionRouter(svc, authz.RoleOwner)

		rec := doRequest(r, "PUT", "/transactions/"+testTxID, `{"description":"x"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_EDITABLE")
	})

	t.Run("invalid path id", func(t *testing.T) {
		r := setupTransactionRouter(&mockTransactionService{}, authz.RoleOwner)

		rec := doRequest(r, "PUT", "/transactions/123", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_DeleteAndGet(t *testing.T) {
	t.Run("delete returns 204", func(t *testing.T) {
		deleted := ""
		svc := &mockTransactionService{
			deleteTransactionFn: func(_ authz.Actor, id string) error {
				deleted = id
				return nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleOwner)

		rec := doRequest(r, "DELETE", "/transactions/"+testTxID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if deleted != testTxID {
			t.Errorf("expected %s to be deleted, got %q", testTxID, deleted)
		}
	})

	t.Run("get returns 404 when missing", func(t *testing.T) {
		svc := &mockTransactionService{
			getTransactionByIDFn: func(authz.Actor, string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(svc, authz.RoleEmployee)

		rec := doRequest(r, "GET", "/transactions/"+testTxID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_List(t *testing.T) {
	t.Run("parses every filter", func(t *testing.T) {
		var got services.TransactionFilter
		var gotPage pagination.PageRequest
		svc := &mockTransactionService{
			listTransactionsFn: func(_ authz.Actor, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				got, gotPage = filter, page
				resp := pagination.NewPageResponse([]models.Transaction{}, page.Page, page.PageSize, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleOwner)

		rec := doRequest(r, "GET", "/transactions?page=2&page_size=5&sort=-amount"+
			"&from_date=2026-01-01&to_date=2026-01-31T23:59:59Z&type=OTHER&payment_method=BLIK"+
			"&cash_register_id="+testRegisterID+"&investment_id="+testInvestmentID+
			"&min_amount=10&max_amount=99.99", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 || gotPage.Sort != "-amount" {
			t.Errorf("unexpected page request %+v", gotPage)
		}
		if got.FromDate == nil || got.ToDate == nil {
			t.Fatal("expected both dates")
		}
		if got.Type == nil || *got.Type != ledger.TypeOther {
			t.Errorf("unexpected type %v", got.Type)
		}
		if got.PaymentMethod == nil || *got.PaymentMethod != ledger.PaymentBlik {
			t.Errorf("unexpected payment method %v", got.PaymentMethod)
		}
		if got.CashRegisterID == nil || *got.CashRegisterID != testRegisterID {
			t.Errorf("unexpected register %v", got.CashRegisterID)
		}
		if got.InvestmentID == nil || *got.InvestmentID != testInvestmentID {
			t.Errorf("unexpected investment %v", got.InvestmentID)
		}
		if got.WorkerID != nil || got.SettlementID != nil {
			t.Error("expected unset filters to stay nil")
		}
		if got.MinAmount == nil || *got.MinAmount != 1000 || got.MaxAmount == nil || *got.MaxAmount != 9999 {
			t.Errorf("unexpected amount range %v..%v", got.MinAmount, got.MaxAmount)
		}
	})

	cases := map[string]string{
		"unknown type":      "/transactions?type=GIFT",
		"unknown method":    "/transactions?payment_method=CHEQUE",
		"bad register id":   "/transactions?cash_register_id=abc",
		"bad amount":        "/transactions?min_amount=ten",
		"bad date":          "/transactions?from_date=yesterday",
		"page size too big": "/transactions?page_size=1000",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			r := setupTransactionRouter(&mockTransactionService{}, authz.RoleOwner)

			rec := doRequest(r, "GET", path, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("register transactions use the path id", func(t *testing.T) {
		var gotID string
		svc := &mockTransactionService{
			listRegisterFn: func(_ authz.Actor, registerID string, page pagination.PageRequest, _ services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				gotID = registerID
				resp := pagination.NewPageResponse([]models.Transaction{{Base: models.Base{ID: testTxID}}}, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleEmployee)

		rec := doRequest(r, "GET", "/cash-registers/"+testRegisterID+"/transactions", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotID != testRegisterID {
			t.Errorf("expected register %s, got %s", testRegisterID, gotID)
		}
		result := parseJSON(t, rec)
		if len(result["data"].([]interface{})) != 1 {
			t.Errorf("expected one row, got %v", result["data"])
		}
	})
}

func TestTransactionHandler_Transfer(t *testing.T) {
	t.Run("returns 201 with both legs", func(t *testing.T) {
		var got services.TransferInput
		svc := &mockTransactionService{
			createTransferFn: func(_ authz.Actor, input services.TransferInput) (*services.TransferResult, error) {
				got = input
				return &services.TransferResult{
					TransferGroupID: "g1",
					Outgoing:        &models.Transaction{TransferDirection: ledger.DirectionOutgoing, Amount: input.Amount},
					Incoming:        &models.Transaction{TransferDirection: ledger.DirectionIncoming, Amount: input.Amount},
				}, nil
			},
		}
		r := setupTransactionRouter(svc, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions/transfer", `{
			"source_register_id": "`+testRegisterID+`",
			"destination_register_id": "`+testRegister2ID+`",
			"amount": "300.00",
			"payment_method": "TRANSFER"
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.SourceRegisterID != testRegisterID || got.DestinationRegisterID != testRegister2ID {
			t.Errorf("unexpected registers %+v", got)
		}
		if got.Amount != 30000 {
			t.Errorf("expected 30000, got %d", got.Amount)
		}
		result := parseJSON(t, rec)
		if result["transfer_group_id"] != "g1" {
			t.Errorf("unexpected result %v", result)
		}
		out := result["outgoing"].(map[string]interface{})
		if out["transfer_direction"] != "OUTGOING" {
			t.Errorf("unexpected outgoing leg %v", out)
		}
	})

	t.Run("same register is rejected by the service", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransferFn: func(authz.Actor, services.TransferInput) (*services.TransferResult, error) {
				return nil, apperrors.ErrSameRegisterTransfer
			},
		}
		r := setupTransactionRouter(svc, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions/transfer", `{"source_register_id":"`+testRegisterID+`","destination_register_id":"`+testRegisterID+`","amount":"1","payment_method":"CASH"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SAME_REGISTER_TRANSFER")
	})

	t.Run("malformed register id", func(t *testing.T) {
		r := setupTransactionRouter(&mockTransactionService{}, authz.RoleManager)

		rec := doRequest(r, "POST", "/transactions/transfer", `{"source_register_id":"x","destination_register_id":"`+testRegister2ID+`","amount":"1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_WorkerSaldo(t *testing.T) {
	svc := &mockTransactionService{
		getWorkerSaldoFn: func(_ authz.Actor, workerID string) (*services.WorkerSaldo, error) {
			return &services.WorkerSaldo{WorkerID: workerID, Saldo: 7550, Funded: 10000, Spent: 2450, TransactionCount: 3}, nil
		},
	}
	r := setupTransactionRouter(svc, authz.RoleEmployee)

	rec := doRequest(r, "GET", "/users/"+testUserID+"/saldo", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if result["saldo"] != "75.50" || result["spent"] != "24.50" {
		t.Errorf("unexpected saldo %v", result)
	}
}

func TestTransactionHandler_Export(t *testing.T) {
	svc := &mockTransactionService{
		exportFn: func(_ authz.Actor, filter services.TransactionFilter) ([]models.Transaction, error) {
			if filter.Type == nil || *filter.Type != ledger.TypeCompanyFunding {
				t.Errorf("expected type filter, got %v", filter.Type)
			}
			return []models.Transaction{{
				Type:          ledger.TypeCompanyFunding,
				Amount:        50000,
				Date:          fixedNow,
				PaymentMethod: ledger.PaymentCash,
			}}, nil
		},
	}
	r := setupTransactionRouter(svc, authz.RoleOwner)

	rec := doRequest(r, "GET", "/transactions/export?type=COMPANY_FUNDING", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename="+export.Filename(fixedNow) {
		t.Errorf("unexpected content disposition %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("expected header plus one row, got %d rows", len(rows))
	}
}
