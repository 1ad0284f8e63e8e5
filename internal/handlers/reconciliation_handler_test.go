package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"wykonczymy/internal/authz"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/models"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/services"
)

type mockReconciliationService struct {
	recalculateAllFn func(actor authz.Actor) (*services.ReconciliationResult, error)
	verifyFn         func(actor authz.Actor) (*services.ReconciliationResult, error)
	listReportsFn    func(actor authz.Actor, page pagination.PageRequest, runID string) (*pagination.PageResponse[models.ReconciliationReport], error)
}

func (m *mockReconciliationService) RecalculateAll(_ context.Context, actor authz.Actor) (*services.ReconciliationResult, error) {
	if m.recalculateAllFn != nil {
		return m.recalculateAllFn(actor)
	}
	return &services.ReconciliationResult{Applied: true}, nil
}

func (m *mockReconciliationService) Verify(_ context.Context, actor authz.Actor) (*services.ReconciliationResult, error) {
	if m.verifyFn != nil {
		return m.verifyFn(actor)
	}
	return &services.ReconciliationResult{}, nil
}

func (m *mockReconciliationService) ListReports(_ context.Context, actor authz.Actor, page pagination.PageRequest, runID string) (*pagination.PageResponse[models.ReconciliationReport], error) {
	if m.listReportsFn != nil {
		return m.listReportsFn(actor, page, runID)
	}
	resp := pagination.NewPageResponse([]models.ReconciliationReport{}, 1, 20, 0)
	return &resp, nil
}

var _ services.ReconciliationServicer = (*mockReconciliationService)(nil)

func setupReconciliationRouter(svc services.ReconciliationServicer, role authz.Role) *gin.Engine {
	h := NewReconciliationHandler(svc)
	r := gin.New()
	g := r.Group("/reconciliation", injectActor(testUserID, role))
	g.POST("/run", h.RecalculateAll)
	g.POST("/verify", h.Verify)
	g.GET("/reports", h.ListReports)
	r.POST("/ops/reconcile", h.OperatorRecalculateAll)
	return r
}

func TestReconciliationHandler_Run(t *testing.T) {
	t.Run("returns mismatches", func(t *testing.T) {
		var gotActor authz.Actor
		svc := &mockReconciliationService{
			recalculateAllFn: func(actor authz.Actor) (*services.ReconciliationResult, error) {
				gotActor = actor
				return &services.ReconciliationResult{
					RunID:            "r1",
					Applied:          true,
					RegistersChecked: 2,
					Mismatches: []models.ReconciliationReport{{
						EntityKind:   models.ReportEntityCashRegister,
						EntityID:     testRegisterID,
						Field:        "balance",
						Previous:     99999,
						Recalculated: 58000,
						Applied:      true,
					}},
				}, nil
			},
		}
		r := setupReconciliationRouter(svc, authz.RoleOwner)

		rec := doRequest(r, "POST", "/reconciliation/run", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActor.ID != testUserID {
			t.Errorf("expected caller to be forwarded, got %+v", gotActor)
		}
		result := parseJSON(t, rec)
		mismatches := result["mismatches"].([]interface{})
		if len(mismatches) != 1 {
			t.Fatalf("expected 1 mismatch, got %d", len(mismatches))
		}
		m := mismatches[0].(map[string]interface{})
		if m["previous"] != "999.99" || m["recalculated"] != "580.00" {
			t.Errorf("unexpected mismatch %v", m)
		}
	})

	t.Run("returns 409 while another run holds the lock", func(t *testing.T) {
		svc := &mockReconciliationService{
			recalculateAllFn: func(authz.Actor) (*services.ReconciliationResult, error) {
				return nil, apperrors.ErrReconciliationInProgress
			},
		}
		r := setupReconciliationRouter(svc, authz.RoleAdmin)

		rec := doRequest(r, "POST", "/reconciliation/run", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RECONCILIATION_IN_PROGRESS")
	})

	t.Run("verify does not apply", func(t *testing.T) {
		applied := false
		svc := &mockReconciliationService{
			recalculateAllFn: func(authz.Actor) (*services.ReconciliationResult, error) {
				applied = true
				return &services.ReconciliationResult{}, nil
			},
		}
		r := setupReconciliationRouter(svc, authz.RoleAdmin)

		rec := doRequest(r, "POST", "/reconciliation/verify", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if applied {
			t.Error("verify must not call RecalculateAll")
		}
	})

	t.Run("operator endpoint runs as the system actor", func(t *testing.T) {
		var gotActor authz.Actor
		svc := &mockReconciliationService{
			recalculateAllFn: func(actor authz.Actor) (*services.ReconciliationResult, error) {
				gotActor = actor
				return &services.ReconciliationResult{Applied: true}, nil
			},
		}
		r := setupReconciliationRouter(svc, authz.RoleEmployee)

		rec := doRequest(r, "POST", "/ops/reconcile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotActor != authz.SystemActor {
			t.Errorf("expected system actor, got %+v", gotActor)
		}
	})
}

func TestReconciliationHandler_ListReports(t *testing.T) {
	t.Run("filters by run id", func(t *testing.T) {
		var gotRun string
		svc := &mockReconciliationService{
			listReportsFn: func(_ authz.Actor, _ pagination.PageRequest, runID string) (*pagination.PageResponse[models.ReconciliationReport], error) {
				gotRun = runID
				resp := pagination.NewPageResponse([]models.ReconciliationReport{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupReconciliationRouter(svc, authz.RoleOwner)

		rec := doRequest(r, "GET", "/reconciliation/reports?run_id="+testTxID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotRun != testTxID {
			t.Errorf("unexpected run id %q", gotRun)
		}
	})

	t.Run("rejects malformed run id", func(t *testing.T) {
		r := setupReconciliationRouter(&mockReconciliationService{}, authz.RoleOwner)

		rec := doRequest(r, "GET", "/reconciliation/reports?run_id=latest", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
