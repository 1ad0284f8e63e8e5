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

type mockInvestmentService struct {
	createFn func(actor authz.Actor, input services.InvestmentInput) (*models.Investment, error)
	getFn    func(actor authz.Actor, id string) (*models.Investment, error)
	listFn   func(actor authz.Actor, page pagination.PageRequest, status *models.InvestmentStatus) (*pagination.PageResponse[models.Investment], error)
	updateFn func(actor authz.Actor, id string, fields services.InvestmentUpdateFields) (*models.Investment, error)
}

func (m *mockInvestmentService) CreateInvestment(_ context.Context, actor authz.Actor, input services.InvestmentInput) (*models.Investment, error) {
	if m.createFn != nil {
		return m.createFn(actor, input)
	}
	return &models.Investment{}, nil
}

func (m *mockInvestmentService) GetInvestmentByID(_ context.Context, actor authz.Actor, id string) (*models.Investment, error) {
	if m.getFn != nil {
		return m.getFn(actor, id)
	}
	return &models.Investment{}, nil
}

func (m *mockInvestmentService) ListInvestments(_ context.Context, actor authz.Actor, page pagination.PageRequest, status *models.InvestmentStatus) (*pagination.PageResponse[models.Investment], error) {
	if m.listFn != nil {
		return m.listFn(actor, page, status)
	}
	resp := pagination.NewPageResponse([]models.Investment{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockInvestmentService) UpdateInvestment(_ context.Context, actor authz.Actor, id string, fields services.InvestmentUpdateFields) (*models.Investment, error) {
	if m.updateFn != nil {
		return m.updateFn(actor, id, fields)
	}
	return &models.Investment{}, nil
}

var _ services.InvestmentServicer = (*mockInvestmentService)(nil)

func setupInvestmentRouter(svc services.InvestmentServicer, role authz.Role) *gin.Engine {
	h := NewInvestmentHandler(svc)
	r := gin.New()
	g := r.Group("/investments", injectActor(testUserID, role))
	g.POST("", h.CreateInvestment)
	g.GET("", h.ListInvestments)
	g.GET("/:id", h.GetInvestment)
	g.PUT("/:id", h.UpdateInvestment)
	return r
}

func TestInvestmentHandler(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		svc := &mockInvestmentService{
			createFn: func(_ authz.Actor, input services.InvestmentInput) (*models.Investment, error) {
				return &models.Investment{Base: models.Base{ID: testInvestmentID}, Name: input.Name, Status: models.InvestmentStatusActive}, nil
			},
		}
		r := setupInvestmentRouter(svc, authz.RoleManager)

		rec := doRequest(r, "POST", "/investments", `{"name":"Mieszkanie Mokotów","address":"ul. Puławska 1"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		inv := parseJSON(t, rec)["investment"].(map[string]interface{})
		if inv["status"] != "active" {
			t.Errorf("unexpected status %v", inv["status"])
		}
	})

	t.Run("list forwards status filter", func(t *testing.T) {
		var got *models.InvestmentStatus
		svc := &mockInvestmentService{
			listFn: func(_ authz.Actor, _ pagination.PageRequest, status *models.InvestmentStatus) (*pagination.PageResponse[models.Investment], error) {
				got = status
				resp := pagination.NewPageResponse([]models.Investment{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupInvestmentRouter(svc, authz.RoleEmployee)

		rec := doRequest(r, "GET", "/investments?status=completed", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got == nil || *got != models.InvestmentStatusCompleted {
			t.Errorf("unexpected status filter %v", got)
		}
	})

	t.Run("update rejects unknown status", func(t *testing.T) {
		r := setupInvestmentRouter(&mockInvestmentService{}, authz.RoleManager)

		rec := doRequest(r, "PUT", "/investments/"+testInvestmentID, `{"status":"paused"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("get unknown investment is 404", func(t *testing.T) {
		svc := &mockInvestmentService{
			getFn: func(authz.Actor, string) (*models.Investment, error) {
				return nil, apperrors.ErrInvestmentNotFound
			},
		}
		r := setupInvestmentRouter(svc, authz.RoleManager)

		rec := doRequest(r, "GET", "/investments/"+testInvestmentID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVESTMENT_NOT_FOUND")
	})
}
