package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"wykonczymy/internal/authz"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/models"
	"wykonczymy/internal/services"
)

type mockMediaService struct {
	createMediaFn func(actor authz.Actor, input services.MediaInput) (*models.Media, error)
	getMediaFn    func(actor authz.Actor, id string) (*models.Media, error)
}

func (m *mockMediaService) CreateMedia(_ context.Context, actor authz.Actor, input services.MediaInput) (*models.Media, error) {
	if m.createMediaFn != nil {
		return m.createMediaFn(actor, input)
	}
	return &models.Media{}, nil
}

func (m *mockMediaService) GetMediaByID(_ context.Context, actor authz.Actor, id string) (*models.Media, error) {
	if m.getMediaFn != nil {
		return m.getMediaFn(actor, id)
	}
	return &models.Media{}, nil
}

var _ services.MediaServicer = (*mockMediaService)(nil)

func setupMediaRouter(svc services.MediaServicer) *gin.Engine {
	h := NewMediaHandler(svc)
	r := gin.New()
	g := r.Group("/media", injectActor(testUserID, authz.RoleManager))
	g.POST("", h.CreateMedia)
	g.GET("/:id", h.GetMedia)
	return r
}

func TestMediaHandler(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		var got services.MediaInput
		svc := &mockMediaService{
			createMediaFn: func(actor authz.Actor, input services.MediaInput) (*models.Media, error) {
				got = input
				return &models.Media{StorageKey: input.StorageKey, Filename: input.Filename, UploadedByID: actor.ID}, nil
			},
		}
		r := setupMediaRouter(svc)

		rec := doRequest(r, "POST", "/media", `{"storage_key":"invoices/2026/fv-12.pdf","filename":"fv-12.pdf","mime_type":"application/pdf"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.StorageKey != "invoices/2026/fv-12.pdf" {
			t.Errorf("unexpected input %+v", got)
		}
		media := parseJSON(t, rec)["media"].(map[string]interface{})
		if media["uploaded_by_id"] != testUserID {
			t.Errorf("unexpected uploader %v", media["uploaded_by_id"])
		}
	})

	t.Run("create requires storage key", func(t *testing.T) {
		r := setupMediaRouter(&mockMediaService{})

		rec := doRequest(r, "POST", "/media", `{"filename":"fv.pdf"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("get unknown media is 404", func(t *testing.T) {
		svc := &mockMediaService{
			getMediaFn: func(authz.Actor, string) (*models.Media, error) {
				return nil, apperrors.ErrMediaNotFound
			},
		}
		r := setupMediaRouter(svc)

		rec := doRequest(r, "GET", "/media/"+testTxID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "MEDIA_NOT_FOUND")
	})
}
