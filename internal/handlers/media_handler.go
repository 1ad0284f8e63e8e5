package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wykonczymy/internal/services"
)

// MediaHandler records references to invoice files held in external storage.
type MediaHandler struct {
	mediaService services.MediaServicer
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService services.MediaServicer) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// CreateMediaRequest describes an already uploaded invoice file.
type CreateMediaRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=500"`
	Filename   string `json:"filename" binding:"required,max=255"`
	MimeType   string `json:"mime_type" binding:"max=100"`
}

// CreateMedia handles registering an invoice file
// @Summary     Register an invoice file
// @Tags        media
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateMediaRequest true "File reference"
// @Success     201 {object} models.Media "Media created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Router      /media [post]
func (h *MediaHandler) CreateMedia(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	media, err := h.mediaService.CreateMedia(c.Request.Context(), actor, services.MediaInput{
		StorageKey: req.StorageKey,
		Filename:   req.Filename,
		MimeType:   req.MimeType,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": media})
}

// GetMedia handles retrieving an invoice reference
// @Summary     Get media by ID
// @Tags        media
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Media ID"
// @Success     200 {object} models.Media "Media details"
// @Failure     404 {object} ErrorResponse "Media not found"
// @Router      /media/{id} [get]
func (h *MediaHandler) GetMedia(c *gin.Context) {
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

	media, err := h.mediaService.GetMediaByID(c.Request.Context(), actor, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": media})
}
