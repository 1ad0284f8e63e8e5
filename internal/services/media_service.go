package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/models"
)

type mediaService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewMediaService creates a new MediaServicer.
func NewMediaService(db *gorm.DB, publisher events.Publisher) MediaServicer {
	return &mediaService{db: db, publisher: publisher}
}

// CreateMedia records an invoice that has already been stored elsewhere.
func (s *mediaService) CreateMedia(ctx context.Context, actor authz.Actor, input MediaInput) (*models.Media, error) {
	if !authz.AtLeast(actor, authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}
	if strings.TrimSpace(input.StorageKey) == "" || strings.TrimSpace(input.Filename) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "storage key and filename are required")
	}

	media := &models.Media{
		StorageKey:   input.StorageKey,
		Filename:     input.Filename,
		MimeType:     input.MimeType,
		UploadedByID: actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindMedia, media.ID, events.ActionCreated))
	return media, nil
}

func (s *mediaService) GetMediaByID(ctx context.Context, actor authz.Actor, id string) (*models.Media, error) {
	if !authz.AtLeast(actor, authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}
	var media models.Media
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&media).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrMediaNotFound)
	}
	return &media, nil
}
