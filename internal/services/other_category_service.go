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
	"wykonczymy/internal/pagination"
)

// otherCategoryService handles the labels attached to OTHER transactions.
type otherCategoryService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewOtherCategoryService creates a new OtherCategoryServicer.
func NewOtherCategoryService(db *gorm.DB, publisher events.Publisher) OtherCategoryServicer {
	return &otherCategoryService{db: db, publisher: publisher}
}

// CreateCategory creates a uniquely named category.
func (s *otherCategoryService) CreateCategory(ctx context.Context, actor authz.Actor, name string) (*models.OtherCategory, error) {
	if !authz.CanManageCatalog(actor) {
		return nil, apperrors.ErrForbidden
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUniqueName(db, name, ""); err != nil {
		return nil, err
	}

	category := &models.OtherCategory{Name: name}
	if err := db.Create(category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindOtherCategory, category.ID, events.ActionCreated))
	return category, nil
}

// GetCategoryByID retrieves a category by ID.
func (s *otherCategoryService) GetCategoryByID(ctx context.Context, actor authz.Actor, id string) (*models.OtherCategory, error) {
	if !authz.AtLeast(actor, authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}
	var category models.OtherCategory
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrCategoryNotFound)
	}
	return &category, nil
}

// ListCategories retrieves a paginated, name-ordered list of categories.
func (s *otherCategoryService) ListCategories(ctx context.Context, actor authz.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.OtherCategory], error) {
	if !authz.AtLeast(actor, authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.OtherCategory{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, database.Translate(err)
	}

	var categories []models.OtherCategory
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateCategory renames a category.
func (s *otherCategoryService) UpdateCategory(ctx context.Context, actor authz.Actor, id, name string) (*models.OtherCategory, error) {
	if !authz.CanManageCatalog(actor) {
		return nil, apperrors.ErrForbidden
	}
	category, err := s.GetCategoryByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if name == category.Name {
		return category, nil
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUniqueName(db, name, category.ID); err != nil {
		return nil, err
	}
	if err := db.Model(category).Update("name", name).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, database.Translate(err)
	}
	category.Name = name

	publishAfterCommit(ctx, s.publisher, events.New(events.KindOtherCategory, category.ID, events.ActionUpdated))
	return category, nil
}

// DeleteCategory soft-deletes a category no live transaction refers to.
func (s *otherCategoryService) DeleteCategory(ctx context.Context, actor authz.Actor, id string) error {
	if !authz.CanDeleteCategory(actor) {
		return apperrors.ErrForbidden
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.OtherCategory
		if err := tx.Clauses(forUpdate).Where("id = ?", id).First(&category).Error; err != nil {
			return lookupError(err, apperrors.ErrCategoryNotFound)
		}

		var inUse int64
		if err := tx.Model(&models.Transaction{}).Where("other_category_id = ?", id).Count(&inUse).Error; err != nil {
			return database.Translate(err)
		}
		if inUse > 0 {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.Delete(&category).Error; err != nil {
			return database.Translate(err)
		}
		return nil
	})
	if err != nil {
		return database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindOtherCategory, id, events.ActionDeleted))
	return nil
}

func (s *otherCategoryService) ensureUniqueName(db *gorm.DB, name, exceptID string) error {
	q := db.Model(&models.OtherCategory{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return database.Translate(err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}
