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

// investmentService handles construction-project business logic. The
// derived totals are only ever written by the balance engine and
// reconciliation.
type investmentService struct {
	db        *gorm.DB
	publisher events.Publisher
}

// NewInvestmentService creates a new InvestmentServicer.
func NewInvestmentService(db *gorm.DB, publisher events.Publisher) InvestmentServicer {
	return &investmentService{db: db, publisher: publisher}
}

// CreateInvestment creates an active investment with zero totals.
func (s *investmentService) CreateInvestment(ctx context.Context, actor authz.Actor, input InvestmentInput) (*models.Investment, error) {
	if !authz.CanManageCatalog(actor) {
		return nil, apperrors.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "investment name is required")
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUniqueName(db, name, ""); err != nil {
		return nil, err
	}

	investment := &models.Investment{
		Name:    name,
		Status:  models.InvestmentStatusActive,
		Address: input.Address,
		Notes:   input.Notes,
	}
	if err := db.Create(investment).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateInvestment
		}
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindInvestment, investment.ID, events.ActionCreated))
	return investment, nil
}

// GetInvestmentByID returns an investment. Investments are visible to every
// signed-in role.
func (s *investmentService) GetInvestmentByID(ctx context.Context, actor authz.Actor, id string) (*models.Investment, error) {
	if !authz.AtLeast(actor, authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}
	var investment models.Investment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&investment).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrInvestmentNotFound)
	}
	return &investment, nil
}

// ListInvestments returns investments, optionally filtered by status.
func (s *investmentService) ListInvestments(ctx context.Context, actor authz.Actor, page pagination.PageRequest, status *models.InvestmentStatus) (*pagination.PageResponse[models.Investment], error) {
	if !authz.AtLeast(actor, authz.RoleEmployee) {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Investment{})
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, database.Translate(err)
	}

	var investments []models.Investment
	if err := base.Scopes(
		pagination.Paginate(page),
		pagination.Sort(page.Sort, map[string]string{
			"name":         "name",
			"created_at":   "created_at",
			"total_costs":  "total_costs",
			"total_income": "total_income",
		}, "name ASC"),
	).Find(&investments).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := pagination.NewPageResponse(investments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateInvestment updates the descriptive fields and status.
func (s *investmentService) UpdateInvestment(ctx context.Context, actor authz.Actor, id string, fields InvestmentUpdateFields) (*models.Investment, error) {
	if !authz.CanManageCatalog(actor) {
		return nil, apperrors.ErrForbidden
	}
	investment, err := s.GetInvestmentByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := map[string]any{}
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "investment name must not be empty")
		}
		if name != investment.Name {
			if err := s.ensureUniqueName(db, name, investment.ID); err != nil {
				return nil, err
			}
			updates["name"] = name
		}
	}
	if fields.Status != nil {
		if *fields.Status != models.InvestmentStatusActive && *fields.Status != models.InvestmentStatusCompleted {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown investment status")
		}
		updates["status"] = *fields.Status
	}
	if fields.Address != nil {
		updates["address"] = *fields.Address
	}
	if fields.Notes != nil {
		updates["notes"] = *fields.Notes
	}

	if len(updates) == 0 {
		return investment, nil
	}

	if err := db.Model(&models.Investment{}).Where("id = ?", investment.ID).Updates(updates).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateInvestment
		}
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindInvestment, investment.ID, events.ActionUpdated))
	return s.GetInvestmentByID(ctx, actor, id)
}

func (s *investmentService) ensureUniqueName(db *gorm.DB, name, exceptID string) error {
	q := db.Model(&models.Investment{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return database.Translate(err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateInvestment
	}
	return nil
}
