package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
)

// cashRegisterService handles cash-register business logic.
type cashRegisterService struct {
	db        *gorm.DB
	publisher events.Publisher
	log       *zap.SugaredLogger
}

// NewCashRegisterService creates a new CashRegisterServicer.
func NewCashRegisterService(db *gorm.DB, publisher events.Publisher) CashRegisterServicer {
	return &cashRegisterService{db: db, publisher: publisher, log: logger.Named("cash_registers")}
}

// CreateCashRegister creates a register with a zero balance.
func (s *cashRegisterService) CreateCashRegister(ctx context.Context, actor authz.Actor, input CashRegisterInput) (*models.CashRegister, error) {
	if !authz.CanManageRegisters(actor) {
		return nil, apperrors.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cash register name is required")
	}
	if input.Type == "" {
		input.Type = models.RegisterTypeAuxiliary
	}
	if input.Type != models.RegisterTypeMain && input.Type != models.RegisterTypeAuxiliary {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown register type")
	}

	db := s.db.WithContext(ctx)
	if err := s.requireActiveUser(db, input.OwnerID); err != nil {
		return nil, err
	}

	register := &models.CashRegister{
		Name:        name,
		OwnerID:     input.OwnerID,
		Type:        input.Type,
		Description: input.Description,
		IsActive:    true,
	}
	if err := db.Create(register).Error; err != nil {
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindCashRegister, register.ID, events.ActionCreated))
	return register, nil
}

// GetCashRegisterByID returns a register inside actor's register scope.
func (s *cashRegisterService) GetCashRegisterByID(ctx context.Context, actor authz.Actor, id string) (*models.CashRegister, error) {
	var register models.CashRegister
	q := scoped(s.db.WithContext(ctx), authz.RegisterScope(actor))
	if err := q.Preload("Owner").Where("id = ?", id).First(&register).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrCashRegisterNotFound)
	}
	return &register, nil
}

// ListCashRegisters returns the registers visible to actor.
func (s *cashRegisterService) ListCashRegisters(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter CashRegisterFilter) (*pagination.PageResponse[models.CashRegister], error) {
	page.Defaults()

	base := scoped(s.db.WithContext(ctx).Model(&models.CashRegister{}), authz.RegisterScope(actor))
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.OwnerID != nil {
		base = base.Where("owner_id = ?", *filter.OwnerID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, database.Translate(err)
	}

	var registers []models.CashRegister
	if err := base.Preload("Owner").Scopes(
		pagination.Paginate(page),
		pagination.Sort(page.Sort, map[string]string{"name": "name", "balance": "balance", "created_at": "created_at"}, "name ASC"),
	).Find(&registers).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := pagination.NewPageResponse(registers, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateCashRegister applies a partial update. The balance is not part of
// the update; see OverrideBalance.
func (s *cashRegisterService) UpdateCashRegister(ctx context.Context, actor authz.Actor, id string, fields CashRegisterUpdateFields) (*models.CashRegister, error) {
	if !authz.CanManageRegisters(actor) {
		return nil, apperrors.ErrForbidden
	}
	register, err := s.GetCashRegisterByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := map[string]any{}
	if fields.Name != nil {
		name := strings.TrimSpace(*fields.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cash register name must not be empty")
		}
		updates["name"] = name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Type != nil {
		if *fields.Type != models.RegisterTypeMain && *fields.Type != models.RegisterTypeAuxiliary {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown register type")
		}
		updates["type"] = *fields.Type
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}
	if fields.OwnerID != nil && *fields.OwnerID != register.OwnerID {
		if err := s.requireActiveUser(db, *fields.OwnerID); err != nil {
			return nil, err
		}
		updates["owner_id"] = *fields.OwnerID
	}

	if len(updates) == 0 {
		return register, nil
	}

	if err := db.Model(&models.CashRegister{}).Where("id = ?", register.ID).Updates(updates).Error; err != nil {
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, events.New(events.KindCashRegister, register.ID, events.ActionUpdated))
	return s.GetCashRegisterByID(ctx, actor, id)
}

// OverrideBalance sets a register's stored balance directly. The next
// reconciliation run will report the difference against the transaction log.
func (s *cashRegisterService) OverrideBalance(ctx context.Context, actor authz.Actor, id string, balance money.Amount, reason string) (*models.CashRegister, error) {
	if !authz.CanOverrideBalance(actor) {
		return nil, apperrors.ErrForbidden
	}

	var register models.CashRegister
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).Where("id = ?", id).First(&register).Error; err != nil {
			return lookupError(err, apperrors.ErrCashRegisterNotFound)
		}
		if err := tx.Model(&models.CashRegister{}).Where("id = ?", id).Update("balance", int64(balance)).Error; err != nil {
			return database.Translate(err)
		}
		return nil
	})
	if err != nil {
		return nil, database.Translate(err)
	}

	s.log.Warnw("cash register balance overridden",
		"register_id", id,
		"actor_id", actor.ID,
		"previous", register.Balance.Format(),
		"balance", balance.Format(),
		"reason", reason,
	)
	register.Balance = balance

	publishAfterCommit(ctx, s.publisher, events.New(events.KindCashRegister, id, events.ActionUpdated))
	return &register, nil
}

func (s *cashRegisterService) requireActiveUser(db *gorm.DB, id string) error {
	if id == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "owner is required")
	}
	var owner models.User
	if err := db.Select("id", "is_active").Where("id = ?", id).First(&owner).Error; err != nil {
		return lookupError(err, apperrors.ErrUserNotFound)
	}
	if !owner.IsActive {
		return apperrors.ErrUserInactive
	}
	return nil
}
