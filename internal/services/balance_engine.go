package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
)

// balanceEngine turns transaction lifecycle events into increments on the
// derived register and investment columns. It never opens its own database
// transaction: callers pass the unit the change belongs to.
type balanceEngine struct {
	log *zap.SugaredLogger
}

// NewBalanceEngine creates a new BalanceEngine.
func NewBalanceEngine() BalanceEngine {
	return &balanceEngine{log: logger.Named("balance")}
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// Lock takes row locks on the given registers and investments, always in
// ascending ID order with registers first.
func (e *balanceEngine) Lock(tx *gorm.DB, registerIDs, investmentIDs []string) error {
	if ids := sortedUnique(registerIDs...); len(ids) > 0 {
		var registers []models.CashRegister
		if err := tx.Clauses(forUpdate).Select("id").Where("id IN ?", ids).Order("id").Find(&registers).Error; err != nil {
			return database.Translate(err)
		}
	}
	if ids := sortedUnique(investmentIDs...); len(ids) > 0 {
		var investments []models.Investment
		if err := tx.Clauses(forUpdate).Select("id").Where("id IN ?", ids).Order("id").Find(&investments).Error; err != nil {
			return database.Translate(err)
		}
	}
	return nil
}

// Apply adds t's effect to its register and investment.
func (e *balanceEngine) Apply(tx *gorm.DB, t *models.Transaction) error {
	return e.mutate(tx, t, t.Effect())
}

// Reverse removes t's effect from its register and investment.
func (e *balanceEngine) Reverse(tx *gorm.DB, t *models.Transaction) error {
	return e.mutate(tx, t, t.Effect().Negate())
}

func (e *balanceEngine) mutate(tx *gorm.DB, t *models.Transaction, eff ledger.Effect) error {
	if eff.Register != 0 {
		if err := e.adjustRegister(tx, t.CashRegisterID, eff.Register); err != nil {
			return err
		}
	}
	if eff.Investment != "" && eff.InvestmentDelta != 0 && t.InvestmentID != nil {
		if err := e.adjustInvestment(tx, *t.InvestmentID, eff.Investment, eff.InvestmentDelta); err != nil {
			return err
		}
	}
	return nil
}

func (e *balanceEngine) adjustRegister(tx *gorm.DB, id string, delta money.Amount) error {
	var register models.CashRegister
	if err := tx.Clauses(forUpdate).Where("id = ?", id).First(&register).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCashRegisterNotFound
		}
		return database.Translate(err)
	}

	if err := tx.Model(&models.CashRegister{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", int64(delta))).Error; err != nil {
		return database.Translate(err)
	}

	if after := register.Balance + delta; after < 0 {
		e.log.Warnw("cash register balance is negative",
			"register_id", id, "balance", after.String(), "delta", delta.String())
	}
	return nil
}

func (e *balanceEngine) adjustInvestment(tx *gorm.DB, id string, field ledger.InvestmentField, delta money.Amount) error {
	var investment models.Investment
	if err := tx.Clauses(forUpdate).Select("id").Where("id = ?", id).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvestmentNotFound
		}
		return database.Translate(err)
	}

	column := string(field)
	if err := tx.Model(&models.Investment{}).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + ?", int64(delta))).Error; err != nil {
		return database.Translate(err)
	}
	return nil
}
