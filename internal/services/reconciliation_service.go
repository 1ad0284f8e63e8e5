package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/lock"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/uuid"
)

const (
	reconcileLockKey   = "reconciliation"
	reconcileBatchSize = 1000
	registerBalanceCol = "balance"
)

var forShare = clause.Locking{Strength: "SHARE"}

// reconciliationService rebuilds every derived balance from the transaction
// log. Runs are mutually exclusive through the Locker.
type reconciliationService struct {
	db        *gorm.DB
	locker    lock.Locker
	publisher events.Publisher
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB, locker lock.Locker, publisher events.Publisher) ReconciliationServicer {
	return &reconciliationService{
		db:        db,
		locker:    locker,
		publisher: publisher,
		log:       logger.Named("reconciliation"),
		now:       time.Now,
	}
}

// RecalculateAll replaces every register balance and investment total with
// the value summed from live transactions, and records what changed.
func (s *reconciliationService) RecalculateAll(ctx context.Context, actor authz.Actor) (*ReconciliationResult, error) {
	return s.run(ctx, actor, true)
}

// Verify computes the same drift as RecalculateAll without writing anything.
func (s *reconciliationService) Verify(ctx context.Context, actor authz.Actor) (*ReconciliationResult, error) {
	return s.run(ctx, actor, false)
}

func (s *reconciliationService) run(ctx context.Context, actor authz.Actor, apply bool) (*ReconciliationResult, error) {
	if !authz.CanReconcile(actor) {
		return nil, apperrors.ErrForbidden
	}

	handle, err := s.locker.TryLock(ctx, reconcileLockKey)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, apperrors.ErrReconciliationInProgress
		}
		return nil, apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
	}
	defer func() {
		if err := handle.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warnw("failed to release reconciliation lock", "error", err)
		}
	}()

	result := &ReconciliationResult{
		RunID:      uuid.New(),
		Applied:    apply,
		StartedAt:  s.now().UTC(),
		Mismatches: []models.ReconciliationReport{},
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locking := forShare
		if apply {
			locking = forUpdate
		}

		var registers []models.CashRegister
		if err := tx.Clauses(locking).Order("id").Find(&registers).Error; err != nil {
			return database.Translate(err)
		}
		var investments []models.Investment
		if err := tx.Clauses(locking).Order("id").Find(&investments).Error; err != nil {
			return database.Translate(err)
		}
		result.RegistersChecked = len(registers)
		result.InvestmentsChecked = len(investments)

		totals, err := s.sumLog(tx, result)
		if err != nil {
			return err
		}

		for _, r := range registers {
			want := totals.registers[r.ID]
			if r.Balance == want {
				continue
			}
			result.Mismatches = append(result.Mismatches, s.report(result, models.ReportEntityCashRegister, r.ID, registerBalanceCol, r.Balance, want))
			if apply {
				if err := tx.Model(&models.CashRegister{}).Where("id = ?", r.ID).Update(registerBalanceCol, int64(want)).Error; err != nil {
					return database.Translate(err)
				}
			}
		}

		for i := range investments {
			inv := &investments[i]
			for _, field := range ledger.InvestmentFields {
				have, want := inv.Total(field), totals.investments[inv.ID][field]
				if have == want {
					continue
				}
				result.Mismatches = append(result.Mismatches, s.report(result, models.ReportEntityInvestment, inv.ID, string(field), have, want))
				if apply {
					if err := tx.Model(&models.Investment{}).Where("id = ?", inv.ID).Update(string(field), int64(want)).Error; err != nil {
						return database.Translate(err)
					}
				}
			}
		}

		if apply && len(result.Mismatches) > 0 {
			if err := tx.Create(&result.Mismatches).Error; err != nil {
				return database.Translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, database.Translate(err)
	}
	result.FinishedAt = s.now().UTC()

	for _, m := range result.Mismatches {
		s.log.Warnw("reconciliation mismatch",
			"run_id", result.RunID,
			"entity", m.EntityKind,
			"entity_id", m.EntityID,
			"field", m.Field,
			"previous", m.Previous.String(),
			"recalculated", m.Recalculated.String(),
			"applied", apply,
		)
	}
	s.log.Infow("reconciliation finished",
		"run_id", result.RunID,
		"applied", apply,
		"actor_id", actor.ID,
		"registers", result.RegistersChecked,
		"investments", result.InvestmentsChecked,
		"transactions", result.TransactionsRead,
		"mismatches", len(result.Mismatches),
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)

	if apply {
		publishAfterCommit(ctx, s.publisher, recalculatedEvents(result.Mismatches)...)
	}
	return result, nil
}

type logTotals struct {
	registers   map[string]money.Amount
	investments map[string]map[ledger.InvestmentField]money.Amount
}

// sumLog streams live transactions in batches and sums their effects.
func (s *reconciliationService) sumLog(tx *gorm.DB, result *ReconciliationResult) (*logTotals, error) {
	totals := &logTotals{
		registers:   make(map[string]money.Amount),
		investments: make(map[string]map[ledger.InvestmentField]money.Amount),
	}

	var batch []models.Transaction
	res := tx.Model(&models.Transaction{}).
		Select("id", "type", "amount", "cash_register_id", "investment_id", "transfer_direction").
		FindInBatches(&batch, reconcileBatchSize, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				t := &batch[i]
				eff := t.Effect()
				totals.registers[t.CashRegisterID] += eff.Register
				if eff.Investment != "" && t.InvestmentID != nil {
					fields, ok := totals.investments[*t.InvestmentID]
					if !ok {
						fields = make(map[ledger.InvestmentField]money.Amount, len(ledger.InvestmentFields))
						totals.investments[*t.InvestmentID] = fields
					}
					fields[eff.Investment] += eff.InvestmentDelta
				}
			}
			result.TransactionsRead += int64(len(batch))
			return nil
		})
	if res.Error != nil {
		return nil, database.Translate(res.Error)
	}
	return totals, nil
}

func (s *reconciliationService) report(result *ReconciliationResult, kind, id, field string, have, want money.Amount) models.ReconciliationReport {
	return models.ReconciliationReport{
		RunID:        result.RunID,
		EntityKind:   kind,
		EntityID:     id,
		Field:        field,
		Previous:     have,
		Recalculated: want,
		Applied:      result.Applied,
	}
}

func recalculatedEvents(reports []models.ReconciliationReport) []events.Event {
	var out []events.Event
	seen := map[string]bool{}
	for _, r := range reports {
		kind := events.KindCashRegister
		if r.EntityKind == models.ReportEntityInvestment {
			kind = events.KindInvestment
		}
		if seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		out = append(out, events.New(kind, r.EntityID, events.ActionRecalculated))
	}
	return out
}

// ListReports returns persisted mismatch rows, newest first.
func (s *reconciliationService) ListReports(ctx context.Context, actor authz.Actor, page pagination.PageRequest, runID string) (*pagination.PageResponse[models.ReconciliationReport], error) {
	if !authz.CanReconcile(actor) {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.ReconciliationReport{})
	if runID != "" {
		base = base.Where("run_id = ?", runID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, database.Translate(err)
	}

	var reports []models.ReconciliationReport
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at DESC, id ASC").Find(&reports).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := pagination.NewPageResponse(reports, page.Page, page.PageSize, totalItems)
	return &result, nil
}
