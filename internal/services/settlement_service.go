package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/uuid"
)

// settlementService fans one invoice out into EMPLOYEE_EXPENSE
// transactions that share a settlement ID.
type settlementService struct {
	db        *gorm.DB
	engine    BalanceEngine
	publisher events.Publisher
	log       *zap.SugaredLogger
}

// NewSettlementService creates a new SettlementServicer.
func NewSettlementService(db *gorm.DB, engine BalanceEngine, publisher events.Publisher) SettlementServicer {
	return &settlementService{
		db:        db,
		engine:    engine,
		publisher: publisher,
		log:       logger.Named("settlements"),
	}
}

// CreateSettlement validates every line, reporting all violations together
// under lines[i], then creates and applies all of them or none.
func (s *settlementService) CreateSettlement(ctx context.Context, actor authz.Actor, input SettlementInput) (*SettlementResult, error) {
	if !authz.CanMutateLedger(actor) {
		return nil, apperrors.ErrForbidden
	}
	if len(input.Lines) == 0 {
		return nil, validationFailed(ledger.Violations{{
			Field: "lines", Rule: ledger.RuleRequired, Message: "a settlement needs at least one line",
		}})
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	settlementID := uuid.New()
	txns := make([]*models.Transaction, len(input.Lines))
	var violations ledger.Violations
	for i, line := range input.Lines {
		note := input.InvoiceNote
		if strings.TrimSpace(line.Note) != "" {
			note = line.Note
		}
		txns[i] = &models.Transaction{
			Type:           ledger.TypeEmployeeExpense,
			Amount:         line.Amount,
			Description:    line.Description,
			Date:           input.Date,
			PaymentMethod:  input.PaymentMethod,
			CashRegisterID: input.CashRegisterID,
			InvestmentID:   optional(&input.InvestmentID),
			WorkerID:       optional(&input.WorkerID),
			InvoiceID:      optional(input.InvoiceID),
			InvoiceNote:    note,
			CreatedByID:    actor.ID,
			SettlementID:   &settlementID,
		}
		v := ledger.Validate(txns[i].Candidate(), ledger.OpCreate)
		violations = append(violations, v.Prefixed(fmt.Sprintf("lines[%d].", i))...)
	}
	if len(violations) > 0 {
		return nil, validationFailed(violations)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.engine.Lock(tx, []string{input.CashRegisterID}, []string{input.InvestmentID}); err != nil {
			return err
		}
		if _, err := loadWritableRegister(tx, actor, input.CashRegisterID); err != nil {
			return err
		}
		if err := checkReferences(tx, txns[0], nil); err != nil {
			return err
		}
		return persist(tx, s.engine, txns...)
	})
	if err != nil {
		return nil, database.Translate(err)
	}

	result := &SettlementResult{SettlementID: settlementID, Transactions: make([]models.Transaction, len(txns))}
	for i, t := range txns {
		result.Total += t.Amount
		result.Transactions[i] = *t
	}

	s.log.Infow("settlement created",
		"settlement_id", settlementID,
		"worker_id", input.WorkerID,
		"investment_id", input.InvestmentID,
		"lines", len(txns),
		"total", result.Total.String(),
	)
	publishAfterCommit(ctx, s.publisher, ledgerEvents(events.ActionCreated, txns...)...)
	return result, nil
}

// GetSettlement returns the lines of one settlement visible to actor.
func (s *settlementService) GetSettlement(ctx context.Context, actor authz.Actor, settlementID string) (*SettlementResult, error) {
	q := scoped(s.db.WithContext(ctx), authz.TransactionScope(actor))

	var txns []models.Transaction
	if err := withReferences(q).Where("settlement_id = ?", settlementID).Order("id ASC").Find(&txns).Error; err != nil {
		return nil, database.Translate(err)
	}
	if len(txns) == 0 {
		return nil, apperrors.ErrSettlementNotFound
	}

	result := &SettlementResult{SettlementID: settlementID, Transactions: txns}
	for _, t := range txns {
		result.Total += t.Amount
	}
	return result, nil
}
