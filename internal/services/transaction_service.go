package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/database"
	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/events"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
	"wykonczymy/internal/uuid"
)

// maxExportRows bounds a single export.
const maxExportRows = 50000

var transactionSortKeys = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"type":       "type",
	"created_at": "created_at",
}

// transactionService handles transaction-related business logic. Every
// mutation runs authorize, validate, then the balance change in one
// database transaction, and publishes invalidation events after commit.
type transactionService struct {
	db        *gorm.DB
	engine    BalanceEngine
	publisher events.Publisher
	log       *zap.SugaredLogger
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, engine BalanceEngine, publisher events.Publisher) TransactionServicer {
	return &transactionService{
		db:        db,
		engine:    engine,
		publisher: publisher,
		log:       logger.Named("transactions"),
	}
}

// CreateTransaction records a transaction and applies its balance effect.
func (s *transactionService) CreateTransaction(ctx context.Context, actor authz.Actor, input TransactionInput) (*models.Transaction, error) {
	if !authz.CanMutateLedger(actor) {
		return nil, apperrors.ErrForbidden
	}
	if input.Type == ledger.TypeRegisterTransfer {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "register transfers must be created as transfers")
	}

	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	transaction := &models.Transaction{
		Type:            input.Type,
		Amount:          input.Amount,
		Description:     input.Description,
		Date:            input.Date,
		PaymentMethod:   input.PaymentMethod,
		CashRegisterID:  input.CashRegisterID,
		InvestmentID:    optional(input.InvestmentID),
		WorkerID:        optional(input.WorkerID),
		OtherCategoryID: optional(input.OtherCategoryID),
		InvoiceID:       optional(input.InvoiceID),
		InvoiceNote:     input.InvoiceNote,
		CreatedByID:     actor.ID,
	}
	if v := ledger.Validate(transaction.Candidate(), ledger.OpCreate); len(v) > 0 {
		return nil, validationFailed(v)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.engine.Lock(tx, []string{transaction.CashRegisterID}, []string{deref(transaction.InvestmentID)}); err != nil {
			return err
		}
		if _, err := loadWritableRegister(tx, actor, transaction.CashRegisterID); err != nil {
			return err
		}
		if err := checkReferences(tx, transaction, nil); err != nil {
			return err
		}
		return persist(tx, s.engine, transaction)
	})
	if err != nil {
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, ledgerEvents(events.ActionCreated, transaction)...)
	return transaction, nil
}

// persist inserts each transaction and applies its effect. Callers hold the
// row locks.
func persist(tx *gorm.DB, engine BalanceEngine, txns ...*models.Transaction) error {
	for _, t := range txns {
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return database.Translate(err)
		}
		if err := engine.Apply(tx, t); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTransaction reverses the stored effect, applies the patch,
// revalidates the merged row and applies its new effect, all in one unit.
// Transfer legs are not editable here.
func (s *transactionService) UpdateTransaction(ctx context.Context, actor authz.Actor, id string, fields TransactionUpdateFields) (*models.Transaction, error) {
	if !authz.CanMutateLedger(actor) {
		return nil, apperrors.ErrForbidden
	}

	var before, after models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate).Where("id = ?", id).First(&before).Error; err != nil {
			return lookupError(err, apperrors.ErrTransactionNotFound)
		}
		if before.IsTransferLeg() || (fields.Type != nil && *fields.Type == ledger.TypeRegisterTransfer) {
			return apperrors.ErrTransactionNotEditable
		}

		after = before
		fields.apply(&after)
		if v := ledger.Validate(after.Candidate(), ledger.OpUpdate); len(v) > 0 {
			return validationFailed(v)
		}

		if err := s.engine.Lock(tx,
			[]string{before.CashRegisterID, after.CashRegisterID},
			[]string{deref(before.InvestmentID), deref(after.InvestmentID)},
		); err != nil {
			return err
		}
		if _, err := loadScopedRegister(tx, actor, before.CashRegisterID); err != nil {
			return err
		}
		if after.CashRegisterID != before.CashRegisterID {
			if _, err := loadWritableRegister(tx, actor, after.CashRegisterID); err != nil {
				return err
			}
		}
		if err := checkReferences(tx, &after, &before); err != nil {
			return err
		}

		if err := s.engine.Reverse(tx, &before); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&after).Error; err != nil {
			return database.Translate(err)
		}
		return s.engine.Apply(tx, &after)
	})
	if err != nil {
		return nil, database.Translate(err)
	}

	publishAfterCommit(ctx, s.publisher, ledgerEvents(events.ActionUpdated, &before, &after)...)
	return &after, nil
}

func (f TransactionUpdateFields) apply(t *models.Transaction) {
	if f.Type != nil {
		t.Type = *f.Type
	}
	if f.Amount != nil {
		t.Amount = *f.Amount
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Date != nil {
		t.Date = *f.Date
	}
	if f.PaymentMethod != nil {
		t.PaymentMethod = *f.PaymentMethod
	}
	if f.CashRegisterID != nil {
		t.CashRegisterID = *f.CashRegisterID
	}
	if f.InvestmentID != nil {
		t.InvestmentID = optional(f.InvestmentID)
	}
	if f.WorkerID != nil {
		t.WorkerID = optional(f.WorkerID)
	}
	if f.OtherCategoryID != nil {
		t.OtherCategoryID = optional(f.OtherCategoryID)
	}
	if f.InvoiceID != nil {
		t.InvoiceID = optional(f.InvoiceID)
	}
	if f.InvoiceNote != nil {
		t.InvoiceNote = *f.InvoiceNote
	}
}

// DeleteTransaction soft-deletes a transaction and reverses its effect.
// Deleting either leg of a transfer removes both.
func (s *transactionService) DeleteTransaction(ctx context.Context, actor authz.Actor, id string) error {
	if !authz.CanMutateLedger(actor) {
		return apperrors.ErrForbidden
	}

	var legs []models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Transaction
		if err := tx.Clauses(forUpdate).Where("id = ?", id).First(&target).Error; err != nil {
			return lookupError(err, apperrors.ErrTransactionNotFound)
		}

		legs = []models.Transaction{target}
		if target.TransferGroupID != nil {
			if err := tx.Clauses(forUpdate).
				Where("transfer_group_id = ?", *target.TransferGroupID).
				Order("id").
				Find(&legs).Error; err != nil {
				return database.Translate(err)
			}
		}

		registerIDs := make([]string, 0, len(legs))
		investmentIDs := make([]string, 0, len(legs))
		for _, leg := range legs {
			registerIDs = append(registerIDs, leg.CashRegisterID)
			investmentIDs = append(investmentIDs, deref(leg.InvestmentID))
		}
		if err := s.engine.Lock(tx, registerIDs, investmentIDs); err != nil {
			return err
		}

		// A transfer is owned by its source register, as on create.
		for i := range legs {
			if legs[i].TransferDirection == ledger.DirectionIncoming && len(legs) > 1 {
				continue
			}
			if _, err := loadScopedRegister(tx, actor, legs[i].CashRegisterID); err != nil {
				return err
			}
		}
		for i := range legs {
			if err := s.engine.Reverse(tx, &legs[i]); err != nil {
				return err
			}
			if err := tx.Delete(&legs[i]).Error; err != nil {
				return database.Translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return database.Translate(err)
	}

	ptrs := make([]*models.Transaction, len(legs))
	for i := range legs {
		ptrs[i] = &legs[i]
	}
	publishAfterCommit(ctx, s.publisher, ledgerEvents(events.ActionDeleted, ptrs...)...)
	return nil
}

// GetTransactionByID returns a transaction visible to actor, with its
// references loaded.
func (s *transactionService) GetTransactionByID(ctx context.Context, actor authz.Actor, id string) (*models.Transaction, error) {
	var transaction models.Transaction
	q := scoped(s.db.WithContext(ctx), authz.TransactionScope(actor))
	if err := withReferences(q).Where("id = ?", id).First(&transaction).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrTransactionNotFound)
	}
	return &transaction, nil
}

// ListTransactions retrieves a paginated, filtered list of the transactions
// visible to actor.
func (s *transactionService) ListTransactions(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	base := scoped(s.db.WithContext(ctx).Model(&models.Transaction{}), authz.TransactionScope(actor))
	return s.list(base, page, filter)
}

// ListRegisterTransactions lists the transactions of one register. Seeing
// the register is enough to see all of its transactions.
func (s *transactionService) ListRegisterTransactions(ctx context.Context, actor authz.Actor, registerID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	db := s.db.WithContext(ctx)
	if _, err := loadScopedRegister(db, actor, registerID); err != nil {
		return nil, err
	}
	filter.CashRegisterID = &registerID
	return s.list(db.Model(&models.Transaction{}), page, filter)
}

func (s *transactionService) list(base *gorm.DB, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, database.Translate(err)
	}

	var transactions []models.Transaction
	if err := withReferences(base).Scopes(
		pagination.Paginate(page),
		pagination.Sort(page.Sort, transactionSortKeys, "date DESC, id DESC"),
	).Find(&transactions).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.PaymentMethod != nil {
		q = q.Where("payment_method = ?", *f.PaymentMethod)
	}
	if f.CashRegisterID != nil {
		q = q.Where("cash_register_id = ?", *f.CashRegisterID)
	}
	if f.InvestmentID != nil {
		q = q.Where("investment_id = ?", *f.InvestmentID)
	}
	if f.WorkerID != nil {
		q = q.Where("worker_id = ?", *f.WorkerID)
	}
	if f.OtherCategoryID != nil {
		q = q.Where("other_category_id = ?", *f.OtherCategoryID)
	}
	if f.SettlementID != nil {
		q = q.Where("settlement_id = ?", *f.SettlementID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", int64(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", int64(*f.MaxAmount))
	}
	return q
}

func withReferences(q *gorm.DB) *gorm.DB {
	return q.Preload("CashRegister").
		Preload("Investment").
		Preload("Worker").
		Preload("OtherCategory").
		Preload("Invoice")
}

// CreateTransfer moves money between two registers as a pair of linked
// REGISTER_TRANSFER legs created and applied in one unit.
func (s *transactionService) CreateTransfer(ctx context.Context, actor authz.Actor, input TransferInput) (*TransferResult, error) {
	if !authz.CanMutateLedger(actor) {
		return nil, apperrors.ErrForbidden
	}

	if input.Date.IsZero() {
		input.Date = time.Now()
	}
	group := uuid.New()

	leg := func(registerID string, dir ledger.TransferDirection) *models.Transaction {
		return &models.Transaction{
			Type:              ledger.TypeRegisterTransfer,
			Amount:            input.Amount,
			Description:       input.Description,
			Date:              input.Date,
			PaymentMethod:     input.PaymentMethod,
			CashRegisterID:    registerID,
			CreatedByID:       actor.ID,
			TransferGroupID:   &group,
			TransferDirection: dir,
		}
	}
	outgoing := leg(input.SourceRegisterID, ledger.DirectionOutgoing)
	incoming := leg(input.DestinationRegisterID, ledger.DirectionIncoming)

	v := ledger.Validate(outgoing.Candidate(), ledger.OpCreate)
	if input.DestinationRegisterID == "" {
		v = append(v, ledger.Violation{
			Field:   "destination_" + string(ledger.FieldCashRegister),
			Rule:    ledger.RuleRequired,
			Message: "destination cash register is required",
		})
	}
	if len(v) > 0 {
		return nil, validationFailed(v)
	}
	if input.SourceRegisterID == input.DestinationRegisterID {
		return nil, apperrors.ErrSameRegisterTransfer
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.engine.Lock(tx, []string{input.SourceRegisterID, input.DestinationRegisterID}, nil); err != nil {
			return err
		}
		if _, err := loadWritableRegister(tx, actor, input.SourceRegisterID); err != nil {
			return err
		}
		if _, err := loadActiveRegister(tx, input.DestinationRegisterID); err != nil {
			return err
		}
		return persist(tx, s.engine, outgoing, incoming)
	})
	if err != nil {
		return nil, database.Translate(err)
	}

	s.log.Infow("register transfer created",
		"transfer_group_id", group,
		"source", input.SourceRegisterID,
		"destination", input.DestinationRegisterID,
		"amount", input.Amount.String(),
	)
	publishAfterCommit(ctx, s.publisher, ledgerEvents(events.ActionCreated, outgoing, incoming)...)
	return &TransferResult{TransferGroupID: group, Outgoing: outgoing, Incoming: incoming}, nil
}

type saldoRow struct {
	Type  ledger.TransactionType
	Total int64
	Count int64
}

// GetWorkerSaldo sums the saldo effect of every live transaction booked
// against a worker. Employees may only query themselves.
func (s *transactionService) GetWorkerSaldo(ctx context.Context, actor authz.Actor, workerID string) (*WorkerSaldo, error) {
	if !authz.TransactionScope(actor).Allows(workerID) {
		return nil, apperrors.ErrForbidden
	}

	db := s.db.WithContext(ctx)
	if err := requireRow(db, &models.User{}, workerID, apperrors.ErrUserNotFound); err != nil {
		return nil, err
	}

	var rows []saldoRow
	if err := db.Model(&models.Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("worker_id = ?", workerID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, database.Translate(err)
	}

	result := &WorkerSaldo{WorkerID: workerID}
	for _, r := range rows {
		eff := ledger.EffectOf(r.Type, money.Amount(r.Total), "")
		result.Saldo += eff.Saldo
		switch {
		case eff.Saldo > 0:
			result.Funded += eff.Saldo
		case eff.Saldo < 0:
			result.Spent -= eff.Saldo
		}
		result.TransactionCount += r.Count
	}
	return result, nil
}

// ExportTransactions returns the full filtered list visible to actor in
// date order, for spreadsheet export.
func (s *transactionService) ExportTransactions(ctx context.Context, actor authz.Actor, filter TransactionFilter) ([]models.Transaction, error) {
	q := scoped(s.db.WithContext(ctx).Model(&models.Transaction{}), authz.TransactionScope(actor))
	q = applyTransactionFilters(q, filter)

	var transactions []models.Transaction
	if err := withReferences(q).Order("date ASC, id ASC").Limit(maxExportRows).Find(&transactions).Error; err != nil {
		return nil, database.Translate(err)
	}
	return transactions, nil
}

// loadScopedRegister loads a register the actor may book against.
func loadScopedRegister(tx *gorm.DB, actor authz.Actor, id string) (*models.CashRegister, error) {
	var register models.CashRegister
	if err := tx.Where("id = ?", id).First(&register).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrCashRegisterNotFound)
	}
	if !authz.RegisterScope(actor).Allows(register.OwnerID) {
		return nil, apperrors.ErrForbidden
	}
	return &register, nil
}

// loadWritableRegister is loadScopedRegister for registers receiving new
// entries, which must also be active.
func loadWritableRegister(tx *gorm.DB, actor authz.Actor, id string) (*models.CashRegister, error) {
	register, err := loadScopedRegister(tx, actor, id)
	if err != nil {
		return nil, err
	}
	if !register.IsActive {
		return nil, apperrors.ErrInactiveRegister
	}
	return register, nil
}

func loadActiveRegister(tx *gorm.DB, id string) (*models.CashRegister, error) {
	var register models.CashRegister
	if err := tx.Where("id = ?", id).First(&register).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrCashRegisterNotFound)
	}
	if !register.IsActive {
		return nil, apperrors.ErrInactiveRegister
	}
	return &register, nil
}

// checkReferences verifies that every optional reference on t points at a
// live row. References unchanged from prev are not rechecked.
func checkReferences(tx *gorm.DB, t, prev *models.Transaction) error {
	changed := func(ref func(*models.Transaction) *string) (string, bool) {
		id := deref(ref(t))
		if id == "" {
			return "", false
		}
		if prev != nil && deref(ref(prev)) == id {
			return "", false
		}
		return id, true
	}

	if id, ok := changed(investmentOf); ok {
		if err := requireRow(tx, &models.Investment{}, id, apperrors.ErrInvestmentNotFound); err != nil {
			return err
		}
	}
	if id, ok := changed(workerOf); ok {
		var worker models.User
		if err := tx.Select("id", "is_active").Where("id = ?", id).First(&worker).Error; err != nil {
			return lookupError(err, apperrors.ErrUserNotFound)
		}
		if !worker.IsActive {
			return apperrors.ErrUserInactive
		}
	}
	if id, ok := changed(categoryOf); ok {
		if err := requireRow(tx, &models.OtherCategory{}, id, apperrors.ErrCategoryNotFound); err != nil {
			return err
		}
	}
	if id, ok := changed(invoiceOf); ok {
		if err := requireRow(tx, &models.Media{}, id, apperrors.ErrMediaNotFound); err != nil {
			return err
		}
	}
	return nil
}

func investmentOf(t *models.Transaction) *string { return t.InvestmentID }
func workerOf(t *models.Transaction) *string     { return t.WorkerID }
func categoryOf(t *models.Transaction) *string   { return t.OtherCategoryID }
func invoiceOf(t *models.Transaction) *string    { return t.InvoiceID }

func requireRow(tx *gorm.DB, model any, id string, notFound *apperrors.AppError) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return database.Translate(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// ledgerEvents builds the invalidation events for a set of affected
// transactions: one per transaction plus one per touched register and
// investment.
func ledgerEvents(action events.Action, txns ...*models.Transaction) []events.Event {
	var out []events.Event
	seen := map[string]bool{}
	add := func(kind events.Kind, id string, a events.Action) {
		key := string(kind) + ":" + id
		if id == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, events.New(kind, id, a))
	}
	for _, t := range txns {
		add(events.KindTransaction, t.ID, action)
	}
	for _, t := range txns {
		add(events.KindCashRegister, t.CashRegisterID, events.ActionUpdated)
		add(events.KindInvestment, deref(t.InvestmentID), events.ActionUpdated)
	}
	return out
}
