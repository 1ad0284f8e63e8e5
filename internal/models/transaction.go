package models

import (
	"time"

	"wykonczymy/internal/ledger"
	"wykonczymy/internal/money"
)

// Transaction is one row of the append-only ledger. Amount is always
// positive; its sign comes from Type (and TransferDirection).
type Transaction struct {
	Base
	Type            ledger.TransactionType `gorm:"type:varchar(32);not null;index" json:"type"`
	Amount          money.Amount           `gorm:"type:bigint;not null" json:"amount"`
	Description     string                 `json:"description"`
	Date            time.Time              `gorm:"not null;index" json:"date"`
	PaymentMethod   ledger.PaymentMethod   `gorm:"type:varchar(16);not null" json:"payment_method"`
	CashRegisterID  string                 `gorm:"type:uuid;not null;index" json:"cash_register_id"`
	InvestmentID    *string                `gorm:"type:uuid;index" json:"investment_id,omitempty"`
	WorkerID        *string                `gorm:"type:uuid;index" json:"worker_id,omitempty"`
	OtherCategoryID *string                `gorm:"type:uuid;index" json:"other_category_id,omitempty"`
	InvoiceID       *string                `gorm:"type:uuid" json:"invoice_id,omitempty"`
	InvoiceNote     string                 `json:"invoice_note,omitempty"`
	CreatedByID     string                 `gorm:"type:uuid;not null" json:"created_by_id"`

	// Register transfers: both legs share TransferGroupID.
	TransferGroupID   *string                  `gorm:"type:uuid;index" json:"transfer_group_id,omitempty"`
	TransferDirection ledger.TransferDirection `gorm:"type:varchar(16)" json:"transfer_direction,omitempty"`

	// Settlement batches: every line shares SettlementID.
	SettlementID *string `gorm:"type:uuid;index" json:"settlement_id,omitempty"`

	// Relationships
	CashRegister  *CashRegister  `gorm:"foreignKey:CashRegisterID" json:"cash_register,omitempty"`
	Investment    *Investment    `gorm:"foreignKey:InvestmentID" json:"investment,omitempty"`
	Worker        *User          `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	OtherCategory *OtherCategory `gorm:"foreignKey:OtherCategoryID" json:"other_category,omitempty"`
	Invoice       *Media         `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
}

// Candidate returns the validation view of t.
func (t *Transaction) Candidate() ledger.Candidate {
	return ledger.Candidate{
		Type:              t.Type,
		Amount:            t.Amount,
		PaymentMethod:     t.PaymentMethod,
		CashRegisterID:    t.CashRegisterID,
		InvestmentID:      deref(t.InvestmentID),
		WorkerID:          deref(t.WorkerID),
		OtherCategoryID:   deref(t.OtherCategoryID),
		InvoiceID:         deref(t.InvoiceID),
		InvoiceNote:       t.InvoiceNote,
		TransferGroupID:   deref(t.TransferGroupID),
		TransferDirection: t.TransferDirection,
		CreatedByID:       t.CreatedByID,
	}
}

// Effect returns what t contributes to balances.
func (t *Transaction) Effect() ledger.Effect {
	return ledger.EffectOf(t.Type, t.Amount, t.TransferDirection)
}

// IsTransferLeg reports whether t is one half of a register transfer.
func (t *Transaction) IsTransferLeg() bool {
	return t.Type == ledger.TypeRegisterTransfer || t.TransferGroupID != nil
}

// Evidence returns what backs an expense: the invoice reference when one is
// attached, otherwise the free-text note.
func (t *Transaction) Evidence() string {
	if t.InvoiceID != nil && *t.InvoiceID != "" {
		return *t.InvoiceID
	}
	return t.InvoiceNote
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
