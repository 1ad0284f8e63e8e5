package models

import "wykonczymy/internal/money"

// RegisterType distinguishes the company's main register from auxiliary ones.
type RegisterType string

const (
	RegisterTypeMain      RegisterType = "MAIN"
	RegisterTypeAuxiliary RegisterType = "AUXILIARY"
)

// CashRegister is a physical or virtual till. Balance is derived from the
// transaction log and only written by the balance engine, reconciliation or
// an explicit override.
type CashRegister struct {
	Base
	Name        string       `gorm:"not null" json:"name"`
	OwnerID     string       `gorm:"type:uuid;not null;index" json:"owner_id"`
	Balance     money.Amount `gorm:"type:bigint;not null;default:0" json:"balance"`
	Type        RegisterType `gorm:"type:varchar(16);not null;default:AUXILIARY" json:"type"`
	Description string       `json:"description"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}
