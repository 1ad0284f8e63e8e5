package models

import (
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/money"
)

// InvestmentStatus is the lifecycle state of a project.
type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCompleted InvestmentStatus = "completed"
)

// Investment is a construction project. The three totals are derived from
// transactions and never accepted from clients.
type Investment struct {
	Base
	Name        string           `gorm:"uniqueIndex;not null" json:"name"`
	Status      InvestmentStatus `gorm:"type:varchar(16);not null;default:active" json:"status"`
	Address     string           `json:"address"`
	Notes       string           `json:"notes"`
	TotalCosts  money.Amount     `gorm:"type:bigint;not null;default:0" json:"total_costs"`
	TotalIncome money.Amount     `gorm:"type:bigint;not null;default:0" json:"total_income"`
	LaborCosts  money.Amount     `gorm:"type:bigint;not null;default:0" json:"labor_costs"`
}

// Total returns the current value of a derived column.
func (i *Investment) Total(f ledger.InvestmentField) money.Amount {
	switch f {
	case ledger.FieldTotalCosts:
		return i.TotalCosts
	case ledger.FieldTotalIncome:
		return i.TotalIncome
	case ledger.FieldLaborCosts:
		return i.LaborCosts
	}
	return 0
}

// Balance is income minus material and labor costs.
func (i *Investment) Balance() money.Amount {
	return i.TotalIncome - i.TotalCosts - i.LaborCosts
}
