package models

import "wykonczymy/internal/money"

// Entity kinds recorded in reconciliation reports.
const (
	ReportEntityCashRegister = "cash_register"
	ReportEntityInvestment   = "investment"
)

// ReconciliationReport records one derived value a reconciliation run found
// out of line with the transaction log.
type ReconciliationReport struct {
	Base
	RunID        string       `gorm:"type:uuid;not null;index" json:"run_id"`
	EntityKind   string       `gorm:"type:varchar(32);not null" json:"entity_kind"`
	EntityID     string       `gorm:"type:uuid;not null;index" json:"entity_id"`
	Field        string       `gorm:"type:varchar(32);not null" json:"field"`
	Previous     money.Amount `gorm:"type:bigint;not null" json:"previous"`
	Recalculated money.Amount `gorm:"type:bigint;not null" json:"recalculated"`
	Applied      bool         `gorm:"not null;default:false" json:"applied"`
}

// Drift is how far the stored value was from the log.
func (r *ReconciliationReport) Drift() money.Amount {
	return r.Recalculated - r.Previous
}
