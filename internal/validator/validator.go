// Package validator registers the ledger's enum tags with Gin's binding engine.
package validator

import (
	"wykonczymy/internal/authz"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
		_ = v.RegisterValidation("register_type", validateRegisterType)
		_ = v.RegisterValidation("role", validateRole)
		_ = v.RegisterValidation("investment_status", validateInvestmentStatus)
	}
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return ledger.TransactionType(fl.Field().String()).Valid()
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return ledger.PaymentMethod(fl.Field().String()).Valid()
}

func validateRegisterType(fl validator.FieldLevel) bool {
	switch models.RegisterType(fl.Field().String()) {
	case models.RegisterTypeMain, models.RegisterTypeAuxiliary:
		return true
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	return authz.Role(fl.Field().String()).Valid()
}

func validateInvestmentStatus(fl validator.FieldLevel) bool {
	switch models.InvestmentStatus(fl.Field().String()) {
	case models.InvestmentStatusActive, models.InvestmentStatusCompleted:
		return true
	}
	return false
}
