package testutil

import (
	"errors"
	"testing"

	apperrors "wykonczymy/internal/errors"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"

	"gorm.io/gorm"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertViolations checks that err is a VALIDATION_FAILED error naming
// exactly the given fields, in order.
func AssertViolations(t *testing.T, err error, fields ...string) {
	t.Helper()
	AssertAppError(t, err, "VALIDATION_FAILED")

	var appErr *apperrors.AppError
	errors.As(err, &appErr)
	violations, ok := appErr.Details.(ledger.Violations)
	if !ok {
		t.Fatalf("expected ledger.Violations details, got %T", appErr.Details)
	}

	if len(violations) != len(fields) {
		t.Fatalf("expected %d violations %v, got %d: %v", len(fields), fields, len(violations), violations)
	}
	for i, f := range fields {
		if violations[i].Field != f {
			t.Errorf("violation %d: expected field %q, got %q", i, f, violations[i].Field)
		}
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertRegisterBalance reloads a register and compares its balance.
func AssertRegisterBalance(t *testing.T, db *gorm.DB, registerID string, want money.Amount) {
	t.Helper()

	var register models.CashRegister
	if err := db.First(&register, "id = ?", registerID).Error; err != nil {
		t.Fatalf("failed to reload register: %v", err)
	}
	if register.Balance != want {
		t.Errorf("register %s: expected balance %s, got %s", registerID, want, register.Balance)
	}
}

// AssertInvestmentTotal reloads an investment and compares one derived column.
func AssertInvestmentTotal(t *testing.T, db *gorm.DB, investmentID string, field ledger.InvestmentField, want money.Amount) {
	t.Helper()

	var inv models.Investment
	if err := db.First(&inv, "id = ?", investmentID).Error; err != nil {
		t.Fatalf("failed to reload investment: %v", err)
	}
	if got := inv.Total(field); got != want {
		t.Errorf("investment %s: expected %s = %s, got %s", investmentID, field, want, got)
	}
}

// CountTransactions returns the number of live ledger rows.
func CountTransactions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	if err := db.Model(&models.Transaction{}).Count(&n).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
