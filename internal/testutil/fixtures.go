package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active employee with a unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, authz.RoleEmployee)
}

// CreateTestUserWithRole creates an active user with the given role.
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, role authz.Role) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email, role)
}

// CreateTestUserWithEmail creates a user with the given email and role.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string, role authz.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", nextID()),
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCashRegister creates an active auxiliary register with zero balance.
func CreateTestCashRegister(t *testing.T, db *gorm.DB, ownerID string) *models.CashRegister {
	t.Helper()
	return CreateTestCashRegisterWithBalance(t, db, ownerID, 0)
}

// CreateTestCashRegisterWithBalance creates a register whose stored balance
// is set directly, without any backing transactions.
func CreateTestCashRegisterWithBalance(t *testing.T, db *gorm.DB, ownerID string, balance money.Amount) *models.CashRegister {
	t.Helper()

	register := &models.CashRegister{
		Name:     fmt.Sprintf("Test Register %d", nextID()),
		OwnerID:  ownerID,
		Balance:  balance,
		Type:     models.RegisterTypeAuxiliary,
		IsActive: true,
	}
	if err := db.Create(register).Error; err != nil {
		t.Fatalf("failed to create test cash register: %v", err)
	}
	return register
}

// DeactivateTestCashRegister marks a register inactive.
func DeactivateTestCashRegister(t *testing.T, db *gorm.DB, register *models.CashRegister) {
	t.Helper()
	if err := db.Model(register).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate test cash register: %v", err)
	}
	register.IsActive = false
}

// CreateTestInvestment creates an active investment with zero totals.
func CreateTestInvestment(t *testing.T, db *gorm.DB) *models.Investment {
	t.Helper()

	inv := &models.Investment{
		Name:    fmt.Sprintf("Test Investment %d", nextID()),
		Status:  models.InvestmentStatusActive,
		Address: "ul. Testowa 1, Kraków",
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test investment: %v", err)
	}
	return inv
}

// CreateTestOtherCategory creates a uniquely named category.
func CreateTestOtherCategory(t *testing.T, db *gorm.DB) *models.OtherCategory {
	t.Helper()

	category := &models.OtherCategory{Name: fmt.Sprintf("Test Category %d", nextID())}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestMedia creates an invoice reference uploaded by uploaderID.
func CreateTestMedia(t *testing.T, db *gorm.DB, uploaderID string) *models.Media {
	t.Helper()

	n := nextID()
	media := &models.Media{
		StorageKey:   fmt.Sprintf("invoices/%d.pdf", n),
		Filename:     fmt.Sprintf("faktura-%d.pdf", n),
		MimeType:     "application/pdf",
		UploadedByID: uploaderID,
	}
	if err := db.Create(media).Error; err != nil {
		t.Fatalf("failed to create test media: %v", err)
	}
	return media
}

// CreateTestTransaction inserts a ledger row directly, bypassing the balance
// engine. Use it to build logs whose derived values are out of date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, registerID, createdByID string, txType ledger.TransactionType, amount money.Amount) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Type:           txType,
		Amount:         amount,
		Date:           time.Now(),
		PaymentMethod:  ledger.PaymentCash,
		CashRegisterID: registerID,
		CreatedByID:    createdByID,
		InvoiceNote:    "fixture",
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
