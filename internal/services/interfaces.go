package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/models"
	"wykonczymy/internal/money"
	"wykonczymy/internal/pagination"
)

// CreateUserInput holds the fields accepted when creating a user.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      authz.Role
}

// UserUpdateFields holds optional fields for a partial user update.
type UserUpdateFields struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Role      *authz.Role
}

// UserFilter holds optional filters for listing users.
type UserFilter struct {
	Role     *authz.Role
	IsActive *bool
	Search   string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, actor authz.Actor, input CreateUserInput) (*models.User, error)
	BootstrapAdmin(ctx context.Context, input CreateUserInput) (*models.User, error)
	GetUserByID(ctx context.Context, actor authz.Actor, id string) (*models.User, error)
	GetActiveUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter UserFilter) (*pagination.PageResponse[models.User], error)
	UpdateUser(ctx context.Context, actor authz.Actor, id string, fields UserUpdateFields) (*models.User, error)
	DeactivateUser(ctx context.Context, actor authz.Actor, id string) error
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// CashRegisterInput holds the fields accepted when creating a register.
type CashRegisterInput struct {
	Name        string
	OwnerID     string
	Type        models.RegisterType
	Description string
}

// CashRegisterUpdateFields holds optional fields for a partial register update.
type CashRegisterUpdateFields struct {
	Name        *string
	OwnerID     *string
	Type        *models.RegisterType
	Description *string
	IsActive    *bool
}

// CashRegisterFilter holds optional filters for listing registers.
type CashRegisterFilter struct {
	IsActive *bool
	Type     *models.RegisterType
	OwnerID  *string
}

// CashRegisterServicer defines the contract for cash-register business logic.
type CashRegisterServicer interface {
	CreateCashRegister(ctx context.Context, actor authz.Actor, input CashRegisterInput) (*models.CashRegister, error)
	GetCashRegisterByID(ctx context.Context, actor authz.Actor, id string) (*models.CashRegister, error)
	ListCashRegisters(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter CashRegisterFilter) (*pagination.PageResponse[models.CashRegister], error)
	UpdateCashRegister(ctx context.Context, actor authz.Actor, id string, fields CashRegisterUpdateFields) (*models.CashRegister, error)
	OverrideBalance(ctx context.Context, actor authz.Actor, id string, balance money.Amount, reason string) (*models.CashRegister, error)
}

// InvestmentInput holds the fields accepted when creating an investment.
type InvestmentInput struct {
	Name    string
	Address string
	Notes   string
}

// InvestmentUpdateFields holds optional fields for a partial investment update.
// The derived totals are deliberately absent.
type InvestmentUpdateFields struct {
	Name    *string
	Status  *models.InvestmentStatus
	Address *string
	Notes   *string
}

// InvestmentServicer defines the contract for investment business logic.
type InvestmentServicer interface {
	CreateInvestment(ctx context.Context, actor authz.Actor, input InvestmentInput) (*models.Investment, error)
	GetInvestmentByID(ctx context.Context, actor authz.Actor, id string) (*models.Investment, error)
	ListInvestments(ctx context.Context, actor authz.Actor, page pagination.PageRequest, status *models.InvestmentStatus) (*pagination.PageResponse[models.Investment], error)
	UpdateInvestment(ctx context.Context, actor authz.Actor, id string, fields InvestmentUpdateFields) (*models.Investment, error)
}

// OtherCategoryServicer defines the contract for other-category business logic.
type OtherCategoryServicer interface {
	CreateCategory(ctx context.Context, actor authz.Actor, name string) (*models.OtherCategory, error)
	GetCategoryByID(ctx context.Context, actor authz.Actor, id string) (*models.OtherCategory, error)
	ListCategories(ctx context.Context, actor authz.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.OtherCategory], error)
	UpdateCategory(ctx context.Context, actor authz.Actor, id, name string) (*models.OtherCategory, error)
	DeleteCategory(ctx context.Context, actor authz.Actor, id string) error
}

// MediaInput describes an invoice file already placed in external storage.
type MediaInput struct {
	StorageKey string
	Filename   string
	MimeType   string
}

// MediaServicer records invoice references.
type MediaServicer interface {
	CreateMedia(ctx context.Context, actor authz.Actor, input MediaInput) (*models.Media, error)
	GetMediaByID(ctx context.Context, actor authz.Actor, id string) (*models.Media, error)
}

// BalanceEngine applies and reverses the balance effect of transactions on a
// caller-supplied database transaction.
type BalanceEngine interface {
	Lock(tx *gorm.DB, registerIDs, investmentIDs []string) error
	Apply(tx *gorm.DB, t *models.Transaction) error
	Reverse(tx *gorm.DB, t *models.Transaction) error
}

// TransactionInput holds the fields accepted when creating a transaction.
// Optional references are nil when absent.
type TransactionInput struct {
	Type            ledger.TransactionType
	Amount          money.Amount
	Description     string
	Date            time.Time
	PaymentMethod   ledger.PaymentMethod
	CashRegisterID  string
	InvestmentID    *string
	WorkerID        *string
	OtherCategoryID *string
	InvoiceID       *string
	InvoiceNote     string
}

// TransactionUpdateFields holds optional fields for a partial update. For
// the reference fields a non-nil pointer to "" clears the reference.
type TransactionUpdateFields struct {
	Type            *ledger.TransactionType
	Amount          *money.Amount
	Description     *string
	Date            *time.Time
	PaymentMethod   *ledger.PaymentMethod
	CashRegisterID  *string
	InvestmentID    *string
	WorkerID        *string
	OtherCategoryID *string
	InvoiceID       *string
	InvoiceNote     *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate        *time.Time
	ToDate          *time.Time
	Type            *ledger.TransactionType
	PaymentMethod   *ledger.PaymentMethod
	CashRegisterID  *string
	InvestmentID    *string
	WorkerID        *string
	OtherCategoryID *string
	SettlementID    *string
	MinAmount       *money.Amount
	MaxAmount       *money.Amount
}

// TransferInput describes a register-to-register transfer.
type TransferInput struct {
	SourceRegisterID      string
	DestinationRegisterID string
	Amount                money.Amount
	PaymentMethod         ledger.PaymentMethod
	Date                  time.Time
	Description           string
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	TransferGroupID string              `json:"transfer_group_id"`
	Outgoing        *models.Transaction `json:"outgoing"`
	Incoming        *models.Transaction `json:"incoming"`
}

// WorkerSaldo is a worker's running balance.
type WorkerSaldo struct {
	WorkerID         string       `json:"worker_id"`
	Saldo            money.Amount `json:"saldo"`
	Funded           money.Amount `json:"funded"`
	Spent            money.Amount `json:"spent"`
	TransactionCount int64        `json:"transaction_count"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, actor authz.Actor, input TransactionInput) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, actor authz.Actor, id string, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, actor authz.Actor, id string) error
	GetTransactionByID(ctx context.Context, actor authz.Actor, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, actor authz.Actor, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	ListRegisterTransactions(ctx context.Context, actor authz.Actor, registerID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	CreateTransfer(ctx context.Context, actor authz.Actor, input TransferInput) (*TransferResult, error)
	GetWorkerSaldo(ctx context.Context, actor authz.Actor, workerID string) (*WorkerSaldo, error)
	ExportTransactions(ctx context.Context, actor authz.Actor, filter TransactionFilter) ([]models.Transaction, error)
}

// SettlementLine is one invoice position.
type SettlementLine struct {
	Amount      money.Amount
	Description string
	Note        string
}

// SettlementInput fans one invoice into EMPLOYEE_EXPENSE transactions.
type SettlementInput struct {
	WorkerID       string
	InvestmentID   string
	CashRegisterID string
	PaymentMethod  ledger.PaymentMethod
	Date           time.Time
	InvoiceID      *string
	InvoiceNote    string
	Lines          []SettlementLine
}

// SettlementResult is a persisted settlement batch.
type SettlementResult struct {
	SettlementID string               `json:"settlement_id"`
	Total        money.Amount         `json:"total"`
	Transactions []models.Transaction `json:"transactions"`
}

// SettlementServicer defines the contract for invoice settlements.
type SettlementServicer interface {
	CreateSettlement(ctx context.Context, actor authz.Actor, input SettlementInput) (*SettlementResult, error)
	GetSettlement(ctx context.Context, actor authz.Actor, settlementID string) (*SettlementResult, error)
}

// ReconciliationResult summarises one recalculation or verification run.
type ReconciliationResult struct {
	RunID              string                        `json:"run_id"`
	Applied            bool                          `json:"applied"`
	StartedAt          time.Time                     `json:"started_at"`
	FinishedAt         time.Time                     `json:"finished_at"`
	RegistersChecked   int                           `json:"registers_checked"`
	InvestmentsChecked int                           `json:"investments_checked"`
	TransactionsRead   int64                         `json:"transactions_read"`
	Mismatches         []models.ReconciliationReport `json:"mismatches"`
}

// ReconciliationServicer defines the contract for full recalculation.
type ReconciliationServicer interface {
	RecalculateAll(ctx context.Context, actor authz.Actor) (*ReconciliationResult, error)
	Verify(ctx context.Context, actor authz.Actor) (*ReconciliationResult, error)
	ListReports(ctx context.Context, actor authz.Actor, page pagination.PageRequest, runID string) (*pagination.PageResponse[models.ReconciliationReport], error)
}
