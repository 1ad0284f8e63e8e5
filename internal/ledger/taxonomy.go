// Package ledger describes the transaction taxonomy: which types exist, what
// each one does to a cash register, an investment and a worker's saldo, and
// which fields a transaction of that type must carry.
//
// Every balance computation in the service reads its signs from this table,
// both for incremental updates and for full recalculation.
package ledger

import "wykonczymy/internal/money"

// TransactionType is the persisted type of a transaction. Values are
// append-only: existing values are never renamed or removed.
type TransactionType string

const (
	TypeInvestmentExpense TransactionType = "INVESTMENT_EXPENSE"
	TypeAccountFunding    TransactionType = "ACCOUNT_FUNDING"
	TypeEmployeeExpense   TransactionType = "EMPLOYEE_EXPENSE"
	TypeOther             TransactionType = "OTHER"
	TypeInvestorDeposit   TransactionType = "INVESTOR_DEPOSIT"
	TypeStageSettlement   TransactionType = "STAGE_SETTLEMENT"
	TypeCompanyFunding    TransactionType = "COMPANY_FUNDING"
	TypeOtherDeposit      TransactionType = "OTHER_DEPOSIT"
	TypeRegisterTransfer  TransactionType = "REGISTER_TRANSFER"
)

// PaymentMethod is how the money moved.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentBlik     PaymentMethod = "BLIK"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCard     PaymentMethod = "CARD"
)

// TransferDirection marks a leg of a register-to-register transfer.
type TransferDirection string

const (
	DirectionOutgoing TransferDirection = "OUTGOING"
	DirectionIncoming TransferDirection = "INCOMING"
)

// InvestmentField names the derived investment column a type feeds.
type InvestmentField string

const (
	FieldTotalCosts  InvestmentField = "total_costs"
	FieldTotalIncome InvestmentField = "total_income"
	FieldLaborCosts  InvestmentField = "labor_costs"
)

// InvestmentFields lists the derived investment columns in display order.
var InvestmentFields = []InvestmentField{FieldTotalCosts, FieldTotalIncome, FieldLaborCosts}

// Field is a transaction attribute referenced by validation rules.
type Field string

const (
	FieldType              Field = "type"
	FieldAmount            Field = "amount"
	FieldCashRegister      Field = "cash_register"
	FieldPaymentMethod     Field = "payment_method"
	FieldInvestment        Field = "investment"
	FieldWorker            Field = "worker"
	FieldOtherCategory     Field = "other_category"
	FieldTransferGroup     Field = "transfer_group"
	FieldTransferDirection Field = "transfer_direction"
	FieldInvoice           Field = "invoice"
	FieldCreatedBy         Field = "created_by"
)

// Rule is one row of the taxonomy.
type Rule struct {
	// RegisterSign is -1 or +1; 0 means the sign comes from the transfer direction.
	RegisterSign int64
	Investment   InvestmentField
	SaldoSign    int64
	Requires     []Field
	// Expense types must be backed by an invoice or an invoice note.
	Expense bool
}

// order is the display and persistence order of the types. Append only.
var order = []TransactionType{
	TypeInvestmentExpense,
	TypeAccountFunding,
	TypeEmployeeExpense,
	TypeOther,
	TypeInvestorDeposit,
	TypeStageSettlement,
	TypeCompanyFunding,
	TypeOtherDeposit,
	TypeRegisterTransfer,
}

var rules = map[TransactionType]Rule{
	TypeInvestmentExpense: {RegisterSign: -1, Investment: FieldTotalCosts, Requires: []Field{FieldInvestment}, Expense: true},
	TypeAccountFunding:    {RegisterSign: -1, SaldoSign: 1, Requires: []Field{FieldWorker}, Expense: true},
	TypeEmployeeExpense:   {RegisterSign: -1, Investment: FieldLaborCosts, SaldoSign: -1, Requires: []Field{FieldWorker, FieldInvestment}, Expense: true},
	TypeOther:             {RegisterSign: -1, Requires: []Field{FieldOtherCategory}, Expense: true},
	TypeInvestorDeposit:   {RegisterSign: 1, Investment: FieldTotalIncome, Requires: []Field{FieldInvestment}},
	TypeStageSettlement:   {RegisterSign: 1, Investment: FieldTotalIncome, Requires: []Field{FieldInvestment}},
	TypeCompanyFunding:    {RegisterSign: 1},
	TypeOtherDeposit:      {RegisterSign: 1},
	TypeRegisterTransfer:  {Requires: []Field{FieldTransferGroup, FieldTransferDirection}},
}

var paymentMethods = []PaymentMethod{PaymentCash, PaymentBlik, PaymentTransfer, PaymentCard}

// Types returns all transaction types in their canonical order.
func Types() []TransactionType {
	out := make([]TransactionType, len(order))
	copy(out, order)
	return out
}

// PaymentMethods returns all payment methods.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

// Valid reports whether t is a known type.
func (t TransactionType) Valid() bool {
	_, ok := rules[t]
	return ok
}

// Rule returns the taxonomy row for t.
func (t TransactionType) Rule() (Rule, bool) {
	r, ok := rules[t]
	return r, ok
}

// IsExpense reports whether t requires invoice evidence.
func (t TransactionType) IsExpense() bool {
	return rules[t].Expense
}

// IsDeposit reports whether t always increases the register balance.
func (t TransactionType) IsDeposit() bool {
	return rules[t].RegisterSign > 0
}

func (m PaymentMethod) Valid() bool {
	for _, known := range paymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

func (d TransferDirection) Valid() bool {
	return d == DirectionOutgoing || d == DirectionIncoming
}

// Opposite returns the direction of the other leg.
func (d TransferDirection) Opposite() TransferDirection {
	if d == DirectionOutgoing {
		return DirectionIncoming
	}
	return DirectionOutgoing
}

// Effect is what one transaction contributes to the derived values.
type Effect struct {
	Register   money.Amount
	Investment InvestmentField
	// InvestmentDelta applies to the column named by Investment.
	InvestmentDelta money.Amount
	Saldo           money.Amount
}

// Negate returns the effect that undoes e.
func (e Effect) Negate() Effect {
	return Effect{
		Register:        -e.Register,
		Investment:      e.Investment,
		InvestmentDelta: -e.InvestmentDelta,
		Saldo:           -e.Saldo,
	}
}

// IsZero reports whether applying e changes nothing.
func (e Effect) IsZero() bool {
	return e.Register == 0 && e.InvestmentDelta == 0 && e.Saldo == 0
}

// EffectOf computes the signed contribution of a transaction. Unknown types
// contribute nothing.
func EffectOf(t TransactionType, amount money.Amount, dir TransferDirection) Effect {
	rule, ok := rules[t]
	if !ok {
		return Effect{}
	}

	sign := rule.RegisterSign
	if sign == 0 {
		switch dir {
		case DirectionOutgoing:
			sign = -1
		case DirectionIncoming:
			sign = 1
		}
	}

	eff := Effect{
		Register: amount * money.Amount(sign),
		Saldo:    amount * money.Amount(rule.SaldoSign),
	}
	if rule.Investment != "" {
		eff.Investment = rule.Investment
		eff.InvestmentDelta = amount
	}
	return eff
}
