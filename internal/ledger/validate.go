package ledger

import (
	"fmt"
	"strings"

	"wykonczymy/internal/money"
)

// Operation distinguishes a fresh transaction from a patched one.
type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
)

// Violation rule identifiers.
const (
	RuleRequired     = "required"
	RuleUnknownValue = "unknown_value"
	RulePositive     = "positive"
	RuleEvidence     = "evidence_required"
)

// Candidate is the full proposed state of a transaction. Optional references
// are empty strings when absent.
type Candidate struct {
	Type              TransactionType
	Amount            money.Amount
	PaymentMethod     PaymentMethod
	CashRegisterID    string
	InvestmentID      string
	WorkerID          string
	OtherCategoryID   string
	InvoiceID         string
	InvoiceNote       string
	TransferGroupID   string
	TransferDirection TransferDirection
	CreatedByID       string
}

// Violation is one broken rule, named by the field it concerns.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Violations is the ordered result of Validate.
type Violations []Violation

func (v Violations) Error() string {
	msgs := make([]string, len(v))
	for i, violation := range v {
		msgs[i] = violation.Field + ": " + violation.Message
	}
	return strings.Join(msgs, "; ")
}

// Prefixed returns a copy with every field name prefixed, e.g. "lines[1].".
func (v Violations) Prefixed(prefix string) Violations {
	out := make(Violations, len(v))
	for i, violation := range v {
		violation.Field = prefix + violation.Field
		out[i] = violation
	}
	return out
}

// Validate checks c against the taxonomy and returns every violation it
// finds, in rule order. An empty result means the candidate is valid.
func Validate(c Candidate, op Operation) Violations {
	var out Violations
	add := func(f Field, rule, msg string) {
		out = append(out, Violation{Field: string(f), Rule: rule, Message: msg})
	}

	rule, known := c.Type.Rule()
	switch {
	case c.Type == "":
		add(FieldType, RuleRequired, "type is required")
	case !known:
		add(FieldType, RuleUnknownValue, fmt.Sprintf("unknown transaction type %q", c.Type))
	}

	if c.Amount <= 0 {
		add(FieldAmount, RulePositive, "amount must be greater than zero")
	}

	if c.CashRegisterID == "" {
		add(FieldCashRegister, RuleRequired, "cash register is required")
	}

	switch {
	case c.PaymentMethod == "":
		add(FieldPaymentMethod, RuleRequired, "payment method is required")
	case !c.PaymentMethod.Valid():
		add(FieldPaymentMethod, RuleUnknownValue, fmt.Sprintf("unknown payment method %q", c.PaymentMethod))
	}

	if op == OpCreate && c.CreatedByID == "" {
		add(FieldCreatedBy, RuleRequired, "creator is required")
	}

	if !known {
		return out
	}

	for _, f := range rule.Requires {
		switch f {
		case FieldTransferDirection:
			if c.TransferDirection == "" {
				add(f, RuleRequired, fmt.Sprintf("%s is required for %s", f, c.Type))
			} else if !c.TransferDirection.Valid() {
				add(f, RuleUnknownValue, fmt.Sprintf("unknown transfer direction %q", c.TransferDirection))
			}
		default:
			if c.reference(f) == "" {
				add(f, RuleRequired, fmt.Sprintf("%s is required for %s", f, c.Type))
			}
		}
	}

	if rule.Expense && c.InvoiceID == "" && strings.TrimSpace(c.InvoiceNote) == "" {
		add(FieldInvoice, RuleEvidence, "an invoice or an invoice note is required for expenses")
	}

	return out
}

func (c Candidate) reference(f Field) string {
	switch f {
	case FieldInvestment:
		return c.InvestmentID
	case FieldWorker:
		return c.WorkerID
	case FieldOtherCategory:
		return c.OtherCategoryID
	case FieldTransferGroup:
		return c.TransferGroupID
	case FieldCashRegister:
		return c.CashRegisterID
	}
	return ""
}
