package services

import (
	"context"
	"testing"

	"wykonczymy/internal/events"
	"wykonczymy/internal/ledger"
	"wykonczymy/internal/testutil"
)

func newTestSettlement(f *ledgerFixture, lines ...SettlementLine) SettlementInput {
	return SettlementInput{
		WorkerID:       f.employee.ID,
		InvestmentID:   f.inv.ID,
		CashRegisterID: f.register.ID,
		PaymentMethod:  ledger.PaymentCash,
		InvoiceNote:    "faktura 12/2024",
		Lines:          lines,
	}
}

func TestCreateSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("two_lines", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

		res, err := svc.CreateSettlement(ctx, f.owner.Actor(), newTestSettlement(f,
			SettlementLine{Amount: 5000, Description: "glazura"},
			SettlementLine{Amount: 7500, Description: "fugowanie", Note: "osobny paragon"},
		))
		testutil.AssertNoError(t, err)

		if len(res.Transactions) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(res.Transactions))
		}
		if res.Total != 12500 {
			t.Errorf("expected total 125.00, got %s", res.Total)
		}
		for _, txn := range res.Transactions {
			if deref(txn.SettlementID) != res.SettlementID {
				t.Errorf("row %s is not linked to the settlement", txn.ID)
			}
			if txn.Type != ledger.TypeEmployeeExpense {
				t.Errorf("expected EMPLOYEE_EXPENSE, got %s", txn.Type)
			}
		}
		if res.Transactions[0].InvoiceNote != "faktura 12/2024" || res.Transactions[1].InvoiceNote != "osobny paragon" {
			t.Errorf("unexpected notes %q / %q", res.Transactions[0].InvoiceNote, res.Transactions[1].InvoiceNote)
		}

		testutil.AssertRegisterBalance(t, f.db, f.register.ID, 100000-12500)
		testutil.AssertInvestmentTotal(t, f.db, f.inv.ID, ledger.FieldLaborCosts, 12500)

		saldo, err := f.svc.GetWorkerSaldo(ctx, f.owner.Actor(), f.employee.ID)
		testutil.AssertNoError(t, err)
		if saldo.Saldo != -12500 {
			t.Errorf("expected saldo -125.00, got %s", saldo.Saldo)
		}

		for _, txn := range res.Transactions {
			if !f.rec.Has(events.KindTransaction, txn.ID, events.ActionCreated) {
				t.Errorf("expected a created event for %s", txn.ID)
			}
		}
	})

	t.Run("invalid_second_line_creates_nothing", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

		_, err := svc.CreateSettlement(ctx, f.owner.Actor(), newTestSettlement(f,
			SettlementLine{Amount: 5000, Description: "glazura"},
			SettlementLine{Amount: 0, Description: "fugowanie"},
		))
		testutil.AssertViolations(t, err, "lines[1].amount")

		if n := testutil.CountTransactions(t, f.db); n != 0 {
			t.Errorf("expected 0 rows, got %d", n)
		}
		testutil.AssertRegisterBalance(t, f.db, f.register.ID, 100000)
		testutil.AssertInvestmentTotal(t, f.db, f.inv.ID, ledger.FieldLaborCosts, 0)
	})

	t.Run("all_line_violations_reported", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

		in := newTestSettlement(f,
			SettlementLine{Amount: -1},
			SettlementLine{Amount: 0},
		)
		in.InvoiceNote = ""
		_, err := svc.CreateSettlement(ctx, f.owner.Actor(), in)
		testutil.AssertViolations(t, err,
			"lines[0].amount", "lines[0].invoice",
			"lines[1].amount", "lines[1].invoice",
		)
	})

	t.Run("no_lines", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

		_, err := svc.CreateSettlement(ctx, f.owner.Actor(), newTestSettlement(f))
		testutil.AssertViolations(t, err, "lines")
	})

	t.Run("unknown_worker_creates_nothing", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

		in := newTestSettlement(f, SettlementLine{Amount: 100})
		in.WorkerID = "00000000-0000-0000-0000-000000000000"
		_, err := svc.CreateSettlement(ctx, f.owner.Actor(), in)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")

		if n := testutil.CountTransactions(t, f.db); n != 0 {
			t.Errorf("expected 0 rows, got %d", n)
		}
	})

	t.Run("employee_forbidden", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

		_, err := svc.CreateSettlement(ctx, f.employee.Actor(), newTestSettlement(f, SettlementLine{Amount: 100}))
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestGetSettlement(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	svc := NewSettlementService(f.db, NewBalanceEngine(), f.rec)

	created, err := svc.CreateSettlement(ctx, f.owner.Actor(), newTestSettlement(f,
		SettlementLine{Amount: 1000}, SettlementLine{Amount: 2000}, SettlementLine{Amount: 3000},
	))
	testutil.AssertNoError(t, err)

	t.Run("worker_sees_own_settlement", func(t *testing.T) {
		got, err := svc.GetSettlement(ctx, f.employee.Actor(), created.SettlementID)
		testutil.AssertNoError(t, err)
		if len(got.Transactions) != 3 || got.Total != 6000 {
			t.Errorf("expected 3 lines totalling 60.00, got %d / %s", len(got.Transactions), got.Total)
		}
	})

	t.Run("other_employee_sees_nothing", func(t *testing.T) {
		other := testutil.CreateTestUser(t, f.db)
		_, err := svc.GetSettlement(ctx, other.Actor(), created.SettlementID)
		testutil.AssertAppError(t, err, "SETTLEMENT_NOT_FOUND")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := svc.GetSettlement(ctx, f.owner.Actor(), "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "SETTLEMENT_NOT_FOUND")
	})
}
