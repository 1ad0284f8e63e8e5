package integration

import (
	"fmt"
	"net/http"
	"testing"

	"wykonczymy/internal/authz"
)

func TestSettlementFlow_FansOutIntoEmployeeExpenses(t *testing.T) {
	app := setupApp(t)
	token, adminID := app.bootstrapAdmin(t)
	_, workerID := app.createUser(t, token, "tomek@test.com", authz.RoleEmployee)
	reg := app.createRegister(t, token, "Kasa", adminID)
	inv := app.createInvestment(t, token, "Dom Skawina")

	created := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/settlements", fmt.Sprintf(`{
		"worker_id":%q,"investment_id":%q,"cash_register_id":%q,"payment_method":"CASH",
		"invoice_note":"FV 3/2026",
		"lines":[
			{"amount":"50.00","description":"Klej do płytek"},
			{"amount":"25.00","description":"Fugi","note":"paragon 14"}
		]}`, workerID, inv, reg), token)

	if created["total"] != "75.00" {
		t.Errorf("expected total 75.00, got %v", created["total"])
	}
	settlementID := created["settlement_id"].(string)
	lines := created["transactions"].([]interface{})
	if len(lines) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(lines))
	}
	first := lines[0].(map[string]interface{})
	second := lines[1].(map[string]interface{})
	if first["type"] != "EMPLOYEE_EXPENSE" || first["settlement_id"] != settlementID {
		t.Errorf("unexpected first line %v", first)
	}
	if first["invoice_note"] != "FV 3/2026" || second["invoice_note"] != "paragon 14" {
		t.Errorf("line note should override the shared note: %v / %v", first["invoice_note"], second["invoice_note"])
	}

	if _, _, labor := app.investmentTotals(t, token, inv); labor != "75.00" {
		t.Errorf("labor: expected 75.00, got %s", labor)
	}
	if got := app.registerBalance(t, token, reg); got != "-75.00" {
		t.Errorf("register: expected -75.00, got %s", got)
	}
	saldo := app.mustRequest(t, http.StatusOK, "GET", "/api/v1/users/"+workerID+"/saldo", "", token)
	if saldo["saldo"] != "-75.00" {
		t.Errorf("saldo: expected -75.00, got %v", saldo["saldo"])
	}

	fetched := app.mustRequest(t, http.StatusOK, "GET", "/api/v1/settlements/"+settlementID, "", token)
	if fetched["total"] != "75.00" || len(fetched["transactions"].([]interface{})) != 2 {
		t.Errorf("unexpected settlement %v", fetched)
	}

	// Lines stay ordinary transactions: one can be deleted on its own.
	rec := app.request("DELETE", "/api/v1/transactions/"+first["id"].(string), "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, _, labor := app.investmentTotals(t, token, inv); labor != "25.00" {
		t.Errorf("labor after delete: expected 25.00, got %s", labor)
	}
}

func TestSettlementFlow_AllOrNothing(t *testing.T) {
	app := setupApp(t)
	token, adminID := app.bootstrapAdmin(t)
	_, workerID := app.createUser(t, token, "pawel@test.com", authz.RoleEmployee)
	reg := app.createRegister(t, token, "Kasa", adminID)
	inv := app.createInvestment(t, token, "Garaż Wieliczka")

	rec := app.request("POST", "/api/v1/settlements", fmt.Sprintf(`{
		"worker_id":%q,"investment_id":%q,"cash_register_id":%q,"payment_method":"CASH",
		"invoice_note":"FV 4/2026",
		"lines":[{"amount":"10.00"},{"amount":"0"},{"amount":"5.00"}]}`, workerID, inv, reg), token)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	details := parseJSON(t, rec)["error"].(map[string]interface{})["details"].([]interface{})
	if len(details) != 1 || details[0].(map[string]interface{})["field"] != "lines[1].amount" {
		t.Errorf("unexpected violations %v", details)
	}

	if got := app.registerBalance(t, token, reg); got != "0.00" {
		t.Errorf("nothing should be booked, register at %s", got)
	}
	list := app.mustRequest(t, http.StatusOK, "GET", "/api/v1/transactions", "", token)
	if total := list["total_items"].(float64); total != 0 {
		t.Errorf("expected no transactions, got %.0f", total)
	}
}
