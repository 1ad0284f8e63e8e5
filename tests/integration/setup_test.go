package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/config"
	"wykonczymy/internal/events"
	"wykonczymy/internal/lock"
	"wykonczymy/internal/logger"
	"wykonczymy/internal/server"
	"wykonczymy/internal/services"
	"wykonczymy/internal/testutil"
	"wykonczymy/internal/validator"
)

const (
	testPassword   = "password123"
	operatorAPIKey = "ops-test-key"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Events *events.Recorder
	Users  services.UserServicer
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "error")
	validator.Register()
	config.Set(&config.Config{
		JWTSecret:       "integration-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	recorder := &events.Recorder{}
	engine := services.NewBalanceEngine()
	users := services.NewUserService(db, recorder, services.LoginPolicy{MaxFailedAttempts: 5, LockoutDuration: 15 * time.Minute})

	router := server.NewRouter(server.Services{
		Users:          users,
		CashRegisters:  services.NewCashRegisterService(db, recorder),
		Investments:    services.NewInvestmentService(db, recorder),
		Categories:     services.NewOtherCategoryService(db, recorder),
		Media:          services.NewMediaService(db, recorder),
		Transactions:   services.NewTransactionService(db, engine, recorder),
		Settlements:    services.NewSettlementService(db, engine, recorder),
		Reconciliation: services.NewReconciliationService(db, lock.NewLocal(), recorder),
	}, server.Options{OperatorAPIKey: operatorAPIKey})

	return &testApp{DB: db, Router: router, Events: recorder, Users: users}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustRequest is request plus a status check.
func (app *testApp) mustRequest(t *testing.T, want int, method, path, body, token string) map[string]interface{} {
	t.Helper()
	rec := app.request(method, path, body, token)
	if rec.Code != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		return nil
	}
	return parseJSON(t, rec)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseJSON(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// bootstrapAdmin creates the first administrator and logs in.
func (app *testApp) bootstrapAdmin(t *testing.T) (token, userID string) {
	t.Helper()
	user, err := app.Users.BootstrapAdmin(context.Background(), services.CreateUserInput{
		Email:     "admin@test.com",
		Password:  testPassword,
		FirstName: "Admin",
		LastName:  "Root",
		Role:      authz.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("bootstrap admin failed: %v", err)
	}
	access, _ := app.loginUser(t, "admin@test.com", testPassword)
	return access, user.ID
}

// createUser creates a user through the API and logs them in.
func (app *testApp) createUser(t *testing.T, adminToken, email string, role authz.Role) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User","role":%q}`, email, testPassword, role)
	result := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/users", body, adminToken)
	user := result["user"].(map[string]interface{})
	access, _ := app.loginUser(t, email, testPassword)
	return access, user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	result := app.mustRequest(t, http.StatusOK, "POST", "/api/v1/auth/login", body, "")
	return result["access_token"].(string), result["refresh_token"].(string)
}

func (app *testApp) createRegister(t *testing.T, token, name, ownerID string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"owner_id":%q}`, name, ownerID)
	result := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/cash-registers", body, token)
	return result["cash_register"].(map[string]interface{})["id"].(string)
}

func (app *testApp) createInvestment(t *testing.T, token, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"address":"ul. Długa 5, Kraków"}`, name)
	result := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/investments", body, token)
	return result["investment"].(map[string]interface{})["id"].(string)
}

// createTransaction posts a raw transaction body and returns the new ID.
func (app *testApp) createTransaction(t *testing.T, token, body string) string {
	t.Helper()
	result := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/transactions", body, token)
	return result["transaction"].(map[string]interface{})["id"].(string)
}

// registerBalance reads a register's balance through the API.
func (app *testApp) registerBalance(t *testing.T, token, id string) string {
	t.Helper()
	result := app.mustRequest(t, http.StatusOK, "GET", "/api/v1/cash-registers/"+id, "", token)
	return result["cash_register"].(map[string]interface{})["balance"].(string)
}

// investmentTotals reads the derived totals of an investment through the API.
func (app *testApp) investmentTotals(t *testing.T, token, id string) (costs, income, labor string) {
	t.Helper()
	result := app.mustRequest(t, http.StatusOK, "GET", "/api/v1/investments/"+id, "", token)
	inv := result["investment"].(map[string]interface{})
	return inv["total_costs"].(string), inv["total_income"].(string), inv["labor_costs"].(string)
}
