package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := memory.New()
	authService := auth.NewService(mem, testSecret, time.Hour, nil)
	srv := NewServer(":0", Deps{
		Entries:            services.NewEntryService(mem, nil, nil),
		Budgets:            services.NewBudgetService(mem, nil),
		Engine:             report.NewEngine(mem, nil, nil),
		Auth:               authService,
		RateLimitPerMinute: 10000,
	})
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func registerUser(t *testing.T, srv *Server, email string) string {
	t.Helper()
	rec, body := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"name":     "Test",
		"password": "password1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %v", rec.Code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("register response has no token")
	}
	return token
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	token := registerUser(t, srv, "alice@example.com")
	if token == "" {
		t.Fatal("no token")
	}

	rec, body := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %v", rec.Code, body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Errorf("login user = %v", user)
	}

	// Duplicate registration conflicts.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "alice@example.com",
		"name":     "Another",
		"password": "password2",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}

	// Wrong password is unauthorized.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestFinancesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/finances/entries", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/finances/entries", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestEntryLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "bob@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/finances/expenses", token, map[string]any{
		"title":  "groceries",
		"amount": 42.50,
		"date":   "2025-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", rec.Code, body)
	}
	if body["category"] != "expenses" {
		t.Errorf("category = %v, want the expense default", body["category"])
	}
	id := int64(body["id"].(float64))

	// Patch only the category; everything else must survive.
	rec, body = doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/api/finances/expenses/%d", id), token, map[string]any{
		"category": "food",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %v", rec.Code, body)
	}
	if body["category"] != "food" || body["title"] != "groceries" {
		t.Errorf("patched entry = %v, want category food with title intact", body)
	}
	if body["amount"].(float64) != 42.50 {
		t.Errorf("amount = %v, want unchanged 42.5", body["amount"])
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/finances/expenses/%d", id), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/finances/expenses/%d", id), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete gone status = %d, want 404", rec.Code)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "carol@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/finances/income", token, map[string]any{
		"title": "no amount or date",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	missing, _ := body["missing"].([]any)
	if len(missing) != 2 {
		t.Errorf("missing = %v, want amount and date", missing)
	}
}

func TestOwnershipAcrossUsers(t *testing.T) {
	srv := newTestServer(t)
	alice := registerUser(t, srv, "alice@example.com")
	mallory := registerUser(t, srv, "mallory@example.com")

	_, body := doJSON(t, srv, http.MethodPost, "/api/finances/income", alice, map[string]any{
		"amount": 100, "date": "2025-03-01",
	})
	id := int64(body["id"].(float64))

	rec, _ := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/finances/income/%d", id), mallory, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", rec.Code)
	}
}

func TestFeedEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "dave@example.com")

	doJSON(t, srv, http.MethodPost, "/api/finances/income", token, map[string]any{
		"amount": 2500, "date": "2025-03-01",
	})
	doJSON(t, srv, http.MethodPost, "/api/finances/expenses", token, map[string]any{
		"amount": 900, "date": "2025-03-05", "category": "rent",
	})

	rec, body := doJSON(t, srv, http.MethodGet, "/api/finances/entries?start=2025-03-01&end=2025-03-31", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d, body %v", rec.Code, body)
	}
	entries, _ := body["entries"].([]any)
	if len(entries) != 2 {
		t.Fatalf("feed has %d entries, want 2", len(entries))
	}
	first := entries[0].(map[string]any)
	second := entries[1].(map[string]any)
	if first["amount"].(float64) != 2500 {
		t.Errorf("income amount = %v, want 2500", first["amount"])
	}
	if second["amount"].(float64) != -900 {
		t.Errorf("expense amount = %v, want negated -900", second["amount"])
	}

	rec, body = doJSON(t, srv, http.MethodGet, "/api/finances/entries?type=both", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("type=both status = %d, body %v", rec.Code, body)
	}
	if entries, _ := body["entries"].([]any); len(entries) != 2 {
		t.Errorf("type=both has %d entries, want 2", len(entries))
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/finances/entries?type=income", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("type=income status = %d", rec.Code)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/finances/entries?type=bogus", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d, want 400", rec.Code)
	}
}

func TestBudgetOverviewEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "erin@example.com")

	rec, body := doJSON(t, srv, http.MethodPost, "/api/finances/budgets", token, map[string]any{
		"title": "food cap", "category": "food", "amount": 120, "month": "3", "year": 2025,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upsert status = %d, body %v", rec.Code, body)
	}
	if body["created"] != true {
		t.Errorf("created = %v, want true", body["created"])
	}

	doJSON(t, srv, http.MethodPost, "/api/finances/expenses", token, map[string]any{
		"amount": 100, "date": "2025-03-05", "category": "food",
	})

	rec, body = doJSON(t, srv, http.MethodGet, "/api/finances/budget?start=2025-03-01&end=2025-03-31", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d, body %v", rec.Code, body)
	}

	alerts, _ := body["alerts"].(map[string]any)
	alert, ok := alerts["food"].(map[string]any)
	if !ok {
		t.Fatalf("alerts = %v, want a food alert", alerts)
	}
	if alert["status"] != "warning" {
		t.Errorf("status = %v, want warning", alert["status"])
	}
	if alert["percentage"].(float64) != 83.33 {
		t.Errorf("percentage = %v, want 83.33", alert["percentage"])
	}
	if alert["remaining"].(float64) != 20 {
		t.Errorf("remaining = %v, want 20", alert["remaining"])
	}

	totals, _ := body["totals"].(map[string]any)
	if totals["total_expense"].(float64) != 100 {
		t.Errorf("total_expense = %v, want 100", totals["total_expense"])
	}
}

func TestBudgetUpsertIdempotent(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "frank@example.com")

	payload := map[string]any{
		"title": "rent cap", "category": "rent", "amount": 900, "month": "03", "year": 2025,
	}
	rec, first := doJSON(t, srv, http.MethodPost, "/api/finances/budgets", token, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upsert status = %d", rec.Code)
	}

	payload["amount"] = 950
	rec, second := doJSON(t, srv, http.MethodPost, "/api/finances/budgets", token, payload)
	if rec.Code != http.StatusOK {
		t.Errorf("second upsert status = %d, want 200", rec.Code)
	}
	if second["created"] != false {
		t.Errorf("created = %v, want false", second["created"])
	}
	if first["id"].(float64) != second["id"].(float64) {
		t.Errorf("ids differ: %v then %v", first["id"], second["id"])
	}
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "grace@example.com")

	doJSON(t, srv, http.MethodPost, "/api/finances/income", token, map[string]any{
		"amount": 2500, "date": "2025-03-01",
	})
	doJSON(t, srv, http.MethodPost, "/api/finances/expenses", token, map[string]any{
		"amount": 900, "date": "2025-03-02", "category": "rent",
	})
	doJSON(t, srv, http.MethodPost, "/api/finances/expenses", token, map[string]any{
		"amount": 300, "date": "2025-02-15", "category": "food",
	})

	rec, body := doJSON(t, srv, http.MethodGet, "/api/finances/reports?start=2025-02-01&end=2025-03-31", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body %v", rec.Code, body)
	}

	byCategory, _ := body["expenses_by_category"].([]any)
	if len(byCategory) != 2 {
		t.Fatalf("expenses_by_category = %v, want 2 rows", byCategory)
	}
	top := byCategory[0].(map[string]any)
	if top["category"] != "rent" {
		t.Errorf("top category = %v, want rent (largest total first)", top["category"])
	}

	monthly, _ := body["monthly_data"].([]any)
	if len(monthly) != 2 {
		t.Fatalf("monthly_data = %v, want 2 buckets", monthly)
	}
	feb := monthly[0].(map[string]any)
	if feb["month"] != "2025-02" {
		t.Errorf("first bucket = %v, want chronological 2025-02", feb["month"])
	}
	if feb["income"].(float64) != 0 {
		t.Errorf("feb income = %v, want 0 for an expense-only month", feb["income"])
	}

	if body["total_income"].(float64) != 2500 {
		t.Errorf("total_income = %v, want 2500", body["total_income"])
	}
	if body["total_expenses"].(float64) != 1200 {
		t.Errorf("total_expenses = %v, want 1200", body["total_expenses"])
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	srv := newTestServer(t)
	srv.rateLimiter.stop()
	srv.rateLimiter = newRateLimiter(2)
	t.Cleanup(srv.rateLimiter.stop)

	token := registerUser(t, srv, "heidi@example.com")

	var last int
	for i := 0; i < 3; i++ {
		rec, _ := doJSON(t, srv, http.MethodPost, "/api/finances/expenses", token, map[string]any{
			"amount": 1, "date": "2025-03-01",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third mutating request status = %d, want 429", last)
	}

	// Reads are not limited.
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/finances/entries", token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("read after limit status = %d, want 200", rec.Code)
	}
}
