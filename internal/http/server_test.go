package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/ledger/memory"
	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/reporting"
	"cashflow/internal/services"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeExporter struct {
	month core.Month
	err   error
}

func (f *fakeExporter) ExportCashflow(_ context.Context, r reporting.CashflowReport) (string, error) {
	f.month = r.Month
	if f.err != nil {
		return "", f.err
	}
	return "Cashflow!A1", nil
}

type testServer struct {
	*Server
	store  *memory.Store
	food   core.Category
	salary core.Category
	acct   core.Account
}

// newTestServer seeds Checking, Food > Groceries and Salary with a March
// config (opening 1000) and three March transactions.
func newTestServer(t *testing.T, opts Options) testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	ts := testServer{store: store}

	var err error
	if ts.acct, err = store.CreateAccount(ctx, "Checking"); err != nil {
		t.Fatal(err)
	}
	if ts.food, err = store.CreateCategory(ctx, core.Category{Name: "Food"}); err != nil {
		t.Fatal(err)
	}
	groceries, err := store.CreateCategory(ctx, core.Category{Name: "Groceries", ParentID: &ts.food.ID})
	if err != nil {
		t.Fatal(err)
	}
	if ts.salary, err = store.CreateCategory(ctx, core.Category{Name: "Salary"}); err != nil {
		t.Fatal(err)
	}
	march := core.Month{Year: 2026, Month: time.March}
	if _, err := store.SaveMonthConfig(ctx, core.MonthConfig{AccountID: ts.acct.ID, Month: march,
		IncomeBase: core.MustMoney("3000"), OpeningBalance: core.MustMoney("1000")}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertBudget(ctx, core.Budget{CategoryID: groceries.ID, Month: march,
		RuleType: core.RuleFixed, Value: decimal.NewFromInt(400)}); err != nil {
		t.Fatal(err)
	}
	for _, tx := range []core.Transaction{
		{Date: march.Day(1), Type: core.Income, Amount: core.MustMoney("3000"), CategoryID: ts.salary.ID},
		{Date: march.Day(5), Type: core.Expense, Amount: core.MustMoney("150.25"), CategoryID: groceries.ID},
		{Date: march.Day(10), Type: core.Expense, Amount: core.MustMoney("100"), CategoryID: groceries.ID},
	} {
		tx.AccountID = ts.acct.ID
		if _, err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	logger := applog.Discard()
	settings := services.DefaultReportSettings()
	settings.Now = func() time.Time { return testNow }
	if opts.Now == nil {
		opts.Now = settings.Now
	}
	opts.Logger = logger
	if opts.RateLimit.RequestsPerMinute == 0 {
		opts.RateLimit = ratelimit.Config{RequestsPerMinute: 60000, Burst: 1000}
	}
	ts.Server = NewServer(":0",
		services.NewLedgerService(store, nil, logger),
		services.NewReportService(store, settings, logger),
		opts)
	t.Cleanup(func() { _ = ts.Shutdown(context.Background()) })
	return ts
}

func (ts testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := ts.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}

	down := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db gone") }})
	if rec := down.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing check status = %d, want 503", rec.Code)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := ts.do(t, http.MethodGet, "/api/accounts", "")

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestAccountsLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/accounts", `{"name":"  Savings "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	created := decode[core.Account](t, rec)
	if created.Name != "Savings" {
		t.Errorf("created name = %q, want Savings", created.Name)
	}
	if rec.Header().Get("Location") == "" {
		t.Error("Location header missing")
	}

	path := "/api/accounts/" + jsonInt(created.ID)
	if rec := ts.do(t, http.MethodPatch, path, `{"name":"Rainy day"}`); rec.Code != http.StatusOK {
		t.Errorf("rename status = %d", rec.Code)
	}

	accounts := decode[[]core.Account](t, ts.do(t, http.MethodGet, "/api/accounts", ""))
	if len(accounts) != 2 {
		t.Errorf("accounts = %d, want 2", len(accounts))
	}

	if rec := ts.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestValidationStatuses(t *testing.T) {
	ts := newTestServer(t, Options{})
	food := jsonInt(ts.food.ID)
	acct := jsonInt(ts.acct.ID)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"empty account name", http.MethodPost, "/api/accounts", `{"name":"  "}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/accounts", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/accounts", `{"nome":"x"}`, http.StatusBadRequest},
		{"bad path id", http.MethodDelete, "/api/accounts/abc", "", http.StatusBadRequest},
		{"rename missing account", http.MethodPatch, "/api/accounts/9999", `{"name":"x"}`, http.StatusNotFound},
		{"child category", http.MethodPost, "/api/categories", `{"name":"Dining","parent":` + food + `}`, http.StatusCreated},
		{"unknown parent", http.MethodPost, "/api/categories", `{"name":"x","parent":9999}`, http.StatusUnprocessableEntity},
		{"invalid transaction type", http.MethodPost, "/api/transactions",
			`{"date":"2026-03-11","type":"transfer","amount":"5","account":` + acct + `,"category":` + food + `}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/transactions",
			`{"date":"2026-03-11","type":"expense","amount":"-5","account":` + acct + `,"category":` + food + `}`, http.StatusUnprocessableEntity},
		{"malformed date", http.MethodPost, "/api/transactions",
			`{"date":"11/03/2026","type":"expense","amount":"5","account":` + acct + `,"category":` + food + `}`, http.StatusBadRequest},
		{"missing date", http.MethodPost, "/api/transactions",
			`{"type":"expense","amount":"5","account":` + acct + `,"category":` + food + `}`, http.StatusBadRequest},
		{"percent over 100", http.MethodPut, "/api/budgets",
			`{"category":` + food + `,"month":"2026-03","rule_type":"percent","value":"120"}`, http.StatusUnprocessableEntity},
		{"bad month filter", http.MethodGet, "/api/budgets?month=March", "", http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/api/accounts", `{}`, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(t, tt.method, tt.target, tt.body); rec.Code != tt.want {
				t.Errorf("%s %s status = %d, want %d (body %s)", tt.method, tt.target, rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestGrandchildCategoryRejected(t *testing.T) {
	ts := newTestServer(t, Options{})
	cats := decode[[]core.FlatCategory](t, ts.do(t, http.MethodGet, "/api/categories", ""))

	var child *core.FlatCategory
	for i := range cats {
		if cats[i].Level == 1 {
			child = &cats[i]
		}
	}
	if child == nil {
		t.Fatalf("no child category in %v", cats)
	}
	rec := ts.do(t, http.MethodPost, "/api/categories", `{"name":"Organic","parent":`+jsonInt(child.ID)+`}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("grandchild status = %d, want 422", rec.Code)
	}
}

func TestTransactionsAndSettings(t *testing.T) {
	ts := newTestServer(t, Options{})
	acct := jsonInt(ts.acct.ID)

	rec := ts.do(t, http.MethodPost, "/api/transactions",
		`{"date":"2026-03-12","type":"income","amount":"49.99","account":`+acct+`,"category":`+jsonInt(ts.salary.ID)+`,"note":" refund "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rec.Code, rec.Body)
	}
	tx := decode[core.Transaction](t, rec)
	if tx.Type != core.Income || tx.Amount.String() != "49.99" || tx.Note != "refund" {
		t.Errorf("created transaction = %+v", tx)
	}

	list := decode[[]core.Transaction](t, ts.do(t, http.MethodGet, "/api/transactions?month=2026-03&category="+jsonInt(ts.salary.ID), ""))
	if len(list) != 2 {
		t.Errorf("salary transactions = %d, want 2", len(list))
	}

	if rec := ts.do(t, http.MethodDelete, "/api/transactions/"+jsonInt(tx.ID), ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete transaction status = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, "/api/month-configs",
		`{"account":`+acct+`,"month":"2026-04","income_base":"3200","opening_balance":"3749.75"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save month config status = %d, body %s", rec.Code, rec.Body)
	}
	configs := decode[[]core.MonthConfig](t, ts.do(t, http.MethodGet, "/api/month-configs?month=2026-04", ""))
	if len(configs) != 1 || configs[0].OpeningBalance.String() != "3749.75" {
		t.Errorf("April configs = %+v", configs)
	}

	rec = ts.do(t, http.MethodPut, "/api/budgets",
		`{"category":`+jsonInt(ts.food.ID)+`,"month":"2026-03","rule_type":"percent","value":"20"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert budget status = %d, body %s", rec.Code, rec.Body)
	}
	budgets := decode[[]core.Budget](t, ts.do(t, http.MethodGet, "/api/budgets", ""))
	if len(budgets) != 2 {
		t.Errorf("March budgets (default month) = %d, want 2", len(budgets))
	}

	empty := ts.do(t, http.MethodGet, "/api/budgets?month=2020-01", "")
	if strings.TrimSpace(empty.Body.String()) != "[]" {
		t.Errorf("empty budgets body = %q, want []", empty.Body.String())
	}
}

func TestReports(t *testing.T) {
	ts := newTestServer(t, Options{})

	cashflow := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/reports/cashflow?month=2026-03", ""))
	if cashflow["closingBalance"] != "3749.75" {
		t.Errorf("closingBalance = %v, want 3749.75", cashflow["closingBalance"])
	}

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"cashflow live preview", "/api/reports/cashflow?month=2026-03&asOf=2026-03-05", http.StatusOK},
		{"monitor rollup", "/api/reports/budget-monitor?month=2026-03&mode=rollup", http.StatusOK},
		{"monitor bad mode", "/api/reports/budget-monitor?mode=sideways", http.StatusBadRequest},
		{"period", "/api/reports/budget-period?from=2026-03-01&to=2026-03-15", http.StatusOK},
		{"period spans months", "/api/reports/budget-period?from=2026-02-20&to=2026-03-05", http.StatusUnprocessableEntity},
		{"period missing to", "/api/reports/budget-period?from=2026-03-01", http.StatusBadRequest},
		{"dashboard", "/api/reports/dashboard?month=2026-03&account=" + jsonInt(ts.acct.ID), http.StatusOK},
		{"dashboard bad account", "/api/reports/dashboard?account=zero", http.StatusBadRequest},
		{"intelligence", "/api/reports/intelligence?month=2026-03&asOf=2026-03-10", http.StatusOK},
		{"intelligence default asOf", "/api/reports/intelligence", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(t, http.MethodGet, tt.target, ""); rec.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d (body %s)", tt.target, rec.Code, tt.want, rec.Body)
			}
		})
	}

	intel := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/reports/intelligence?month=2026-03&asOf=2026-03-10", ""))
	if intel["daysElapsed"] != float64(10) {
		t.Errorf("daysElapsed = %v, want 10", intel["daysElapsed"])
	}
}

func TestExportCashflow(t *testing.T) {
	without := newTestServer(t, Options{})
	if rec := without.do(t, http.MethodPost, "/api/exports/cashflow?month=2026-03", ""); rec.Code != http.StatusNotFound {
		t.Errorf("export without exporter status = %d, want 404", rec.Code)
	}

	exp := &fakeExporter{}
	ts := newTestServer(t, Options{Exporter: exp})
	rec := ts.do(t, http.MethodPost, "/api/exports/cashflow?month=2026-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body)
	}
	body := decode[exportResponse](t, rec)
	if body.Range != "Cashflow!A1" || exp.month != (core.Month{Year: 2026, Month: time.March}) {
		t.Errorf("export = %+v, exporter saw %v", body, exp.month)
	}

	exp.err = errors.New("quota")
	if rec := ts.do(t, http.MethodPost, "/api/exports/cashflow?month=2026-03", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing export status = %d, want 500", rec.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	ts := newTestServer(t, Options{RateLimit: ratelimit.Config{RequestsPerMinute: 1, Burst: 1}})

	if rec := ts.do(t, http.MethodPost, "/api/accounts", `{"name":"A"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first write status = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/accounts", `{"name":"B"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second write status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	for i := 0; i < 3; i++ {
		if rec := ts.do(t, http.MethodGet, "/api/accounts", ""); rec.Code != http.StatusOK {
			t.Errorf("read %d status = %d, want 200", i, rec.Code)
		}
	}
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
