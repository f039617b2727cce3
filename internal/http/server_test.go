package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"firefly/internal/log"
	"firefly/internal/ports/memory"
	"firefly/internal/services"
	"firefly/internal/settings"
	sheetsmem "firefly/internal/sheets/memory"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type response struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	store, err := memory.NewFromFile("")
	if err != nil {
		t.Fatal(err)
	}
	d := Deps{
		Backend:            store,
		Settings:           settings.NewStatic("USD"),
		Location:           time.UTC,
		Logger:             log.New(log.Config{Output: io.Discard}),
		RateLimitPerMinute: 1000,
		Now:                func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&d)
	}
	srv := NewServer(":0", d)
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) do(method, path, body string) (*httptest.ResponseRecorder, response) {
	ts.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)

	var res response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			ts.t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, res
}

// expect performs the request, checks the status and decodes data into out.
func (ts *testServer) expect(method, path, body string, status int, out any) response {
	ts.t.Helper()
	rec, res := ts.do(method, path, body)
	if rec.Code != status {
		ts.t.Fatalf("%s %s: status = %d, want %d (body %s)", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(res.Data, out); err != nil {
			ts.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return res
}

// idOf looks up a seeded record by name in a list endpoint.
func (ts *testServer) idOf(path, name string) int64 {
	ts.t.Helper()
	var list []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	ts.expect(http.MethodGet, path, "", http.StatusOK, &list)
	for _, it := range list {
		if it.Name == name {
			return it.ID
		}
	}
	ts.t.Fatalf("%s: no %q", path, name)
	return 0
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.expect(http.MethodGet, "/healthz", "", http.StatusOK, nil)
	ts.expect(http.MethodGet, "/readyz", "", http.StatusOK, nil)

	down := newTestServer(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("database is locked") }
	})
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	down.expect(http.MethodGet, "/readyz", "", http.StatusServiceUnavailable, &body)
	if body.Status != "not_ready" || !strings.Contains(body.Checks["backend"], "database is locked") {
		t.Errorf("readyz body = %+v", body)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, _ := ts.do(http.MethodGet, "/api/v1/accounts", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if !strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_") {
		t.Errorf("X-Request-ID = %q", rec.Header().Get("X-Request-ID"))
	}

	rec, res := ts.do(http.MethodGet, "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound || res.Error == "" {
		t.Errorf("unknown route: %d %+v", rec.Code, res)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	var acct accountJSON
	ts.expect(http.MethodPost, "/api/v1/accounts", `{"name":"  Cash  "}`, http.StatusCreated, &acct)
	if acct.Name != "Cash" || acct.Balance.Cents != 0 {
		t.Errorf("created account = %+v", acct)
	}
	ts.expect(http.MethodGet, "/api/v1/accounts/"+itoa(acct.ID), "", http.StatusOK, nil)
	ts.expect(http.MethodGet, "/api/v1/accounts/999", "", http.StatusNotFound, nil)
	ts.expect(http.MethodGet, "/api/v1/accounts/abc", "", http.StatusBadRequest, nil)
	ts.expect(http.MethodPost, "/api/v1/accounts", `{"name":""}`, http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodPost, "/api/v1/accounts", `{"name":"x","extra":1}`, http.StatusBadRequest, nil)
	ts.expect(http.MethodPost, "/api/v1/accounts", `{`, http.StatusBadRequest, nil)

	checking := ts.idOf("/api/v1/accounts", "Checking")
	groceries := ts.idOf("/api/v1/categories", "Groceries")
	salary := ts.idOf("/api/v1/categories", "Salary")
	recurring := ts.idOf("/api/v1/tags", "recurring")

	var tx transactionJSON
	ts.expect(http.MethodPost, "/api/v1/transactions",
		`{"accountId":`+itoa(checking)+`,"categoryId":`+itoa(groceries)+`,"amount":"42.50","date":1736942400000,"tagIds":[`+itoa(recurring)+`]}`,
		http.StatusCreated, &tx)
	if tx.Amount.Cents != -4250 || tx.Amount.Formatted != "-$42.50" {
		t.Errorf("expense amount = %+v, want -4250", tx.Amount)
	}
	ts.expect(http.MethodPost, "/api/v1/transactions",
		`{"accountId":`+itoa(checking)+`,"categoryId":`+itoa(salary)+`,"amount":1000,"date":1738368000000}`,
		http.StatusCreated, nil)
	ts.expect(http.MethodPost, "/api/v1/transactions",
		`{"accountId":`+itoa(checking)+`,"categoryId":999,"amount":"1","date":1738368000000}`,
		http.StatusUnprocessableEntity, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 2},
		{"by category", "?categoryId=" + itoa(groceries), 1},
		{"by tag", "?tagId=" + itoa(recurring), 1},
		{"by range", "?start=1738000000000", 1},
		{"closed range", "?start=1736000000000&end=1737000000000", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list []transactionJSON
			ts.expect(http.MethodGet, "/api/v1/transactions"+tt.query, "", http.StatusOK, &list)
			if len(list) != tt.want {
				t.Errorf("got %d transactions, want %d", len(list), tt.want)
			}
		})
	}
	ts.expect(http.MethodGet, "/api/v1/transactions?start=5&end=1", "", http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodGet, "/api/v1/transactions?categoryId=x", "", http.StatusBadRequest, nil)

	ts.expect(http.MethodDelete, "/api/v1/tags/"+itoa(recurring), "", http.StatusNoContent, nil)
	ts.expect(http.MethodDelete, "/api/v1/tags/"+itoa(recurring), "", http.StatusNotFound, nil)
}

func TestImportAndExport(t *testing.T) {
	exporter := sheetsmem.New("")
	ts := newTestServer(t, func(d *Deps) { d.Exporter = exporter })

	csv := "date,account,category,amount,tags\n" +
		"2025-01-15,Checking,Groceries,42.50,\n" +
		"2025-01-16,Nowhere,Groceries,10,\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Data services.ImportResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Data.Created != 1 || res.Data.Failed != 1 || len(res.Data.Errors) != 1 {
		t.Errorf("import result = %+v", res.Data)
	}

	ts.expect(http.MethodPost, "/api/v1/transactions/import", "date,account\n", http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodPost, "/api/v1/transactions/import?createTags=maybe", csv, http.StatusBadRequest, nil)

	rec, _ = ts.do(http.MethodGet, "/api/v1/transactions/export", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "transactions-20250315.csv") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if lines := strings.Count(strings.TrimSpace(rec.Body.String()), "\n"); lines != 1 {
		t.Errorf("export has %d data lines, want 1:\n%s", lines, rec.Body.String())
	}

	var sheet services.SheetExport
	ts.expect(http.MethodPost, "/api/v1/transactions/export/sheets", "", http.StatusOK, &sheet)
	if sheet.Rows != 1 || len(exporter.Records()) != 2 {
		t.Errorf("sheet export = %+v, records %d", sheet, len(exporter.Records()))
	}

	disabled := newTestServer(t, nil)
	disabled.expect(http.MethodPost, "/api/v1/transactions/export/sheets", "", http.StatusServiceUnavailable, nil)
}

func TestBudgetEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	checking := ts.idOf("/api/v1/accounts", "Checking")
	groceries := ts.idOf("/api/v1/categories", "Groceries")
	salary := ts.idOf("/api/v1/categories", "Salary")

	ts.expect(http.MethodPost, "/api/v1/transactions",
		`{"accountId":`+itoa(checking)+`,"categoryId":`+itoa(groceries)+`,"amount":"50","date":1741600000000}`,
		http.StatusCreated, nil)

	var b budgetJSON
	ts.expect(http.MethodPut, "/api/v1/budgets/month/2025-03",
		`{"limits":[{"categoryId":`+itoa(groceries)+`,"limit":"200"}]}`, http.StatusOK, &b)
	if b.Month != "2025-03" || b.Total.Cents != 20000 {
		t.Errorf("budget = %+v", b)
	}

	var view budgetViewJSON
	ts.expect(http.MethodGet, "/api/v1/budgets/status", "", http.StatusOK, &view)
	if view.Status.BudgetID != b.ID || view.Status.TotalSpent.Cents != 5000 {
		t.Errorf("status = %+v", view.Status)
	}

	ts.expect(http.MethodPut, "/api/v1/budgets/month/202503",
		`{"limits":[{"categoryId":`+itoa(salary)+`,"limit":"10"}]}`, http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodPut, "/api/v1/budgets/month/202513", `{"limits":[]}`, http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodGet, "/api/v1/budgets/status?month=nope", "", http.StatusUnprocessableEntity, nil)

	var list []budgetJSON
	ts.expect(http.MethodGet, "/api/v1/budgets", "", http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("budgets = %d, want 1", len(list))
	}
	ts.expect(http.MethodGet, "/api/v1/budgets/"+itoa(b.ID), "", http.StatusOK, nil)
	ts.expect(http.MethodDelete, "/api/v1/budgets/"+itoa(b.ID), "", http.StatusNoContent, nil)
	ts.expect(http.MethodGet, "/api/v1/budgets/"+itoa(b.ID), "", http.StatusNotFound, nil)
}

func TestReportAndDashboardEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	checking := ts.idOf("/api/v1/accounts", "Checking")
	groceries := ts.idOf("/api/v1/categories", "Groceries")
	rent := ts.idOf("/api/v1/categories", "Rent")
	for _, body := range []string{
		`{"accountId":` + itoa(checking) + `,"categoryId":` + itoa(groceries) + `,"amount":"25","date":1736942400000}`,
		`{"accountId":` + itoa(checking) + `,"categoryId":` + itoa(rent) + `,"amount":"75","date":1736942400000}`,
	} {
		ts.expect(http.MethodPost, "/api/v1/transactions", body, http.StatusCreated, nil)
	}

	var rep reportJSON
	ts.expect(http.MethodPost, "/api/v1/reports",
		`{"name":"January","type":"categoryBreakdown","start":1735689600000,"end":1738367999999,"filters":{"categoryId":`+itoa(rent)+`}}`,
		http.StatusCreated, &rep)

	var res reportResultJSON
	ts.expect(http.MethodGet, "/api/v1/reports/"+itoa(rep.ID)+"/results", "", http.StatusOK, &res)
	if res.TransactionCount != 1 || len(res.Breakdown) != 1 || res.Breakdown[0].Total.Cents != 7500 {
		t.Errorf("results = %+v", res)
	}

	ts.expect(http.MethodPut, "/api/v1/reports/"+itoa(rep.ID),
		`{"name":"All January","type":"incomeVsExpenses","start":1735689600000,"end":1738367999999}`, http.StatusOK, &rep)
	if rep.Name != "All January" || string(rep.Filters) != "{}" {
		t.Errorf("updated report = %+v", rep)
	}
	ts.expect(http.MethodPost, "/api/v1/reports", `{"name":"x","type":"pie","start":1,"end":2}`, http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodGet, "/api/v1/reports/999/results", "", http.StatusNotFound, nil)

	var dash dashboardJSON
	ts.expect(http.MethodGet, "/api/v1/dashboard", "", http.StatusOK, &dash)
	if dash.Stats.Expense.Cents != 10000 || dash.TransactionCount != 2 || len(dash.TopCategories) != 2 {
		t.Errorf("dashboard = %+v", dash)
	}
	ts.expect(http.MethodGet, "/api/v1/dashboard?start=10&end=5", "", http.StatusUnprocessableEntity, nil)

	ts.expect(http.MethodDelete, "/api/v1/reports/"+itoa(rep.ID), "", http.StatusNoContent, nil)
}

func TestInvoiceEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	var inv invoiceJSON
	ts.expect(http.MethodPost, "/api/v1/invoices",
		`{"customerName":"ACME","issueDate":1740787200000,"dueDate":1741392000000,"status":"Sent","items":[{"name":"Work","quantity":2,"unitPrice":"50"}]}`,
		http.StatusCreated, &inv)
	if inv.Total.Cents != 11000 || inv.Number == "" {
		t.Errorf("invoice = %+v", inv)
	}
	// Due before testNow, so reading it marks it overdue.
	ts.expect(http.MethodGet, "/api/v1/invoices/"+itoa(inv.ID), "", http.StatusOK, &inv)
	if inv.Status != "Overdue" {
		t.Errorf("status = %q, want Overdue", inv.Status)
	}

	var list []invoiceJSON
	ts.expect(http.MethodGet, "/api/v1/invoices?status=Overdue", "", http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("overdue invoices = %d, want 1", len(list))
	}
	ts.expect(http.MethodGet, "/api/v1/invoices?status=Lost", "", http.StatusBadRequest, nil)
	ts.expect(http.MethodPost, "/api/v1/invoices",
		`{"customerName":"ACME","issueDate":1,"dueDate":2,"status":"Lost","items":[{"name":"x","quantity":1,"unitPrice":"1"}]}`,
		http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodPost, "/api/v1/invoices", `{"customerName":"ACME","issueDate":1,"dueDate":2}`, http.StatusUnprocessableEntity, nil)

	ts.expect(http.MethodDelete, "/api/v1/invoices/"+itoa(inv.ID), "", http.StatusNoContent, nil)
	ts.expect(http.MethodGet, "/api/v1/invoices/"+itoa(inv.ID), "", http.StatusNotFound, nil)
}

type queue struct{ n int }

func (q *queue) PublishBankSync(context.Context, int64, int) (string, error) {
	q.n++
	return "msg", nil
}

func TestBankConnectionEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	var c bankConnectionJSON
	ts.expect(http.MethodPost, "/api/v1/bank-connections", `{"name":"Main bank"}`, http.StatusCreated, &c)
	if c.Status.Kind != "idle" || c.ConnectionType == "" {
		t.Errorf("created = %+v", c)
	}
	ts.expect(http.MethodPost, "/api/v1/bank-connections/"+itoa(c.ID)+"/sync", "", http.StatusOK, &c)
	if c.Status.Kind != "lastSynced" || c.LastSyncAgo != "now" {
		t.Errorf("after inline sync = %+v", c)
	}
	ts.expect(http.MethodPost, "/api/v1/bank-connections", `{"name":""}`, http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodPost, "/api/v1/bank-connections/999/sync", "", http.StatusNotFound, nil)

	q := &queue{}
	queued := newTestServer(t, func(d *Deps) {
		d.Bank = services.NewBankService(d.Backend, services.WithPublisher(q), services.WithBankClock(d.Now))
	})
	queued.expect(http.MethodPost, "/api/v1/bank-connections", `{"name":"Main bank"}`, http.StatusCreated, &c)
	queued.expect(http.MethodPost, "/api/v1/bank-connections/"+itoa(c.ID)+"/sync", "", http.StatusAccepted, &c)
	if c.Status.Kind != "inProgress" || q.n != 1 {
		t.Errorf("queued sync = %+v, published %d", c, q.n)
	}
	queued.expect(http.MethodPost, "/api/v1/bank-connections/"+itoa(c.ID)+"/sync", "", http.StatusConflict, nil)

	queued.expect(http.MethodDelete, "/api/v1/bank-connections/"+itoa(c.ID), "", http.StatusNoContent, nil)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	var s settingsJSON
	ts.expect(http.MethodGet, "/api/v1/settings", "", http.StatusOK, &s)
	if s.Currency != "USD" {
		t.Errorf("currency = %q", s.Currency)
	}
	ts.expect(http.MethodPut, "/api/v1/settings", `{"currency":"eur"}`, http.StatusOK, &s)
	if s.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", s.Currency)
	}
	ts.expect(http.MethodPut, "/api/v1/settings", `{"currency":"XYZ1"}`, http.StatusUnprocessableEntity, nil)
	ts.expect(http.MethodPut, "/api/v1/settings", `{"currency":""}`, http.StatusUnprocessableEntity, nil)
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.RateLimitPerMinute = 1 })
	ts.expect(http.MethodPost, "/api/v1/tags", `{"name":"a"}`, http.StatusCreated, nil)
	ts.expect(http.MethodGet, "/api/v1/tags", "", http.StatusOK, nil)
	res := ts.expect(http.MethodPost, "/api/v1/tags", `{"name":"b"}`, http.StatusTooManyRequests, nil)
	if res.Error == "" {
		t.Error("429 should carry a JSON error")
	}
}
