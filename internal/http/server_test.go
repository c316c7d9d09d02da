package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsight/internal/advisor"
	"spendsight/internal/core"
	"spendsight/internal/log"
	"spendsight/internal/session"
)

type fakeAdviser struct {
	configured bool
	text       string
	err        error
	calls      int
	got        []core.Record
}

func (f *fakeAdviser) Configured() bool { return f.configured }

func (f *fakeAdviser) Advise(_ context.Context, records []core.Record) (string, error) {
	f.calls++
	f.got = records
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestServer(t *testing.T, adviser Adviser) *Server {
	t.Helper()
	logger := log.New(log.DefaultConfig())
	sessions := session.NewManager(100, time.Minute)
	srv := NewServer(":0", sessions, adviser, logger, Options{RequestsPerMinute: 1000})
	require.NotNil(t, srv.templates, "embedded templates must parse")
	return srv
}

// do runs a request through the full middleware chain, carrying the session
// cookie between calls.
func do(srv *Server, method, target, cookie string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(rr *httptest.ResponseRecorder) string {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c.Name + "=" + c.Value
		}
	}
	return ""
}

func expenseForm(date, amount, category, description string) url.Values {
	return url.Values{
		"date":        {date},
		"amount":      {amount},
		"category":    {category},
		"description": {description},
	}
}

func TestIndexServesPageAndStartsSession(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{configured: true})

	rr := do(srv, http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Add Expense")
	assert.NotEmpty(t, sessionCookie(rr), "index must start a session")
}

func TestIndexWarnsWhenAdviceDisabled(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{configured: false})

	rr := do(srv, http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ANTHROPIC_API_KEY")
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodGet, "/expenses", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "abc", "Food", "x"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "-5", "Food", "x"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(srv, http.MethodPost, "/expenses", "", expenseForm("01/08/2026", "5", "Food", "x"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCreateExpenseSuccessAndDashboard(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "12.34", "Food", "groceries"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "success")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "expense:created")

	cookie := sessionCookie(rr)
	require.NotEmpty(t, cookie)

	rr = do(srv, http.MethodGet, "/ui/dashboard", cookie, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "2026-08-01")
	assert.Contains(t, body, "$12.34")
	assert.Contains(t, body, "Food")
	assert.Contains(t, body, "groceries")
}

func TestDashboardEmptyLedger(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodGet, "/ui/dashboard", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses yet")
}

func TestSessionsSeeOnlyTheirOwnLedger(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "10", "Food", "a"))
	first := sessionCookie(rr)
	require.NotEmpty(t, first)

	// A request with no cookie starts a second session.
	rr = do(srv, http.MethodGet, "/ui/dashboard", "", nil)
	assert.Contains(t, rr.Body.String(), "No expenses yet")

	rr = do(srv, http.MethodGet, "/ui/dashboard", first, nil)
	assert.Contains(t, rr.Body.String(), "Food")
}

func TestDashboardEscapesUserInput(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "10", "<script>alert(1)</script>", "x"))
	cookie := sessionCookie(rr)

	rr = do(srv, http.MethodGet, "/ui/dashboard", cookie, nil)
	assert.NotContains(t, rr.Body.String(), "<script>alert(1)</script>")
}

func TestAdviceWarnsWithoutCredential(t *testing.T) {
	fake := &fakeAdviser{configured: false}
	srv := newTestServer(t, fake)

	rr := do(srv, http.MethodPost, "/advice", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "warning")
	assert.Equal(t, 0, fake.calls, "unconfigured advisor must not be invoked")
}

func TestAdviceWithEmptyLedger(t *testing.T) {
	fake := &fakeAdviser{configured: true, text: "advice"}
	srv := newTestServer(t, fake)

	rr := do(srv, http.MethodPost, "/advice", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses to analyze")
	assert.Equal(t, 0, fake.calls)
}

func TestAdviceRendersCompletion(t *testing.T) {
	fake := &fakeAdviser{configured: true, text: "Spend less on coffee."}
	srv := newTestServer(t, fake)

	rr := do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "10", "Coffee", "latte"))
	cookie := sessionCookie(rr)

	rr = do(srv, http.MethodPost, "/advice", cookie, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Spend less on coffee.")
	assert.Equal(t, 1, fake.calls)
	require.Len(t, fake.got, 1)
	assert.Equal(t, "Coffee", fake.got[0].Category)
}

func TestAdviceFailureLeavesLedgerIntact(t *testing.T) {
	fake := &fakeAdviser{configured: true, err: &advisor.RequestError{Err: context.DeadlineExceeded}}
	srv := newTestServer(t, fake)

	rr := do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "10", "Food", "x"))
	cookie := sessionCookie(rr)

	rr = do(srv, http.MethodPost, "/advice", cookie, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")

	// The ledger is untouched by the failed request.
	rr = do(srv, http.MethodGet, "/ui/dashboard", cookie, nil)
	assert.Contains(t, rr.Body.String(), "Food")
	assert.Equal(t, 1, fake.calls)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodPost, "/expenses", "", expenseForm("2026-08-01", "12.34", "Food", "groceries"))
	cookie := sessionCookie(rr)
	do(srv, http.MethodPost, "/expenses", cookie, expenseForm("2026-08-02", "5", "Transport", "bus"))

	rr = do(srv, http.MethodGet, "/export.csv", cookie, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Amount,Category,Description", lines[0])
	assert.Contains(t, lines[1], "2026-08-01,12.34,Food,groceries")
	assert.Contains(t, lines[2], "2026-08-02,5.00,Transport,bus")
}

func TestOpsEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{configured: true})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := do(srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "expenses_total")
	assert.Contains(t, rr.Body.String(), "active_sessions")
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, &fakeAdviser{})

	rr := do(srv, http.MethodGet, "/", "", nil)

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}
