package http

import (
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"spendsight/internal/advisor"
	"spendsight/internal/core"
	"spendsight/internal/ledger"
	"spendsight/internal/log"
	"spendsight/internal/session"
)

// sessionLedger resolves the caller's session ledger, starting a new session
// (and setting its cookie) when none exists yet.
func (s *Server) sessionLedger(w http.ResponseWriter, r *http.Request) *ledger.Ledger {
	var id string
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		id = c.Value
	} else {
		id = s.sessions.NewID()
		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s.sessions.Ledger(id)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	// Touch the session so the cookie exists before the first partial load.
	s.sessionLedger(w, r)

	data := struct {
		Today         string
		AdviceEnabled bool
	}{
		Today:         time.Now().UTC().Format("2006-01-02"),
		AdviceEnabled: s.adviser.Configured(),
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", log.FieldError, err, log.FieldPath, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	dateStr := strings.TrimSpace(r.Form.Get("date"))
	now := time.Now().UTC()
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if dateStr != "" {
		var err error
		if date, err = core.ParseDate(dateStr); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`<div class="error">Invalid date</div>`))
			return
		}
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid amount</div>`))
		return
	}

	rec := core.Record{
		Date:        date,
		Amount:      amount,
		Category:    sanitizeInput(r.Form.Get("category")),
		Description: sanitizeInput(r.Form.Get("description")),
	}
	if err := rec.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	s.sessionLedger(w, r).Append(rec)
	atomic.AddInt64(&s.metrics.expensesCreated, 1)

	s.logger.InfoContext(r.Context(), "Expense recorded",
		log.FieldDate, rec.Date.ISO(),
		log.FieldAmountCents, rec.Amount.Cents,
		log.FieldCategory, rec.Category)

	w.Header().Set("HX-Trigger", `{"expense:created": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Expense added: ` +
		template.HTMLEscapeString(rec.Description) +
		` — ` + template.HTMLEscapeString(rec.Amount.String()) +
		` (` + template.HTMLEscapeString(rec.Category) + `)</div>`))
}

// chartPalette cycles through the pie/bar colors.
var chartPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

type dashboardView struct {
	Total string
	Items []struct {
		Date, Amount, Category, Description string
	}
	Bars []struct {
		Category, Amount string
		Width            int
		Color            string
	}
	PieStyle template.CSS
	Legend   []struct {
		Category, Amount string
		Percent          string
		Color            string
	}
	Trend []struct {
		Date, Amount string
		Height       int
	}
}

// handleDashboard renders the table, chart and trend partial from a fresh
// aggregation of the session ledger. Nothing is cached: every render
// recomputes from the snapshot.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	records := s.sessionLedger(w, r).Snapshot()
	if len(records) == 0 {
		_, _ = w.Write([]byte(`<section id="dashboard" class="dashboard"><div class="placeholder">No expenses yet. Add your first one above!</div></section>`))
		return
	}
	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="dashboard" class="dashboard"><div class="placeholder">Total: ` + core.Total(records).String() + `</div></section>`))
		return
	}

	data := buildDashboardView(records)
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed", log.FieldError, err)
		_, _ = w.Write([]byte(`<section id="dashboard" class="dashboard"><div class="placeholder">Error rendering dashboard</div></section>`))
	}
}

func buildDashboardView(records []core.Record) dashboardView {
	total := core.Total(records)
	view := dashboardView{Total: total.String()}

	for _, rec := range records {
		view.Items = append(view.Items, struct {
			Date, Amount, Category, Description string
		}{rec.Date.ISO(), rec.Amount.String(), rec.Category, rec.Description})
	}

	rows := core.CategoryTotals(core.SumByCategory(records))
	var maxCents int64
	for _, row := range rows {
		if row.Total.Cents > maxCents {
			maxCents = row.Total.Cents
		}
	}

	var pie []string
	var cum float64
	for i, row := range rows {
		color := chartPalette[i%len(chartPalette)]

		width := 0
		if maxCents > 0 && row.Total.Cents > 0 {
			width = int((row.Total.Cents*100 + maxCents/2) / maxCents) // rounded percent
			if width > 0 && width < 2 {                               // ensure visibility for very small values
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		view.Bars = append(view.Bars, struct {
			Category, Amount string
			Width            int
			Color            string
		}{row.Category, row.Total.String(), width, color})

		share := 0.0
		if total.Cents > 0 {
			share = float64(row.Total.Cents) / float64(total.Cents) * 100
		}
		pie = append(pie, fmt.Sprintf("%s %.2f%% %.2f%%", color, cum, cum+share))
		cum += share
		view.Legend = append(view.Legend, struct {
			Category, Amount string
			Percent          string
			Color            string
		}{row.Category, row.Total.String(), fmt.Sprintf("%.1f%%", share), color})
	}
	view.PieStyle = template.CSS("background: conic-gradient(" + strings.Join(pie, ", ") + ")")

	trend := core.SumByDate(records)
	var maxDay int64
	for _, p := range trend {
		if p.Total.Cents > maxDay {
			maxDay = p.Total.Cents
		}
	}
	for _, p := range trend {
		height := 0
		if maxDay > 0 {
			height = int((p.Total.Cents*100 + maxDay/2) / maxDay)
			if height < 4 {
				height = 4
			}
		}
		view.Trend = append(view.Trend, struct {
			Date, Amount string
			Height       int
		}{p.Date.ISO(), p.Total.String(), height})
	}

	return view
}

// handleAdvice runs the single blocking advice request for the session's
// current ledger and renders the outcome inline. Ledger state is never
// touched here, whatever the outcome.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if !s.adviser.Configured() {
		// Missing credential is a warning, not a failure: the rest of the
		// dashboard stays usable.
		_, _ = w.Write([]byte(`<div class="warning">Set the ANTHROPIC_API_KEY environment variable to enable AI insights.</div>`))
		return
	}

	records := s.sessionLedger(w, r).Snapshot()
	if len(records) == 0 {
		_, _ = w.Write([]byte(`<div class="placeholder">No expenses to analyze yet.</div>`))
		return
	}

	atomic.AddInt64(&s.metrics.adviceRequests, 1)
	advice, err := s.adviser.Advise(r.Context(), records)
	if err != nil {
		atomic.AddInt64(&s.metrics.adviceFailures, 1)
		s.logger.ErrorContext(r.Context(), "Advice request failed",
			log.FieldError, err,
			log.FieldRecordCount, len(records))

		var reqErr *advisor.RequestError
		if errors.As(err, &reqErr) {
			_, _ = w.Write([]byte(`<div class="error">Advice request failed: ` + template.HTMLEscapeString(reqErr.Err.Error()) + `</div>`))
			return
		}
		_, _ = w.Write([]byte(`<div class="error">Advice unavailable: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	s.logger.InfoContext(r.Context(), "Advice received", log.FieldRecordCount, len(records))
	_, _ = w.Write([]byte(`<div class="advice"><h3>AI Recommendations</h3><pre>` + template.HTMLEscapeString(advice) + `</pre></div>`))
}

// handleExportCSV streams the session ledger as CSV in insertion order.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	records := s.sessionLedger(w, r).Snapshot()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Date", "Amount", "Category", "Description"})
	for _, rec := range records {
		_ = cw.Write([]string{rec.Date.ISO(), rec.Amount.Decimal(), rec.Category, rec.Description})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", log.FieldError, err)
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
