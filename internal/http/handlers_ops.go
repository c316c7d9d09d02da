package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).String(),
	})
}

// handleReady reports readiness. A missing advisor credential degrades the
// advice feature but does not make the app unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.adviser.Configured() {
		checks["advisor"] = "ok"
	} else {
		checks["advisor"] = "not_configured"
	}

	checks["sessions"] = map[string]any{
		"active": s.sessions.Active(),
		"status": "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes application counters in plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	expenses := atomic.LoadInt64(&s.metrics.expensesCreated)
	adviceReqs := atomic.LoadInt64(&s.metrics.adviceRequests)
	adviceFails := atomic.LoadInt64(&s.metrics.adviceFailures)
	uptime := time.Since(s.metrics.startedAt)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP expenses_total Total number of expenses recorded\n")
	fmt.Fprintf(w, "# TYPE expenses_total counter\n")
	fmt.Fprintf(w, "expenses_total %d\n\n", expenses)

	fmt.Fprintf(w, "# HELP advice_requests_total Total advice requests sent\n")
	fmt.Fprintf(w, "# TYPE advice_requests_total counter\n")
	fmt.Fprintf(w, "advice_requests_total %d\n\n", adviceReqs)

	fmt.Fprintf(w, "# HELP advice_failures_total Total failed advice requests\n")
	fmt.Fprintf(w, "# TYPE advice_failures_total counter\n")
	fmt.Fprintf(w, "advice_failures_total %d\n\n", adviceFails)

	fmt.Fprintf(w, "# HELP active_sessions Currently live sessions\n")
	fmt.Fprintf(w, "# TYPE active_sessions gauge\n")
	fmt.Fprintf(w, "active_sessions %d\n\n", s.sessions.Active())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limited requests\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", s.limiter.TotalHits())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
