// Package http serves the dashboard: form intake, table and chart partials,
// and the advice action. All domain state lives in the session ledgers; the
// handlers are glue over the core aggregation functions and the advisor.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendsight/internal/core"
	"spendsight/internal/log"
	"spendsight/internal/middleware/ratelimit"
	"spendsight/internal/middleware/security"
	"spendsight/internal/middleware/trace"
	"spendsight/internal/session"
	appweb "spendsight/web"
)

// Adviser is the outbound port to the completion service.
type Adviser interface {
	Configured() bool
	Advise(ctx context.Context, records []core.Record) (string, error)
}

type appMetrics struct {
	startedAt       time.Time
	expensesCreated int64
	adviceRequests  int64
	adviceFailures  int64
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Manager
	adviser   Adviser
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	logger    *log.Logger

	metrics      appMetrics
	shutdownOnce sync.Once
}

// Options tunes the server beyond its collaborators.
type Options struct {
	RequestsPerMinute int
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, sessions *session.Manager, adviser Adviser, logger *log.Logger, opts Options) *Server {
	r := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: r,
		},
		sessions: sessions,
		adviser:  adviser,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		tracer:  trace.NewMiddleware(extractClientIP),
		logger:  logger.WithComponent(log.ComponentHTTP),
		metrics: appMetrics{startedAt: time.Now()},
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	r.Use(s.tracer.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.limiter.Middleware(extractClientIP))

	// Static assets (served from embedded FS).
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, req)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/expenses", s.handleCreateExpense).Methods("POST")
	r.HandleFunc("/ui/dashboard", s.handleDashboard).Methods("GET")
	r.HandleFunc("/advice", s.handleAdvice).Methods("POST")
	r.HandleFunc("/export.csv", s.handleExportCSV).Methods("GET")

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/readyz", s.handleReady).Methods("GET")
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	return s
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
