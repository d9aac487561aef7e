// Package http exposes the JSON API: auth, entry and budget CRUD, the feed
// and the aggregation endpoints.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

func init() {
	// Monetary fields go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Server struct {
	http.Server

	entries *services.EntryService
	budgets *services.BudgetService
	engine  *report.Engine
	auth    *auth.Service

	rateLimiter  *rateLimiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// Deps carries everything the server needs; all fields are required except
// Logger.
type Deps struct {
	Entries *services.EntryService
	Budgets *services.BudgetService
	Engine  *report.Engine
	Auth    *auth.Service
	Logger  *log.Logger

	// RateLimitPerMinute caps mutating requests per client IP.
	RateLimitPerMinute int
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		entries:     deps.Entries,
		budgets:     deps.Budgets,
		engine:      deps.Engine,
		auth:        deps.Auth,
		rateLimiter: newRateLimiter(deps.RateLimitPerMinute),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.with(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.with(s.handleLogin))

	mux.HandleFunc("POST /api/finances/income", s.withAuth(s.handleCreateEntry(core.Income)))
	mux.HandleFunc("POST /api/finances/expenses", s.withAuth(s.handleCreateEntry(core.Expense)))
	mux.HandleFunc("PATCH /api/finances/income/{id}", s.withAuth(s.handleUpdateEntry(core.Income)))
	mux.HandleFunc("PATCH /api/finances/expenses/{id}", s.withAuth(s.handleUpdateEntry(core.Expense)))
	mux.HandleFunc("DELETE /api/finances/income/{id}", s.withAuth(s.handleDeleteEntry(core.Income)))
	mux.HandleFunc("DELETE /api/finances/expenses/{id}", s.withAuth(s.handleDeleteEntry(core.Expense)))
	mux.HandleFunc("GET /api/finances/entries", s.withAuth(s.handleFeed))

	mux.HandleFunc("GET /api/finances/budget", s.withAuth(s.handleBudgetOverview))
	mux.HandleFunc("POST /api/finances/budgets", s.withAuth(s.handleUpsertBudget))
	mux.HandleFunc("GET /api/finances/budgets", s.withAuth(s.handleListBudgets))
	mux.HandleFunc("PATCH /api/finances/budgets/{id}", s.withAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/finances/budgets/{id}", s.withAuth(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/finances/reports", s.withAuth(s.handleReport))

	return s
}

// Shutdown stops the rate limiter cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// with adds security headers, rate limiting on mutating methods, a request
// id and request logging.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := uuid.NewString()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, logger)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-Id", requestID)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// withAuth resolves the bearer token to an owner id before the handler runs.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.with(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}
		ownerID, err := s.auth.ParseToken(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(withOwner(r.Context(), ownerID)))
	})
}

type ctxKey string

const ownerKey ctxKey = "owner_id"

func withOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

func ownerFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ownerKey).(int64)
	return id
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
