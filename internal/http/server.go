// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/middleware/security"
	"finledger/internal/services"
)

// Options configures NewServer. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	// DueHorizon is the default window of GET /api/dues.
	DueHorizon time.Duration
	Logger     *applog.Logger
	Clock      func() time.Time
}

// Server serves the ledger API.
type Server struct {
	http.Server

	svc        *services.LedgerService
	logger     *applog.Logger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	now        func() time.Time
	dueHorizon time.Duration
}

func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.DueHorizon <= 0 {
		opts.DueHorizon = 7 * 24 * time.Hour
	}

	s := &Server{
		svc:        svc,
		logger:     opts.Logger,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:   security.NewDetector(),
		now:        opts.Clock,
		dueHorizon: opts.DueHorizon,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.logger.WithComponent(applog.ComponentHTTP).Slog()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ClientIP, s.handleRateLimited,
			http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete))

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleApplyTransaction)
		r.Delete("/transactions/{id}", s.handleReverseTransaction)

		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Patch("/projects/{id}", s.handleUpdateProject)
		r.Put("/projects/{id}/status", s.handleChangeStatus)
		r.Post("/projects/{id}/payments", s.handleRecordPayment)
		r.Delete("/projects/{id}", s.handleDeleteProject)

		r.Get("/partners", s.handleListPartners)
		r.Post("/partners", s.handleAddPartner)
		r.Get("/partners/balances", s.handlePartnerBalances)
		r.Delete("/partners/{id}", s.handleRemovePartner)
		r.Put("/partners/{id}/percentage", s.handleSetPercentage)
		r.Post("/partners/{id}/withdrawals", s.handleAddWithdrawal)

		r.Put("/config", s.handleSetConfig)
		r.Get("/stats", s.handleStats)
		r.Get("/reports", s.handleReport)
		r.Get("/dues", s.handleDues)
		r.Post("/reset", s.handleReset)
	})

	return r
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.svc.Version(),
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r))
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}
