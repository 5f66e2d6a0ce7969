// Package server exposes the settlement engine and wallet services over a
// chi-based REST API.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"dice-casino/internal/config"
	"dice-casino/internal/engine"
	"dice-casino/internal/service"
)

// Server wires the HTTP router to the engine and services.
type Server struct {
	httpServer *http.Server
	validate   *validator.Validate

	engine  *engine.Engine
	wallets *service.WalletService
	admin   *service.AdminService
	reports *service.ReportService

	adminToken string
}

// New creates the HTTP server and mounts all routes.
func New(
	cfg *config.ServerConfig,
	adminToken string,
	eng *engine.Engine,
	wallets *service.WalletService,
	admin *service.AdminService,
	reports *service.ReportService,
) *Server {
	s := &Server{
		validate:   validator.New(),
		engine:     eng,
		wallets:    wallets,
		admin:      admin,
		reports:    reports,
		adminToken: adminToken,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/players", s.handleEnsurePlayer)

		r.Route("/game", func(r chi.Router) {
			r.Post("/dicetable/bet", s.handleTableBet)
			r.Post("/duel/bet", s.handleDuelBet)
			r.Post("/rounds/{ticketID}/settle", s.handleSettle)
			r.Post("/rounds/{ticketID}/reset", s.handleReset)
		})

		r.Route("/wallet/{playerID}", func(r chi.Router) {
			r.Get("/", s.handleGetWallet)
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Get("/ledger", s.handleLedger)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/commission", s.handleGetCommission)
			r.Put("/commission", s.handleSetCommission)
			r.Post("/players/{playerID}/adjust", s.handleAdjust)
			r.Post("/players/{playerID}/block", s.handleBlock)
			r.Get("/report/daily", s.handleDailyReport)
			r.Get("/report/players", s.handlePlayerReport)
			r.Get("/report/players/{playerID}/ledger", s.handlePlayerLedgerReport)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// requireAdmin checks the shared admin token on admin routes.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
