// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it opens the stores, builds services
// and handlers, decides which URL patterns map to which handler, which
// middleware runs where, and how the process stops gracefully.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New()
//	  sqlite.DB (+ optional Redis revocation store)
//	  → services (auth, workouts, catalog, payments, reminders, gestures)
//	  → handlers
//	  → chi routes
//
// All dependencies are wired in one place (New/setupRoutes), rather than
// scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/sakif/fitplan/internal/auth"
	"github.com/sakif/fitplan/internal/config"
	"github.com/sakif/fitplan/internal/entitlement"
	"github.com/sakif/fitplan/internal/handler"
	"github.com/sakif/fitplan/internal/middleware"
	"github.com/sakif/fitplan/internal/payment"
	"github.com/sakif/fitplan/internal/repository"
	redisRepo "github.com/sakif/fitplan/internal/repository/redis"
	sqliteRepo "github.com/sakif/fitplan/internal/repository/sqlite"
	"github.com/sakif/fitplan/internal/service"
)

const (
	// revocationPurgeSchedule removes expired sqlite revocations.
	revocationPurgeSchedule = "@every 1h"
	// limiterCleanupSchedule forgets idle rate-limiter buckets.
	limiterCleanupSchedule = "@every 10m"
	limiterMaxIdle         = 30 * time.Minute
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool, the optional Redis client and the cron
// scheduler. Close releases all of them; Start calls it on shutdown.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	redis   *redisRepo.RevocationStore // nil unless redis.addr is configured
	revoked repository.RevocationStore
	limiter *middleware.RateLimiter
	cron    *cron.Cron
}

// New opens the stores and wires every route. Nothing is listening yet.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger,
		db:      db,
		revoked: db.Revocations(),
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, logger),
		cron:    cron.New(),
	}

	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err := redisRepo.NewRevocationStore(ctx, cfg.Redis.Addr)
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.redis = store
		s.revoked = store
		logger.Info("using redis revocation store", slog.String("addr", cfg.Redis.Addr))
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	if err := s.scheduleJobs(); err != nil {
		s.Close()
		return nil, fmt.Errorf("scheduling jobs: %w", err)
	}

	return s, nil
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique id to each request (for tracing)
//  2. RealIP: extracts the client IP from proxy headers (rate limiting uses it)
//  3. Recoverer: turns panics into 500s instead of crashing
//  4. Logger: one structured line per request
//  5. Metrics: latency histogram by route pattern
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)

	tokens, err := auth.NewTokenService(s.cfg.Auth.JWTSecret, s.cfg.TokenTTL())
	if err != nil {
		return err
	}

	// === Services ===
	gate := entitlement.NewGate(s.db.Payments(), s.logger)
	gateway := payment.NewClient(payment.Config{
		SecretKey: s.cfg.Payments.PaystackSecretKey,
		BaseURL:   s.cfg.Payments.BaseURL,
	})
	if !gateway.Configured() {
		s.logger.Warn("PAYSTACK_SECRET_KEY not set; payment endpoints will answer 503")
	}

	authService := service.NewAuthService(s.db.Users(), tokens, auth.NewPasswordService(), s.revoked, s.logger)
	workoutService := service.NewWorkoutService(s.db.Workouts(), s.db.Catalog(), gate, s.logger)
	catalogService := service.NewCatalogService(s.db.Catalog(), s.logger)
	paymentService := service.NewPaymentService(s.db.Payments(), s.db.Users(), gateway, s.logger)
	reminderService := service.NewReminderService(s.db.Reminders(), s.logger)
	gestureService := service.NewGestureService(s.db.Users(), s.logger)

	// === Handlers ===
	var github handler.GitHubExchanger
	if s.cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHub.ClientID, s.cfg.GitHub.ClientSecret, s.cfg.GitHub.CallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.cfg.TokenTTL(), s.logger)
	workoutHandler := handler.NewWorkoutHandler(workoutService, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, workoutService, s.logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, s.logger)
	accountHandler := handler.NewAccountHandler(reminderService, gestureService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.revoked, s.logger)

	// === Operational routes ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === OAuth (browser redirects, not JSON) ===
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Warn("GitHub OAuth not configured; /auth/github routes are disabled")
	}

	// === API routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Post("/auth/register", authHandler.HandleRegister)
			r.Post("/auth/login", authHandler.HandleLogin)
		})

		r.Get("/catalog", catalogHandler.HandleList)
		r.Get("/catalog/{id}", catalogHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/auth/me", authHandler.HandleMe)

			r.Post("/catalog/adopt", catalogHandler.HandleAdoptMany)
			r.Post("/catalog/{id}/adopt", catalogHandler.HandleAdopt)

			r.Get("/workouts", workoutHandler.HandleList)
			r.Post("/workouts", workoutHandler.HandleCreate)
			r.Put("/workouts/{id}", workoutHandler.HandleUpdate)
			r.Delete("/workouts/{ids}", workoutHandler.HandleDelete)
			r.Patch("/checklist/items/{id}", workoutHandler.HandleToggleChecklistItem)

			r.Get("/reminders", accountHandler.HandleListReminders)
			r.Post("/reminders", accountHandler.HandleCreateReminder)
			r.Put("/reminders/{id}", accountHandler.HandleUpdateReminder)
			r.Delete("/reminders/{id}", accountHandler.HandleDeleteReminder)
			r.Get("/gestures", accountHandler.HandleListGestures)
			r.Put("/gestures", accountHandler.HandleReplaceGestures)

			r.Get("/payments", paymentHandler.HandleList)
			r.Post("/payments/initiate", paymentHandler.HandleInitiate)
			r.Get("/payments/verify/{reference}", paymentHandler.HandleVerify)
		})
	})

	return nil
}

// handleHealth reports whether the database answers.
//
// HTTP: GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// scheduleJobs registers the periodic housekeeping. The scheduler starts
// with Start.
func (s *Server) scheduleJobs() error {
	if purger, ok := s.revoked.(repository.Purger); ok {
		if _, err := s.cron.AddFunc(revocationPurgeSchedule, func() {
			s.purgeRevocations(purger)
		}); err != nil {
			return err
		}
	}

	_, err := s.cron.AddFunc(limiterCleanupSchedule, func() {
		if n := s.limiter.Cleanup(limiterMaxIdle); n > 0 {
			s.logger.Debug("rate limiter cleanup", slog.Int("removed", n))
		}
	})
	return err
}

func (s *Server) purgeRevocations(purger repository.Purger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := purger.PurgeExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("revocation purge failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("purged expired revocations", slog.Int64("count", n))
	}
}

// Start serves HTTP until SIGINT/SIGTERM and then shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (up to the configured timeout)
//  3. Stop the cron scheduler and close the stores
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	s.cron.Start()
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port)),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops background jobs and releases the stores. It is safe to call
// on a server that never started.
func (s *Server) Close() error {
	<-s.cron.Stop().Done()

	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
