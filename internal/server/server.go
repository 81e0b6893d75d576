// Package server is the composition root: it opens the database, builds
// every service and handler, wires the routes, and runs the HTTP server
// with graceful shutdown.
//
// Keeping the wiring out of main.go means tests can assemble a full server
// (or any slice of it) without running the binary, and main stays a thin
// config-reading shell.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/handler"
	"github.com/sakif/habitflow/internal/middleware"
	"github.com/sakif/habitflow/internal/reminder"
	sqliteRepo "github.com/sakif/habitflow/internal/repository/sqlite"
	"github.com/sakif/habitflow/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	// GitHub OAuth is optional; leaving the client ID empty disables the
	// /auth/github routes' backing provider.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router, the database connection, and the background
// scheduler. All three are released on shutdown.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	db        *sqliteRepo.DB
	scheduler *reminder.Scheduler
}

// New assembles the full dependency chain:
//
//	sqlite.DB → services → handlers → routes
//
// The single DB value implements every repository interface; each service
// receives it under the interface it needs, so none of them can reach past
// their own tables.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	// Global middleware, in execution order: request ID for tracing, real
	// client IP behind proxies, request logging, panic recovery.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	accountService := service.NewAccountService(s.db, passwords, tokens, s.logger)
	habitService := service.NewHabitService(s.db, s.db, s.logger)
	checkInService := service.NewCheckInService(s.db, s.db, s.db, s.db, s.logger)
	streakService := service.NewStreakService(s.db, s.db)
	analyticsService := service.NewAnalyticsService(s.db, s.db, s.db, s.logger)
	challengeService := service.NewChallengeService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(accountService, github, s.logger)
	habitHandler := handler.NewHabitHandler(habitService)
	checkInHandler := handler.NewCheckInHandler(checkInService)
	streakHandler := handler.NewStreakHandler(streakService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	challengeHandler := handler.NewChallengeHandler(challengeService)

	s.scheduler = reminder.NewScheduler(s.db, analyticsService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	// The OAuth browser flow lives outside /api — GitHub redirects here.
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authHandler.HandleMe)

			r.Route("/habits", func(r chi.Router) {
				r.Post("/", habitHandler.HandleCreate)
				r.Get("/", habitHandler.HandleList)
				r.Get("/meta/categories", habitHandler.HandleCategories)
				r.Get("/{id}", habitHandler.HandleGet)
				r.Put("/{id}", habitHandler.HandleUpdate)
				r.Delete("/{id}", habitHandler.HandleDelete)
			})

			r.Route("/checkins", func(r chi.Router) {
				r.Post("/", checkInHandler.HandleCreate)
				r.Get("/today", checkInHandler.HandleToday)
				r.Get("/range", checkInHandler.HandleRange)
				r.Get("/habit/{habitID}", checkInHandler.HandleListByHabit)
				r.Put("/{id}", checkInHandler.HandleUpdate)
				r.Delete("/{id}", checkInHandler.HandleDelete)
			})

			r.Route("/streaks", func(r chi.Router) {
				r.Get("/", streakHandler.HandleList)
				r.Get("/leaderboard/longest", streakHandler.HandleLeaderboard)
				r.Get("/active/current", streakHandler.HandleActive)
				r.Get("/stats/summary", streakHandler.HandleSummary)
				r.Get("/{habitID}", streakHandler.HandleGet)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/completion/{habitID}", analyticsHandler.HandleCompletionRate)
				r.Get("/weekly/{habitID}", analyticsHandler.HandleWeekly)
				r.Get("/monthly/{habitID}", analyticsHandler.HandleMonthly)
				r.Get("/dashboard/summary", analyticsHandler.HandleDashboard)
				r.Get("/insights/performance", analyticsHandler.HandleInsights)
				r.Get("/history/{habitID}", analyticsHandler.HandleHistory)
			})

			r.Route("/challenges", func(r chi.Router) {
				r.Post("/", challengeHandler.HandleCreate)
				r.Get("/", challengeHandler.HandleListActive)
				r.Get("/my-challenges", challengeHandler.HandleListMine)
				r.Get("/{id}", challengeHandler.HandleGet)
				r.Post("/{id}/join", challengeHandler.HandleJoin)
				r.Post("/{id}/update-scores", challengeHandler.HandleUpdateScores)
				r.Get("/{id}/leaderboard", challengeHandler.HandleLeaderboard)
				r.Post("/{id}/end", challengeHandler.HandleEnd)
			})
		})
	})

	return nil
}

// Router exposes the configured routes for handler-level tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server and the background scheduler until SIGINT or
// SIGTERM, then shuts down in order: stop accepting connections, drain
// in-flight requests (30s budget), stop the cron jobs, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer s.scheduler.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
