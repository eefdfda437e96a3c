// Package server is the composition root: it opens the database, builds
// every service and handler, and mounts the routes.
//
// DEPENDENCY CHAIN:
//
//	config.Config → sqlite.DB → repositories
//	             → github.Client → github.Aggregator
//	             → services → handlers → chi router
//
// Each layer only receives the interfaces it needs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/deployhub/internal/auth"
	"github.com/sakif/deployhub/internal/config"
	"github.com/sakif/deployhub/internal/github"
	"github.com/sakif/deployhub/internal/handler"
	"github.com/sakif/deployhub/internal/middleware"
	"github.com/sakif/deployhub/internal/model"
	sqliteRepo "github.com/sakif/deployhub/internal/repository/sqlite"
	"github.com/sakif/deployhub/internal/service"
)

// Server owns the router and the database connection. Start closes the
// database on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
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

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the database.
func (s *Server) Close() error { return s.db.Close() }

// setupRoutes mounts:
//
//	GET  /healthz
//	/api/auth/github/...          OAuth and repository flows
//	/api/auth/me, /api/auth/logout
//	/api/{apps,plans,app-plans,organizer-repo}/[{id}]
//	POST /api/app-plans/{id}/assign-plan
//	GET  /api/apps/{id}/plans
//
// Trailing slashes are optional everywhere.
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("session tokens: %w", err)
	}
	sessions := auth.NewSessionManager(tokens, cfg.SessionTTL, strings.HasPrefix(cfg.HostURL, "https://"))

	sealer, err := auth.NewSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("token sealer: %w", err)
	}

	gh := github.NewClient(github.Config{
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		HostURL:           cfg.HostURL,
		TokenURL:          cfg.TokenURL,
		UserInfoURL:       cfg.UserInfoURL,
		UserReposURL:      cfg.UserRepoURL,
		Timeout:           cfg.UpstreamTimeout,
		RequestsPerSecond: cfg.UpstreamRPS,
	}, s.logger)
	aggregator := github.NewAggregator(gh, cfg.FanoutConcurrency, s.logger)

	users := service.NewUserDirectory(s.db.Users(), sealer, s.logger)
	githubAuth := service.NewGitHubAuth(gh, aggregator, users, s.logger)

	repoSvc := service.NewLinkedRepoService(s.db.LinkedRepos(), s.db.Users(), s.logger)
	appSvc := service.NewAppService(s.db.Apps(), s.db.LinkedRepos(), s.logger)
	planSvc := service.NewPlanService(s.db.Plans(), s.logger)
	appPlanSvc := service.NewAppPlanService(s.db.AppPlans(), s.db.Apps(), s.db.Plans(), s.logger)

	githubHandler := handler.NewGitHubHandler(githubAuth, sessions, s.logger)
	sessionHandler := handler.NewSessionHandler(users, sessions, s.logger)
	appPlanHandler := handler.NewAppPlanHandler(appPlanSvc, s.logger)
	repos := handler.NewResourceHandler[model.LinkedRepository, service.LinkedRepoInput]("organizer-repo", repoSvc, s.logger)
	apps := handler.NewResourceHandler[model.AppDetail, service.AppInput]("app", appSvc, s.logger)
	plans := handler.NewResourceHandler[model.Plan, service.PlanInput]("plan", planSvc, s.logger)
	appPlans := handler.NewResourceHandler[model.AppPlan, service.AppPlanInput]("app-plan", appPlanSvc, s.logger)

	// Order matters: the request id must exist before the logger runs.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.StripSlashes)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/github", githubHandler.HandleAuthorize)
			r.Get("/github/callback", githubHandler.HandleCallback)
			r.Get("/github/access-token", githubHandler.HandleAccessToken)
			r.Post("/github/access-token", githubHandler.HandleAccessToken)
			r.Get("/github/fetch-details", githubHandler.HandleFetchDetails)
			r.Post("/github/fetch-details", githubHandler.HandleFetchDetails)
			r.Post("/github/repo", githubHandler.HandleRepositories)
			r.Post("/logout", sessionHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(sessions))
				r.Get("/me", sessionHandler.HandleMe)
				r.Get("/me/repositories", githubHandler.HandleMyRepositories)
			})
		})

		r.Route("/organizer-repo", repos.Routes)
		r.Route("/apps", func(r chi.Router) {
			apps.Routes(r)
			r.Get("/{id}/plans", appPlanHandler.HandleListForApp)
		})
		r.Route("/plans", plans.Routes)
		r.Route("/app-plans", func(r chi.Router) {
			appPlans.Routes(r)
			r.Post("/{id}/assign-plan", appPlanHandler.HandleAssignPlan)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// fetch-details makes 2+N upstream calls.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.HostURL),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
