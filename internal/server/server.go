// Package server is the composition root: it opens the database, builds
// services and handlers, mounts routes and runs the HTTP server.
//
// ROUTE STRUCTURE:
// GET    /healthz                  → database ping
// POST   /auth/login               → relayed to the identity service
// POST   /auth/register            → relayed to the identity service
// GET    /categories               → list (Mine prepended for signed-in callers)
// GET    /categories/{id}          → single category or null
// POST   /categories               → admin
// PUT    /categories/{id}          → admin
// DELETE /categories/{id}          → admin, websites move to "Other"
// GET    /websites?categoryId=     → list by visibility
// GET    /websites/{id}            → single website or null
// POST   /websites                 → user+
// PUT    /websites/{id}            → owner or admin
// DELETE /websites/{id}            → owner or admin
// POST   /websites/{id}/click      → anyone
// GET    /websites/{id}/favorite   → user+
// POST   /websites/{id}/favorite   → user+
// DELETE /websites/{id}/favorite   → user+
//
// Middleware order: request id, real ip, panic recovery, request timeout,
// access log, CORS. Auth is applied per route group.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/config"
	"github.com/sakif/navigation/internal/handler"
	"github.com/sakif/navigation/internal/middleware"
	sqliteRepo "github.com/sakif/navigation/internal/repository/sqlite"
	"github.com/sakif/navigation/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path, sqliteRepo.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	})
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

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// identity picks the token validator and the login relay for the
// configured mode. In local mode the relay exists only if a URL is set.
func (s *Server) identity() (auth.TokenValidator, service.Authenticator, error) {
	cfg := s.config.Identity

	var client *auth.IdentityClient
	if cfg.URL != "" {
		client = auth.NewIdentityClient(cfg.URL, cfg.Timeout, s.logger)
	}

	switch cfg.Mode {
	case config.IdentityLocal:
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			s.logger.Warn("identity url not set, /auth routes will answer 401")
			return tokens, nil, nil
		}
		return tokens, client, nil
	case config.IdentityRemote:
		if client == nil {
			return nil, nil, errors.New("identity url is required in remote mode")
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown identity mode %q", cfg.Mode)
	}
}

func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		s.router.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   s.config.CORS.AllowedOrigins,
		AllowedMethods:   s.config.CORS.AllowedMethods,
		AllowedHeaders:   s.config.CORS.AllowedHeaders,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           s.config.CORS.MaxAge,
	}))

	tokens, authenticator, err := s.identity()
	if err != nil {
		return fmt.Errorf("configuring identity: %w", err)
	}
	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	// === Services ===
	categoryRepo := s.db.Categories()
	websiteRepo := s.db.Websites()
	favoriteRepo := s.db.Favorites()

	categoryService := service.NewCategoryService(categoryRepo, websiteRepo, s.db, s.logger)
	websiteService := service.NewWebsiteService(websiteRepo, categoryRepo, favoriteRepo, s.db, s.logger)
	favoriteService := service.NewFavoriteService(favoriteRepo, websiteRepo, s.logger)
	authService := service.NewAuthService(authenticator, s.logger)

	// === Handlers ===
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	websiteHandler := handler.NewWebsiteHandler(websiteService, favoriteService, s.logger)

	// === Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
	})

	s.router.Route("/categories", func(r chi.Router) {
		r.With(optionalAuth).Get("/", categoryHandler.HandleList)
		r.With(optionalAuth).Get("/{id}", categoryHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", categoryHandler.HandleCreate)
			r.Put("/{id}", categoryHandler.HandleUpdate)
			r.Delete("/{id}", categoryHandler.HandleDelete)
		})
	})

	s.router.Route("/websites", func(r chi.Router) {
		r.With(optionalAuth).Get("/", websiteHandler.HandleList)
		r.Post("/{id}/click", websiteHandler.HandleClick)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}/favorite", websiteHandler.HandleFavoriteStatus)
			r.Post("/{id}/favorite", websiteHandler.HandleAddFavorite)
			r.Delete("/{id}/favorite", websiteHandler.HandleRemoveFavorite)
			r.Post("/", websiteHandler.HandleCreate)
			r.Put("/{id}", websiteHandler.HandleUpdate)
			r.Delete("/{id}", websiteHandler.HandleDelete)
		})

		r.With(optionalAuth).Get("/{id}", websiteHandler.HandleGet)
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to ShutdownTimeout and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	cfg := s.config.Server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.Database.Path),
			slog.String("identity_mode", s.config.Identity.Mode),
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

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
