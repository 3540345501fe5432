// Package server wires the application together and runs the HTTP server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB → services → handlers → chi routes
//
// New is the composition root: every dependency is built here, once, and
// handed down. Nothing below this package constructs its own collaborators.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/config"
	"github.com/sakif/library-catalog/internal/handler"
	"github.com/sakif/library-catalog/internal/middleware"
	"github.com/sakif/library-catalog/internal/ratelimit"
	sqliteRepo "github.com/sakif/library-catalog/internal/repository/sqlite"
	"github.com/sakif/library-catalog/internal/service"
	"github.com/sakif/library-catalog/internal/validation"
	"github.com/sakif/library-catalog/web"
)

// shutdownTimeout is how long in-flight requests get to finish after a
// shutdown signal.
const shutdownTimeout = 30 * time.Second

// Server owns the router and every long-lived resource: the database, the
// login rate limiter and the session sweeper. Close releases them all.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	auth    *service.AuthService
	limiter *ratelimit.KeyedRateLimiter

	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
	closeOnce   sync.Once
}

// New opens the database, builds the services and handlers, registers the
// routes and starts the session sweeper.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	validate := validation.New()
	authService := service.NewAuthService(
		db, db, tokens, auth.NewPasswordService(cfg.BcryptCost), validate, cfg.SessionTTL, logger,
	)

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		auth:   authService,
	}

	if cfg.LoginBurst > 0 {
		s.limiter = ratelimit.New(cfg.LoginRatePerSec, cfg.LoginBurst, 10*time.Minute)
	}

	if err := s.setupRoutes(validate); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	s.startSweeper()
	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET       /                    → all books
//	GET       /book/{id}           → book detail
//	POST      /book/{id}           → update book             [auth]
//	GET/POST  /create_book         → create book             [auth]
//	GET/POST  /create_author       → create author           [auth]
//	GET/POST  /create_genre        → create genre            [auth]
//	GET       /profile/{username}  → profile + favorites
//	POST      /favorite/{id}       → add favorite            [auth]
//	POST      /unfavorite/{id}     → remove favorite         [auth]
//	GET/POST  /signup, /login      → account forms (POSTs rate limited)
//	GET       /logout              → end session
//
// MIDDLEWARE ORDER:
// RequestID and RealIP come first so the logger and the rate limiter see
// them. LoadSession runs on every route so every page knows its viewer;
// RequireAuth is added only to the protected group.
func (s *Server) setupRoutes(validate *validation.Validator) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	cookies := auth.Cookies{Secure: s.config.SecureCookies}
	s.router.Use(auth.LoadSession(s.auth, cookies, s.logger))

	renderer, err := handler.NewRenderer(web.Templates, s.logger)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	catalogService := service.NewCatalogService(s.db, s.db, s.db, s.db, validate, s.logger)
	favoriteService := service.NewFavoriteService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(s.auth, cookies, renderer, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, renderer, s.logger)
	profileHandler := handler.NewProfileHandler(s.auth, favoriteService, renderer, s.logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService, renderer, s.logger)

	s.router.NotFound(renderer.NotFound)

	// === Public pages ===
	s.router.Get("/", catalogHandler.HandleHome)
	s.router.Get("/book/{id}", catalogHandler.HandleBook)
	s.router.Get("/profile/{username}", profileHandler.HandleProfile)

	// === Accounts ===
	s.router.Get("/signup", authHandler.HandleSignupForm)
	s.router.Get("/login", authHandler.HandleLoginForm)
	s.router.Get("/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(middleware.RateLimit(s.limiter, s.logger))
		}
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
	})

	// === Logged-in actions ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/book/{id}", catalogHandler.HandleUpdateBook)
		r.Get("/create_book", catalogHandler.HandleCreateBookForm)
		r.Post("/create_book", catalogHandler.HandleCreateBook)
		r.Get("/create_author", catalogHandler.HandleCreateAuthorForm)
		r.Post("/create_author", catalogHandler.HandleCreateAuthor)
		r.Get("/create_genre", catalogHandler.HandleCreateGenreForm)
		r.Post("/create_genre", catalogHandler.HandleCreateGenre)
		r.Post("/favorite/{id}", favoriteHandler.HandleFavorite)
		r.Post("/unfavorite/{id}", favoriteHandler.HandleUnfavorite)
	})

	return nil
}

// Handler returns the root handler, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// startSweeper deletes expired sessions every SessionSweepInterval until
// Close. Expired sessions are already rejected on use; the sweeper only
// keeps the table from growing.
func (s *Server) startSweeper() {
	interval := s.config.SessionSweepInterval
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweeper = cancel
	s.sweeperDone = make(chan struct{})

	go func() {
		defer close(s.sweeperDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.auth.PurgeExpiredSessions(ctx); err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("sweeping sessions", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Close stops background work and closes the database. It is safe to call
// more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stopSweeper != nil {
			s.stopSweeper()
			<-s.sweeperDone
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.db.Close()
	})
	return err
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to 30s for in-flight requests
//  3. stop the sweeper and close the database
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
