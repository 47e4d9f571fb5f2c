// Package server wires the dependencies together and runs the HTTP server.
//
// This is the composition root: New opens the store, builds the services and
// handlers and mounts every route. The caption generator and the image store
// are passed in, so tests can substitute stubs.
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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/captionly/internal/auth"
	"github.com/sakif/captionly/internal/caption"
	"github.com/sakif/captionly/internal/config"
	"github.com/sakif/captionly/internal/handler"
	"github.com/sakif/captionly/internal/imagestore"
	"github.com/sakif/captionly/internal/imagestore/local"
	"github.com/sakif/captionly/internal/metrics"
	"github.com/sakif/captionly/internal/middleware"
	"github.com/sakif/captionly/internal/repository"
	mongoRepo "github.com/sakif/captionly/internal/repository/mongo"
	postgresRepo "github.com/sakif/captionly/internal/repository/postgres"
	sqliteRepo "github.com/sakif/captionly/internal/repository/sqlite"
	"github.com/sakif/captionly/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the resources that must be released on
// shutdown: the store and the revocation client.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	store   repository.Store
	revoker auth.Revoker
	metrics *metrics.Metrics
}

// New opens the configured store and builds the router.
func New(cfg config.Config, logger *slog.Logger, captioner caption.Generator, images imagestore.Store) (*Server, error) {
	if captioner == nil || images == nil {
		return nil, errors.New("server: caption generator and image store are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	revoker, err := openRevoker(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		revoker: revoker,
		metrics: metrics.New(),
	}

	if err := s.setupRoutes(captioner, images); err != nil {
		s.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}

	return s, nil
}

// openStore connects to the backend named by cfg.DBDriver.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite: %w", err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := postgresRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		return db, nil
	case config.DriverMongo:
		db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("server: opening mongo: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("server: unknown db driver %q", cfg.DBDriver)
	}
}

// openRevoker returns a Redis-backed revoker when REDIS_ADDR is configured.
func openRevoker(ctx context.Context, cfg config.Config) (auth.Revoker, error) {
	if cfg.RedisAddr == "" {
		return auth.NopRevoker{}, nil
	}
	r, err := auth.NewRedisRevoker(ctx, auth.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return r, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	POST /api/auth/register   → create account, set cookie
//	POST /api/auth/login      → sign in, set cookie
//	POST /api/auth/logout     → clear cookie, revoke token
//	GET  /api/auth/me         → current user            [auth]
//	POST /api/post            → caption + upload image  [auth]
//	GET  /api/post            → list own posts          [auth]
//	GET  /healthz             → liveness
//	GET  /metrics             → Prometheus metrics
//	GET  /uploads/*           → local image store only
//	GET  /*                   → SPA build, when static_dir is set
func (s *Server) setupRoutes(captioner caption.Generator, images imagestore.Store) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(s.store, tokens, passwords, s.revoker, s.metrics, s.logger)
	postService := service.NewPostService(s.store, captioner, images, s.metrics, s.logger)

	cookies := auth.CookieOptions{Secure: s.config.IsProduction(), TTL: tokens.TTL()}
	authHandler := handler.NewAuthHandler(authService, tokens, cookies, s.logger)
	postHandler := handler.NewPostHandler(postService, s.config.MaxUploadBytes, s.logger)

	// Order matters: request IDs must exist before the logger reads them,
	// and CORS must answer preflights before auth rejects them.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.New(corsOptions(s.config.AllowedOrigins)).Handler)

	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	requireAuth := auth.RequireAuth(tokens, s.store, s.revoker)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.config.RequestTimeout))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/post", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", postHandler.HandleCreate)
			r.Get("/", postHandler.HandleList)
		})
	})

	if s.config.ImageStore == config.ImageStoreLocal && s.config.UploadDir != "" {
		fs := http.FileServer(http.Dir(s.config.UploadDir))
		s.router.Handle(local.URLPrefix+"*", http.StripPrefix(local.URLPrefix, fs))
	}

	if s.config.StaticDir != "" {
		s.router.NotFound(spaHandler(s.config.StaticDir))
	}

	return nil
}

// corsOptions allows credentialed requests from the listed origins only.
// rs/cors treats an empty AllowedOrigins as "*", so an empty list gets an
// origin check that always refuses.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return opts
}

// spaHandler serves the front-end build. Unknown paths outside /api fall back
// to index.html so client-side routes survive a reload.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the revocation client.
func (s *Server) Close() error {
	var errs []error
	if c, ok := s.revoker.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the store and the revocation client
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.RequestTimeout,
		WriteTimeout:      s.config.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("db_driver", s.config.DBDriver),
			slog.String("image_store", s.config.ImageStore),
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
