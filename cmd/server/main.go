package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"pkm/internal/auth"
	"pkm/internal/cache"
	"pkm/internal/config"
	"pkm/internal/handler"
	"pkm/internal/middleware"
	"pkm/internal/repository/postgres"
	"pkm/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg, "server")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	if jwtVerifier != nil {
		defer jwtVerifier.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if cfg.Environment != "prod" {
		if err := postgres.EnsureSchema(ctx, pool, tables, logger); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
	}

	projectCache, closeCache, err := cache.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer closeCache()

	repoConfig := &postgres.RepositoryConfig{
		Pool:              pool,
		Tables:            tables,
		Logger:            logger,
		Cache:             projectCache,
		CacheTTL:          cfg.CacheTTL,
		LockTimeout:       cfg.LockTimeout,
		MaxHierarchyDepth: cfg.MaxHierarchyDepth,
	}
	unitOfWork := postgres.NewUnitOfWorkFactory(repoConfig)

	projectService := service.NewProjectService(unitOfWork, logger)
	projectHandler := handler.NewProjectHandler(projectService, logger)
	healthHandler := handler.NewHealthHandler(pool, logger)

	logger.Info("services initialized")

	// Authenticated API routes
	api := http.NewServeMux()
	projectHandler.Register(api)

	var apiHandler http.Handler = api
	apiHandler = middleware.Auth(jwtVerifier, cfg.DevUserID, logger)(apiHandler)

	// Public routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/api/", apiHandler)

	// Order: CORS → Logging → Recovery → Routes
	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)
	root = middleware.RequestLogger(logger)(root)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}

// newVerifier prefers JWKS, then an HS256 secret. With neither configured a
// nil verifier is returned and requests act as DEV_USER_ID, which production
// refuses.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	switch {
	case cfg.JWKSURL != "":
		return auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	case cfg.JWTSecret != "":
		return auth.NewSecretVerifier(cfg.JWTSecret, logger)
	case cfg.Environment == "prod":
		return nil, errors.New("JWKS_URL or JWT_SECRET is required in production")
	case cfg.DevUserID == "":
		return nil, errors.New("set JWKS_URL, JWT_SECRET or DEV_USER_ID")
	default:
		logger.Warn("DEV MODE: token verification disabled", "dev_user_id", cfg.DevUserID)
		return nil, nil
	}
}
