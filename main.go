package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/auth"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/config"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/database"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/handlers"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/llm"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/logging"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/middleware"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/ocr"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/repositories"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/retry"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/services/workqueue"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("ai_provider", cfg.AI.Provider))

	ctx := context.Background()

	// The database may still be coming up when we start; retry the initial
	// connection, not anything after it.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, cfg.Database.ConnectionString(), cfg.Database.MaxConnections)
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	validator, err := auth.NewJWKSValidator(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSURL:            cfg.Auth.JWKSURL,
		Issuer:             cfg.Auth.Issuer,
	})
	if err != nil {
		logger.Fatal("failed to initialize JWKS validator", zap.Error(err))
	}

	authService := auth.NewAuthService(validator, logger.Named("auth"))
	authMiddleware := auth.NewMiddleware(authService, logger.Named("auth"))

	scopes := database.NewScopeProvider(db)
	scoped := handlers.NewScopeMiddleware(scopes, logger.Named("scope"))

	llmClient, err := llm.NewClient(&llm.Config{
		Provider: cfg.AI.Provider,
		BaseURL:  cfg.AI.BaseURL,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM client", zap.Error(err))
	}

	contactRepo := repositories.NewContactRepository()
	cardRepo := repositories.NewCardRepository()
	eventRepo := repositories.NewEventRepository()

	textExtractor := ocr.NewTesseractExtractor(cfg.OCR.Languages, logger)
	contactExtractor := services.NewContactExtractor(llmClient, logger)
	interpreter := services.NewQueryInterpreter(llmClient, logger)

	queue := workqueue.New(logger, workqueue.WithMaxConcurrent(4))
	defer queue.Cancel()

	ingestion := services.NewIngestionService(
		queue, cardRepo, contactRepo, textExtractor, contactExtractor,
		cfg.Pipeline, scopes.WithUserScope, logger)

	statsService := services.NewStatsService(contactRepo, cardRepo, cfg.Pipeline.ReportedAccuracy)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewContactsHandler(contactRepo, interpreter, logger.Named("contacts")).RegisterRoutes(mux, authMiddleware, scoped)
	handlers.NewCardsHandler(cardRepo, ingestion, cfg.Uploads, logger.Named("cards")).RegisterRoutes(mux, authMiddleware, scoped)
	handlers.NewEventsHandler(eventRepo, logger.Named("events")).RegisterRoutes(mux, authMiddleware, scoped)
	handlers.NewStatsHandler(statsService, logger.Named("stats")).RegisterRoutes(mux, authMiddleware, scoped)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger.Named("http"))(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting cardfolio-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// newLogger builds a production logger outside local development.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
