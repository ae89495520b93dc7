package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"transparencia/internal/api"
	"transparencia/internal/api/handlers"
	"transparencia/internal/ledger"
	"transparencia/internal/repository"
	"transparencia/internal/service"
	"transparencia/internal/storage"
	"transparencia/pkg/auth"
	"transparencia/pkg/config"
	"transparencia/pkg/logger"
	"transparencia/pkg/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting transparencia portal")

	// Initialize database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	txRepo := repository.NewTransactionRepository(db, appLogger)
	counterRepo := repository.NewCounterRepository(db, appLogger)
	adminRepo := repository.NewAdministratorRepository(db, appLogger)

	// Initialize receipt storage
	receipts, uploadsDir, err := newReceiptStore(ctx, &cfg.Storage)
	if err != nil {
		appLogger.Fatal("Failed to initialize receipt storage", zap.Error(err))
	}

	// Initialize JWT manager and services
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)
	authService := service.NewAuthService(adminRepo, jwtManager, appLogger)
	txService := service.NewTransactionService(txRepo, counterRepo, receipts, appLogger)

	// Warm the public snapshot and keep it fresh from the change feed.
	cache := ledger.NewSession(appLogger)
	refresh := func() {
		txs, err := txRepo.ListAll(ctx)
		if err != nil {
			appLogger.Error("Failed to refresh transaction snapshot", zap.Error(err))
			cache.MarkStale()
			return
		}
		cache.SetSnapshot(txs)
	}
	refresh()

	listener := repository.NewListener(db, appLogger)
	err = listener.Listen(ctx,
		func(string) { refresh() },
		func(error) { cache.MarkStale() },
	)
	if err != nil {
		appLogger.Fatal("Failed to subscribe to transaction changes", zap.Error(err))
	}

	// Initialize handlers and router
	ledgerHandler := handlers.NewLedgerHandler(cache, appLogger)
	txHandler := handlers.NewTransactionHandler(txService, appLogger)
	authHandler := handlers.NewAuthHandler(authService, appLogger)

	app := api.SetupRouter(ledgerHandler, txHandler, authHandler, jwtManager, adminRepo, uploadsDir, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	cancel()
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

func newReceiptStore(ctx context.Context, cfg *config.StorageConfig) (storage.ReceiptStore, string, error) {
	switch cfg.Driver {
	case "gcs":
		if cfg.Bucket == "" {
			return nil, "", fmt.Errorf("STORAGE_BUCKET is required for the gcs driver")
		}
		store, err := storage.NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	case "local":
		store, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBase)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
