// Command seed bootstraps the portal database: schema, the receipt counter
// row and, when ADMIN_EMAIL/ADMIN_PASSWORD are set, an initial allow-list
// entry. Safe to run repeatedly; existing rows are left alone, and in
// particular an existing counter is never reset.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"transparencia/internal/models"
	"transparencia/internal/repository"
	"transparencia/pkg/auth"
	"transparencia/pkg/config"
	"transparencia/pkg/logger"
	"transparencia/pkg/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL CHECK (type IN ('ingreso', 'egreso')),
		amount BIGINT NOT NULL CHECK (amount >= 0),
		date TIMESTAMPTZ NOT NULL,
		is_date_approximate BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL,
		receipt_number TEXT NOT NULL UNIQUE,
		receipt_url TEXT NOT NULL DEFAULT '#',
		added_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date DESC)`,
	`CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		current_number BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS administrators (
		email TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Starting database seeding...")

	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			appLogger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	// The counter must exist before the first allocation; it starts at 0 so
	// the first issued receipt is N°1.
	if _, err := db.Exec(ctx,
		`INSERT INTO counters (name, current_number) VALUES ($1, 0) ON CONFLICT (name) DO NOTHING`,
		"transactionCounter",
	); err != nil {
		appLogger.Fatal("Failed to seed receipt counter", zap.Error(err))
	}

	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			appLogger.Fatal("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			appLogger.Fatal("Failed to hash administrator password", zap.Error(err))
		}

		adminRepo := repository.NewAdministratorRepository(db, appLogger)
		err = adminRepo.Create(ctx, &models.Administrator{
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			appLogger.Fatal("Failed to seed administrator", zap.Error(err))
		}
		appLogger.Info("Administrator seeded", zap.String("email", email))
	}

	appLogger.Info("Database seeding completed successfully!")
}
