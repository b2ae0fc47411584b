// Package main implements the entry point for the listas API server,
// which manages users' reading lists and keeps them consistent through
// background enrichment, import, and fan-out pipelines.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/listas/listas-api/internal/config"
	"github.com/listas/listas-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Migration-only invocation: apply and exit without starting the server.
	if *migrateCmd != "" {
		if err := runMigrations(db, *migrateCmd, appLogger); err != nil {
			appLogger.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", "error", err)
		}
		return
	}

	if err := runMigrations(db, "up", appLogger); err != nil {
		appLogger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		appLogger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
