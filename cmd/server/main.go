// Package main implements the maptoposter API server, which queues poster
// generation jobs and serves the finished posters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/simongrossi/maptoposter-web/internal/config"
	"github.com/simongrossi/maptoposter-web/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a database migration command (up, down, status, version, reset) and exit")
	flag.Parse()

	if err := run(context.Background(), *migrateCmd); err != nil {
		slog.Error("maptoposter server failed", "error", err)
		os.Exit(1)
	}
}

// run loads configuration and sets up logging, then either executes a
// migration command or prepares the database and serves HTTP until shutdown.
func run(ctx context.Context, migrateCmd string) error {
	cfg, err := initializeApp()
	if err != nil {
		return err
	}
	log := slog.Default()

	if migrateCmd != "" {
		return runMigration(ctx, cfg, migrateCmd, log)
	}

	db, err := prepareDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// initializeApp loads configuration and sets up the default logger.
func initializeApp() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := logger.Setup(cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_backend", cfg.Storage.Backend,
		"database", cfg.Database.URL != "",
		"redis_progress", cfg.Redis.URL != "",
		"auth_enabled", cfg.Auth.JWTSecret != "")
	return cfg, nil
}
