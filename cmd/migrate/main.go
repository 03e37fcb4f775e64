// Package main provides a CLI tool for running database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/creator-sync/internal/config"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse")
		dir    = flag.String("dir", "migrations", "Migrations root directory")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	ctx := logging.WithLogger(context.Background(), logger)

	switch *dbType {
	case "postgres":
		err = runPostgres(cfg, *action, *dir+"/postgres")
	case "clickhouse":
		err = runClickHouse(ctx, cfg, *action, *dir+"/clickhouse")
	default:
		err = fmt.Errorf("unknown database type: %s", *dbType)
	}
	if err != nil {
		logger.WithError(err).Fatal("Migration failed")
	}
}

func runPostgres(cfg *config.Config, action, path string) error {
	m := storage.NewMigrator(storage.PostgresURL(&cfg.Database.Postgres), path)

	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
		logging.Info("Postgres migrations completed successfully")
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
		logging.Info("Postgres migration rolled back successfully")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		logging.Infof("Current Postgres migration version: %d (dirty: %v)", version, dirty)
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
	return nil
}

func runClickHouse(ctx context.Context, cfg *config.Config, action, path string) error {
	if action != "up" {
		return fmt.Errorf("ClickHouse migrations only support 'up' action")
	}

	db, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.RunClickHouseMigrations(ctx, db, path); err != nil {
		return err
	}
	logging.Info("ClickHouse migrations completed successfully")
	return nil
}
