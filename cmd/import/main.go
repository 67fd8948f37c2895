// Package main imports a JSON catalog document into the configured database
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/infrastructure/persistence/catalogfile"
	gormRepo "github.com/platewise/engine/internal/infrastructure/persistence/gorm"
	"github.com/platewise/engine/internal/infrastructure/persistence/postgres"
	"github.com/platewise/engine/internal/infrastructure/persistence/sqlite"
	"github.com/platewise/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	source := flag.String("source", "", "Catalog document: a path or s3://bucket/key (defaults to catalog.source)")
	validate := flag.Bool("validate", false, "Only load and validate the document")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *source, *validate); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, source string, validateOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if source == "" {
		source = cfg.Catalog.Source
	}
	if source == "" {
		return fmt.Errorf("no catalog source: pass -source or set catalog.source")
	}

	log, err := logger.New(logger.Config{Level: cfg.App.LogLevel, Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loader := catalogfile.NewLoader(catalogfile.Config{
		Region:   cfg.Catalog.S3Region,
		Endpoint: cfg.Catalog.S3Endpoint,
	}, log)

	if validateOnly {
		_, err := loader.Load(ctx, source)
		return err
	}

	db, closeDB, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := loader.Import(ctx, source, gormRepo.NewCatalogRepository(db))
	if err != nil {
		return err
	}
	log.Info("Import finished", zap.String("source", source), zap.Int("items", n))
	return nil
}

func open(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	if cfg.Database.Driver == "postgres" {
		cm, err := postgres.NewConnectionManager(cfg, gormRepo.NewQueryMonitor(log, cfg.Database.SlowQueryThreshold), log)
		if err != nil {
			return nil, nil, err
		}
		return cm.DB(), func() { _ = cm.Close() }, nil
	}

	if cfg.Database.Path == "" {
		return nil, nil, fmt.Errorf("database.path is required to import into SQLite")
	}
	db, err := sqlite.SetupDatabase(cfg.Database.Path, gormLogger.Silent)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}, nil
}
