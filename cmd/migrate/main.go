// Package main runs the PostgreSQL schema migrations
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/platewise/engine/internal/infrastructure/config"
	gormRepo "github.com/platewise/engine/internal/infrastructure/persistence/gorm"
	"github.com/platewise/engine/internal/infrastructure/persistence/migrations"
	"github.com/platewise/engine/internal/infrastructure/persistence/postgres"
	"github.com/platewise/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	force := flag.Int("force", -1, "Force the schema version without running migrations")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] up|down|version|list\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, flag.Arg(0), *force); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, command string, force int) error {
	if command == "list" {
		versions, err := migrations.Available()
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations target PostgreSQL; database.driver is %q", cfg.Database.Driver)
	}

	log, err := logger.New(logger.Config{Level: cfg.App.LogLevel, Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cm, err := postgres.NewConnectionManager(cfg, gormRepo.NewQueryMonitor(log, cfg.Database.SlowQueryThreshold), log)
	if err != nil {
		return err
	}
	defer func() { _ = cm.Close() }()

	m, err := migrations.New(cm.SQLDB(), cfg.Database.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if force >= 0 {
		return m.Force(force)
	}

	switch command {
	case "", "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
