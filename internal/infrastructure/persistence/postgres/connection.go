// Package postgres provides PostgreSQL connections for the catalog and the
// pgx-backed order history reader
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/platewise/engine/internal/infrastructure/config"
	gormRepo "github.com/platewise/engine/internal/infrastructure/persistence/gorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// ConnectionManager owns the GORM connection (primary plus read replicas)
type ConnectionManager struct {
	config  *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	writeDB *sql.DB
	monitor *gormRepo.QueryMonitor
}

// NewConnectionManager opens the primary connection, registers read replicas
// and installs the query monitor
func NewConnectionManager(cfg *config.Config, monitor *gormRepo.QueryMonitor, log *zap.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		config:  cfg,
		logger:  log.Named("postgres"),
		monitor: monitor,
	}

	if err := cm.initializePrimaryConnection(); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	if err := cm.initializeReadReplicas(); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	if monitor != nil {
		if err := monitor.Install(cm.db); err != nil {
			cm.logger.Warn("Failed to install query monitoring", zap.Error(err))
		}
	}

	cm.logger.Info("Database connection manager initialized",
		zap.String("host", cfg.Database.Host),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("replicas", len(cfg.Database.Replicas)),
	)
	return cm, nil
}

func (cm *ConnectionManager) initializePrimaryConnection() error {
	db, err := gorm.Open(postgres.Open(cm.config.GetDSN()), &gorm.Config{
		Logger:                 cm.gormLogger(),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	ConfigurePool(sqlDB, cm.config.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.writeDB = sqlDB
	return nil
}

// initializeReadReplicas routes catalog reads to the configured replica hosts
func (cm *ConnectionManager) initializeReadReplicas() error {
	dsns := ReplicaDSNs(cm.config.Database)
	if len(dsns) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(dsns))
	for i, dsn := range dsns {
		replicas[i] = postgres.Open(dsn)
	}

	err := cm.db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured", zap.Int("replica_count", len(dsns)))
	return nil
}

func (cm *ConnectionManager) gormLogger() logger.Interface {
	threshold := cm.config.Database.SlowQueryThreshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	level := logger.Error
	if cm.config.IsDevelopment() {
		level = logger.Warn
	}
	return logger.New(gormRepo.LogWriter{Logger: cm.logger}, logger.Config{
		SlowThreshold:             threshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// DB returns the GORM connection
func (cm *ConnectionManager) DB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary *sql.DB, used by migrations
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.writeDB
}

// Name implements outbound.HealthChecker
func (cm *ConnectionManager) Name() string { return "postgres" }

// HealthCheck pings the primary
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.writeDB.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	return nil
}

// Close closes the primary connection
func (cm *ConnectionManager) Close() error {
	if cm.writeDB == nil {
		return nil
	}
	return cm.writeDB.Close()
}

// ConfigurePool applies the configured pool limits
func ConfigurePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// ReplicaDSNs builds one DSN per replica host, sharing the primary credentials
func ReplicaDSNs(cfg config.DatabaseConfig) []string {
	dsns := make([]string, 0, len(cfg.Replicas))
	for _, host := range cfg.Replicas {
		dsns = append(dsns, fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode))
	}
	return dsns
}

// NewPool opens a pgx connection pool on the primary
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
