package testutils

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/infrastructure/persistence/migrations"
	"github.com/platewise/engine/internal/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// TestDatabase is a migrated Postgres instance running in a container
type TestDatabase struct {
	Container testcontainers.Container
	Config    *config.Config
	Manager   *postgres.ConnectionManager
	GormDB    *gorm.DB
	PgxPool   *pgxpool.Pool
	t         *testing.T
}

// DatabaseConfig holds test database configuration
type DatabaseConfig struct {
	Image    string
	Database string
	Username string
	Password string
	Port     string
}

// DefaultDatabaseConfig returns the default test database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Image:    "postgres:15-alpine",
		Database: "platewise_test",
		Username: "test_user",
		Password: "test_password",
		Port:     "5432",
	}
}

// SetupTestDatabase starts Postgres, applies migrations and opens both the
// GORM connection and a pgx pool
func SetupTestDatabase(t *testing.T) *TestDatabase {
	return SetupTestDatabaseWithConfig(t, DefaultDatabaseConfig())
}

// SetupTestDatabaseWithConfig creates a test database with custom configuration
func SetupTestDatabaseWithConfig(t *testing.T, dbCfg DatabaseConfig) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbCfg.Image,
			ExposedPorts: []string{dbCfg.Port + "/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       dbCfg.Database,
				"POSTGRES_USER":     dbCfg.Username,
				"POSTGRES_PASSWORD": dbCfg.Password,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForSQL(nat.Port(dbCfg.Port+"/tcp"), "pgx", func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
						dbCfg.Username, dbCfg.Password, host, port.Port(), dbCfg.Database)
				}),
			),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw,noexec,nosuid,size=512m",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, nat.Port(dbCfg.Port))
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Driver = "postgres"
	cfg.Database.Host = host
	cfg.Database.Port = port
	cfg.Database.Database = dbCfg.Database
	cfg.Database.Username = dbCfg.Username
	cfg.Database.Password = dbCfg.Password
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxOpenConns = 10

	log := zaptest.NewLogger(t)
	manager, err := postgres.NewConnectionManager(cfg, nil, log)
	require.NoError(t, err, "Failed to connect to test database")

	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err, "Failed to create pgx pool")

	td := &TestDatabase{
		Container: container,
		Config:    cfg,
		Manager:   manager,
		GormDB:    manager.DB(),
		PgxPool:   pool,
		t:         t,
	}
	t.Cleanup(td.Cleanup)

	require.NoError(t, td.RunMigrations(log), "Failed to run migrations")
	return td
}

// RunMigrations applies every embedded migration
func (td *TestDatabase) RunMigrations(log *zap.Logger) error {
	m, err := migrations.New(td.Manager.SQLDB(), td.Config.Database.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// Truncate empties the catalog and order tables between tests
func (td *TestDatabase) Truncate(ctx context.Context) {
	td.t.Helper()
	_, err := td.PgxPool.Exec(ctx, "TRUNCATE order_lines, orders, food_items RESTART IDENTITY CASCADE")
	require.NoError(td.t, err)
}

// Cleanup closes connections and terminates the container
func (td *TestDatabase) Cleanup() {
	if td.PgxPool != nil {
		td.PgxPool.Close()
	}
	if td.Manager != nil {
		_ = td.Manager.Close()
	}
	if td.Container != nil {
		_ = td.Container.Terminate(context.Background())
	}
}
