// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/application/profile"
	"github.com/platewise/engine/internal/application/recommend"
	"github.com/platewise/engine/internal/application/search"
	domain "github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/infrastructure/ai"
	"github.com/platewise/engine/internal/infrastructure/config"
	"github.com/platewise/engine/internal/infrastructure/http/handlers"
	"github.com/platewise/engine/internal/infrastructure/http/server"
	"github.com/platewise/engine/internal/infrastructure/monitoring"
	"github.com/platewise/engine/internal/infrastructure/persistence/catalogfile"
	gormRepo "github.com/platewise/engine/internal/infrastructure/persistence/gorm"
	"github.com/platewise/engine/internal/infrastructure/persistence/memory"
	"github.com/platewise/engine/internal/infrastructure/persistence/migrations"
	"github.com/platewise/engine/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/platewise/engine/internal/infrastructure/persistence/redis"
	"github.com/platewise/engine/internal/infrastructure/persistence/sqlite"
	"github.com/platewise/engine/internal/ports/inbound"
	"github.com/platewise/engine/internal/ports/outbound"
	"github.com/platewise/engine/pkg/healthcheck"
	"github.com/platewise/engine/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ConfigPath is the optional config file location; empty means defaults
// plus environment
type ConfigPath string

// HealthDependency is a readiness probe contributed by an adapter
type HealthDependency struct {
	Checker  outbound.HealthChecker
	Critical bool
}

// New returns the full application graph for the given config file
func New(configPath string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(configPath)),
		Module,
	)
}

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	AIModule,
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

type loggerResult struct {
	fx.Out

	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (loggerResult, error) {
		log, level, err := logger.NewWithLevel(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			Fields: map[string]string{
				"service": strings.ToLower(cfg.App.Name),
				"version": cfg.App.Version,
			},
		})
		return loggerResult{Logger: log, Level: level}, err
	},
	func(path ConfigPath, log *zap.Logger) (*config.Watcher, error) {
		return config.NewWatcher(string(path), log)
	},
)

// MonitoringModule provides metrics, tracing and the query monitor
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    strings.ToLower(cfg.App.Name),
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Protocol:       cfg.Monitoring.OTLPProtocol,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
	func(lc fx.Lifecycle, metrics *monitoring.MetricsCollector, log *zap.Logger) (*monitoring.MeterProvider, error) {
		mp, err := monitoring.NewMeterProvider(metrics, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: mp.Shutdown})
		return mp, nil
	},
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) *gormRepo.QueryMonitor {
		monitor := gormRepo.NewQueryMonitor(log, cfg.Database.SlowQueryThreshold)
		monitor.OnQuery(metrics.ObserveQuery)
		return monitor
	},
)

type databaseResult struct {
	fx.Out

	DB     *gorm.DB
	Health HealthDependency `group:"health"`
}

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(NewDatabase)

// NewDatabase opens SQLite or PostgreSQL according to database.driver and
// brings the schema up to date
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, monitor *gormRepo.QueryMonitor, log *zap.Logger) (databaseResult, error) {
	if cfg.Database.Driver == "postgres" {
		cm, err := postgres.NewConnectionManager(cfg, monitor, log)
		if err != nil {
			return databaseResult{}, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return cm.Close() }})

		if cfg.Database.AutoMigrate {
			if err := migrateUp(cm, cfg.Database.Database, log); err != nil {
				return databaseResult{}, err
			}
		}
		return databaseResult{DB: cm.DB(), Health: HealthDependency{Checker: cm, Critical: true}}, nil
	}

	logLevel := gormLogger.Silent
	if cfg.App.Debug {
		logLevel = gormLogger.Info
	}
	db, err := sqlite.SetupDatabase(cfg.Database.Path, logLevel)
	if err != nil {
		return databaseResult{}, fmt.Errorf("failed to setup SQLite database: %w", err)
	}
	if err := monitor.Install(db); err != nil {
		return databaseResult{}, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}})

	log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
	return databaseResult{DB: db, Health: HealthDependency{Checker: gormRepo.NewHealthChecker("sqlite", db), Critical: true}}, nil
}

func migrateUp(cm *postgres.ConnectionManager, database string, log *zap.Logger) error {
	m, err := migrations.New(cm.SQLDB(), database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

type cacheResult struct {
	fx.Out

	Cache  outbound.CacheRepository
	Health []HealthDependency `group:"health,flatten"`
}

// CacheModule provides caching
var CacheModule = fx.Provide(NewCache)

// NewCache builds the in-process or Redis cache according to cache.provider
func NewCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) cacheResult {
	if cfg.Cache.Provider == "redis" {
		client := redisRepo.NewClient(cfg)
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		repo := redisRepo.NewCacheRepository(client, cfg.Redis.KeyPrefix, log)
		log.Info("Using Redis cache", zap.String("addr", cfg.RedisAddr()))
		return cacheResult{Cache: repo, Health: []HealthDependency{{Checker: repo}}}
	}

	repo := memory.NewCacheRepository(cfg.Cache.CleanupInterval)
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		repo.Close()
		return nil
	}})
	log.Info("Using in-memory cache")
	return cacheResult{Cache: repo}
}

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewCatalogRepository,
	func(r *gormRepo.CatalogRepository) outbound.CatalogRepository { return r },
	NewOrderHistory,
	NewCatalogLoader,
)

// NewCatalogLoader builds the loader for catalog.source documents
func NewCatalogLoader(cfg *config.Config, log *zap.Logger) *catalogfile.Loader {
	return catalogfile.NewLoader(catalogfile.Config{
		Region:   cfg.Catalog.S3Region,
		Endpoint: cfg.Catalog.S3Endpoint,
	}, log)
}

// NewOrderHistory picks the GORM or pgx order history adapter
func NewOrderHistory(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB, log *zap.Logger) (outbound.OrderHistoryRepository, error) {
	if cfg.Database.Driver == "postgres" && cfg.Database.OrderHistory == "pgx" {
		pool, err := postgres.NewPool(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			pool.Close()
			return nil
		}})
		log.Info("Using pgx order history")
		return postgres.NewOrderRepository(pool, log), nil
	}
	return gormRepo.NewOrderRepository(db), nil
}

type aiResult struct {
	fx.Out

	Completer outbound.NamedCompleter
	Health    HealthDependency `group:"health"`
}

// AIModule provides the text completion client
var AIModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (aiResult, error) {
		completer, err := ai.NewCompleter(cfg.AI, log)
		if err != nil {
			return aiResult{}, err
		}
		log.Info("Criteria extraction provider",
			zap.String("provider", completer.Provider()),
			zap.String("model", completer.Model()),
		)
		return aiResult{
			Completer: completer,
			Health:    HealthDependency{Checker: ai.NewHealthChecker(completer, log)},
		}, nil
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	// Criteria extractor
	func(cfg *config.Config, completer outbound.NamedCompleter, cache outbound.CacheRepository, metrics *monitoring.MetricsCollector, log *zap.Logger) *criteria.Extractor {
		opts := []criteria.Option{criteria.WithObserver(metrics)}
		if cfg.AI.EnableCache {
			opts = append(opts, criteria.WithCache(cache))
		}
		return criteria.NewExtractor(criteria.StaticConnector(completer), criteria.Config{
			Timeout:     cfg.AI.Timeout,
			MaxAttempts: cfg.AI.MaxAttempts,
			CacheTTL:    cfg.AI.CacheTTL,
		}, log, opts...)
	},

	// Search service
	fx.Annotate(
		func(cfg *config.Config, extractor *criteria.Extractor, catalog outbound.CatalogRepository, log *zap.Logger) *search.Service {
			return search.NewService(extractor, catalog, search.Config{
				DefaultLimit:          cfg.Search.DefaultLimit,
				MaxLimit:              cfg.Search.MaxLimit,
				RecommendDefaultLimit: cfg.Search.RecommendDefaultLimit,
				RecommendMaxLimit:     cfg.Search.RecommendMaxLimit,
			}, log)
		},
		fx.As(new(inbound.SearchService)),
	),

	// Profiler
	func(cfg *config.Config, orders outbound.OrderHistoryRepository, log *zap.Logger) *profile.Profiler {
		t := cfg.Recommendation.Thresholds
		return profile.NewProfiler(orders, domain.Thresholds{
			HighProteinMin:     t.HighProteinMin,
			BalancedFatMax:     t.BalancedFatMax,
			BalancedProteinMin: t.BalancedProteinMin,
			LightCaloriesMax:   t.LightCaloriesMax,
		}, log)
	},

	// Recommendation service
	fx.Annotate(
		func(cfg *config.Config, profiler *profile.Profiler, catalog outbound.CatalogRepository, metrics *monitoring.MetricsCollector, log *zap.Logger) (*recommend.Service, error) {
			recCfg, err := RecommendConfig(cfg.Recommendation)
			if err != nil {
				return nil, err
			}
			aggregator := recommend.NewDefaultAggregator(catalog, recCfg, nil)
			return recommend.NewService(profiler, aggregator, recCfg, log, recommend.WithObserver(metrics)), nil
		},
		fx.As(new(inbound.RecommendationService)),
	),
)

// RecommendConfig converts the recommendation settings into strategy
// constants
func RecommendConfig(rc config.RecommendationConfig) (recommend.Config, error) {
	out := recommend.DefaultConfig()
	out.DefaultLimit = rc.DefaultLimit
	out.MaxLimit = rc.MaxLimit
	out.SimilarBand = rc.SimilarBand
	out.ExplorePerRestaurant = rc.ExplorePerRestaurant
	out.HealthyMinSavings = rc.HealthyMinSavings
	out.HealthyFrequentItems = rc.HealthyFrequentItems
	out.PopularMinProtein = rc.PopularMinProtein
	out.PopularMaxCalories = rc.PopularMaxCalories

	for name, w := range rc.MealWindows {
		mealType, err := domain.ParseMealType(name)
		if err != nil {
			return recommend.Config{}, fmt.Errorf("recommendation.meal_windows: %w", err)
		}
		out.MealWindows[mealType] = recommend.Window{MinCalories: w.MinCalories, MaxCalories: w.MaxCalories}
	}
	return out, nil
}

type healthParams struct {
	fx.In

	Config       *config.Config
	Logger       *zap.Logger
	Dependencies []HealthDependency `group:"health"`
}

// HTTPModule provides HTTP servers and handlers
var HTTPModule = fx.Provide(
	handlers.NewSearchHandlers,
	handlers.NewRecommendationHandlers,
	func(p healthParams) *healthcheck.HealthCheck {
		hc := healthcheck.New(p.Config.App.Version, p.Logger)
		for _, dep := range p.Dependencies {
			hc.Register(dep.Checker, dep.Critical)
		}
		return hc
	},
	server.NewServer,
	server.NewOpsServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
	RegisterConfigReload,
)

// RegisterLifecycleHooks fills an empty catalog and runs both servers
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	catalog *gormRepo.CatalogRepository,
	orders outbound.OrderHistoryRepository,
	loader *catalogfile.Loader,
	api *server.Server,
	ops *server.OpsServer,
	_ *monitoring.TracingProvider,
	_ *monitoring.MeterProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Platewise engine",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			switch {
			case cfg.Catalog.Source != "":
				n, err := loader.Import(ctx, cfg.Catalog.Source, catalog)
				if err != nil {
					return fmt.Errorf("failed to import catalog: %w", err)
				}
				if n > 0 {
					log.Info("Catalog imported", zap.String("source", cfg.Catalog.Source), zap.Int("items", n))
				}
			case cfg.Database.Seed:
				if err := sqlite.SeedDatabase(ctx, catalog, orders); err != nil {
					log.Warn("Failed to seed database", zap.Error(err))
				}
			}

			run := func(name string, start func() error) {
				go func() {
					if err := start(); err != nil {
						log.Error("Server stopped unexpectedly", zap.String("server", name), zap.Error(err))
						_ = shutdowner.Shutdown()
					}
				}()
			}
			run("api", api.Start)
			if cfg.Monitoring.EnableMetrics {
				run("ops", ops.Start)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Platewise engine")

			if err := api.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown API server", zap.Error(err))
			}
			if err := ops.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown operations server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}

// RegisterConfigReload applies log level and rate limit changes from the
// config file while running
func RegisterConfigReload(lc fx.Lifecycle, watcher *config.Watcher, level zap.AtomicLevel, api *server.Server, log *zap.Logger) {
	watcher.Subscribe(func(cfg *config.Config) {
		if err := logger.SetLevel(level, cfg.App.LogLevel); err != nil {
			log.Warn("Keeping current log level", zap.Error(err))
		}
		api.ApplyConfig(cfg)
	})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			watcher.Start()
			return nil
		},
	})
}
