// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Redis          RedisConfig          `mapstructure:"redis"`
	AI             AIConfig             `mapstructure:"ai"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Search         SearchConfig         `mapstructure:"search"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS      bool          `mapstructure:"enable_cors"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	Compression     bool          `mapstructure:"compression"`
}

// DatabaseConfig contains database configuration. Driver is sqlite or
// postgres; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	Replicas           []string      `mapstructure:"replicas"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	Seed               bool          `mapstructure:"seed"`
	// OrderHistory selects the order history reader on postgres: gorm or pgx.
	OrderHistory string `mapstructure:"order_history"`
}

// CacheConfig selects the extraction cache backend: memory or redis
type CacheConfig struct {
	Provider        string        `mapstructure:"provider"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// AIConfig contains text-understanding service configuration
type AIConfig struct {
	Provider      string        `mapstructure:"provider"`
	OpenAIKey     string        `mapstructure:"openai_key"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	OpenAIModel   string        `mapstructure:"openai_model"`
	OllamaURL     string        `mapstructure:"ollama_url"`
	OllamaModel   string        `mapstructure:"ollama_model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	EnableCache   bool          `mapstructure:"enable_cache"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	Breaker       BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the AI provider
type BreakerConfig struct {
	Enable           bool          `mapstructure:"enable"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	MetricsPort     int     `mapstructure:"metrics_port"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPProtocol    string  `mapstructure:"otlp_protocol"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
	ReadinessPath   string  `mapstructure:"readiness_path"`
}

// AuthConfig selects where the caller identity comes from. In header mode a
// trusted gateway sets X-User-ID; in jwt mode the subject of an HS256 bearer
// token is used.
type AuthConfig struct {
	Mode      string `mapstructure:"mode"`
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// CatalogConfig points at a JSON catalog document imported into an empty
// catalog at startup. Source is a local path or an s3://bucket/key URI; when
// empty the demo catalog is seeded instead.
type CatalogConfig struct {
	Source     string `mapstructure:"source"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RecommendationConfig holds strategy constants and profile thresholds
type RecommendationConfig struct {
	DefaultLimit         int                     `mapstructure:"default_limit"`
	MaxLimit             int                     `mapstructure:"max_limit"`
	SimilarBand          float64                 `mapstructure:"similar_band"`
	ExplorePerRestaurant int                     `mapstructure:"explore_per_restaurant"`
	HealthyMinSavings    float64                 `mapstructure:"healthy_min_savings"`
	HealthyFrequentItems int                     `mapstructure:"healthy_frequent_items"`
	PopularMinProtein    float64                 `mapstructure:"popular_min_protein"`
	PopularMaxCalories   float64                 `mapstructure:"popular_max_calories"`
	MealWindows          map[string]WindowConfig `mapstructure:"meal_windows"`
	Thresholds           ThresholdConfig         `mapstructure:"thresholds"`
}

// WindowConfig is an inclusive calorie range for one meal type
type WindowConfig struct {
	MinCalories float64 `mapstructure:"min_calories"`
	MaxCalories float64 `mapstructure:"max_calories"`
}

// ThresholdConfig drives the dietary preference classification
type ThresholdConfig struct {
	HighProteinMin     float64 `mapstructure:"high_protein_min"`
	BalancedFatMax     float64 `mapstructure:"balanced_fat_max"`
	BalancedProteinMin float64 `mapstructure:"balanced_protein_min"`
	LightCaloriesMax   float64 `mapstructure:"light_calories_max"`
}

// SearchConfig holds search result limits
type SearchConfig struct {
	DefaultLimit          int `mapstructure:"default_limit"`
	MaxLimit              int `mapstructure:"max_limit"`
	RecommendDefaultLimit int `mapstructure:"recommend_default_limit"`
	RecommendMaxLimit     int `mapstructure:"recommend_max_limit"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/platewise")
	}

	// PLATEWISE_AI_PROVIDER overrides ai.provider
	v.SetEnvPrefix("PLATEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Platewise")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.compression", true)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "file:platewise?mode=memory&cache=shared")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "platewise")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.slow_query_threshold", "100ms")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.seed", true)
	v.SetDefault("database.order_history", "gorm")

	// Cache defaults
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.cleanup_interval", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "platewise:")

	// AI defaults
	v.SetDefault("ai.provider", "local")
	v.SetDefault("ai.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai_model", "gpt-4o-mini")
	v.SetDefault("ai.ollama_url", "http://localhost:11434")
	v.SetDefault("ai.ollama_model", "llama3.2:3b")
	v.SetDefault("ai.max_tokens", 300)
	v.SetDefault("ai.temperature", 0.0)
	v.SetDefault("ai.timeout", "10s")
	v.SetDefault("ai.max_attempts", 2)
	v.SetDefault("ai.enable_cache", true)
	v.SetDefault("ai.cache_ttl", "15m")
	v.SetDefault("ai.breaker.enable", true)
	v.SetDefault("ai.breaker.max_requests", 1)
	v.SetDefault("ai.breaker.interval", "60s")
	v.SetDefault("ai.breaker.timeout", "30s")
	v.SetDefault("ai.breaker.failure_threshold", 5)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_protocol", "http")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")

	v.SetDefault("auth.mode", "header")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")

	v.SetDefault("catalog.source", "")
	v.SetDefault("catalog.s3_region", "us-east-1")
	v.SetDefault("catalog.s3_endpoint", "")

	// Rate limit defaults

	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Recommendation defaults
	v.SetDefault("recommendation.default_limit", 8)
	v.SetDefault("recommendation.max_limit", 20)
	v.SetDefault("recommendation.similar_band", 0.35)
	v.SetDefault("recommendation.explore_per_restaurant", 2)
	v.SetDefault("recommendation.healthy_min_savings", 100)
	v.SetDefault("recommendation.healthy_frequent_items", 5)
	v.SetDefault("recommendation.popular_min_protein", 15)
	v.SetDefault("recommendation.popular_max_calories", 800)
	v.SetDefault("recommendation.meal_windows", map[string]interface{}{
		"breakfast":  map[string]interface{}{"min_calories": 200, "max_calories": 550},
		"lunch":      map[string]interface{}{"min_calories": 350, "max_calories": 800},
		"dinner":     map[string]interface{}{"min_calories": 450, "max_calories": 1000},
		"late-night": map[string]interface{}{"min_calories": 150, "max_calories": 650},
	})
	v.SetDefault("recommendation.thresholds.high_protein_min", 30)
	v.SetDefault("recommendation.thresholds.balanced_fat_max", 20)
	v.SetDefault("recommendation.thresholds.balanced_protein_min", 15)
	v.SetDefault("recommendation.thresholds.light_calories_max", 500)

	// Search defaults
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.recommend_default_limit", 8)
	v.SetDefault("search.recommend_max_limit", 20)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres")
		}
		if c.Database.OrderHistory != "gorm" && c.Database.OrderHistory != "pgx" {
			return fmt.Errorf("database.order_history must be gorm or pgx")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Cache.Provider {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache.provider %q", c.Cache.Provider)
	}

	switch c.AI.Provider {
	case "local", "ollama":
	case "openai":
		if c.AI.OpenAIKey == "" {
			return fmt.Errorf("ai.openai_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("unsupported ai.provider %q", c.AI.Provider)
	}

	switch c.Monitoring.OTLPProtocol {
	case "http", "grpc":
	default:
		return fmt.Errorf("monitoring.otlp_protocol must be http or grpc")
	}

	switch c.Auth.Mode {
	case "header":
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required in jwt mode")
		}
	default:
		return fmt.Errorf("unsupported auth.mode %q", c.Auth.Mode)
	}

	if c.AI.MaxAttempts < 1 {
		return fmt.Errorf("ai.max_attempts must be at least 1")
	}

	if c.Recommendation.MaxLimit < c.Recommendation.DefaultLimit {
		return fmt.Errorf("recommendation.max_limit must not be below recommendation.default_limit")
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit must not be below search.default_limit")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetDatabaseURL returns the postgres URL form used by migrate and pgx
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
