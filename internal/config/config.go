package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"yoco/stocksync/internal/constants"
)

type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Backorder BackorderConfig `mapstructure:"backorder"`
	Events    EventsConfig    `mapstructure:"events"`
	Maintain  MaintainConfig  `mapstructure:"maintenance"`
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// CatalogConfig points at the commerce catalog tables. Empty values fall back to Database.
type CatalogConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	URLTTL          time.Duration `mapstructure:"url_ttl"`
	FTPTTL          time.Duration `mapstructure:"ftp_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type SyncConfig struct {
	HTTPTimeout           time.Duration `mapstructure:"http_timeout"`
	FTPTimeout            time.Duration `mapstructure:"ftp_timeout"`
	UserAgent             string        `mapstructure:"user_agent"`
	PauseBetweenSuppliers time.Duration `mapstructure:"pause_between_suppliers"`
	LeaseTTL              time.Duration `mapstructure:"lease_ttl"`
	LogHistoryLimit       int           `mapstructure:"log_history_limit"`
	LockBackend           string        `mapstructure:"lock_backend"`
}

// SchedulerConfig; Enabled is the global "cron enabled" flag
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Timezone     string        `mapstructure:"timezone"`
	TestMode     bool          `mapstructure:"test_mode"`
	TestInterval time.Duration `mapstructure:"test_interval"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

type BackorderConfig struct {
	FallbackDeliveryText string `mapstructure:"fallback_delivery_text"`
}

type EventsConfig struct {
	Backend string `mapstructure:"backend"`
	Stream  string `mapstructure:"stream"`
}

// MaintainConfig drives the background log retention worker.
// LogRetentionDays 0 keeps logs forever.
type MaintainConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Interval         time.Duration `mapstructure:"interval"`
	LogRetentionDays int           `mapstructure:"log_retention_days"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
}

type APIConfig struct {
	Port           int      `mapstructure:"port"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	WebhookSecret  string   `mapstructure:"webhook_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	WebhookRPS     float64  `mapstructure:"webhook_rps"`
	WebhookBurst   int      `mapstructure:"webhook_burst"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Location resolves the scheduler timezone, falling back to local time
func (c SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RedisAddr returns host:port
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from an optional file, .env and YOCO_* environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("YOCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are commonly provided without the prefix
	_ = v.BindEnv("api.jwt_secret", "YOCO_API_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("api.webhook_secret", "YOCO_API_WEBHOOK_SECRET", "YOCO_WEBHOOK_SECRET")
	_ = v.BindEnv("redis.password", "YOCO_REDIS_PASSWORD", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:yoco.db?cache=shared")
	v.SetDefault("database.max_retries", 10)
	v.SetDefault("catalog.driver", "")
	v.SetDefault("catalog.dsn", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.url_ttl", 5*time.Minute)
	v.SetDefault("cache.ftp_ttl", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("sync.http_timeout", 120*time.Second)
	v.SetDefault("sync.ftp_timeout", 30*time.Second)
	v.SetDefault("sync.user_agent", constants.DefaultUserAgent)
	v.SetDefault("sync.pause_between_suppliers", 2*time.Second)
	v.SetDefault("sync.lease_ttl", 10*time.Minute)
	v.SetDefault("sync.log_history_limit", 500)
	v.SetDefault("sync.lock_backend", "sql")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.tick_interval", time.Minute)
	v.SetDefault("scheduler.timezone", "Europe/Amsterdam")
	v.SetDefault("scheduler.test_mode", false)
	v.SetDefault("scheduler.test_interval", 5*time.Minute)
	v.SetDefault("scheduler.history_limit", 20)

	v.SetDefault("backorder.fallback_delivery_text", constants.DefaultFallbackDelivery)

	v.SetDefault("events.backend", "log")
	v.SetDefault("events.stream", "yoco:events")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.interval", time.Hour)
	v.SetDefault("maintenance.log_retention_days", 90)
	v.SetDefault("maintenance.stale_after", time.Hour)

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.jwt_secret", "")
	v.SetDefault("api.webhook_secret", "")
	v.SetDefault("api.allowed_origins", []string{"https://*", "http://localhost:8081"})
	v.SetDefault("api.webhook_rps", 1.0)
	v.SetDefault("api.webhook_burst", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = c.Database.Driver
	}
	if c.Catalog.DSN == "" {
		c.Catalog.DSN = c.Database.DSN
	}
	if (c.Cache.Backend == "redis" || c.Sync.LockBackend == "redis" || c.Events.Backend == "redis") && !c.Redis.Enabled {
		return fmt.Errorf("redis backends require redis.enabled=true")
	}
	if c.Sync.LogHistoryLimit < 0 || c.Scheduler.HistoryLimit < 0 || c.Maintain.LogRetentionDays < 0 {
		return fmt.Errorf("history limits must not be negative")
	}
	if c.Scheduler.TickInterval <= 0 {
		c.Scheduler.TickInterval = time.Minute
	}
	if c.Maintain.Interval <= 0 {
		c.Maintain.Interval = time.Hour
	}
	return nil
}
