package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/darkodi/shortlink/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	App       AppConfig       `yaml:"app"`
	Shortener ShortenerConfig `yaml:"shortener"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       logger.Config   `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "sqlite3", "postgres"
	Path            string        `yaml:"path"`   // sqlite3 file
	URL             string        `yaml:"url"`    // postgres DSN
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	KeyPrefix    string        `yaml:"key_prefix"`
}

// CacheConfig selects the resolution cache backend
type CacheConfig struct {
	Driver          string        `yaml:"driver"` // "redis", "memory"
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL     string `yaml:"base_url"`
	Environment string `yaml:"environment"` // "development", "production", "testing"
}

// ShortenerConfig holds code generation, expiry and click accounting settings
type ShortenerConfig struct {
	CodeLength          int           `yaml:"code_length"`
	MaxURLLength        int           `yaml:"max_url_length"`
	MaxGenerateAttempts int           `yaml:"max_generate_attempts"`
	DefaultExpiry       time.Duration `yaml:"default_expiry"`
	ClickWorkers        int           `yaml:"click_workers"`
	ClickQueueSize      int           `yaml:"click_queue_size"`
	SweepInterval       time.Duration `yaml:"sweep_interval"` // 0 disables the sweeper
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			Path:            "./data/urls.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			KeyPrefix:    "url:",
		},
		Cache: CacheConfig{
			Driver:          "redis",
			CleanupInterval: 10 * time.Minute,
		},
		App: AppConfig{
			Environment: "development",
		},
		Shortener: ShortenerConfig{
			CodeLength:          7,
			MaxURLLength:        2048,
			MaxGenerateAttempts: 10,
			DefaultExpiry:       30 * 24 * time.Hour,
			ClickWorkers:        4,
			ClickQueueSize:      1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and
// then from environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Set default BaseURL if not provided
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	cfg.Log.Environment = cfg.App.Environment

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getDurationEnv("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntEnv("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getIntEnv("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	c.Cache.Driver = getEnv("CACHE_DRIVER", c.Cache.Driver)
	c.Cache.CleanupInterval = getDurationEnv("CACHE_CLEANUP_INTERVAL", c.Cache.CleanupInterval)

	c.App.BaseURL = getEnv("BASE_URL", c.App.BaseURL)
	c.App.Environment = getEnv("ENVIRONMENT", c.App.Environment)

	c.Shortener.CodeLength = getIntEnv("CODE_LENGTH", c.Shortener.CodeLength)
	c.Shortener.MaxURLLength = getIntEnv("MAX_URL_LENGTH", c.Shortener.MaxURLLength)
	c.Shortener.MaxGenerateAttempts = getIntEnv("MAX_GENERATE_ATTEMPTS", c.Shortener.MaxGenerateAttempts)
	c.Shortener.DefaultExpiry = getDurationEnv("DEFAULT_EXPIRY", c.Shortener.DefaultExpiry)
	c.Shortener.ClickWorkers = getIntEnv("CLICK_WORKERS", c.Shortener.ClickWorkers)
	c.Shortener.ClickQueueSize = getIntEnv("CLICK_QUEUE_SIZE", c.Shortener.ClickQueueSize)
	c.Shortener.SweepInterval = getDurationEnv("SWEEP_INTERVAL", c.Shortener.SweepInterval)

	c.Metrics.Enabled = getBoolEnv("METRICS_ENABLED", c.Metrics.Enabled)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate port
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	// Validate database
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path cannot be empty")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite3 or postgres)", c.Database.Driver)
	}

	// Validate cache
	switch c.Cache.Driver {
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis address cannot be empty")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid cache driver: %s (must be redis or memory)", c.Cache.Driver)
	}

	// Validate environment
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}
	// Validate log level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	// Validate shortener
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 20 {
		return fmt.Errorf("invalid code length: %d (must be 4-20)", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxURLLength < 1 {
		return errors.New("max url length must be at least 1")
	}
	if c.Shortener.MaxGenerateAttempts < 1 {
		return errors.New("max generate attempts must be at least 1")
	}
	if c.Shortener.DefaultExpiry <= 0 {
		return errors.New("default expiry must be positive")
	}
	if c.Shortener.ClickWorkers < 1 {
		return errors.New("click workers must be at least 1")
	}
	if c.Shortener.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
