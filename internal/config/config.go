package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/darkodi/snip/internal/logger"
)

// Supported store backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
	App       AppConfig
	Log       logger.Config
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Backend         string // "sqlite", "postgres"
	Path            string // sqlite file, ":memory:" for tests
	DSN             string // postgres connection string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// AnalyticsConfig holds click event dispatch settings
type AnalyticsConfig struct {
	Enabled    bool
	Stream     string
	BufferSize int
	Workers    int
	Timeout    time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL        string // empty: derived per request
	Environment    string // "development", "production", "testing"
	AllowedOrigins []string
	CodeLength     int
	MaxAttempts    int
}

// Load reads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	// Missing .env is fine; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Backend:         strings.ToLower(getEnv("DB_BACKEND", BackendSQLite)),
			Path:            getEnv("DB_PATH", "./data/urls.db"),
			DSN:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 7),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 0),
			QueryTimeout:    getDurationEnv("DB_QUERY_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("CACHE_TTL", time.Hour),
		},
		Analytics: AnalyticsConfig{
			Enabled:    getBoolEnv("ANALYTICS_ENABLED", true),
			Stream:     getEnv("ANALYTICS_STREAM", "clicks"),
			BufferSize: getIntEnv("ANALYTICS_BUFFER", 1024),
			Workers:    getIntEnv("ANALYTICS_WORKERS", 2),
			Timeout:    getDurationEnv("ANALYTICS_TIMEOUT", 2*time.Second),
		},
		App: AppConfig{
			BaseURL:        strings.TrimRight(getEnv("BASE_URL", ""), "/"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			CodeLength:     getIntEnv("CODE_LENGTH", 6),
			MaxAttempts:    getIntEnv("CODE_MAX_ATTEMPTS", 10),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
	cfg.Log.Environment = cfg.App.Environment

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	switch c.Database.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			return errors.New("database path cannot be empty")
		}
	case BackendPostgres:
		if c.Database.DSN == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid database backend: %s (must be sqlite or postgres)", c.Database.Backend)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("invalid max open connections: %d", c.Database.MaxOpenConns)
	}

	if c.App.BaseURL != "" {
		u, err := url.Parse(c.App.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid base URL: %s", c.App.BaseURL)
		}
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}

	if c.App.CodeLength < 1 || c.App.CodeLength > 32 {
		return fmt.Errorf("invalid code length: %d (must be 1-32)", c.App.CodeLength)
	}
	if c.App.MaxAttempts < 1 {
		return fmt.Errorf("invalid code max attempts: %d", c.App.MaxAttempts)
	}

	if c.Analytics.Enabled && (c.Analytics.BufferSize < 1 || c.Analytics.Workers < 1) {
		return errors.New("analytics buffer and workers must be positive")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
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
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
