package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_BACKEND", "")
	t.Setenv("BASE_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("CODE_LENGTH", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got: %s", cfg.Server.Port)
	}
	if cfg.Database.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got: %s", cfg.Database.Backend)
	}
	if cfg.App.CodeLength != 6 {
		t.Errorf("Expected code length 6, got: %d", cfg.App.CodeLength)
	}
	if cfg.App.BaseURL != "" {
		t.Errorf("Expected empty base URL, got: %s", cfg.App.BaseURL)
	}
	if len(cfg.App.AllowedOrigins) != 1 || cfg.App.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("Unexpected allowed origins: %v", cfg.App.AllowedOrigins)
	}
	if cfg.Database.QueryTimeout != 30*time.Second {
		t.Errorf("Expected 30s query timeout, got: %v", cfg.Database.QueryTimeout)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/urls?sslmode=disable")
	t.Setenv("BASE_URL", "https://sho.rt/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.com, https://b.com,,")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Backend != BackendPostgres {
		t.Errorf("Expected postgres backend, got: %s", cfg.Database.Backend)
	}
	if cfg.App.BaseURL != "https://sho.rt" {
		t.Errorf("Expected trailing slash trimmed, got: %s", cfg.App.BaseURL)
	}
	if got := strings.Join(cfg.App.AllowedOrigins, "|"); got != "https://a.com|https://b.com" {
		t.Errorf("Unexpected allowed origins: %s", got)
	}
	if !cfg.Redis.Enabled() {
		t.Error("Expected Redis to be enabled")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Database:  DatabaseConfig{Backend: BackendSQLite, Path: ":memory:", MaxOpenConns: 1},
			Analytics: AnalyticsConfig{Enabled: true, BufferSize: 1, Workers: 1},
			App:       AppConfig{Environment: "testing", CodeLength: 6, MaxAttempts: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = "99999" }, true},
		{"unknown backend", func(c *Config) { c.Database.Backend = "mysql" }, true},
		{"postgres without dsn", func(c *Config) { c.Database.Backend = BackendPostgres }, true},
		{"empty sqlite path", func(c *Config) { c.Database.Path = "" }, true},
		{"bad base url", func(c *Config) { c.App.BaseURL = "ftp://x" }, true},
		{"bad environment", func(c *Config) { c.App.Environment = "staging" }, true},
		{"zero code length", func(c *Config) { c.App.CodeLength = 0 }, true},
		{"zero attempts", func(c *Config) { c.App.MaxAttempts = 0 }, true},
		{"no workers", func(c *Config) { c.Analytics.Workers = 0 }, true},
		{"no workers but disabled", func(c *Config) { c.Analytics.Enabled = false; c.Analytics.Workers = 0 }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			c.Log.Level = "info"
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
