// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// ImportConfig holds the catalog import pipeline defaults.
// A run copies these values once at start; changing the environment of a
// running process never affects an import that is already in flight.
type ImportConfig struct {
	// SearchBatchSize is the page size for search-all lookups (default: 100)
	SearchBatchSize int `env:"IMPORT_SEARCH_BATCH_SIZE" default:"100"`

	// LoadBatchSize is the page size for loading existing products (default: 50)
	LoadBatchSize int `env:"IMPORT_LOAD_BATCH_SIZE" default:"50"`

	// SaveBatchSize is the number of products persisted per batch (default: 10)
	SaveBatchSize int `env:"IMPORT_SAVE_BATCH_SIZE" default:"10"`

	// Delimiter is the default column delimiter of import files (default: ;)
	Delimiter string `env:"IMPORT_DELIMITER" default:";"`

	// ValueSeparator separates multiple values inside one cell (default: ;)
	ValueSeparator string `env:"IMPORT_VALUE_SEPARATOR" default:";"`

	// LanguageSeparator separates a language code from its value (default: __)
	LanguageSeparator string `env:"IMPORT_LANGUAGE_SEPARATOR" default:"__"`

	// ColorSeparator separates a value from its color code (default: |)
	ColorSeparator string `env:"IMPORT_COLOR_SEPARATOR" default:"|"`

	// Escape wraps literals containing separators (default: `)
	Escape string "env:\"IMPORT_ESCAPE\" default:\"`\""

	// CreateDictionaryValues creates missing dictionary items instead of reporting them (default: false)
	CreateDictionaryValues bool `env:"IMPORT_CREATE_DICTIONARY_VALUES" default:"false"`

	// DefaultLanguage is used when the catalog has no default language (default: en-US)
	DefaultLanguage string `env:"IMPORT_DEFAULT_LANGUAGE" default:"en-US"`

	// DefaultCurrency fills prices imported without a currency (default: USD)
	DefaultCurrency string `env:"IMPORT_DEFAULT_CURRENCY" default:"USD"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel import runs (default: 3)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single import run (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`

	// ResultTTL is how long a finished run stays queryable (default: 15m)
	ResultTTL time.Duration `env:"IMPORT_RESULT_TTL" default:"15m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
