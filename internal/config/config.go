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
	Upload   UploadConfig
	Fetch    FetchConfig
	View     ViewConfig
	Session  SessionConfig
	Search   SearchConfig
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

	// ReadTimeout is the maximum duration for reading request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, remote fetches can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 180s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"180s"`
}

// DatabaseConfig holds the optional load-audit database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the load audit.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// UploadConfig holds upload and paste limits.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one uploaded file in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxFiles is the maximum number of files in one upload (default: 20)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`

	// MaxConcurrent is the maximum number of loads processed at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a load slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// FetchConfig holds remote source settings.
type FetchConfig struct {
	// Enabled allows loading from URLs (default: true)
	Enabled bool `env:"FETCH_ENABLED" default:"true"`

	// Timeout bounds one fetch including retries (default: 120s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"120s"`

	// RetryMax is the number of retries for transient failures (default: 2)
	RetryMax int `env:"FETCH_RETRY_MAX" default:"2"`

	// MaxBytes caps the response size (default: 100MB)
	MaxBytes int64 `env:"FETCH_MAX_BYTES" default:"104857600"`

	// AllowPrivate permits URLs that resolve to loopback, private or
	// link-local addresses (default: false)
	AllowPrivate bool `env:"FETCH_ALLOW_PRIVATE" default:"false"`

	// AllowedHosts is a comma-separated host allowlist; empty allows any
	// public host. A leading "." matches subdomains.
	AllowedHosts []string `env:"FETCH_ALLOWED_HOSTS"`
}

// ViewConfig holds table display settings.
type ViewConfig struct {
	// DefaultRows is the number of explorer rows shown by default (default: 500)
	DefaultRows int `env:"VIEW_DEFAULT_ROWS" default:"500"`

	// MaxRows is the largest row count a user may request (default: 5000)
	MaxRows int `env:"VIEW_MAX_ROWS" default:"5000"`

	// FilterMaxDistinct is the distinct-value cap for default filter columns (default: 100)
	FilterMaxDistinct int `env:"VIEW_FILTER_MAX_DISTINCT" default:"100"`

	// FilterMaxColumns is how many default filter columns are offered (default: 6)
	FilterMaxColumns int `env:"VIEW_FILTER_MAX_COLUMNS" default:"6"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// IdleTimeout evicts sessions unused for this long (default: 2h)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`

	// SweepInterval is how often idle sessions are evicted (default: 10m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"10m"`

	// CookieName names the session cookie (default: projview_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"projview_session"`

	// CookieSecure sets the Secure flag on the session cookie (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// SearchConfig holds dropdown search settings.
type SearchConfig struct {
	// Enabled builds a full-text index per load (default: true)
	Enabled bool `env:"SEARCH_ENABLED" default:"true"`

	// Limit caps search results (default: 50)
	Limit int `env:"SEARCH_LIMIT" default:"50"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// LoadLimit is requests per minute for load endpoints (default: 10)
	LoadLimit int `env:"RATE_LIMIT_LOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with an X-API-Key header (default: false)
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
