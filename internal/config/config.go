// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Host backends.
const (
	BackendPostgres   = "postgres"
	BackendSQLite     = "sqlite"
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Host      HostConfig
	Sheets    SheetsConfig
	Reconcile ReconcileConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	History   HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, passes can be long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-pass requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxUploadSize caps uploaded CSV files in bytes (default: 20MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"20971520"`
}

// DatabaseConfig holds database connection settings. The URL is only
// required for the postgres host backend; when set it also stores presets
// and run history.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// HostConfig selects and configures the media library backend.
type HostConfig struct {
	// Backend is one of postgres, sqlite, filesystem, memory (default: sqlite)
	Backend string `env:"HOST_BACKEND" default:"sqlite"`

	// LibraryPath is the SQLite file or the media root directory (default: metasync.db)
	LibraryPath string `env:"HOST_LIBRARY_PATH" envAlt:"LIBRARY_PATH" default:"metasync.db"`

	// AllowedKeys restricts which metadata keys the host accepts; empty accepts all
	AllowedKeys []string `env:"HOST_ALLOWED_KEYS"`

	// MediaExtensions lists file extensions the filesystem backend treats as clips
	MediaExtensions []string `env:"HOST_MEDIA_EXTENSIONS" default:".mov,.mp4,.mxf,.braw,.r3d,.ari,.mkv,.avi,.wav"`

	// ExiftoolPath overrides the exiftool binary for the filesystem backend
	ExiftoolPath string `env:"HOST_EXIFTOOL_PATH"`
}

// SheetsConfig holds Google Sheets access settings.
type SheetsConfig struct {
	// CredentialsPath is the service account key file
	CredentialsPath string `env:"SHEETS_CREDENTIALS_PATH" envAlt:"GOOGLE_APPLICATION_CREDENTIALS"`

	// BaseURL overrides the Sheets API endpoint (default: https://sheets.googleapis.com)
	BaseURL string `env:"SHEETS_BASE_URL" default:"https://sheets.googleapis.com"`

	// Timeout bounds one fetch (default: 30s)
	Timeout time.Duration `env:"SHEETS_TIMEOUT" default:"30s"`
}

// ReconcileConfig holds pass execution settings.
type ReconcileConfig struct {
	// MaxConcurrent is the number of passes allowed at once (default: 1)
	MaxConcurrent int `env:"RECONCILE_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a request waits for a pass slot (default: 30s)
	MaxWaitTime time.Duration `env:"RECONCILE_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single pass (default: 30m)
	Timeout time.Duration `env:"RECONCILE_TIMEOUT" default:"30m"`

	// MaxRows rejects datasets larger than this (default: 50000)
	MaxRows int `env:"RECONCILE_MAX_ROWS" default:"50000"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// HistoryConfig holds run history retention settings.
type HistoryConfig struct {
	// RetentionDays is how long pass records are kept (default: 90)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`

	// CheckInterval is how often old records are pruned (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`

	// MaxEntries caps in-memory history when no database is configured (default: 200)
	MaxEntries int `env:"HISTORY_MAX_ENTRIES" default:"200"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Retention returns the history retention as a duration.
func (c *HistoryConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
