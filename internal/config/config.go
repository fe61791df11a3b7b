// Package config loads the server configuration from environment variables.
// Every setting has a default except the reference data location; Load
// validates the whole set at startup and reports every problem at once.
package config

import (
	"strconv"
	"time"
)

// Reference sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Reference ReferenceConfig
	Database  DatabaseConfig
	Output    OutputConfig
	Pipeline  PipelineConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	// WriteTimeout covers streaming the archive back, so it stays generous.
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	// RequestTimeout applies to the cheap JSON endpoints, not to generation.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"15s"`
}

// UploadConfig holds inventory upload and generation settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted inventory file in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the number of generations allowed at once (default: 1)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a request waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single generation (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// ReferenceConfig says where the catalog and store directory come from.
type ReferenceConfig struct {
	// Source is "file" or "postgres" (default: file)
	Source string `env:"REFERENCE_SOURCE" default:"file"`

	CatalogPath string `env:"CATALOG_PATH"`
	StoresPath  string `env:"STORES_PATH"`

	CatalogTable string `env:"CATALOG_TABLE" default:"product_catalog"`
	StoresTable  string `env:"STORES_TABLE" default:"stores"`
}

// DatabaseConfig holds PostgreSQL settings, used when the reference source
// is postgres.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// OutputConfig holds settings for generated run directories.
type OutputConfig struct {
	Dir           string        `env:"OUTPUT_DIR" default:"output"`
	Retention     time.Duration `env:"OUTPUT_RETENTION" default:"24h"`
	SweepInterval time.Duration `env:"OUTPUT_SWEEP_INTERVAL" default:"1h"`
}

// PipelineConfig points at the optional YAML rules file.
type PipelineConfig struct {
	RulesFile string `env:"PIPELINE_RULES_FILE"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to every route (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// GenerateLimit applies to the generation endpoints (default: 10)
	GenerateLimit int `env:"RATE_LIMIT_GENERATE" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
