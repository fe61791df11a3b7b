package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables, applies defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadStruct populates the tagged fields of v, recursing into nested
// section structs.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value, ok := lookupEnv(name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

// lookupEnv returns the first non-empty value of name or alt.
func lookupEnv(name, alt string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, true
	}
	if alt != "" {
		if v := strings.TrimSpace(os.Getenv(alt)); v != "" {
			return v, true
		}
	}
	return "", false
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}

	switch strings.ToLower(c.Reference.Source) {
	case SourceFile:
		if c.Reference.CatalogPath == "" {
			errs = append(errs, "CATALOG_PATH is required when REFERENCE_SOURCE=file")
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required when REFERENCE_SOURCE=postgres")
		}
		if c.Reference.CatalogTable == "" || c.Reference.StoresTable == "" {
			errs = append(errs, "CATALOG_TABLE and STORES_TABLE must not be empty")
		}
		if c.Database.MaxConns <= 0 || c.Database.MaxConns > math.MaxInt32 {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be between 1 and %d", c.Database.MaxConns, math.MaxInt32))
		}
		if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, fmt.Sprintf("DB_MIN_CONNS (%d) must be between 0 and DB_MAX_CONNS (%d)",
				c.Database.MinConns, c.Database.MaxConns))
		}
	default:
		errs = append(errs, fmt.Sprintf("REFERENCE_SOURCE (%q) must be one of: file, postgres", c.Reference.Source))
	}

	if c.Output.Dir == "" {
		errs = append(errs, "OUTPUT_DIR must not be empty")
	}
	if c.Output.Retention <= 0 {
		errs = append(errs, "OUTPUT_RETENTION must be positive")
	}
	if c.Output.SweepInterval <= 0 {
		errs = append(errs, "OUTPUT_SWEEP_INTERVAL must be positive")
	}

	if c.Rate.Enabled && (c.Rate.RequestsPerMinute <= 0 || c.Rate.GenerateLimit <= 0) {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE and RATE_LIMIT_GENERATE must be positive when rate limiting is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns the configuration for logging with the database URL masked.
func (c *Config) String() string {
	dbURL := ""
	if c.Database.URL != "" {
		dbURL = "[MASKED]"
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, Upload: {MaxFileSize: %d, MaxConcurrent: %d}, "+
		"Reference: {Source: %q, Catalog: %q, Stores: %q}, Database: {URL: %s, MaxConns: %d}, "+
		"Output: {Dir: %q, Retention: %s}, Rules: %q, Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Upload.MaxFileSize, c.Upload.MaxConcurrent,
		c.Reference.Source, c.referenceLocation(c.Reference.CatalogPath, c.Reference.CatalogTable),
		c.referenceLocation(c.Reference.StoresPath, c.Reference.StoresTable),
		dbURL, c.Database.MaxConns,
		c.Output.Dir, c.Output.Retention, c.Pipeline.RulesFile,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Logging.Level, c.Logging.Format)
}

func (c *Config) referenceLocation(path, table string) string {
	if strings.EqualFold(c.Reference.Source, SourcePostgres) {
		return table
	}
	return path
}
