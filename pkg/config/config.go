package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full configuration surface of a scrape run.
type Config struct {
	LogLevel    string
	MetricsPort string

	// Rate governor bounds for inter-request jitter.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Per-fetch retry ceiling before the policy gives up.
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Pagination caps. Zero means uncapped.
	MaxPages   int
	MaxRecords int

	// Proxy pool. An empty list means direct fetches only.
	ProxyList    []string
	CooldownBase time.Duration
	CooldownCap  time.Duration

	// Per-attempt deadline.
	RequestTimeout time.Duration

	// Transport selection. When true, fetches go through a headless browser.
	RenderJS bool

	// Optional external stores. Empty address disables the integration.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PersistRecords   bool

	// Output written by the CLI collaborator.
	OutputFormat string // "json" or "csv"
	OutputDir    string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),

		MinDelay: getEnvAsDuration("MIN_DELAY_MS", 1000) * time.Millisecond,
		MaxDelay: getEnvAsDuration("MAX_DELAY_MS", 3000) * time.Millisecond,

		MaxAttempts: getEnvAsInt("MAX_ATTEMPTS", 3),
		BaseBackoff: getEnvAsDuration("BASE_BACKOFF_MS", 500) * time.Millisecond,
		MaxBackoff:  getEnvAsDuration("MAX_BACKOFF_MS", 30000) * time.Millisecond,

		MaxPages:   getEnvAsInt("MAX_PAGES", 10),
		MaxRecords: getEnvAsInt("MAX_RECORDS", 0),

		ProxyList:    getEnvAsList("PROXY_LIST"),
		CooldownBase: getEnvAsDuration("COOLDOWN_BASE_MS", 5000) * time.Millisecond,
		CooldownCap:  getEnvAsDuration("COOLDOWN_CAP_MS", 300000) * time.Millisecond,

		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT_SECONDS", 30) * time.Second,

		RenderJS: getEnvAsBool("RENDER_JS", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		DedupTTL:      getEnvAsDuration("DEDUP_TTL_HOURS", 24) * time.Hour,

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "scrape"),
		PersistRecords:   getEnvAsBool("PERSIST_RECORDS", false),

		OutputFormat: getEnv("OUTPUT_FORMAT", "json"),
		OutputDir:    getEnv("OUTPUT_DIR", "results"),
	}
}

// Validate rejects configurations that would misbehave at runtime. A run never
// errors out of its entry point for expected network conditions, so a bad
// configuration must fail here, before any request fires.
func (c *Config) Validate() error {
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("delay bounds must be non-negative, got [%s, %s]", c.MinDelay, c.MaxDelay)
	}
	if c.MinDelay > c.MaxDelay {
		return fmt.Errorf("inverted delay bounds: min %s > max %s", c.MinDelay, c.MaxDelay)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.BaseBackoff <= 0 || c.MaxBackoff < c.BaseBackoff {
		return fmt.Errorf("invalid backoff bounds: base=%s max=%s", c.BaseBackoff, c.MaxBackoff)
	}
	if c.MaxPages < 0 || c.MaxRecords < 0 {
		return fmt.Errorf("pagination caps must be non-negative, got pages=%d records=%d", c.MaxPages, c.MaxRecords)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.CooldownBase <= 0 || c.CooldownCap < c.CooldownBase {
		return fmt.Errorf("invalid cooldown bounds: base=%s cap=%s", c.CooldownBase, c.CooldownCap)
	}
	if c.OutputFormat != "json" && c.OutputFormat != "csv" {
		return fmt.Errorf("unknown output format %q", c.OutputFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
