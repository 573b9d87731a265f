// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Storage drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// API authentication modes.
const (
	AuthModeToken = "token"
	AuthModeNone  = "none"
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config holds all configuration for the application.
type Config struct {
	ListenAddr         string
	StoreDriver        string
	SQLitePath         string
	DatabaseURL        string
	APISecret          string
	AuthMode           string
	AnonymousOwner     string
	SessionTTL         time.Duration
	BcryptCost         int
	RateLimitPerMinute int
	TrustedProxies     []netip.Prefix
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
	AMQPURL            string
	AMQPExchange       string
	AMQPQueue          string
	GeminiAPIKey       string
	OTelExporter       string
	LogLevel           string
	LogFormat          string
	LogHashSalt        string

	invalidProxies []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":3000"),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		SQLitePath:         getEnv("SQLITE_PATH", "expenses.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		APISecret:          os.Getenv("API_SECRET"),
		AuthMode:           strings.ToLower(getEnv("API_AUTH_MODE", AuthModeToken)),
		AnonymousOwner:     strings.TrimSpace(getEnv("API_ANONYMOUS_OWNER", "guest")),
		SessionTTL:         getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		BcryptCost:         clampCost(getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ReportCacheSize:    getEnvInt("REPORT_CACHE_SIZE", 256),
		ReportCacheTTL:     getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:          getEnv("AMQP_QUEUE", "expense-events"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		OTelExporter:       strings.ToLower(getEnv("OTEL_EXPORTER", ExporterNone)),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogHashSalt:        os.Getenv("LOG_HASH_SALT"),
	}
	cfg.TrustedProxies, cfg.invalidProxies = parsePrefixes(os.Getenv("TRUSTED_PROXIES"))

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and consistent.
func (c *Config) validate() error {
	var errs []string

	if !slices.Contains([]string{StoreMemory, StoreSQLite, StorePostgres}, c.StoreDriver) {
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be one of memory, sqlite, postgres (got %q)", c.StoreDriver))
	}

	if c.StoreDriver == StorePostgres && c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required when STORE_DRIVER=postgres")
	}

	if c.StoreDriver == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, "SQLITE_PATH is required when STORE_DRIVER=sqlite")
	}

	switch c.AuthMode {
	case AuthModeToken:
		if c.APISecret == "" {
			errs = append(errs, "API_SECRET is required when API_AUTH_MODE=token")
		}
	case AuthModeNone:
		if c.AnonymousOwner == "" {
			errs = append(errs, "API_ANONYMOUS_OWNER is required when API_AUTH_MODE=none")
		}
	default:
		errs = append(errs, fmt.Sprintf("API_AUTH_MODE must be token or none (got %q)", c.AuthMode))
	}

	if !slices.Contains([]string{ExporterNone, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC}, c.OTelExporter) {
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER must be one of none, stdout, otlp-http, otlp-grpc (got %q)", c.OTelExporter))
	}

	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_PER_MINUTE must be positive")
	}

	for _, p := range c.invalidProxies {
		errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// EventsEnabled reports whether domain events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// SuggestionsEnabled reports whether category suggestions are available.
func (c *Config) SuggestionsEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// parsePrefixes reads a comma-separated list of CIDRs or bare IPs.
func parsePrefixes(v string) ([]netip.Prefix, []string) {
	var prefixes []netip.Prefix
	var invalid []string
	for _, field := range strings.Split(v, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if p, err := netip.ParsePrefix(field); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(field); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		invalid = append(invalid, field)
	}
	return prefixes, invalid
}

func clampCost(cost int) int {
	return min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
}
