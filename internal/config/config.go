// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers accepted by LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderLocal     = "local"
	ProviderNone      = "none"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// HTTP surface
	JWTSecret      string
	AllowedOrigins []string

	// LLM settings
	LLMProvider     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	LLMBaseURL      string
	NLUModel        string
	ReplyModel      string

	// Pipeline
	NLUTimeout           time.Duration
	ReplyTimeout         time.Duration
	CatalogTimeout       time.Duration
	EventQueryLimit      int
	GreetingShortCircuit bool

	// Storage
	StoreDriver  string
	DatabasePath string
	SeedCatalog  bool

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string
	LogFile  string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// HTTP surface
		JWTSecret:      getEnv("JWT_SECRET", "development-secret-change-in-production"),
		AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", ProviderLocal),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "http://localhost:4891/v1"),
		NLUModel:        getEnv("NLU_MODEL", ""),
		ReplyModel:      getEnv("REPLY_MODEL", ""),

		// Pipeline
		NLUTimeout:           getDurationEnv("NLU_TIMEOUT", 30*time.Second),
		ReplyTimeout:         getDurationEnv("REPLY_TIMEOUT", 30*time.Second),
		CatalogTimeout:       getDurationEnv("CATALOG_TIMEOUT", 5*time.Second),
		EventQueryLimit:      getIntEnv("EVENT_QUERY_LIMIT", 20),
		GreetingShortCircuit: getBoolEnv("GREETING_SHORT_CIRCUIT", true),

		// Storage
		StoreDriver:  getEnv("STORE_DRIVER", StoreSQLite),
		DatabasePath: getEnv("DATABASE_PATH", "data/concierge.db"),
		SeedCatalog:  getBoolEnv("SEED_CATALOG", false),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderLocal, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.StoreDriver {
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.EventQueryLimit <= 0 {
		errs = append(errs, errors.New("EVENT_QUERY_LIMIT must be positive"))
	}
	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.NLUTimeout <= 0 || c.ReplyTimeout <= 0 || c.CatalogTimeout <= 0 {
		errs = append(errs, errors.New("pipeline timeouts must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
