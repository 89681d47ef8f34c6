// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Redis (optional, dashboard cache disabled if not set)
	RedisURL string

	// ML service delegation
	MLServiceURL string        // Base URL of the external model service (optional)
	MLTimeout    time.Duration // Per-call budget; timeout is treated as "unreachable"

	// Fraud scoring policy
	FraudThreshold int    // Score at or above which a transaction is fraudulent
	HomeCountry    string // Location penalty applies to transactions outside this country

	// Observability
	OTLPEndpoint string // OTLP/gRPC trace collector (optional)

	// Security
	RateLimitRPM int
}

// Defaults
const (
	DefaultPort           = "5000"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultMLTimeoutMS    = 3000
	DefaultFraudThreshold = 70
	DefaultHomeCountry    = "US"
	DefaultRateLimit      = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:    os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RedisURL:       os.Getenv("REDIS_URL"),
		MLServiceURL:   os.Getenv("ML_SERVICE_URL"),
		MLTimeout:      time.Duration(getEnvInt64("ML_TIMEOUT_MS", DefaultMLTimeoutMS)) * time.Millisecond,
		FraudThreshold: int(getEnvInt64("FRAUD_THRESHOLD", DefaultFraudThreshold)),
		HomeCountry:    getEnv("HOME_COUNTRY", DefaultHomeCountry),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:   int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.FraudThreshold < 0 || c.FraudThreshold > 100 {
		return fmt.Errorf("FRAUD_THRESHOLD must be between 0 and 100, got %d", c.FraudThreshold)
	}

	if c.MLTimeout <= 0 {
		return fmt.Errorf("ML_TIMEOUT_MS must be positive")
	}

	if c.HomeCountry == "" {
		return fmt.Errorf("HOME_COUNTRY must not be empty")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
