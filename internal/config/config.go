// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
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

	// Backend API (the orders/cart/product service this storefront fronts)
	BackendURL     string
	BackendTimeout time.Duration

	// Database (optional, session store falls back to in-memory if not set)
	DatabaseURL string

	// Sessions
	SessionTTL        time.Duration
	SessionCookieName string

	// Payment endpoints rate limit (per IP)
	PaymentRateLimitRPM int

	// Admin
	AdminSecret string // required for order status updates

	// Tracing
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultBackendURL     = "http://localhost:5000"
	DefaultSessionTTL     = 24 * time.Hour
	DefaultCookieName     = "storefront_session"
	DefaultPaymentRPM     = 30
	DefaultBackendTimeout = 15 * time.Second
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		BackendURL:          getEnv("BACKEND_URL", DefaultBackendURL),
		BackendTimeout:      getEnvDuration("BACKEND_TIMEOUT", DefaultBackendTimeout),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		SessionTTL:          getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", DefaultCookieName),
		PaymentRateLimitRPM: int(getEnvInt64("PAYMENT_RATE_LIMIT_RPM", DefaultPaymentRPM)),
		AdminSecret:         os.Getenv("ADMIN_SECRET"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL: %q", c.BackendURL)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.PaymentRateLimitRPM <= 0 {
		return fmt.Errorf("PAYMENT_RATE_LIMIT_RPM must be positive")
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
