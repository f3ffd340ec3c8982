package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env      string
	LogLevel string
	Port     uint16
	API      APIConfig
	Address  AddressConfig
	Session  SessionConfig
	Events   EventsConfig
	Checkout CheckoutConfig
	Sentry   SentryConfig
}

// APIConfig points at the shop REST API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration

	// BreakerFailures is the number of consecutive upstream failures that
	// opens the circuit. Zero disables the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// AddressConfig points at the public administrative-division directory.
type AddressConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

// SessionConfig selects where sessions live and how the cookie is issued.
//   - Store "memory": single process, lost on restart
//   - Store "redis": shared between replicas, requires RedisURL
type SessionConfig struct {
	Store      string
	RedisURL   string
	CookieName string
	TTL        time.Duration
	Secure     bool
	BaseDomain string
}

// EventsConfig enables NATS fan-out. Without a URL events stay in-process.
type EventsConfig struct {
	NATSURL string
	Subject string
}

type CheckoutConfig struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	WalletQRTTL           time.Duration
	WalletVerifyDelay     time.Duration
	BuyNowMode            string // "saga" or "direct"
	BuyNowTTL             time.Duration
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 3000),
		API: APIConfig{
			BaseURL:         getEnv("API_BASE_URL", "http://localhost:8000/api/"),
			Timeout:         getEnvDuration("API_TIMEOUT", 10*time.Second),
			BreakerFailures: uint32(getEnvInt("API_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getEnvDuration("API_BREAKER_TIMEOUT", 30*time.Second),
		},
		Address: AddressConfig{
			BaseURL:  getEnv("ADDRESS_API_URL", "https://provinces.open-api.vn/api"),
			CacheTTL: getEnvDuration("ADDRESS_CACHE_TTL", 24*time.Hour),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "memory"),
			RedisURL:   getEnv("REDIS_URL", ""),
			CookieName: getEnv("SESSION_COOKIE_NAME", "atelier_session"),
			TTL:        getEnvDuration("SESSION_TTL", 7*24*time.Hour),
			Secure:     getEnvBool("SESSION_SECURE", false),
			BaseDomain: getEnv("BASE_DOMAIN", ""),
		},
		Events: EventsConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT_PREFIX", "atelier"),
		},
		Checkout: CheckoutConfig{
			FreeShippingThreshold: getEnvDecimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(500000)),
			FlatShippingFee:       getEnvDecimal("FLAT_SHIPPING_FEE", decimal.NewFromInt(30000)),
			WalletQRTTL:           getEnvDuration("WALLET_QR_TTL", 5*time.Minute),
			WalletVerifyDelay:     getEnvDuration("WALLET_VERIFY_DELAY", 3*time.Second),
			BuyNowMode:            getEnv("CHECKOUT_BUY_NOW_MODE", "saga"),
			BuyNowTTL:             getEnvDuration("BUY_NOW_TTL", 30*time.Minute),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Enabled:          getEnvBool("SENTRY_ENABLED", false), // Disabled by default for development
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:          getEnv("SENTRY_RELEASE", ""),
			SampleRate:       getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0.0),
			Debug:            getEnvBool("SENTRY_DEBUG", false),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Checkout.BuyNowMode != "saga" && cfg.Checkout.BuyNowMode != "direct" {
		slog.Default().Warn("Invalid buy-now mode. Using default: saga", slog.String("value", cfg.Checkout.BuyNowMode))
		cfg.Checkout.BuyNowMode = "saga"
	}

	switch cfg.Session.Store {
	case "memory":
	case "redis":
		if cfg.Session.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL required when SESSION_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Session.Store)
	}

	if cfg.Env == "prod" {
		if os.Getenv("API_BASE_URL") == "" {
			return nil, fmt.Errorf("API_BASE_URL must be set in production environment")
		}
		if strings.HasPrefix(cfg.API.BaseURL, "http://localhost") {
			slog.Default().Warn("API_BASE_URL points at localhost in production", slog.String("url", cfg.API.BaseURL))
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
