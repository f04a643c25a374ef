package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvPreview     = "preview"
	EnvProduction  = "production"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Secret used to verify session tokens minted by the external auth
	// provider. Required in production.
	AuthJWTSecret string

	// Secret used to HMAC-sign license decision payloads.
	LicenseSigningSecret string

	// Shared secret for verifying payment webhook signatures.
	StripeWebhookSecret string

	// Public base URL for desktop release downloads.
	ReleaseBaseURL string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RateLimit RateLimitConfig
}

// RateLimitConfig controls the redis-backed token bucket applied to the
// unauthenticated license endpoints.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ActivateRate  float64
	ActivateBurst int
	VerifyRate    float64
	VerifyBurst   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := normalizeEnv(getenv("ENVIRONMENT", EnvDevelopment))

	cfg := Config{
		AppName:              getenv("APP_SERVICE", "keyserver"),
		AppVersion:           getenv("APP_VERSION", "0.1.0"),
		Environment:          environment,
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret:        strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		LicenseSigningSecret: strings.TrimSpace(getenv("LICENSE_SIGNING_SECRET", "")),
		StripeWebhookSecret:  strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
		ReleaseBaseURL:       strings.TrimSpace(getenv("RELEASE_BASE_URL", "")),
		OTLPEndpoint:         getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "keyserver"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", environment == EnvProduction),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			ActivateRate:  getenvFloat("RATE_LIMIT_ACTIVATE_RATE", 1),
			ActivateBurst: getenvInt("RATE_LIMIT_ACTIVATE_BURST", 10),
			VerifyRate:    getenvFloat("RATE_LIMIT_VERIFY_RATE", 5),
			VerifyBurst:   getenvInt("RATE_LIMIT_VERIFY_BURST", 30),
		},
	}

	return cfg
}

// IsProduction reports whether the service runs in a production-like
// environment. Preview deployments count: they face real traffic.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction || c.Environment == EnvPreview
}

func (c Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func normalizeEnv(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case EnvProduction, EnvPreview:
		return value
	default:
		return EnvDevelopment
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getenvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
