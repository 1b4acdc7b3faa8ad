package config

import (
	"os"
	"strconv"
	"strings"
)

// Auth modes.
const (
	AuthModeNone    = "none"
	AuthModeGateway = "gateway"
	AuthModeJWT     = "jwt"
)

// DefaultMaxMelodyLength bounds the melody after structural expansion.
const DefaultMaxMelodyLength = 4096

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Storage. Empty disables persistence; a postgres:// URL selects Postgres,
	// anything else is treated as a SQLite file path.
	DatabaseURL string

	// Observability
	SentryDSN string

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	// - "jwt": Require an HS256 bearer token signed with JWTSecret
	AuthMode  string
	JWTSecret string

	// Harmonization
	PresetsFile     string // optional YAML overriding the embedded presets
	MaxMelodyLength int
}

func Load() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		AuthMode:        strings.ToLower(getEnv("AUTH_MODE", AuthModeNone)), // Default to no auth for self-hosted
		JWTSecret:       getEnv("JWT_SECRET", ""),
		PresetsFile:     getEnv("PRESETS_FILE", ""),
		MaxMelodyLength: getEnvInt("MAX_MELODY_LENGTH", DefaultMaxMelodyLength),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// IsGatewayMode returns true if running behind an authenticating gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == AuthModeGateway
}

// IsJWTMode returns true if bearer tokens are verified locally
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == AuthModeJWT
}

// PersistenceEnabled reports whether compositions can be stored.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}
