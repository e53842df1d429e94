/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	TokenTTL      time.Duration

	// Occurrence expansion safety valves. These are server-side defaults;
	// both remain overridable per request through query parameters.
	MaxOccurrences int
	MaxFutureYears int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("MIMIR_ENV", "development"),
		HTTPBind:    getEnv("MIMIR_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("MIMIR_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("MIMIR_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("MIMIR_DB_DSN", "mimir_calendar.db"),

		JWTSigningKey: getEnv("MIMIR_JWT_SIGNING_KEY", ""),
		TokenTTL:      time.Duration(getEnvInt("MIMIR_TOKEN_TTL_HOURS", 24)) * time.Hour,

		MaxOccurrences: getEnvInt("MIMIR_MAX_OCCURRENCES", 1000),
		MaxFutureYears: getEnvInt("MIMIR_MAX_FUTURE_YEARS", 10),

		TracingEnabled:    getEnvBool("MIMIR_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MIMIR_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MIMIR_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MIMIR_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MIMIR_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("MIMIR_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	if cfg.MaxOccurrences <= 0 {
		return nil, fmt.Errorf("MIMIR_MAX_OCCURRENCES must be positive")
	}
	if cfg.MaxFutureYears <= 0 {
		return nil, fmt.Errorf("MIMIR_MAX_FUTURE_YEARS must be positive")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use MIMIR_ENV",
		"JWT_SIGNING_KEY": "use MIMIR_JWT_SIGNING_KEY",
		"DB_DSN":          "use MIMIR_DB_DSN",
		"TRACING_ENABLED": "use MIMIR_TRACING_ENABLED",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
