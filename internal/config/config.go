// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// PostgresDSN is required: the derived tables always live in Postgres.
	PostgresDSN string

	// ClickhouseDSN is optional. When set, raw bars, metadata, and macro
	// series are read from ClickHouse instead of Postgres.
	ClickhouseDSN string

	// BenchmarkTicker is the index all relative-strength values divide by.
	BenchmarkTicker string

	// MetricsAddr is the Prometheus HTTP listen address. Empty disables it.
	MetricsAddr string

	// RecomputeSchedule is a cron expression. Empty means run once and exit.
	RecomputeSchedule string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		// Best effort: a missing default .env is fine.
		_ = godotenv.Load()
	}

	cfg := &Config{
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN:     os.Getenv("CLICKHOUSE_DSN"),
		BenchmarkTicker:   getEnv("BENCHMARK_TICKER", "^GSPC"),
		MetricsAddr:       getEnv("METRICS_ADDR", ":9090"),
		RecomputeSchedule: os.Getenv("RECOMPUTE_SCHEDULE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if c.BenchmarkTicker == "" {
		return fmt.Errorf("BENCHMARK_TICKER must not be empty")
	}
	return nil
}

// getEnv returns the environment value or a fallback when unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
