// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Optional backends:

  - DATABASE_URL unset: list preferences are kept in memory.
  - REDIS_URL unset: badge counts are not cached between sessions.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the ratesync gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL), optional
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis), optional
	RedisURL string `env:"REDIS_URL"`

	// Session token signing
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"ratesync"`

	// Tracking service
	UpstreamBaseURL   string        `env:"UPSTREAM_BASE_URL"   envDefault:"https://shikimori.one"`
	UpstreamUserAgent string        `env:"UPSTREAM_USER_AGENT" envDefault:"ratesync"`
	UpstreamRPS       float64       `env:"UPSTREAM_RPS"        envDefault:"5"`
	UpstreamBurst     int           `env:"UPSTREAM_BURST"      envDefault:"5"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT"    envDefault:"15s"`

	// List engine
	ListPageSize     int           `env:"LIST_PAGE_SIZE"     envDefault:"50"`
	SearchDebounce   time.Duration `env:"SEARCH_DEBOUNCE"    envDefault:"500ms"`
	LoadRetryInitial time.Duration `env:"LOAD_RETRY_INITIAL" envDefault:"1s"`
	LoadRetryMax     time.Duration `env:"LOAD_RETRY_MAX"     envDefault:"30s"`
	SessionIdleTTL   time.Duration `env:"SESSION_IDLE_TTL"   envDefault:"30m"`
	CountsCacheTTL   time.Duration `env:"COUNTS_CACHE_TTL"   envDefault:"24h"`

	// Cross-Origin Resource Sharing, comma separated scheme://host origins
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.ListPageSize <= 0 || cfg.ListPageSize > 5000 {
		return nil, fmt.Errorf("config: LIST_PAGE_SIZE must be between 1 and 5000, got %d", cfg.ListPageSize)
	}
	if cfg.LoadRetryInitial <= 0 || cfg.LoadRetryMax < cfg.LoadRetryInitial {
		return nil, fmt.Errorf("config: LOAD_RETRY_INITIAL must be positive and not above LOAD_RETRY_MAX")
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the trimmed EXTRA_ORIGINS entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
