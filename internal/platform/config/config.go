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

Only the settings of the selected store backend are required: a memory store
needs nothing, a file store needs a path, redis and postgres need a URL.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/storyweaver/pkg/query"
)

// # Store Backends

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// # Configuration Schema

// Config holds all runtime configuration for the StoryWeaver API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Reading-state storage
	StoreBackend  string `env:"STORE_BACKEND"   envDefault:"file"`
	StoreFilePath string `env:"STORE_FILE_PATH" envDefault:"./data/storyweaver.json"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	RedisPrefix   string `env:"REDIS_PREFIX"    envDefault:"storyweaver:kv:"`

	// Catalogue document served by /novels
	CatalogPath string `env:"CATALOG_PATH" envDefault:"./data/catalog.json"`

	// Reader profiles
	ProfileTokenSecret string `env:"PROFILE_TOKEN_SECRET"`
	DefaultProfile     string `env:"DEFAULT_PROFILE" envDefault:"local"`

	// Scroll sample coalescing window
	ProgressThrottle time.Duration `env:"PROGRESS_THROTTLE" envDefault:"1s"`

	// Idle time after which a profile session is flushed and dropped; 0 keeps
	// sessions for the life of the process
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	// Observability
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Cross-Origin Resource Sharing, comma separated
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings required by the selected backend.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
		if c.IsProduction() {
			return fmt.Errorf("config: the %s backend is not durable and cannot be used in production", c.StoreBackend)
		}
	case BackendFile:
		if strings.TrimSpace(c.StoreFilePath) == "" {
			return fmt.Errorf("config: STORE_FILE_PATH is required for the %s backend", c.StoreBackend)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for the %s backend", c.StoreBackend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.ProgressThrottle <= 0 {
		return fmt.Errorf("config: PROGRESS_THROTTLE must be positive, got %s", c.ProgressThrottle)
	}
	if c.SessionIdleTTL < 0 {
		return fmt.Errorf("config: SESSION_IDLE_TTL must not be negative, got %s", c.SessionIdleTTL)
	}
	if strings.TrimSpace(c.DefaultProfile) == "" && c.ProfileTokenSecret == "" {
		return fmt.Errorf("config: either DEFAULT_PROFILE or PROFILE_TOKEN_SECRET must be set")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins splits ExtraOrigins into trimmed, non-empty entries.
func (c *Config) AllowedOrigins() []string {
	return query.StringSlice(c.ExtraOrigins)
}
