// Copyright (c) 2026 Truyen. All rights reserved.
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

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, worker pools) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Pricing tiers are plain strings here ("201:2,500:5"); the unlock package parses
and validates them so that a malformed table fails startup, not a purchase.
*/
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Truyen API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS"`
	DBStatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"30s"`

	// MigrationPath overrides the embedded migrations with a directory of .sql files.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value Cache (Redis), used for the per-story import lock.
	RedisURL string `env:"REDIS_URL,required"`

	// Access tokens are verified with the public key. The private key is
	// optional and only used by local tooling to mint tokens.
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`

	// Background executor pools
	ImportPoolWorkers int `env:"IMPORT_POOL_WORKERS" envDefault:"8"`
	ImportQueueSize   int `env:"IMPORT_QUEUE_SIZE"   envDefault:"500"`
	FormatPoolWorkers int `env:"FORMAT_POOL_WORKERS" envDefault:"4"`
	FormatQueueSize   int `env:"FORMAT_QUEUE_SIZE"   envDefault:"200"`
	TaskPoolWorkers   int `env:"TASK_POOL_WORKERS"   envDefault:"4"`
	TaskQueueSize     int `env:"TASK_QUEUE_SIZE"     envDefault:"200"`

	// Job tracking
	JobRetention     time.Duration `env:"JOB_RETENTION"       envDefault:"24h"`
	JobSweepInterval time.Duration `env:"JOB_SWEEP_INTERVAL"  envDefault:"5m"`
	JobStallTimeout  time.Duration `env:"JOB_STALL_TIMEOUT"   envDefault:"10m"`
	JobStallPerBatch time.Duration `env:"JOB_STALL_PER_BATCH" envDefault:"30s"`

	// TXT import
	ImportMaxFileSize int64         `env:"IMPORT_MAX_FILE_SIZE" envDefault:"52428800"`
	ImportLockTTL     time.Duration `env:"IMPORT_LOCK_TTL"      envDefault:"2h"`

	// Format-file workflow
	FormatMaxFileSize int64    `env:"FORMAT_MAX_FILE_SIZE" envDefault:"104857600"`
	FormatOutputDir   string   `env:"FORMAT_OUTPUT_DIR"    envDefault:"./data/formatted"`
	ExtraWatermarks   []string `env:"FORMAT_EXTRA_WATERMARKS" envSeparator:"|"`

	// Unlock pricing (MinChapters:DiscountPercent pairs)
	PricingVersion  string `env:"PRICING_VERSION"          envDefault:"2024-01"`
	RangeTiers      string `env:"UNLOCK_RANGE_TIERS"       envDefault:"201:2"`
	FullStoryTiers  string `env:"UNLOCK_FULL_STORY_TIERS"  envDefault:"1:10"`
	UnlockGroupSize int    `env:"UNLOCK_GROUP_SIZE"        envDefault:"50"`
	SpiritStoneRate int64  `env:"SPIRIT_STONE_RATE"        envDefault:"50"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects values the environment parser accepts but the pools cannot run with.
func (c *Config) validate() error {
	if c.ImportPoolWorkers < 1 || c.FormatPoolWorkers < 1 || c.TaskPoolWorkers < 1 {
		return fmt.Errorf("config: every worker pool needs at least one worker")
	}
	if c.UnlockGroupSize < 1 {
		return fmt.Errorf("config: UNLOCK_GROUP_SIZE must be positive")
	}
	if c.SpiritStoneRate < 1 {
		return fmt.Errorf("config: SPIRIT_STONE_RATE must be positive")
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

// AllowedOrigin reports whether origin may call the API from a browser.
func (c *Config) AllowedOrigin(origin string) bool {
	if strings.HasSuffix(origin, ".truyen.app") || origin == "https://truyen.app" {
		return true
	}
	return slices.Contains(c.ExtraOrigins, origin)
}
