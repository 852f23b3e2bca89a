// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A '.env' file in the
working directory is loaded first when present; variables already set in the
process environment take precedence over it.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (store, issuer, mailer) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Store Drivers

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the account API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Account store backend: postgres, sqlite or memory
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Embedded database file, used when StoreDriver is sqlite
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/accounts.db"`

	// Key-Value store (Redis). Optional: without it mail is only logged.
	RedisURL      string `env:"REDIS_URL"`
	MailOutboxKey string `env:"MAIL_OUTBOX_KEY" envDefault:"mail:outbox"`

	// MailBaseURL prefixes activation and reset links in outgoing mail.
	MailBaseURL string `env:"MAIL_BASE_URL" envDefault:"http://localhost:8080"`

	// Cryptographic keys for session token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Session token lifetimes
	TokenValidity           time.Duration `env:"TOKEN_VALIDITY"             envDefault:"24h"`
	TokenValidityRememberMe time.Duration `env:"TOKEN_VALIDITY_REMEMBER_ME" envDefault:"720h"`

	// Credential policy
	ResetKeyValidity  time.Duration `env:"RESET_KEY_VALIDITY"  envDefault:"24h"`
	PasswordMinLength int           `env:"PASSWORD_MIN_LENGTH" envDefault:"4"`
	PasswordMaxLength int           `env:"PASSWORD_MAX_LENGTH" envDefault:"100"`

	// Argon2id cost parameters
	HashMemoryKiB   uint32 `env:"HASH_MEMORY_KIB"  envDefault:"65536"`
	HashIterations  uint32 `env:"HASH_ITERATIONS"  envDefault:"3"`
	HashParallelism uint8  `env:"HASH_PARALLELISM" envDefault:"2"`

	// Cleanup of accounts that never completed activation
	UnactivatedAccountTTL time.Duration `env:"UNACTIVATED_ACCOUNT_TTL" envDefault:"72h"`
	ReaperInterval        time.Duration `env:"REAPER_INTERVAL"         envDefault:"1h"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// Proxies (IPs or CIDR ranges) whose X-Forwarded-For / X-Real-IP are
	// believed. Empty means the connection address is the client.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// # Configuration Loading

// Load reads an optional .env file, then parses environment variables into a
// [Config] struct and validates it.
func Load() (*Config, error) {

	// A missing .env file is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks rules that span several fields.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.PasswordMinLength < 1 || c.PasswordMinLength > c.PasswordMaxLength {
		errs = append(errs, fmt.Errorf("invalid password length bounds [%d, %d]", c.PasswordMinLength, c.PasswordMaxLength))
	}
	if c.TokenValidity <= 0 || c.TokenValidityRememberMe <= c.TokenValidity {
		errs = append(errs, errors.New("TOKEN_VALIDITY_REMEMBER_ME must be longer than TOKEN_VALIDITY"))
	}
	if c.ResetKeyValidity <= 0 {
		errs = append(errs, errors.New("RESET_KEY_VALIDITY must be positive"))
	}
	if c.HashMemoryKiB == 0 || c.HashIterations == 0 || c.HashParallelism == 0 {
		errs = append(errs, errors.New("HASH_* parameters must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
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
