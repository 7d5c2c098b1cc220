// Package config loads service settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	// RedisURL selects Redis-backed caches and limiters; empty means in-memory.
	RedisURL        string `env:"REDIS_URL"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	AuthJWKSURL    string `env:"AUTH_JWKS_URL"`
	AuthIssuer     string `env:"AUTH_ISSUER"`
	AuthAudience   string `env:"AUTH_AUDIENCE" envDefault:"authenticated"`
	IdentitySchema string `env:"IDENTITY_SCHEMA" envDefault:"auth"`

	AllowTestSeeding string `env:"ALLOW_TEST_SEEDING"`
	SeedSecretKey    string `env:"SEED_SECRET_KEY"`

	DeleteCascadeTransactional bool   `env:"DELETE_CASCADE_TRANSACTIONAL" envDefault:"false"`
	OrphanSweepSchedule        string `env:"ORPHAN_SWEEP_SCHEDULE" envDefault:"@every 6h"`

	StatusCacheTTL time.Duration `env:"STATUS_CACHE_TTL" envDefault:"5m"`
	RateLimit      int           `env:"RATE_LIMIT" envDefault:"30"`
	RateWindow     time.Duration `env:"RATE_WINDOW" envDefault:"1m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// SeedingEnabled is true only for the literal value "true".
func (c *Config) SeedingEnabled() bool { return c.AllowTestSeeding == "true" }

// ValidateServe checks the settings the HTTP server cannot start without.
func (c *Config) ValidateServe() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.AuthJWKSURL == "" {
		errs = append(errs, errors.New("AUTH_JWKS_URL is required"))
	}
	return errors.Join(errs...)
}
