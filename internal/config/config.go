// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full environment surface of the service. Command-line flags
// in main may override Listen and DBPath.
type Config struct {
	// DBPath is the SQLite database file backing all three tiers.
	DBPath string `env:"GIGWIRE_DB_PATH" envDefault:"gigwire.db"`
	// Listen is the HTTP listen address.
	Listen string `env:"GIGWIRE_LISTEN" envDefault:":8080"`

	// EnableScheduler controls the periodic trigger; sub-operations stay
	// available over the API either way.
	EnableScheduler bool `env:"GIGWIRE_ENABLE_SCHEDULER" envDefault:"true"`
	// PublishIntervalMinutes is the cadence of the automatic publish workflow.
	PublishIntervalMinutes int `env:"GIGWIRE_PUBLISH_INTERVAL" envDefault:"60"`
	// MockIngestHour is the daily hour (0-23) of the mock-scraper run;
	// -1 disables it.
	MockIngestHour int `env:"GIGWIRE_MOCK_INGEST_HOUR" envDefault:"6"`

	// PublishBatchSize caps how many records one publish cycle moves.
	PublishBatchSize int `env:"GIGWIRE_PUBLISH_BATCH_SIZE" envDefault:"500"`

	// AllowRepublishCorrection lets a corrected re-ingestion reopen an
	// already-published record. Off by default: published data is immutable
	// history.
	AllowRepublishCorrection bool `env:"GIGWIRE_ALLOW_REPUBLISH_CORRECTION" envDefault:"false"`
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.PublishIntervalMinutes < 1 {
		return fmt.Errorf("publish interval must be at least 1 minute, got %d", c.PublishIntervalMinutes)
	}
	if c.MockIngestHour > 23 {
		return fmt.Errorf("mock ingest hour must be 0-23 or negative to disable, got %d", c.MockIngestHour)
	}
	if c.PublishBatchSize < 1 {
		return fmt.Errorf("publish batch size must be positive, got %d", c.PublishBatchSize)
	}
	return nil
}

// PublishInterval returns the workflow cadence as a duration.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.PublishIntervalMinutes) * time.Minute
}
