// Package config loads service configuration from the environment, with an
// optional YAML file as the base layer. Environment variables always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	Environment    string        `yaml:"environment"`
	Driver         string        `yaml:"driver"`
	DatabaseURL    string        `yaml:"database_url"`
	SQLitePath     string        `yaml:"sqlite_path"`
	KafkaBrokers   []string      `yaml:"kafka_brokers"`
	NotifyTopic    string        `yaml:"notify_topic"`
	PriceTTL       time.Duration `yaml:"price_ttl"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

func defaults() *Config {
	return &Config{
		Environment:    "development",
		Driver:         DriverSQLite,
		SQLitePath:     "./wallet.sqlite",
		NotifyTopic:    "wallet_events",
		PriceTTL:       60 * time.Second,
		CommandTimeout: 5 * time.Second,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables. A .env file in the
// working directory is honored for development.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("NOTIFY_TOPIC"); v != "" {
		cfg.NotifyTopic = v
	}
	if v := os.Getenv("PRICE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PRICE_TTL: %w", err)
		}
		cfg.PriceTTL = d
	}
	if v := os.Getenv("COMMAND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COMMAND_TIMEOUT: %w", err)
		}
		cfg.CommandTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable. Development allows the
// embedded drivers; production and staging require Postgres.
func (c *Config) Validate() error {
	var missing []string

	switch c.Driver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q (want %s, %s or %s)", c.Driver, DriverPostgres, DriverSQLite, DriverMemory)
	}

	if c.Environment == "production" || c.Environment == "staging" {
		if c.Driver != DriverPostgres {
			return errors.New("storage driver must be postgres in " + c.Environment)
		}
	}

	if c.PriceTTL <= 0 {
		return errors.New("price TTL must be positive")
	}
	if c.CommandTimeout <= 0 {
		return errors.New("command timeout must be positive")
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}
	return nil
}
