package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "APP_ENV", "DB_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"KAFKA_BROKERS", "NOTIFY_TOPIC", "PRICE_TTL", "COMMAND_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "./wallet.sqlite", cfg.SQLitePath)
	assert.Equal(t, "wallet_events", cfg.NotifyTopic)
	assert.Equal(t, 60*time.Second, cfg.PriceTTL)
	assert.Equal(t, 5*time.Second, cfg.CommandTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/wallet")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("NOTIFY_TOPIC", "events")
	t.Setenv("PRICE_TTL", "30s")
	t.Setenv("COMMAND_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://localhost/wallet", cfg.DatabaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "events", cfg.NotifyTopic)
	assert.Equal(t, 30*time.Second, cfg.PriceTTL)
	assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"environment: development\ndriver: sqlite\nsqlite_path: /tmp/from-yaml.sqlite\nnotify_topic: yaml_topic\n",
	), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("NOTIFY_TOPIC", "env_topic")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-yaml.sqlite", cfg.SQLitePath)
	// Environment beats the file.
	assert.Equal(t, "env_topic", cfg.NotifyTopic)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:    "development",
			Driver:         DriverSQLite,
			SQLitePath:     "./wallet.sqlite",
			PriceTTL:       time.Minute,
			CommandTimeout: 5 * time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Driver = DriverPostgres
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Environment = "production"
	assert.Error(t, cfg.Validate(), "production must not run on sqlite")

	cfg = valid()
	cfg.Environment = "production"
	cfg.Driver = DriverPostgres
	cfg.DatabaseURL = "postgres://prod/wallet"
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.PriceTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.CommandTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Driver = DriverMemory
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("PRICE_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
