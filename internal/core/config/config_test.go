package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv makes sure keys set by the host do not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "SERVER_PORT", "STORE_DRIVER",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_SLOW_QUERY_MS",
		"REDIS_URL", "IDEMPOTENCY_TTL_SECONDS", "KAFKA_BROKERS", "KAFKA_ORDER_TOPIC",
		"ORDER_CATALOG_PRICING", "CORS_ORIGIN", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW_SECONDS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_NAME", "shop")

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQuery())
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL())
	assert.Equal(t, "order-events", cfg.Kafka.OrderTopic)
	assert.False(t, cfg.Orders.CatalogPricing)
	assert.Equal(t, "*", cfg.HTTP.CORSOrigin)
	assert.Equal(t, 1000, cfg.HTTP.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.HTTP.RateLimitWindow())
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "orders")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ORDER_CATALOG_PRICING", "true")
	t.Setenv("RATE_LIMIT_MAX", "50")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "orders", cfg.Database.Name)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "k1:9092,k2:9092", cfg.Kafka.Brokers)
	assert.True(t, cfg.Orders.CatalogPricing)
	assert.Equal(t, 50, cfg.HTTP.RateLimitMax)
}

// TestLoad_File verifies that values are loaded from a .env file.
func TestLoad_File(t *testing.T) {
	clearEnv(t)
	content := []byte(`
APP_ENV=staging
LOG_LEVEL=warn
SERVER_PORT=7070
STORE_DRIVER=memory
`)
	err := os.WriteFile(".env", content, 0644)
	require.NoError(t, err)
	defer os.Remove(".env")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}

// TestLoad_ValidationFailure verifies that missing required fields return an error.
func TestLoad_ValidationFailure(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "missing required configuration: DB_USER")
}

// TestLoad_MemoryDriverSkipsDatabase verifies database keys are optional for the memory store.
func TestLoad_MemoryDriverSkipsDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")

	cfg, err := Load(".")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
}

// TestLoad_InvalidDriver verifies unknown drivers are rejected.
func TestLoad_InvalidDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid STORE_DRIVER")
}
