package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "HTTP_HOST", "HTTP_PORT", "POSTGRES_DSN", "CLICKHOUSE_DSN", "USE_MEMORY",
	"LOG_LEVEL", "METRICS_NAMESPACE", "BATCH_CONCURRENCY", "REDIS_ADDR", "REDIS_PASSWORD",
	"REDIS_DB", "CACHE_TTL_SECONDS",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("USE_MEMORY", "true")

	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.UseMemory)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "flexile_liquidation", cfg.MetricsNamespace)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 30, cfg.Redis.TTLSeconds)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@db:5432/flexile")
	t.Setenv("CLICKHOUSE_DSN", "clickhouse://ch:9000/analytics")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BATCH_CONCURRENCY", "8")

	cfg, err := LoadFile(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, "postgres://u:p@db:5432/flexile", cfg.Postgres.DSN)
	assert.Equal(t, "clickhouse://ch:9000/analytics", cfg.ClickHouse.DSN)
	assert.False(t, cfg.UseMemory)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 8, cfg.BatchConcurrency)
}

func TestLoad_EnvFileDoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	content := "HTTP_PORT=7100\nUSE_MEMORY=true\nMETRICS_NAMESPACE=from_file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.True(t, cfg.UseMemory)
	assert.Equal(t, "from_file", cfg.MetricsNamespace)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"USE_MEMORY": "true", "HTTP_PORT": "eighty"}},
		{"bad bool", map[string]string{"USE_MEMORY": "sometimes"}},
		{"bad log level", map[string]string{"USE_MEMORY": "true", "LOG_LEVEL": "loud"}},
		{"zero concurrency", map[string]string{"USE_MEMORY": "true", "BATCH_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(missingFile(t))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{UseMemory: true}).Validate())
	assert.NoError(t, (&Config{Postgres: PostgresConfig{DSN: "postgres://db/flexile"}}).Validate())
}
