// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultEnv              = "development"
	defaultHTTPHost         = "0.0.0.0"
	defaultHTTPPort         = 8080
	defaultLogLevel         = "info"
	defaultMetricsNamespace = "flexile_liquidation"
	defaultBatchConcurrency = 4
	defaultCacheTTLSeconds  = 30
)

// Config keeps the runtime configuration for the service and CLI.
type Config struct {
	Env              string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	ClickHouse       ClickHouseConfig
	Redis            RedisConfig
	UseMemory        bool
	LogLevel         logrus.Level
	MetricsNamespace string
	BatchConcurrency int
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// ClickHouseConfig stores analytics connection parameters. Empty DSN disables run summaries.
type ClickHouseConfig struct {
	DSN string
}

// RedisConfig stores preview cache parameters. Empty Addr disables the cache.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

// Load reads an optional .env file, then builds Config from environment variables.
// Variables already set in the environment take precedence over the file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, err
	}
	useMemory, err := getBool("USE_MEMORY", false)
	if err != nil {
		return nil, err
	}
	level, err := logrus.ParseLevel(getString("LOG_LEVEL", defaultLogLevel))
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	concurrency, err := getInt("BATCH_CONCURRENCY", defaultBatchConcurrency)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", concurrency)
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getInt("CACHE_TTL_SECONDS", defaultCacheTTLSeconds)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:              getString("APP_ENV", defaultEnv),
		HTTP:             HTTPConfig{Host: getString("HTTP_HOST", defaultHTTPHost), Port: port},
		Postgres:         PostgresConfig{DSN: os.Getenv("POSTGRES_DSN")},
		ClickHouse:       ClickHouseConfig{DSN: os.Getenv("CLICKHOUSE_DSN")},
		UseMemory:        useMemory,
		LogLevel:         level,
		MetricsNamespace: getString("METRICS_NAMESPACE", defaultMetricsNamespace),
		BatchConcurrency: concurrency,
		Redis: RedisConfig{
			Addr:       os.Getenv("REDIS_ADDR"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
			TTLSeconds: cacheTTL,
		},
	}

	return cfg, nil
}

// Validate checks settings that command flags may still override after Load.
func (c *Config) Validate() error {
	if !c.UseMemory && c.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required unless USE_MEMORY=true")
	}
	return nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("convert %s value %q to bool: %w", key, value, err)
	}
	return parsed, nil
}
