// Package config provides configuration management for the creator sync engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Provider  ProviderConfig
	Media     MediaConfig
	Sync      SyncConfig
	Notify    NotifyConfig
	Cleanup   CleanupConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ProviderConfig holds the content provider (actor runner) configuration
type ProviderConfig struct {
	BaseURL     string
	Token       string
	RPS         int
	Timeout     time.Duration
	MaxRetries  int
	CatalogFile string // optional YAML override of the actor catalog
	ProxyGroup  string

	BudgetPerMinute int // shared spend units per minute across instances
	BudgetReserved  int // part of BudgetPerMinute kept for user-triggered syncs
	BudgetMaxWait   time.Duration
}

// MediaConfig holds object storage and ingestion configuration
type MediaConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
	MinBytes        int
	Workers         int
	Timeout         time.Duration
}

// SyncConfig holds sync run configuration
type SyncConfig struct {
	BatchSizes      []int // progressive discovery sizes, ascending
	CommitBatchSize int   // write ceiling per atomic batch
	LeaseTTL        time.Duration
	RunTimeout      time.Duration
}

// NotifyConfig holds error notification configuration.
// An empty RabbitMQURL falls back to log-only notifications.
type NotifyConfig struct {
	RabbitMQURL string
	Exchange    string
	RoutingKey  string
	Queue       string
}

// CleanupConfig holds the cleanup collaborator configuration
type CleanupConfig struct {
	URL     string
	Timeout time.Duration
}

// AuthConfig holds caller authorization configuration
type AuthConfig struct {
	SchedulerSecret string
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional, environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "creator_sync"),
				User:           getEnv("POSTGRES_USER", "creator_sync"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "creator_sync"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Provider: ProviderConfig{
			BaseURL:     getEnv("PROVIDER_BASE_URL", "https://api.apify.com/v2"),
			Token:       getEnv("PROVIDER_TOKEN", ""),
			RPS:         getEnvAsInt("PROVIDER_RPS", 2),
			Timeout:     getEnvAsDuration("PROVIDER_TIMEOUT", 5*time.Minute),
			MaxRetries:  getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
			CatalogFile: getEnv("PROVIDER_CATALOG_FILE", ""),
			ProxyGroup:  getEnv("PROVIDER_PROXY_GROUP", "RESIDENTIAL"),

			BudgetPerMinute: getEnvAsInt("PROVIDER_BUDGET_PER_MINUTE", 2000),
			BudgetReserved:  getEnvAsInt("PROVIDER_BUDGET_RESERVED", 800),
			BudgetMaxWait:   getEnvAsDuration("PROVIDER_BUDGET_MAX_WAIT", 90*time.Second),
		},
		Media: MediaConfig{
			Bucket:          getEnv("MEDIA_BUCKET", ""),
			CredentialsFile: getEnv("MEDIA_CREDENTIALS_FILE", ""),
			PublicBaseURL:   getEnv("MEDIA_PUBLIC_BASE_URL", "https://storage.googleapis.com"),
			MinBytes:        getEnvAsInt("MEDIA_MIN_BYTES", 1000),
			Workers:         getEnvAsInt("MEDIA_WORKERS", 4),
			Timeout:         getEnvAsDuration("MEDIA_TIMEOUT", 30*time.Second),
		},
		Sync: SyncConfig{
			BatchSizes:      getEnvAsIntList("SYNC_BATCH_SIZES", []int{5, 10, 15, 20}),
			CommitBatchSize: getEnvAsInt("SYNC_COMMIT_BATCH_SIZE", 500),
			LeaseTTL:        getEnvAsDuration("SYNC_LEASE_TTL", 10*time.Minute),
			RunTimeout:      getEnvAsDuration("SYNC_RUN_TIMEOUT", 9*time.Minute),
		},
		Notify: NotifyConfig{
			RabbitMQURL: getEnv("RABBITMQ_URL", ""),
			Exchange:    getEnv("NOTIFY_EXCHANGE", "creator_sync"),
			RoutingKey:  getEnv("NOTIFY_ROUTING_KEY", "sync.error"),
			Queue:       getEnv("NOTIFY_QUEUE", "sync_errors"),
		},
		Cleanup: CleanupConfig{
			URL:     getEnv("CLEANUP_URL", ""),
			Timeout: getEnvAsDuration("CLEANUP_TIMEOUT", 2*time.Minute),
		},
		Auth: AuthConfig{
			SchedulerSecret: getEnv("SCHEDULER_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks invariants the sync engine relies on
func (c *Config) Validate() error {
	if len(c.Sync.BatchSizes) == 0 {
		return fmt.Errorf("SYNC_BATCH_SIZES must not be empty")
	}
	for i := 1; i < len(c.Sync.BatchSizes); i++ {
		if c.Sync.BatchSizes[i] <= c.Sync.BatchSizes[i-1] {
			return fmt.Errorf("SYNC_BATCH_SIZES must be strictly ascending, got %v", c.Sync.BatchSizes)
		}
	}
	if c.Sync.RunTimeout <= 0 || c.Sync.RunTimeout >= c.Sync.LeaseTTL {
		return fmt.Errorf("SYNC_RUN_TIMEOUT must be positive and shorter than SYNC_LEASE_TTL, got %s and %s",
			c.Sync.RunTimeout, c.Sync.LeaseTTL)
	}
	if c.Sync.CommitBatchSize <= 0 {
		return fmt.Errorf("SYNC_COMMIT_BATCH_SIZE must be positive")
	}
	if c.Media.Workers <= 0 {
		return fmt.Errorf("MEDIA_WORKERS must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsIntList gets a comma separated list of integers with a default value.
// Any malformed entry discards the whole value.
func getEnvAsIntList(key string, defaultValue []int) []int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []int
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v <= 0 {
			return defaultValue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
