package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// Config holds the environment configuration for both processes.
// Empty addresses disable the optional integrations.
type Config struct {
	ServiceName string
	ServiceID   string
	HTTPPort    int

	StoreDriver string
	Database    DatabaseConfig

	RedisAddr string
	CacheTTL  time.Duration

	AMQPURL string

	ConsulAddr string

	LogLevel     string
	LogFormat    string
	OTLPEndpoint string

	DefaultPageSize int
	MaxPageSize     int

	OrderServiceName  string
	OrderServiceURL   string
	LowStockThreshold int

	// ConsumerRetryDelay is the pause before a failed delivery is requeued.
	ConsumerRetryDelay  time.Duration
	ConsumerMaxAttempts int
}

// Load reads the configuration from environment variables with defaults.
func Load() (*Config, error) {
	var errs []error
	intEnv := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	serviceName := getEnv("SERVICE_NAME", "order-service")
	cfg := &Config{
		ServiceName: serviceName,
		ServiceID:   getEnv("SERVICE_ID", serviceName+"-1"),
		HTTPPort:    intEnv("HTTP_PORT", 8080),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         intEnv("DB_PORT", 5432),
			User:         getEnv("DB_USER", "orders"),
			Password:     getEnv("DB_PASSWORD", "orders"),
			Name:         getEnv("DB_NAME", "orders"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: intEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: intEnv("DB_MAX_IDLE_CONNS", 5),
		},

		RedisAddr:  os.Getenv("REDIS_ADDR"),
		AMQPURL:    os.Getenv("AMQP_URL"),
		ConsulAddr: os.Getenv("CONSUL_ADDR"),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		DefaultPageSize: intEnv("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:     intEnv("MAX_PAGE_SIZE", 100),

		OrderServiceName:  getEnv("ORDER_SERVICE_NAME", "order-service"),
		OrderServiceURL:   getEnv("ORDER_SERVICE_URL", "http://localhost:8080"),
		LowStockThreshold: intEnv("LOW_STOCK_THRESHOLD", 5),

		ConsumerMaxAttempts: intEnv("CONSUMER_MAX_ATTEMPTS", 5),
	}

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CACHE_TTL: %w", err))
	}
	cfg.CacheTTL = ttl

	retryDelay, err := time.ParseDuration(getEnv("CONSUMER_RETRY_DELAY", "5s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CONSUMER_RETRY_DELAY: %w", err))
	}
	cfg.ConsumerRetryDelay = retryDelay

	// Basic validation
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q",
			StoreDriverPostgres, StoreDriverMemory, cfg.StoreDriver))
	}
	if cfg.DefaultPageSize < 1 || cfg.MaxPageSize < cfg.DefaultPageSize {
		errs = append(errs, fmt.Errorf("page sizes must satisfy 1 <= DEFAULT_PAGE_SIZE <= MAX_PAGE_SIZE"))
	}

	if cfg.ConsumerMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("CONSUMER_MAX_ATTEMPTS must be at least 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
