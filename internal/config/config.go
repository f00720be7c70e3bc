package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
)

type Config struct {
	ServerPort      string
	GRPCPort        string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	JWTExpiry       time.Duration
	LogLevel        string
	RegistryBackend string
	ConnectionTTL   time.Duration
	CleanupInterval time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string
}

func LoadConfig() (*Config, error) {
	expiry, err := getEnvDuration("JWT_EXPIRY", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	connTTL, err := getEnvDuration("CONNECTION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cleanupInterval, err := getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	rateWindow, err := getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}
	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT", "100"))
	if err != nil {
		return nil, errors.New("invalid RATE_LIMIT format")
	}

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "9090"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTExpiry:       expiry,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RegistryBackend: getEnv("REGISTRY_BACKEND", RegistryMemory),
		ConnectionTTL:   connTTL,
		CleanupInterval: cleanupInterval,
		RateLimit:       rateLimit,
		RateLimitWindow: rateWindow,
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "chat.events"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "chatnotify"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.RegistryBackend != RegistryMemory && cfg.RegistryBackend != RegistryRedis {
		return nil, fmt.Errorf("REGISTRY_BACKEND must be %q or %q", RegistryMemory, RegistryRedis)
	}

	return cfg, nil
}

// KafkaEnabled reports whether the chat event consumer should run.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", key)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
