// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the full runtime configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	CatalogPath   string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	AuditBuffer   int
}

// RedisConfig configures the optional history cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	HistoryTTL   time.Duration
}

// KafkaConfig configures the optional audit event sink. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("COBAL_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("COBAL_DATABASE_URL"),
		CatalogPath:   os.Getenv("COBAL_CATALOG_PATH"),
		JWTSigningKey: envOr("COBAL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("COBAL_JWT_ISSUER", "cobal"),
		JWTAudience:   envOr("COBAL_JWT_AUDIENCE", "cobal-api"),
		Redis: RedisConfig{
			URL:          os.Getenv("COBAL_REDIS_URL"),
			PoolSize:     envIntOr("COBAL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("COBAL_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("COBAL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("COBAL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("COBAL_REDIS_WRITE_TIMEOUT", 3*time.Second),
			HistoryTTL:   envDurationOr("COBAL_REDIS_HISTORY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("COBAL_KAFKA_BROKERS")),
			Topic:   envOr("COBAL_KAFKA_AUDIT_TOPIC", "cobal.audit"),
		},
		AuditBuffer: envIntOr("COBAL_AUDIT_BUFFER", 256),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
