// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const defaultJWTSecret = "change-this-secret"

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Pagination PaginationConfig
	Stats      StatsConfig
	Realtime   RealtimeConfig
	RateLimit  RateLimitConfig
	LogLevel   string
}

type ServerConfig struct {
	Host               string
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StoreConfig selects the record store and bounds every store call.
type StoreConfig struct {
	Driver       string
	QueryTimeout time.Duration
}

// RedisConfig is optional; an empty URL disables rate limiting, idempotency
// and the cross-instance relay.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

type JWTConfig struct {
	Secret string
}

type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type StatsConfig struct {
	Timezone     string
	AllowPartial bool
}

type RealtimeConfig struct {
	QueueSize    int
	MaxDropped   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	RelayChannel string
}

type RateLimitConfig struct {
	PerMinute      int
	IdempotencyTTL time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getEnv("SERVER_PORT", "8080"),
			ReadTimeout:        getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:       getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:        getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
			QueryTimeout: getDurationEnv("STORE_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", defaultJWTSecret),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getIntEnv("PAGINATION_DEFAULT_LIMIT", 10),
			MaxLimit:     getIntEnv("PAGINATION_MAX_LIMIT", 100),
		},
		Stats: StatsConfig{
			Timezone:     getEnv("STATS_TIMEZONE", "UTC"),
			AllowPartial: getBoolEnv("STATS_ALLOW_PARTIAL", false),
		},
		Realtime: RealtimeConfig{
			QueueSize:    getIntEnv("REALTIME_QUEUE_SIZE", 64),
			MaxDropped:   getIntEnv("REALTIME_MAX_DROPPED", 256),
			WriteTimeout: getDurationEnv("REALTIME_WRITE_TIMEOUT", 10*time.Second),
			PingInterval: getDurationEnv("REALTIME_PING_INTERVAL", 30*time.Second),
			RelayChannel: getEnv("REALTIME_RELAY_CHANNEL", "payments:updates"),
		},
		RateLimit: RateLimitConfig{
			PerMinute:      getIntEnv("RATE_LIMIT_PER_MINUTE", 120),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
