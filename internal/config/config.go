package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend constants
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// JWT settings (bearer auth on the API surface)
	JWTSecret     string
	JWTExpiration time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// OAuth connection broker (Nango-style API)
	BrokerAPIURL             string
	BrokerSecretKey          string
	BrokerAuthMode           string // "none", "simple", or "hmac"
	BrokerAuthHeader         string // Header name for simple mode
	BrokerTimeout            time.Duration
	BrokerInsecureSkipVerify bool
	BrokerMaxRetries         int
	BrokerRetryDelay         time.Duration
	BrokerMaxRetryDelay      time.Duration

	// Sink provider (where tasks are materialized when the source
	// provider cannot host them)
	SinkProviderKind    string
	SinkDefaultProject  string
	ProjectCacheTTL     time.Duration
	ProjectCacheBackend string // "memory" or "redis"

	// Redis (only used when ProjectCacheBackend is "redis")
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	RedisClientTTL time.Duration

	// Sync settings
	MinSyncInterval time.Duration

	// SyncRateLimitPerMinute caps POST /api/sync calls per client IP.
	// Zero disables rate limiting.
	SyncRateLimitPerMinute int
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "universal-inbox.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		JWTSecret:     getEnv("JWT_SECRET", "your-256-bit-secret-change-in-production"),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION", time.Hour),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		BrokerAPIURL:             getEnv("BROKER_API_URL", ""),
		BrokerSecretKey:          getEnv("BROKER_SECRET_KEY", ""),
		BrokerAuthMode:           getEnv("BROKER_AUTH_MODE", "simple"),
		BrokerAuthHeader:         getEnv("BROKER_AUTH_HEADER", "Authorization"),
		BrokerTimeout:            getEnvDuration("BROKER_TIMEOUT", 10*time.Second),
		BrokerInsecureSkipVerify: getEnvBool("BROKER_INSECURE_SKIP_VERIFY", false),
		BrokerMaxRetries:         getEnvInt("BROKER_MAX_RETRIES", 3),
		BrokerRetryDelay:         getEnvDuration("BROKER_RETRY_DELAY", 1*time.Second),
		BrokerMaxRetryDelay:      getEnvDuration("BROKER_MAX_RETRY_DELAY", 10*time.Second),

		SinkProviderKind:    getEnv("SINK_PROVIDER_KIND", "todoist"),
		SinkDefaultProject:  getEnv("SINK_DEFAULT_PROJECT", "Inbox"),
		ProjectCacheTTL:     getEnvDuration("PROJECT_CACHE_TTL", 5*time.Minute),
		ProjectCacheBackend: getEnv("PROJECT_CACHE_BACKEND", CacheBackendMemory),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "universal-inbox:"),
		RedisClientTTL: getEnvDuration("REDIS_CLIENT_TTL", 30*time.Second),

		MinSyncInterval:        getEnvDuration("MIN_SYNC_INTERVAL", 5*time.Minute),
		SyncRateLimitPerMinute: getEnvInt("SYNC_RATE_LIMIT_PER_MINUTE", 60),
	}
}

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for postgres")
	}
	if c.BrokerAPIURL == "" {
		return fmt.Errorf("BROKER_API_URL is required")
	}
	if c.ProjectCacheBackend != CacheBackendMemory &&
		c.ProjectCacheBackend != CacheBackendRedis {
		return fmt.Errorf("unsupported project cache backend: %s", c.ProjectCacheBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
