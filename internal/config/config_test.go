package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "universal-inbox.db", cfg.DatabaseDSN)
	assert.Equal(t, "simple", cfg.BrokerAuthMode)
	assert.Equal(t, 3, cfg.BrokerMaxRetries)
	assert.Equal(t, "todoist", cfg.SinkProviderKind)
	assert.Equal(t, "Inbox", cfg.SinkDefaultProject)
	assert.Equal(t, CacheBackendMemory, cfg.ProjectCacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.MinSyncInterval)
	assert.Equal(t, 60, cfg.SyncRateLimitPerMinute)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=localhost user=ui dbname=ui")
	t.Setenv("BROKER_API_URL", "https://broker.example.com")
	t.Setenv("BROKER_TIMEOUT", "30s")
	t.Setenv("BROKER_MAX_RETRIES", "5")
	t.Setenv("BROKER_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("PROJECT_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "host=localhost user=ui dbname=ui", cfg.DatabaseDSN)
	assert.Equal(t, "https://broker.example.com", cfg.BrokerAPIURL)
	assert.Equal(t, 30*time.Second, cfg.BrokerTimeout)
	assert.Equal(t, 5, cfg.BrokerMaxRetries)
	assert.True(t, cfg.BrokerInsecureSkipVerify)
	assert.Equal(t, CacheBackendRedis, cfg.ProjectCacheBackend)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BROKER_TIMEOUT", "soon")
	t.Setenv("BROKER_MAX_RETRIES", "many")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.BrokerTimeout)
	assert.Equal(t, 3, cfg.BrokerMaxRetries)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseDriver:      "sqlite",
			DatabaseDSN:         ":memory:",
			BrokerAPIURL:        "https://broker.example.com",
			ProjectCacheBackend: CacheBackendMemory,
		}
	}

	require.NoError(t, valid().Validate())

	t.Run("unsupported driver", func(t *testing.T) {
		cfg := valid()
		cfg.DatabaseDriver = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres requires a DSN", func(t *testing.T) {
		cfg := valid()
		cfg.DatabaseDriver = "postgres"
		cfg.DatabaseDSN = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("broker URL is required", func(t *testing.T) {
		cfg := valid()
		cfg.BrokerAPIURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unsupported cache backend", func(t *testing.T) {
		cfg := valid()
		cfg.ProjectCacheBackend = "memcached"
		assert.Error(t, cfg.Validate())
	})
}
