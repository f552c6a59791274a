package bootstrap

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/universal-inbox/universal-inbox/internal/cache"
	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/core"
	"github.com/universal-inbox/universal-inbox/internal/metrics"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

// initializeDatabase opens the store and runs migrations.
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	log.Printf("Database initialized (driver=%s)", cfg.DatabaseDriver)
	return db, nil
}

// initializeMetrics initializes Prometheus metrics.
func initializeMetrics(reg prometheus.Registerer) core.Recorder {
	recorder := metrics.New(reg)
	log.Println("Prometheus metrics initialized")
	return recorder
}

// initializeProjectCache initializes the sink project cache based on
// configuration.
func initializeProjectCache(cfg *config.Config) (core.Cache[string], error) {
	switch cfg.ProjectCacheBackend {
	case config.CacheBackendRedis:
		c, err := cache.NewRueidisAsideCache(
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			cfg.RedisKeyPrefix+"projects:",
			cfg.RedisClientTTL,
		)
		if err != nil {
			return nil, err
		}
		log.Printf("Project cache: redis-aside (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	default: // memory
		log.Println("Project cache: memory (single instance only)")
		return cache.NewMemoryCache[string](), nil
	}
}
