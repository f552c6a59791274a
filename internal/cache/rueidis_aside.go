package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisaside"

	"github.com/universal-inbox/universal-inbox/internal/core"
)

// Compile-time interface check.
var _ core.Cache[string] = (*RueidisAsideCache)(nil)

// RueidisAsideCache implements Cache[string] using rueidisaside. The
// cache-aside client takes a per-key lock in Redis before fetching, so
// concurrent GetWithFetch callers across instances converge on a single
// fetch per missing key. Suitable for multi-instance deployments.
type RueidisAsideCache struct {
	client    rueidisaside.CacheAsideClient
	keyPrefix string
	clientTTL time.Duration
}

// NewRueidisAsideCache creates a Redis-backed cache with client-side caching.
// clientTTL is the local cache TTL (e.g. 30s); Redis invalidates the local
// copy automatically when keys change.
func NewRueidisAsideCache(
	addr, password string,
	db int,
	keyPrefix string,
	clientTTL time.Duration,
) (*RueidisAsideCache, error) {
	client, err := rueidisaside.NewClient(rueidisaside.ClientOption{
		ClientOption: rueidis.ClientOption{
			InitAddress:  []string{addr},
			Password:     password,
			SelectDB:     db,
			DisableCache: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rueidisaside client: %w", err)
	}

	return &RueidisAsideCache{
		client:    client,
		keyPrefix: keyPrefix,
		clientTTL: clientTTL,
	}, nil
}

// Get retrieves a value from Redis with client-side caching.
func (r *RueidisAsideCache) Get(ctx context.Context, key string) (string, error) {
	fullKey := r.keyPrefix + key

	val, err := r.client.Get(
		ctx,
		r.clientTTL,
		fullKey,
		func(ctx context.Context, key string) (string, error) {
			// No fetch source here; report a miss to the caller instead.
			return "", ErrCacheMiss
		},
	)
	if err != nil {
		if err == ErrCacheMiss {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if val == "" {
		return "", ErrCacheMiss
	}
	return val, nil
}

// GetWithFetch retrieves a value using rueidisaside's cache-aside pattern.
// On cache miss fetchFunc is called under the per-key Redis lock and the
// result is stored automatically.
func (r *RueidisAsideCache) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (string, error),
) (string, error) {
	fullKey := r.keyPrefix + key

	val, err := r.client.Get(
		ctx,
		ttl,
		fullKey,
		func(ctx context.Context, _ string) (string, error) {
			return fetchFunc(ctx, key)
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get with fetch: %w", err)
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (r *RueidisAsideCache) Set(
	ctx context.Context,
	key string,
	value string,
	ttl time.Duration,
) error {
	fullKey := r.keyPrefix + key

	cmd := r.client.Client().B().Set().
		Key(fullKey).
		Value(value).
		Ex(ttl).
		Build()

	if err := r.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a key from Redis.
func (r *RueidisAsideCache) Delete(ctx context.Context, key string) error {
	fullKey := r.keyPrefix + key

	cmd := r.client.Client().B().Del().Key(fullKey).Build()
	if err := r.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RueidisAsideCache) Close() error {
	r.client.Close()
	return nil
}
