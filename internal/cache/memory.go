package cache

import (
	"context"
	"sync"
	"time"

	"github.com/universal-inbox/universal-inbox/internal/core"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

type inflightCall[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Compile-time interface check.
var _ core.Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache implements Cache with in-memory storage.
// Uses lazy expiration (checks expiry on Get).
// Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	mu       sync.RWMutex
	items    map[string]cacheItem[T]
	inflight map[string]*inflightCall[T]
}

// NewMemoryCache creates a new memory cache instance.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		items:    make(map[string]cacheItem[T]),
		inflight: make(map[string]*inflightCall[T]),
	}
}

// Get retrieves a value from cache.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[key]
	if !exists {
		var zero T
		return zero, ErrCacheMiss
	}

	// Lazy expiration check
	if time.Now().After(item.expiresAt) {
		var zero T
		return zero, ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value in cache with TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a key from cache.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Close is a no-op for memory cache.
func (m *MemoryCache[T]) Close() error {
	return nil
}

// GetWithFetch retrieves a value using the cache-aside pattern with
// single-flight semantics: concurrent callers for the same missing key share
// one fetchFunc invocation instead of each calling it.
func (m *MemoryCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := m.Get(ctx, key); err == nil {
		return value, nil
	}

	m.mu.Lock()
	if call, exists := m.inflight[key]; exists {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.value, call.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	call := &inflightCall[T]{done: make(chan struct{})}
	m.inflight[key] = call
	m.mu.Unlock()

	call.value, call.err = fetchFunc(ctx, key)
	if call.err == nil {
		_ = m.Set(ctx, key, call.value, ttl)
	}

	m.mu.Lock()
	delete(m.inflight, key)
	m.mu.Unlock()
	close(call.done)

	return call.value, call.err
}
