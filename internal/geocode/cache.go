package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved coordinates by normalized query.
type Cache interface {
	Get(ctx context.Context, key string) (Point, bool, error)
	Set(ctx context.Context, key string, p Point) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{points: make(map[string]Point)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Point, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[key]
	return p, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, p Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[key] = p
	return nil
}

// RedisCache shares coordinates between server instances.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache wraps rdb; entries expire after ttl (0 keeps them forever).
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func redisKey(key string) string { return "geocode:" + key }

func (r *RedisCache) Get(ctx context.Context, key string) (Point, bool, error) {
	data, err := r.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Point{}, false, nil
	}
	if err != nil {
		return Point{}, false, err
	}
	var p Point
	if err := json.Unmarshal(data, &p); err != nil {
		return Point{}, false, fmt.Errorf("decode cached point: %w", err)
	}
	return p, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, p Point) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisKey(key), data, r.ttl).Err()
}
