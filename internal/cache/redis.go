package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/snip/internal/config"
)

const keyPrefix = "url:"

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisCache caches short code -> original URL. Mappings never change once
// created, so entries only expire to bound memory.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache whose entries live for ttl (0 = no expiry)
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached URL for code. A miss is ("", false, nil).
func (c *RedisCache) Get(ctx context.Context, code string) (string, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores the URL for code
func (c *RedisCache) Set(ctx context.Context, code, originalURL string) error {
	return c.client.Set(ctx, keyPrefix+code, originalURL, c.ttl).Err()
}
