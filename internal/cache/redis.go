// Package cache holds the Redis-backed token lookup cache.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/recipe-app/apiserver/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "recipeapi:token:"

// TokenCache maps auth token keys to user ids in Redis.
type TokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from cfg and verifies it with a ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{client: client, ttl: ttl}
}

// Get returns the cached user id for key. ok is false on a miss.
func (c *TokenCache) Get(ctx context.Context, key string) (int, bool, error) {
	value, err := c.client.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	userID, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (c *TokenCache) Set(ctx context.Context, key string, userID int) error {
	return c.client.Set(ctx, cacheKey(key), strconv.Itoa(userID), c.ttl).Err()
}

func cacheKey(key string) string {
	return keyPrefix + key
}
