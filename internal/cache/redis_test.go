package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "recipeapi:token:abc", cacheKey("abc"))
}

func TestTokenCacheSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	c := NewTokenCache(client, time.Minute)

	_, ok, err := c.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, ok)
	require.Error(t, c.Set(context.Background(), "abc", 1))
}
