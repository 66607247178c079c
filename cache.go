package seekly

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/seekly/seekly-go/errors"
)

// Cache stores normalized results keyed by compiled request bytes. The
// executor consults it read-through for retrieval and aggregate queries;
// generative queries are never cached.
type Cache interface {
	// Get returns the cached value and whether it was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value under the key
	Set(ctx context.Context, key string, value []byte) error
}

// cacheKey derives a stable cache key from compiled request bytes
func cacheKey(req *Request) string {
	sum := sha256.Sum256(req.Bytes())
	return fmt.Sprintf("seekly:result:%s", hex.EncodeToString(sum[:]))
}

// cacheable reports whether a request may be served from cache
func cacheable(req *Request) bool {
	return req.Generate == nil
}

// RedisCache is a redis-backed Cache
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed cache with the given ttl
func NewRedisCache(addr string, password string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Get returns the cached value and whether it was present
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bits, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.Internal, "cache get failed")
	}
	return bits, true, nil
}

// Set stores a value under the key
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrap(c.client.Set(ctx, key, value, c.ttl).Err(), errors.Internal, "cache set failed")
}

// Close releases the underlying redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
