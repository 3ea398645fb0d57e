package ghola

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores JSON-marshaled entities in Redis under caller-defined
// keys with a TTL. It backs CachedRepository; it is not an Engine.
type RedisCache[T any, ID comparable] struct {
	client  *redis.Client
	ttl     time.Duration
	keyFunc func(ID) string
}

// NewRedisCache creates an entity cache on the given client
func NewRedisCache[T any, ID comparable](client *redis.Client, ttl time.Duration, keyFunc func(ID) string) *RedisCache[T, ID] {
	return &RedisCache[T, ID]{client: client, ttl: ttl, keyFunc: keyFunc}
}

// Get returns the cached entity, or ErrItemNotFound on a cache miss
func (c *RedisCache[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	data, err := c.client.Get(ctx, c.keyFunc(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	var item T
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Set caches the entity under its key with the configured TTL
func (c *RedisCache[T, ID]) Set(ctx context.Context, id ID, item *T) error {
	if item == nil {
		return errors.New("item cannot be nil")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyFunc(id), data, c.ttl).Err()
}

// Delete removes the entity's cache entry; deleting a missing key is not
// an error
func (c *RedisCache[T, ID]) Delete(ctx context.Context, id ID) error {
	return c.client.Del(ctx, c.keyFunc(id)).Err()
}
