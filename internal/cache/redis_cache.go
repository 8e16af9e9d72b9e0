package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sistemasj/backend/internal/domain"
)

const storefrontKey = "storefront:all"

type RedisStorefrontCache struct {
	client *redis.Client
}

func NewRedisStorefrontCache(addr string, password string, db int) *RedisStorefrontCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStorefrontCache{client: client}
}

func (c *RedisStorefrontCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStorefrontCache) Close() error {
	return c.client.Close()
}

func (c *RedisStorefrontCache) Get(ctx context.Context) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, storefrontKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisStorefrontCache) Set(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	if products == nil {
		return nil
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, storefrontKey, payload, ttl).Err()
}

func (c *RedisStorefrontCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, storefrontKey).Err()
}
