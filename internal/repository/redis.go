package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCountCache(client *redis.Client, ttl time.Duration) *RedisCountCache {
	return &RedisCountCache{client: client, ttl: ttl}
}

func cacheKey(key models.SlotKey) string {
	return "slot_count:" + key.String()
}

func (c *RedisCountCache) GetCount(ctx context.Context, key models.SlotKey) (int, bool, error) {
	if c.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	val, err := c.client.Get(ctx, cacheKey(key)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get count from redis: %w", err)
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse cached count %q: %w", val, err)
	}
	return count, true, nil
}

func (c *RedisCountCache) SetCount(ctx context.Context, key models.SlotKey, count int) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.client.Set(ctx, cacheKey(key), strconv.Itoa(count), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set count in redis: %w", err)
	}
	return nil
}

func (c *RedisCountCache) Invalidate(ctx context.Context, key models.SlotKey) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate count in redis: %w", err)
	}
	return nil
}
