package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fairway/internal/config"
	"fairway/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisAvailabilityCache stores per-bay day availability snapshots in redis
// with a short TTL. Writers invalidate the day after every booking mutation.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultAvailabilityCacheTTL) * time.Second
	}
	return &RedisAvailabilityCache{
		client: client,
		ttl:    ttl,
	}
}

func dayKey(bayID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", bayID, date)
}

func (r *RedisAvailabilityCache) GetDay(ctx context.Context, bayID int64, date string) (*models.DayAvailability, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, dayKey(bayID, date)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability from redis: %w", err)
	}

	var snapshot models.DayAvailability
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability: %w", err)
	}

	return &snapshot, nil
}

func (r *RedisAvailabilityCache) SetDay(ctx context.Context, snapshot *models.DayAvailability) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}

	key := dayKey(snapshot.BayID, snapshot.Date)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability in redis: %w", err)
	}

	return nil
}

func (r *RedisAvailabilityCache) InvalidateDay(ctx context.Context, bayID int64, date string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, dayKey(bayID, date)).Err(); err != nil {
		return fmt.Errorf("failed to delete availability from redis: %w", err)
	}
	return nil
}

// CheckRateLimit applies a fixed-window counter per caller key.
func (r *RedisAvailabilityCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	counterKey := "rate_limit:" + key
	count, err := r.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, counterKey, window)
	}

	return count <= int64(limit), nil
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
