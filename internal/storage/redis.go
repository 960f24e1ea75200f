package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bookwagon:storage:"

// RedisBackend keeps each namespace in one hash. The hash expires after ttl of
// inactivity so abandoned browser sessions don't pile up.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// ConnectRedis accepts either a redis:// URL or a bare host:port.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, namespace, key string) (string, error) {
	value, err := r.client.HGet(ctx, redisKey(namespace), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisBackend) Set(ctx context.Context, namespace, key, value string) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, redisKey(namespace), key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, redisKey(namespace), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, namespace, key string) error {
	return r.client.HDel(ctx, redisKey(namespace), key).Err()
}

func (r *RedisBackend) DeleteNamespace(ctx context.Context, namespace string) error {
	return r.client.Del(ctx, redisKey(namespace)).Err()
}

func redisKey(namespace string) string {
	return redisKeyPrefix + namespace
}
