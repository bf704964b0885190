package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

const redisKeyPrefix = "zoneanalyzer:result:"

// RedisStore persists results in redis, for deployments that share one
// cache across analyzer instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.AnalysisResult, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	result, err := decodeResult(data)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, result *models.AnalysisResult, ttl time.Duration) error {
	data, err := encodeResult(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

// Reset removes every analyzer entry, leaving unrelated keys in the
// database alone.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
