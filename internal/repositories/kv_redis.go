package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/moodify/internal/shared"
	"github.com/redis/go-redis/v9"
)

// RedisKVStore implements [KVStore] and [BatchSetter] on Redis strings.
//
// Every key is namespaced with prefix. Values never expire.
type RedisKVStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisClient creates a [redis.Client] from the storage settings.
func NewRedisClient(cfg shared.StorageConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewRedisKVStore creates a new [RedisKVStore].
func NewRedisKVStore(client redis.Cmdable, prefix string) *RedisKVStore {
	return &RedisKVStore{client: client, prefix: prefix}
}

// Ping checks that the server is reachable.
func (s *RedisKVStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping failed: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisKVStore) Set(ctx context.Context, key string, value *string) error {
	var err error
	if value != nil {
		err = s.client.Set(ctx, s.prefix+key, *value, 0).Err()
	} else {
		err = s.client.Del(ctx, s.prefix+key).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// SetMany applies every write inside MULTI/EXEC.
func (s *RedisKVStore) SetMany(ctx context.Context, values map[string]*string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range sortedKeys(values) {
			if v := values[key]; v != nil {
				pipe.Set(ctx, s.prefix+key, *v, 0)
			} else {
				pipe.Del(ctx, s.prefix+key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}
