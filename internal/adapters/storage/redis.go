package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/seasonpoints/pkg/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps values as plain redis strings.
type RedisStore struct {
	rdb *goredis.Client
}

// OpenRedis connects to url (redis://host:port/db) and pings the server.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		metrics.RecordStorageError(r.Name(), "get")
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		metrics.RecordStorageError(r.Name(), "set")
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		metrics.RecordStorageError(r.Name(), "delete")
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }

func (r *RedisStore) Name() string { return "redis" }
