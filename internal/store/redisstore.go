package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisStoreConfig captures configuration required to initialize a Redis-backed store.
type RedisStoreConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps each credential under <prefix><key> without a TTL; expiry is
// tracked by the token store itself.
type RedisStore struct {
	client *goredis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisStoreConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		cfg.Address = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis store: failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis store: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Retrieve(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis store: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis store: delete %s: %w", key, err)
	}
	return nil
}
