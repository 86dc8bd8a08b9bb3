package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreFromClient(client, prefix), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "storefront"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordKey(sid, key string) string {
	return fmt.Sprintf("%s:session:%s:%s", s.prefix, sid, key)
}

func (s *RedisStore) revokedKey(sid string) string {
	return fmt.Sprintf("%s:revoked:%s", s.prefix, sid)
}

func (s *RedisStore) Put(ctx context.Context, sid, key string, v any, ttl time.Duration) error {
	if sid == "" {
		return ErrNoSession
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, s.recordKey(sid, key), data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, sid, key string, dst any) (bool, error) {
	if sid == "" {
		return false, nil
	}
	data, err := s.client.Get(ctx, s.recordKey(sid, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid, key string) error {
	if sid == "" {
		return nil
	}
	return s.client.Del(ctx, s.recordKey(sid, key)).Err()
}

func (s *RedisStore) Revoke(ctx context.Context, sid string, ttl time.Duration) error {
	if sid == "" {
		return ErrNoSession
	}
	return s.client.Set(ctx, s.revokedKey(sid), 1, ttl).Err()
}

func (s *RedisStore) Revoked(ctx context.Context, sid string) (bool, error) {
	n, err := s.client.Exists(ctx, s.revokedKey(sid)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
