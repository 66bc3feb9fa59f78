package revocation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is the production denylist backed by Redis. Expiry is delegated
// to Redis TTLs so the denylist is self-cleaning.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("revocation: redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Ping reports connection health; used by readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Put records key as revoked for ttl.
func (s *RedisStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	// The value is the expiry instant; useful when inspecting keys by hand.
	val := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	if err := s.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("revocation: put %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is currently revoked.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// ExistsAny checks all keys in one EXISTS round trip.
func (s *RedisStore) ExistsAny(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	n, err := s.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
