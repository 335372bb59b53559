// Package cache keeps resolved snapshots in Redis. Snapshots never change
// after creation, so entries are only ever written and expired, never
// invalidated.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scholars/api/internal/share"
)

// DefaultTTL is used when the caller passes a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// RedisStore caches snapshots by slug.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed snapshot cache
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a cache from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "share:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(slug string) string {
	return s.prefix + slug
}

// Get returns the cached snapshot. A miss is (zero, false, nil).
func (s *RedisStore) Get(ctx context.Context, slug string) (share.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return share.Snapshot{}, false, nil
	}
	if err != nil {
		return share.Snapshot{}, false, fmt.Errorf("read cached share: %w", err)
	}

	var snapshot share.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return share.Snapshot{}, false, fmt.Errorf("unmarshal cached share: %w", err)
	}
	return snapshot, true, nil
}

// Put stores a snapshot under its slug.
func (s *RedisStore) Put(ctx context.Context, snapshot share.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal share: %w", err)
	}
	if err := s.client.Set(ctx, s.key(snapshot.Slug), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache share: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
