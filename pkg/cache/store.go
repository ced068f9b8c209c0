package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored record is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a shared backing store behind the in-memory query cache.
type Store interface {
	// Get returns the record for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (*Record, error)

	// Set stores rec; the store may drop it once rec.Expires passes.
	Set(ctx context.Context, key string, rec *Record) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

// Toucher is implemented by stores that can extend a record's expiry
// without rewriting its data.
type Toucher interface {
	Touch(ctx context.Context, key string, expires time.Time) error
}

// RedisStore implements Store and Toucher on Redis.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a store that namespaces keys with prefix.
func NewRedisStore(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Get retrieves a record by key.
// Returns ErrCacheMiss if the key doesn't exist or the record is expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if rec.IsExpired() {
		_ = s.Delete(ctx, key)
		return nil, ErrCacheMiss
	}

	return &rec, nil
}

// Set stores a record with TTL based on its Expires field.
// Already expired records are not stored.
func (s *RedisStore) Set(ctx context.Context, key string, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("cache record cannot be nil")
	}

	ttl := rec.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache record: %w", err)
	}

	if err := s.redis.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a record.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Touch extends the expiry of an existing record.
func (s *RedisStore) Touch(ctx context.Context, key string, expires time.Time) error {
	rec, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	rec.Expires = expires
	return s.Set(ctx, key, rec)
}
