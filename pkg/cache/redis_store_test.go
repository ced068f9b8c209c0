package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test when
// none is reachable. The integration suite starts a container instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, "test:")
}

func TestRedisStore_SetGet(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), "test:")
	ctx := context.Background()

	data, _ := json.Marshal([]string{"red", "blue"})
	fetchedAt := time.Now().Truncate(time.Second)
	rec := &Record{Data: data, FetchedAt: fetchedAt, Expires: fetchedAt.Add(time.Minute)}

	if err := store.Set(ctx, "clothes:list:colors=red", rec); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "clothes:list:colors=red")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(data) {
		t.Errorf("Get() data = %s, want %s", got.Data, data)
	}
	if !got.FetchedAt.Equal(fetchedAt) {
		t.Errorf("Get() FetchedAt = %v, want %v", got.FetchedAt, fetchedAt)
	}
}

func TestRedisStore_GetMiss(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), "test:")

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStore_SetExpiredSkipped(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), "test:")
	ctx := context.Background()

	rec := &Record{Data: []byte(`"x"`), FetchedAt: time.Now().Add(-time.Hour), Expires: time.Now().Add(-time.Minute)}
	if err := store.Set(ctx, "k", rec); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss for expired record", err)
	}
}

func TestRedisStore_SetNil(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), "test:")
	if err := store.Set(context.Background(), "k", nil); err == nil {
		t.Error("Set(nil) should return an error")
	}
}

func TestRedisStore_InvalidRecord(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, "test:")
	ctx := context.Background()

	if err := client.Set(ctx, "test:k", "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}

var _ Toucher = (*RedisStore)(nil)

func TestRedisStore_DeleteAndTouch(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), "test:")
	ctx := context.Background()

	now := time.Now()
	rec := &Record{Data: []byte(`1`), FetchedAt: now, Expires: now.Add(time.Minute)}
	if err := store.Set(ctx, "k", rec); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	later := now.Add(10 * time.Minute)
	if err := store.Touch(ctx, "k", later); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() after Touch error = %v", err)
	}
	if got.TTL() < 9*time.Minute {
		t.Errorf("TTL after Touch = %v, want about 10m", got.TTL())
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}
