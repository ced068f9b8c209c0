//go:build integration

package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})
	return client
}

// Two caches sharing one Redis: the second is served from the store.
func TestQueryCache_Integration_SharedStore(t *testing.T) {
	client := setupRedisContainer(t)
	ctx := context.Background()
	opts := WarmOptions{StaleTime: time.Minute}

	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "page-1", nil
	}

	first := New[string](Options{Name: "first", Store: NewRedisStore(client, "clothify:")})
	if _, err := first.Fetch(ctx, "clothes:list:colors=red", fetch, opts); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}

	second := New[string](Options{Name: "second", Store: NewRedisStore(client, "clothify:")})
	v, err := second.Fetch(ctx, "clothes:list:colors=red", fetch, opts)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}

	if v != "page-1" {
		t.Errorf("second Fetch() = %q, want page-1", v)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("origin fetched %d times, want 1", got)
	}
}

func TestRedisStore_Integration_TTL(t *testing.T) {
	client := setupRedisContainer(t)
	store := NewRedisStore(client, "clothify:")
	ctx := context.Background()

	now := time.Now()
	rec := &Record{Data: []byte(`"x"`), FetchedAt: now, Expires: now.Add(30 * time.Second)}
	if err := store.Set(ctx, "k", rec); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	ttl, err := client.TTL(ctx, "clothify:k").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("redis TTL = %v, want (0, 30s]", ttl)
	}
}
