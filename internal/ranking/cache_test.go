package ranking

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis integration test")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("invalid TEST_REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	cache := NewRedisCache(client, time.Minute)
	client.Del(ctx, cache.key(DefaultLimit))

	if _, ok, err := cache.Get(ctx, DefaultLimit); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	if err := cache.Set(ctx, DefaultLimit, sampleEntries); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get(ctx, DefaultLimit)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0] != sampleEntries[0] {
		t.Errorf("got %+v", got)
	}

	ttl := client.TTL(ctx, cache.key(DefaultLimit)).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, want (0, 1m]", ttl)
	}
}

func TestRedisCache_Unreachable_ReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	cache := NewRedisCache(client, time.Minute)

	if _, _, err := cache.Get(context.Background(), DefaultLimit); err == nil {
		t.Error("expected error from unreachable redis")
	}
}
