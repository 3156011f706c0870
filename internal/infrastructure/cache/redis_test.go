package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestRedisVerdictCache_GetMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisVerdictCache(client)

	verdict, err := cache.Get(context.Background(), "vid-unknown")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if verdict != nil {
		t.Errorf("expected nil verdict on miss, got %+v", verdict)
	}
}

func TestRedisVerdictCache_SetGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisVerdictCache(client)
	ctx := context.Background()

	tests := []struct {
		name    string
		videoID string
		allowed bool
	}{
		{"allowed verdict", "vid-1", true},
		{"denied verdict", "vid-2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.videoID, tt.allowed, 5*time.Minute); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			verdict, err := cache.Get(ctx, tt.videoID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if verdict == nil {
				t.Fatal("expected verdict, got nil")
			}
			if verdict.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v", verdict.Allowed, tt.allowed)
			}
		})
	}
}

func TestRedisVerdictCache_TTLExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisVerdictCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "vid-ttl", true, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	verdict, err := cache.Get(ctx, "vid-ttl")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if verdict != nil {
		t.Errorf("expected miss after TTL expiry, got %+v", verdict)
	}
}

func TestRedisVerdictCache_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisVerdictCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "vid-del", false, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Delete(ctx, "vid-del"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	verdict, err := cache.Get(ctx, "vid-del")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if verdict != nil {
		t.Errorf("expected miss after delete, got %+v", verdict)
	}

	// Deleting an absent verdict is not an error.
	if err := cache.Delete(ctx, "vid-del"); err != nil {
		t.Errorf("Delete of absent verdict failed: %v", err)
	}
}

func TestRedisVerdictCache_GetCorruptValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisVerdictCache(client)

	mr.Set("verdict:vid-bad", "not-a-verdict")

	if _, err := cache.Get(context.Background(), "vid-bad"); err == nil {
		t.Error("expected error for corrupt verdict value")
	}
}
