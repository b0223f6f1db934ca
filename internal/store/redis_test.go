package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

func openTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_TEST_PASSWORD"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, time.Minute)
}

func uniqueGame(t *testing.T, cache *RedisCache) string {
	t.Helper()
	game := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() {
		ctx := context.Background()
		_ = cache.rdb.Del(ctx, gameBoardKey(game), gameBoardKey(game)+generationSuffix).Err()
	})
	return game
}

func TestNewRedisClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, "127.0.0.1:1", "")
	if err == nil {
		t.Fatal("expected error for unreachable address")
	}
	if !strings.Contains(err.Error(), "redis ping 127.0.0.1:1") {
		t.Errorf("err = %v, want address in message", err)
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache := openTestRedisCache(t)
	ctx := context.Background()
	game := uniqueGame(t, cache)

	if _, ok, err := cache.GameLeaderboard(ctx, game); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	gen, err := cache.GameGeneration(ctx, game)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	want := []models.GameEntry{{Username: "alice", Score: 10, CreatedAt: time.Unix(1700000000, 0).UTC()}}
	if err := cache.SetGameLeaderboard(ctx, game, gen, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := cache.GameLeaderboard(ctx, game)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Username != "alice" || !got[0].CreatedAt.Equal(want[0].CreatedAt) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if err := cache.Invalidate(ctx, game); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := cache.GameLeaderboard(ctx, game); ok {
		t.Error("entry survived invalidation")
	}
}

func TestRedisCacheSkipsWriteAfterInvalidate(t *testing.T) {
	cache := openTestRedisCache(t)
	ctx := context.Background()
	game := uniqueGame(t, cache)

	gen, err := cache.GameGeneration(ctx, game)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	globalGen, err := cache.GlobalGeneration(ctx)
	if err != nil {
		t.Fatalf("global generation: %v", err)
	}

	// A submission lands between the database read and the cache write.
	if err := cache.Invalidate(ctx, game); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	stale := []models.GameEntry{{Username: "alice", Score: 0}}
	if err := cache.SetGameLeaderboard(ctx, game, gen, stale); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := cache.GameLeaderboard(ctx, game); ok {
		t.Error("board computed before invalidation was cached")
	}
	if err := cache.SetGlobalLeaderboard(ctx, globalGen, []models.GlobalEntry{{Username: "alice", Game: game}}); err != nil {
		t.Fatalf("set global: %v", err)
	}
	if _, ok, _ := cache.GlobalLeaderboard(ctx); ok {
		t.Error("global board computed before invalidation was cached")
	}

	fresh, err := cache.GameGeneration(ctx, game)
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if fresh <= gen {
		t.Fatalf("generation did not advance: %d -> %d", gen, fresh)
	}
	if err := cache.SetGameLeaderboard(ctx, game, fresh, stale); err != nil {
		t.Fatalf("set fresh: %v", err)
	}
	if _, ok, _ := cache.GameLeaderboard(ctx, game); !ok {
		t.Error("board with current generation was not cached")
	}
}
