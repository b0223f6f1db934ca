package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

const (
	gameBoardKeyPrefix = "leaderboard:game:"
	globalBoardKey     = "leaderboard:global"
	generationSuffix   = ":gen"
)

// NewRedisClient connects to the leaderboard cache. Timeouts are short: a
// slow cache should fall through to the database, not stall the request.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisCache holds serialized leaderboards for a short TTL. Every board has a
// generation counter that Invalidate advances; a board is only written back
// if its generation is unchanged since the caller read it, so a result
// computed before an invalidation can never overwrite the one after it.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func gameBoardKey(game string) string {
	return gameBoardKeyPrefix + game
}

// GameLeaderboard returns the cached board for game; ok is false on a miss.
func (c *RedisCache) GameLeaderboard(ctx context.Context, game string) ([]models.GameEntry, bool, error) {
	var entries []models.GameEntry
	ok, err := c.get(ctx, gameBoardKey(game), &entries)
	return entries, ok, err
}

// GameGeneration returns the invalidation counter of game's board.
func (c *RedisCache) GameGeneration(ctx context.Context, game string) (int64, error) {
	return c.generation(ctx, c.rdb, gameBoardKey(game))
}

// SetGameLeaderboard caches entries unless game's board was invalidated
// after gen was read.
func (c *RedisCache) SetGameLeaderboard(ctx context.Context, game string, gen int64, entries []models.GameEntry) error {
	return c.set(ctx, gameBoardKey(game), gen, entries)
}

// GlobalLeaderboard returns the cached cross-game board; ok is false on a miss.
func (c *RedisCache) GlobalLeaderboard(ctx context.Context) ([]models.GlobalEntry, bool, error) {
	var entries []models.GlobalEntry
	ok, err := c.get(ctx, globalBoardKey, &entries)
	return entries, ok, err
}

func (c *RedisCache) GlobalGeneration(ctx context.Context) (int64, error) {
	return c.generation(ctx, c.rdb, globalBoardKey)
}

func (c *RedisCache) SetGlobalLeaderboard(ctx context.Context, gen int64, entries []models.GlobalEntry) error {
	return c.set(ctx, globalBoardKey, gen, entries)
}

// Invalidate drops the boards a change to game can affect and advances
// their generations.
func (c *RedisCache) Invalidate(ctx context.Context, game string) error {
	key := gameBoardKey(game)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key+generationSuffix)
		pipe.Incr(ctx, globalBoardKey+generationSuffix)
		pipe.Del(ctx, key, globalBoardKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *RedisCache) generation(ctx context.Context, cmd stringGetter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, key+generationSuffix).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("generation %s: %w", key, err)
	}
	return gen, nil
}

// set writes v under key inside a WATCH on the key's generation. A stale
// generation, or an Invalidate racing the write, leaves the key untouched.
func (c *RedisCache) set(ctx context.Context, key string, gen int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, key+generationSuffix)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}
