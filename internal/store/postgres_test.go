package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

// openTestPostgres connects to POSTGRES_TEST_DSN and resets the schema. The
// test is skipped when the variable is unset.
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS scores, users CASCADE`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	s := NewPostgresStore(pool, WithClock(newFakeClock().Now))
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestPostgresRegisterAndSubmit(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash", models.DefaultGames)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, "alice", "hash2", models.DefaultGames); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v, want ErrDuplicate", err)
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != u.ID || got.Password != "hash" {
		t.Errorf("got %+v", got)
	}
	if _, err := s.GetUserByUsername(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}

	for _, score := range []int64{100, 50, 200} {
		if _, err := s.SubmitScore(ctx, u.ID, "doom", score); err != nil {
			t.Fatalf("submit %d: %v", score, err)
		}
	}
	sub, err := s.SubmitScore(ctx, u.ID, "quake", 7)
	if err != nil {
		t.Fatalf("submit new game: %v", err)
	}
	if sub.Outcome != models.OutcomeSaved {
		t.Errorf("outcome = %s, want saved", sub.Outcome)
	}

	stats, err := s.UserStats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 3 || stats[0].Game != "doom" || stats[0].Score != 200 {
		t.Errorf("stats = %+v", stats)
	}

	board, err := s.GameLeaderboard(ctx, "doom", models.LeaderboardLimit)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Score != 200 {
		t.Errorf("board = %+v", board)
	}

	global, err := s.GlobalLeaderboard(ctx, models.LeaderboardLimit)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if len(global) != 3 || global[0].Game != "doom" || global[1].Game != "quake" {
		t.Errorf("global = %+v", global)
	}
}
