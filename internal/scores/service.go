// Package scores reconciles submitted scores with stored bests and serves the
// leaderboards built from them.
package scores

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	SubmitScore(ctx context.Context, userID int64, game string, score int64) (models.Submission, error)
	GameLeaderboard(ctx context.Context, game string, limit int) ([]models.GameEntry, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]models.GlobalEntry, error)
	UserStats(ctx context.Context, username string) ([]models.StatEntry, error)
}

// Cache holds recently computed leaderboards. A miss is reported with a false
// second return value and a nil error.
//
// Each board carries a generation that Invalidate advances. Callers read the
// generation before querying the store and pass it to the setter, which
// drops the write if the board was invalidated in between.
type Cache interface {
	GameLeaderboard(ctx context.Context, game string) ([]models.GameEntry, bool, error)
	GameGeneration(ctx context.Context, game string) (int64, error)
	SetGameLeaderboard(ctx context.Context, game string, gen int64, entries []models.GameEntry) error
	GlobalLeaderboard(ctx context.Context) ([]models.GlobalEntry, bool, error)
	GlobalGeneration(ctx context.Context) (int64, error)
	SetGlobalLeaderboard(ctx context.Context, gen int64, entries []models.GlobalEntry) error
	Invalidate(ctx context.Context, game string) error
}

// EventRecorder appends submission attempts to an audit log.
type EventRecorder interface {
	Record(ctx context.Context, ev *models.ScoreEvent) error
}

type nopCache struct{}

func (nopCache) GameLeaderboard(context.Context, string) ([]models.GameEntry, bool, error) {
	return nil, false, nil
}
func (nopCache) GameGeneration(context.Context, string) (int64, error) { return 0, nil }
func (nopCache) SetGameLeaderboard(context.Context, string, int64, []models.GameEntry) error { return nil }
func (nopCache) GlobalLeaderboard(context.Context) ([]models.GlobalEntry, bool, error) {
	return nil, false, nil
}
func (nopCache) GlobalGeneration(context.Context) (int64, error) { return 0, nil }
func (nopCache) SetGlobalLeaderboard(context.Context, int64, []models.GlobalEntry) error { return nil }
func (nopCache) Invalidate(context.Context, string) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, *models.ScoreEvent) error { return nil }

// Option configures a Service.
type Option func(*Service)

// WithCache reads leaderboards through c.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEvents records every submission attempt with r.
func WithEvents(r EventRecorder) Option {
	return func(s *Service) { s.events = r }
}

// Service applies the best-score rule and answers leaderboard queries.
// Cache and event log failures are logged and never fail a request.
type Service struct {
	store  Store
	cache  Cache
	events EventRecorder
	now    func() time.Time
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, cache: nopCache{}, events: nopRecorder{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores score for the principal if it beats their current best.
func (s *Service) Submit(ctx context.Context, p models.Principal, game string, score int64) (models.Submission, error) {
	sub, err := s.store.SubmitScore(ctx, p.ID, game, score)
	if err != nil {
		return models.Submission{}, fmt.Errorf("submit score: %w", err)
	}

	slog.Info("score submitted",
		"user_id", p.ID, "username", p.Username, "game", game,
		"attempted", score, "outcome", sub.Outcome, "stored", sub.Current)

	if sub.Changed() {
		if err := s.cache.Invalidate(ctx, game); err != nil {
			slog.Warn("leaderboard cache invalidation failed", "game", game, "error", err)
		}
	}

	ev := &models.ScoreEvent{
		UserID:    p.ID,
		Username:  p.Username,
		Game:      game,
		Attempted: score,
		Previous:  sub.Previous,
		Stored:    sub.Current,
		Outcome:   sub.Outcome,
		CreatedAt: s.now().UTC(),
	}
	if err := s.events.Record(ctx, ev); err != nil {
		slog.Warn("score event not recorded", "user_id", p.ID, "game", game, "error", err)
	}

	return sub, nil
}

// GameLeaderboard returns the top scores for one game.
func (s *Service) GameLeaderboard(ctx context.Context, game string) ([]models.GameEntry, error) {
	if entries, ok, err := s.cache.GameLeaderboard(ctx, game); err != nil {
		slog.Warn("leaderboard cache read failed", "game", game, "error", err)
	} else if ok {
		return entries, nil
	}

	gen, genErr := s.cache.GameGeneration(ctx, game)
	entries, err := s.store.GameLeaderboard(ctx, game, models.LeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("game leaderboard %q: %w", game, err)
	}
	if genErr != nil {
		slog.Warn("leaderboard cache generation unavailable", "game", game, "error", genErr)
		return entries, nil
	}
	if err := s.cache.SetGameLeaderboard(ctx, game, gen, entries); err != nil {
		slog.Warn("leaderboard cache write failed", "game", game, "error", err)
	}
	return entries, nil
}

// GlobalLeaderboard returns the top scores across every game.
func (s *Service) GlobalLeaderboard(ctx context.Context) ([]models.GlobalEntry, error) {
	if entries, ok, err := s.cache.GlobalLeaderboard(ctx); err != nil {
		slog.Warn("global leaderboard cache read failed", "error", err)
	} else if ok {
		return entries, nil
	}

	gen, genErr := s.cache.GlobalGeneration(ctx)
	entries, err := s.store.GlobalLeaderboard(ctx, models.LeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	if genErr != nil {
		slog.Warn("global leaderboard cache generation unavailable", "error", genErr)
		return entries, nil
	}
	if err := s.cache.SetGlobalLeaderboard(ctx, gen, entries); err != nil {
		slog.Warn("global leaderboard cache write failed", "error", err)
	}
	return entries, nil
}

// UserStats returns every score the named user holds. Unknown users have none.
func (s *Service) UserStats(ctx context.Context, username string) ([]models.StatEntry, error) {
	stats, err := s.store.UserStats(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user stats %q: %w", username, err)
	}
	return stats, nil
}
