package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

// PostgresStore keeps users and scores in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	o := buildOptions(opts)
	return &PostgresStore{pool: pool, now: o.now}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL   PRIMARY KEY,
		username   TEXT        UNIQUE NOT NULL,
		password   TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		id         BIGSERIAL   PRIMARY KEY,
		user_id    BIGINT      NOT NULL REFERENCES users(id),
		game       TEXT        NOT NULL,
		score      BIGINT      NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_user_game ON scores(user_id, game)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_game_rank ON scores(game, score DESC, created_at)`,
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, hashedPassword string, seedGames []string) (*models.User, error) {
	now := s.now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	u := models.User{Username: username, Password: hashedPassword}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, password, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		username, hashedPassword, now,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("create user %q: %w", username, ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	for _, game := range seedGames {
		if _, err := tx.Exec(ctx,
			`INSERT INTO scores (user_id, game, score, created_at) VALUES ($1, $2, 0, $3)`,
			u.ID, game, now,
		); err != nil {
			return nil, fmt.Errorf("seed %s score: %w", game, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// SubmitScore keeps the best score for (userID, game). The existing row is
// locked for the rest of the transaction; a concurrent first insert for the
// same pair is absorbed by the unique index and re-read.
func (s *PostgresStore) SubmitScore(ctx context.Context, userID int64, game string, score int64) (models.Submission, error) {
	now := s.now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Submission{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const selectScore = `SELECT score FROM scores WHERE user_id = $1 AND game = $2 FOR UPDATE`

	var stored int64
	err = tx.QueryRow(ctx, selectScore, userID, game).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		tag, insertErr := tx.Exec(ctx,
			`INSERT INTO scores (user_id, game, score, created_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, game) DO NOTHING`,
			userID, game, score, now,
		)
		if insertErr != nil {
			return models.Submission{}, fmt.Errorf("insert score: %w", insertErr)
		}
		if tag.RowsAffected() == 1 {
			if err := tx.Commit(ctx); err != nil {
				return models.Submission{}, fmt.Errorf("commit: %w", err)
			}
			return models.Submission{Outcome: models.OutcomeSaved, Current: score, Attempted: score}, nil
		}
		err = tx.QueryRow(ctx, selectScore, userID, game).Scan(&stored)
	}
	if err != nil {
		return models.Submission{}, fmt.Errorf("get score: %w", err)
	}

	sub := models.Submission{Outcome: models.OutcomeNotUpdated, Previous: stored, Current: stored, Attempted: score}
	if score > stored {
		if _, err := tx.Exec(ctx,
			`UPDATE scores SET score = $1, created_at = $2
			 WHERE user_id = $3 AND game = $4 AND score < $1`,
			score, now, userID, game,
		); err != nil {
			return models.Submission{}, fmt.Errorf("update score: %w", err)
		}
		sub = models.Submission{Outcome: models.OutcomeUpdated, Previous: stored, Current: score, Attempted: score}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Submission{}, fmt.Errorf("commit: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) GameLeaderboard(ctx context.Context, game string, limit int) ([]models.GameEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT users.username, scores.score, scores.created_at
		FROM scores
		JOIN users ON scores.user_id = users.id
		WHERE scores.game = $1
		ORDER BY scores.score DESC, scores.created_at ASC, scores.id ASC
		LIMIT $2`, game, limit)
	if err != nil {
		return nil, fmt.Errorf("game leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.GameEntry{}
	for rows.Next() {
		var e models.GameEntry
		if err := rows.Scan(&e.Username, &e.Score, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("game leaderboard: scan: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) GlobalLeaderboard(ctx context.Context, limit int) ([]models.GlobalEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT users.username, scores.game, scores.score, scores.created_at
		FROM scores
		JOIN users ON scores.user_id = users.id
		ORDER BY scores.score DESC, scores.created_at ASC, scores.id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.GlobalEntry{}
	for rows.Next() {
		var e models.GlobalEntry
		if err := rows.Scan(&e.Username, &e.Game, &e.Score, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("global leaderboard: scan: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) UserStats(ctx context.Context, username string) ([]models.StatEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT scores.game, scores.score, scores.created_at
		FROM scores
		JOIN users ON scores.user_id = users.id
		WHERE users.username = $1
		ORDER BY scores.game ASC`, username)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	defer rows.Close()

	entries := []models.StatEntry{}
	for rows.Next() {
		var e models.StatEntry
		if err := rows.Scan(&e.Game, &e.Score, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("user stats: scan: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
