package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

// SQLiteStore keeps users and scores in a single embedded SQLite file.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path.
// Transactions take the write lock up front so the read-then-write in
// SubmitScore is serialized across connections.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	o := buildOptions(opts)
	return &SQLiteStore{db: db, now: o.now}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT    NOT NULL UNIQUE,
	password   TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	game       TEXT    NOT NULL,
	score      INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_user_game ON scores(user_id, game);
CREATE INDEX IF NOT EXISTS idx_scores_game_rank ON scores(game, score DESC, created_at);
`

// Migrate creates the tables if they don't exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

type sqliteUser struct {
	ID        int64  `db:"id"`
	Username  string `db:"username"`
	Password  string `db:"password"`
	CreatedAt int64  `db:"created_at"`
}

// CreateUser inserts a user and its seeded zero scores in one transaction.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, hashedPassword string, seedGames []string) (*models.User, error) {
	now := s.now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		username, hashedPassword, toMillis(now),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return nil, fmt.Errorf("create user %q: %w", username, ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: last insert id: %w", err)
	}

	for _, game := range seedGames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (user_id, game, score, created_at) VALUES (?, ?, 0, ?)`,
			id, game, toMillis(now),
		); err != nil {
			return nil, fmt.Errorf("seed %s score: %w", game, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &models.User{ID: id, Username: username, Password: hashedPassword, CreatedAt: fromMillis(toMillis(now))}, nil
}

// GetUserByUsername returns ErrNotFound when no user has that name.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row sqliteUser
	err := s.db.GetContext(ctx, &row,
		`SELECT id, username, password, created_at FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &models.User{
		ID:        row.ID,
		Username:  row.Username,
		Password:  row.Password,
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

// SubmitScore keeps the best score for (userID, game).
func (s *SQLiteStore) SubmitScore(ctx context.Context, userID int64, game string, score int64) (models.Submission, error) {
	now := toMillis(s.now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Submission{}, fmt.Errorf("begin: %w", err)
	}
	defer rollback(tx)

	var stored int64
	err = tx.GetContext(ctx, &stored,
		`SELECT score FROM scores WHERE user_id = ? AND game = ?`, userID, game)

	var sub models.Submission
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (user_id, game, score, created_at) VALUES (?, ?, ?, ?)`,
			userID, game, score, now,
		); err != nil {
			return models.Submission{}, fmt.Errorf("insert score: %w", err)
		}
		sub = models.Submission{Outcome: models.OutcomeSaved, Current: score, Attempted: score}
	case err != nil:
		return models.Submission{}, fmt.Errorf("get score: %w", err)
	case score > stored:
		if _, err := tx.ExecContext(ctx,
			`UPDATE scores SET score = ?, created_at = ?
			 WHERE user_id = ? AND game = ? AND score < ?`,
			score, now, userID, game, score,
		); err != nil {
			return models.Submission{}, fmt.Errorf("update score: %w", err)
		}
		sub = models.Submission{Outcome: models.OutcomeUpdated, Previous: stored, Current: score, Attempted: score}
	default:
		sub = models.Submission{Outcome: models.OutcomeNotUpdated, Previous: stored, Current: stored, Attempted: score}
	}

	if err := tx.Commit(); err != nil {
		return models.Submission{}, fmt.Errorf("commit: %w", err)
	}
	return sub, nil
}

type sqliteEntry struct {
	Username  string `db:"username"`
	Game      string `db:"game"`
	Score     int64  `db:"score"`
	CreatedAt int64  `db:"created_at"`
}

// GameLeaderboard returns the top scores for one game.
func (s *SQLiteStore) GameLeaderboard(ctx context.Context, game string, limit int) ([]models.GameEntry, error) {
	var rows []sqliteEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT users.username, scores.game, scores.score, scores.created_at
		FROM scores
		JOIN users ON scores.user_id = users.id
		WHERE scores.game = ?
		ORDER BY scores.score DESC, scores.created_at ASC, scores.id ASC
		LIMIT ?`, game, limit)
	if err != nil {
		return nil, fmt.Errorf("game leaderboard: %w", err)
	}

	entries := make([]models.GameEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.GameEntry{Username: r.Username, Score: r.Score, CreatedAt: fromMillis(r.CreatedAt)})
	}
	return entries, nil
}

// GlobalLeaderboard ranks scores from every game together.
func (s *SQLiteStore) GlobalLeaderboard(ctx context.Context, limit int) ([]models.GlobalEntry, error) {
	var rows []sqliteEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT users.username, scores.game, scores.score, scores.created_at
		FROM scores
		JOIN users ON scores.user_id = users.id
		ORDER BY scores.score DESC, scores.created_at ASC, scores.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}

	entries := make([]models.GlobalEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.GlobalEntry{
			Username:  r.Username,
			Game:      r.Game,
			Score:     r.Score,
			CreatedAt: fromMillis(r.CreatedAt),
		})
	}
	return entries, nil
}

// UserStats returns every score of the named user ordered by game. An unknown
// username yields an empty slice.
func (s *SQLiteStore) UserStats(ctx context.Context, username string) ([]models.StatEntry, error) {
	var rows []sqliteEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT users.username, scores.game, scores.score, scores.created_at
		FROM scores
		JOIN users ON scores.user_id = users.id
		WHERE users.username = ?
		ORDER BY scores.game ASC`, username)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	entries := make([]models.StatEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.StatEntry{Game: r.Game, Score: r.Score, CreatedAt: fromMillis(r.CreatedAt)})
	}
	return entries, nil
}

// rollback is deferred after every BeginTxx; it is a no-op once committed.
func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("rollback failed", "error", err)
	}
}

func isSQLiteUnique(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
