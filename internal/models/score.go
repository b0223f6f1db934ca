package models

import "time"

// DefaultGames are seeded with a zero score for every new user.
var DefaultGames = []string{"doom", "wolf"}

// LeaderboardLimit caps both leaderboards.
const LeaderboardLimit = 50

// Outcome is the result of reconciling a submitted score with the stored one.
type Outcome string

const (
	OutcomeSaved      Outcome = "saved"       // first score for the game
	OutcomeUpdated    Outcome = "updated"     // strictly higher than stored
	OutcomeNotUpdated Outcome = "not_updated" // equal or lower, row untouched
)

// Submission describes what a score submission did to the stored row.
type Submission struct {
	Outcome   Outcome
	Previous  int64 // stored score before the submission, if a row existed
	Current   int64 // stored score after the submission
	Attempted int64
}

// Changed reports whether the submission wrote to the scores table.
func (s Submission) Changed() bool {
	return s.Outcome == OutcomeSaved || s.Outcome == OutcomeUpdated
}

// SubmitScoreRequest is the JSON body for POST /api/score. Score is a pointer
// so a missing field can be told apart from zero.
type SubmitScoreRequest struct {
	Game  string `json:"game"`
	Score *int64 `json:"score"`
}

// SubmitScoreResponse is returned by POST /api/score.
type SubmitScoreResponse struct {
	Message   string `json:"message"`
	Previous  *int64 `json:"previous,omitempty"`
	New       *int64 `json:"new,omitempty"`
	Current   *int64 `json:"current,omitempty"`
	Attempted *int64 `json:"attempted,omitempty"`
}

// GameEntry is one row of a per-game leaderboard.
type GameEntry struct {
	Username  string    `json:"username"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// GlobalEntry is one row of the cross-game leaderboard.
type GlobalEntry struct {
	Username  string    `json:"username"`
	Game      string    `json:"game"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// StatEntry is one of a user's per-game scores.
type StatEntry struct {
	Game      string    `json:"game"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
