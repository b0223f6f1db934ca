package scores

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xeze-org/arcade-scoreboard/internal/apierr"
	"github.com/xeze-org/arcade-scoreboard/internal/middleware"
	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

// Handler holds score HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Submit records a score for the authenticated user.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apierr.Write(w, apierr.MissingToken)
		return
	}

	var req models.SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.InvalidBody)
		return
	}
	if req.Game == "" || req.Score == nil {
		apierr.Write(w, apierr.BadRequest("game and score are required"))
		return
	}

	sub, err := h.svc.Submit(r.Context(), p, req.Game, *req.Score)
	if err != nil {
		slog.Error("submit score", "user_id", p.ID, "game", req.Game, "error", err)
		apierr.Write(w, err)
		return
	}

	apierr.JSON(w, http.StatusOK, submitResponse(sub))
}

func submitResponse(sub models.Submission) models.SubmitScoreResponse {
	switch sub.Outcome {
	case models.OutcomeSaved:
		return models.SubmitScoreResponse{Message: "Score saved"}
	case models.OutcomeUpdated:
		prev, next := sub.Previous, sub.Current
		return models.SubmitScoreResponse{Message: "Score updated", Previous: &prev, New: &next}
	default:
		cur, attempted := sub.Current, sub.Attempted
		return models.SubmitScoreResponse{
			Message:   "Score not updated (lower than current)",
			Current:   &cur,
			Attempted: &attempted,
		}
	}
}

// GameLeaderboard lists the top scores of the game in the URL.
func (h *Handler) GameLeaderboard(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	entries, err := h.svc.GameLeaderboard(r.Context(), game)
	if err != nil {
		slog.Error("game leaderboard", "game", game, "error", err)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, entries)
}

// GlobalLeaderboard lists the top scores across all games.
func (h *Handler) GlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.GlobalLeaderboard(r.Context())
	if err != nil {
		slog.Error("global leaderboard", "error", err)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, entries)
}

// UserStats lists every score of the user in the URL.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	stats, err := h.svc.UserStats(r.Context(), username)
	if err != nil {
		slog.Error("user stats", "username", username, "error", err)
		apierr.Write(w, err)
		return
	}
	apierr.JSON(w, http.StatusOK, stats)
}
