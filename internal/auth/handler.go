package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xeze-org/arcade-scoreboard/internal/apierr"
	"github.com/xeze-org/arcade-scoreboard/internal/models"
	"github.com/xeze-org/arcade-scoreboard/internal/store"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, hashedPw string, seedGames []string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// BoardInvalidator drops cached leaderboards for a game. Registration seeds
// rows into every default game, so those boards go stale when a user is added.
type BoardInvalidator interface {
	Invalidate(ctx context.Context, game string) error
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) error { return nil }

// Option configures a Handler.
type Option func(*Handler)

// WithBoardInvalidator invalidates the seeded boards after each registration.
func WithBoardInvalidator(inv BoardInvalidator) Option {
	return func(h *Handler) { h.boards = inv }
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users      UserStore
	tokens     *Tokens
	bcryptCost int
	boards     BoardInvalidator
}

func NewHandler(users UserStore, tokens *Tokens, bcryptCost int, opts ...Option) *Handler {
	h := &Handler{users: users, tokens: tokens, bcryptCost: bcryptCost, boards: nopInvalidator{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register creates a new user and seeds their default game scores.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.InvalidBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		apierr.Write(w, apierr.BadRequest("username and password are required"))
		return
	}

	hashed, err := HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		slog.Error("hash password", "error", err)
		apierr.Write(w, apierr.Internal)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, hashed, models.DefaultGames)
	if err != nil {
		// Every insert failure reads as a taken username to the client.
		if errors.Is(err, store.ErrDuplicate) {
			slog.Info("registration rejected", "username", req.Username, "error", err)
		} else {
			slog.Error("registration failed", "username", req.Username, "error", err)
		}
		apierr.Write(w, apierr.DuplicateUser)
		return
	}

	for _, game := range models.DefaultGames {
		if err := h.boards.Invalidate(r.Context(), game); err != nil {
			slog.Warn("leaderboard cache invalidation failed", "game", game, "error", err)
		}
	}

	slog.Info("user registered", "username", user.Username, "user_id", user.ID, "seeded_games", models.DefaultGames)
	apierr.JSON(w, http.StatusOK, models.MessageResponse{Message: "User registered successfully"})
}

// Login verifies credentials and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, apierr.InvalidBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		apierr.Write(w, apierr.BadRequest("username and password are required"))
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		apierr.Write(w, apierr.UserNotFound)
		return
	}
	if err != nil {
		slog.Error("login lookup failed", "username", req.Username, "error", err)
		apierr.Write(w, apierr.Internal)
		return
	}

	if !CheckPassword(user.Password, req.Password) {
		apierr.Write(w, apierr.InvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(models.Principal{ID: user.ID, Username: user.Username})
	if err != nil {
		slog.Error("issue token", "user_id", user.ID, "error", err)
		apierr.Write(w, apierr.Internal)
		return
	}

	apierr.JSON(w, http.StatusOK, models.LoginResponse{Token: token, Username: user.Username})
}
