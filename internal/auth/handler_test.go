package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xeze-org/arcade-scoreboard/internal/auth"
	"github.com/xeze-org/arcade-scoreboard/internal/models"
	"github.com/xeze-org/arcade-scoreboard/internal/testutil"
)

func newTestHandler(t *testing.T) (*auth.Handler, *auth.Tokens) {
	t.Helper()
	st := testutil.NewSQLiteStore(t)
	tokens := auth.NewTokens(testutil.TestSecret, time.Hour)
	return auth.NewHandler(st, tokens, bcrypt.MinCost), tokens
}

func TestRegister(t *testing.T) {
	h, _ := newTestHandler(t)

	w := testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertMessage(t, w, "User registered successfully")

	w = testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "other"}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	testutil.AssertMessage(t, w, "User already exists")
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"missing password", models.RegisterRequest{Username: "alice"}, "username and password are required"},
		{"missing username", models.RegisterRequest{Password: "pw"}, "username and password are required"},
		{"empty object", map[string]string{}, "username and password are required"},
		{"wrong types", map[string]int{"username": 1}, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.Serve(http.HandlerFunc(h.Register), testutil.MakeRequest("POST", "/api/register", tt.body, nil))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
			testutil.AssertMessage(t, w, tt.message)
		})
	}
}

func TestLogin(t *testing.T) {
	h, tokens := newTestHandler(t)

	w := testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	tests := []struct {
		name    string
		req     models.LoginRequest
		status  int
		message string
	}{
		{"unknown user", models.LoginRequest{Username: "bob", Password: "pw"}, http.StatusBadRequest, "User not found"},
		{"wrong password", models.LoginRequest{Username: "alice", Password: "pW"}, http.StatusBadRequest, "Invalid credentials"},
		{"missing password", models.LoginRequest{Username: "alice"}, http.StatusBadRequest, "username and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.Serve(http.HandlerFunc(h.Login), testutil.MakeRequest("POST", "/api/login", tt.req, nil))
			testutil.AssertStatus(t, w, tt.status)
			testutil.AssertMessage(t, w, tt.message)
		})
	}

	t.Run("success", func(t *testing.T) {
		w := testutil.Serve(http.HandlerFunc(h.Login),
			testutil.MakeRequest("POST", "/api/login", models.LoginRequest{Username: "alice", Password: "pw"}, nil))
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.LoginResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Username != "alice" {
			t.Errorf("username = %q, want alice", resp.Username)
		}
		p, err := tokens.Verify(resp.Token)
		if err != nil {
			t.Fatalf("verify issued token: %v", err)
		}
		if p.Username != "alice" || p.ID == 0 {
			t.Errorf("principal = %+v", p)
		}
	})
}

type failingUsers struct{}

func (failingUsers) CreateUser(context.Context, string, string, []string) (*models.User, error) {
	return nil, errors.New("disk full")
}

func (failingUsers) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailures(t *testing.T) {
	h := auth.NewHandler(failingUsers{}, auth.NewTokens(testutil.TestSecret, time.Hour), bcrypt.MinCost)

	// Any insert failure is reported as a taken username.
	w := testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	testutil.AssertMessage(t, w, "User already exists")

	w = testutil.Serve(http.HandlerFunc(h.Login),
		testutil.MakeRequest("POST", "/api/login", models.LoginRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusInternalServerError)
	testutil.AssertMessage(t, w, "Internal server error")
}

type recordingInvalidator struct {
	games []string
	fail  bool
}

func (r *recordingInvalidator) Invalidate(_ context.Context, game string) error {
	r.games = append(r.games, game)
	if r.fail {
		return errors.New("cache down")
	}
	return nil
}

func TestRegisterInvalidatesSeededBoards(t *testing.T) {
	inv := &recordingInvalidator{}
	h := auth.NewHandler(testutil.NewSQLiteStore(t), auth.NewTokens(testutil.TestSecret, time.Hour), bcrypt.MinCost,
		auth.WithBoardInvalidator(inv))

	w := testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if len(inv.games) != len(models.DefaultGames) {
		t.Fatalf("invalidated %v, want %v", inv.games, models.DefaultGames)
	}
	for i, game := range models.DefaultGames {
		if inv.games[i] != game {
			t.Errorf("invalidated[%d] = %q, want %q", i, inv.games[i], game)
		}
	}

	// A rejected registration seeds nothing.
	w = testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	if len(inv.games) != len(models.DefaultGames) {
		t.Errorf("duplicate registration invalidated boards: %v", inv.games)
	}
}

func TestRegisterSucceedsWhenInvalidationFails(t *testing.T) {
	h := auth.NewHandler(testutil.NewSQLiteStore(t), auth.NewTokens(testutil.TestSecret, time.Hour), bcrypt.MinCost,
		auth.WithBoardInvalidator(&recordingInvalidator{fail: true}))

	w := testutil.Serve(http.HandlerFunc(h.Register),
		testutil.MakeRequest("POST", "/api/register", models.RegisterRequest{Username: "alice", Password: "pw"}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertMessage(t, w, "User registered successfully")
}
