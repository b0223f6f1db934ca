package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrite(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"duplicate user", DuplicateUser, http.StatusBadRequest, "User already exists"},
		{"user not found", UserNotFound, http.StatusBadRequest, "User not found"},
		{"invalid credentials", InvalidCredentials, http.StatusBadRequest, "Invalid credentials"},
		{"missing token", MissingToken, http.StatusUnauthorized, "No token provided"},
		{"invalid token", InvalidToken, http.StatusForbidden, "Invalid token"},
		{"bad request", BadRequest("game is required"), http.StatusBadRequest, "game is required"},
		{"wrapped", fmt.Errorf("login: %w", UserNotFound), http.StatusBadRequest, "User not found"},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Write(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var resp Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
		})
	}
}
