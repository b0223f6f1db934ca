// Package apierr maps request failures onto fixed HTTP statuses and messages.
package apierr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Error is a failure that can be reported to an API client as-is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	DuplicateUser      = &Error{Status: http.StatusBadRequest, Message: "User already exists"}
	UserNotFound       = &Error{Status: http.StatusBadRequest, Message: "User not found"}
	InvalidCredentials = &Error{Status: http.StatusBadRequest, Message: "Invalid credentials"}
	MissingToken       = &Error{Status: http.StatusUnauthorized, Message: "No token provided"}
	InvalidToken       = &Error{Status: http.StatusForbidden, Message: "Invalid token"}
	InvalidBody        = &Error{Status: http.StatusBadRequest, Message: "Invalid request body"}
	Internal           = &Error{Status: http.StatusInternalServerError, Message: "Internal server error"}
)

// BadRequest returns a 400 error with the given message.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// Response is the JSON body of every error response.
type Response struct {
	Message string `json:"message"`
}

// Write reports err to the client. Errors that are not *Error collapse to
// Internal.
func Write(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal
	}
	JSON(w, apiErr.Status, Response{Message: apiErr.Message})
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
