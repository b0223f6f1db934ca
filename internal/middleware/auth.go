package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xeze-org/arcade-scoreboard/internal/apierr"
	"github.com/xeze-org/arcade-scoreboard/internal/models"
)

// TokenVerifier turns a bearer token into the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (models.Principal, error)
}

type principalKey struct{}

// RequireAuth is middleware that validates the bearer token in the
// Authorization header and injects the principal into the request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				apierr.Write(w, apierr.MissingToken)
				return
			}

			p, err := tokens.Verify(token)
			if err != nil {
				slog.Debug("token rejected", "error", err)
				apierr.Write(w, apierr.InvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

// bearerToken returns what follows the scheme in "Bearer <token>". The scheme
// itself is not checked; a wrong one simply fails verification.
func bearerToken(header string) string {
	_, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
