// Package router wires the API handlers onto a chi mux.
//
//	GET  /health
//	POST /api/register
//	POST /api/login
//	POST /api/score                 (bearer token)
//	GET  /api/scores
//	GET  /api/scores/{game}
//	GET  /api/user/{username}/stats
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xeze-org/arcade-scoreboard/internal/apierr"
	"github.com/xeze-org/arcade-scoreboard/internal/auth"
	"github.com/xeze-org/arcade-scoreboard/internal/middleware"
	"github.com/xeze-org/arcade-scoreboard/internal/scores"
)

// Deps are the handlers and collaborators the API routes need.
type Deps struct {
	Auth           *auth.Handler
	Scores         *scores.Handler
	Tokens         middleware.TokenVerifier
	AllowedOrigins []string
	// AccessLog enables the per-request chi logger.
	AccessLog bool
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if d.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins(d.AllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		apierr.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)

		r.With(middleware.RequireAuth(d.Tokens)).Post("/score", d.Scores.Submit)

		r.Get("/scores", d.Scores.GlobalLeaderboard)
		r.Get("/scores/{game}", d.Scores.GameLeaderboard)
		r.Get("/user/{username}/stats", d.Scores.UserStats)
	})

	return r
}

func origins(allowed []string) []string {
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}
