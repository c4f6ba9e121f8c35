package http

import (
	"net/http"

	"github.com/atinyakov/JobBoard/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the gateway's HTTP handler.
//
// Routes:
//
//	GET  /api/session                    -> sessionHandler.Get
//	POST /api/session/login              -> sessionHandler.Login
//	POST /api/session/register           -> sessionHandler.Register
//	POST /api/session/logout             -> sessionHandler.Logout
//	POST /api/session/prompt             -> sessionHandler.Prompt
//	GET  /api/jobs                       -> jobHandler.List
//	GET  /api/jobs/{id}                  -> jobHandler.Detail
//	POST /api/jobs/{id}/applications     -> applicationHandler.Submit
//	GET  /api/filters                    -> jobHandler.Filters
//	GET  /api/applications               -> applicationHandler.Mine
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. Recoverer
//  4. AllowContentType("application/json")
//  5. Visitor(secureCookie), which assigns the visitor cookie
func NewRouter(
	sessionHandler *SessionHandler,
	jobHandler *JobHandler,
	applicationHandler *ApplicationHandler,
	logger *zap.Logger,
	secureCookie bool,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.Visitor(secureCookie))

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Post("/login", sessionHandler.Login)
			r.Post("/register", sessionHandler.Register)
			r.Post("/logout", sessionHandler.Logout)
			r.Post("/prompt", sessionHandler.Prompt)
		})

		r.Get("/jobs", jobHandler.List)
		r.Get("/jobs/{id}", jobHandler.Detail)
		r.Post("/jobs/{id}/applications", applicationHandler.Submit)
		r.Get("/filters", jobHandler.Filters)

		r.Get("/applications", applicationHandler.Mine)
	})

	return r
}
