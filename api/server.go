// server.go - Router and middleware configuration.
//
// Middleware stack follows the usual chi arrangement: request IDs for
// tracing, request logging, panic recovery, permissive CORS for local
// frontends.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires every route onto a fresh chi mux.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/users", h.SignUp)
		r.Post("/login", h.Login)

		r.Post("/friends", h.AddFriend)
		r.Post("/split", h.Split)
		r.Post("/receive", h.Receive)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", h.CreateGroup)
			r.Post("/{name}/split", h.SplitInGroup)
			r.Post("/{name}/receive", h.ReceiveInGroup)
		})

		r.Route("/users/{name}", func(r chi.Router) {
			r.Get("/status", h.Status)
			r.Get("/payments", h.Payments)
		})
	})

	return r
}
