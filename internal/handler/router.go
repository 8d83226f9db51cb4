/*
Package handler provides the HTTP handlers and routing setup for the LAN Chat Server.

This file defines the main Router, applying middleware like logging, CORS and recovery,
and IP-based rate limiting on the WebSocket endpoint, before delegating to the handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"lanchat/internal/pkg/logx"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := deps.Config.AllowedOrigins()
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps.Manager))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/presence", HandlePresence(deps.Manager))
	})

	upgrader := NewUpgrader(deps.Config.IsDevelopment(), deps.Config.AllowedOrigins())
	r.With(deps.ConnectLimiter.Middleware).Get("/ws", HandleWebSocket(deps.Manager, upgrader))

	return r
}
