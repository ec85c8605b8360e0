// Package server Sharehub
//
// The Sharehub is a service where users publish shares recorded on the Sui ledger, comment and like them.
//
//     Schemes: https
//     BasePath: /api
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/Decentr-net/sharehub/internal/api"
	"github.com/Decentr-net/sharehub/internal/cache"
	"github.com/Decentr-net/sharehub/internal/health"
	"github.com/Decentr-net/sharehub/internal/metrics"
	mm "github.com/Decentr-net/sharehub/internal/middleware"
	"github.com/Decentr-net/sharehub/internal/service"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

const (
	maxBodySize   = 64 * 1024
	healthTimeout = 5 * time.Second

	sharesPrefix = "/api/shares"
)

// Options ...
type Options struct {
	Timeout     time.Duration
	CacheTTL    time.Duration
	CORSOrigins []string
	// AuthLimiter limits login and registration requests, nil disables limiting.
	AuthLimiter *mm.RateLimiter
	Pingers     []health.Pinger
}

type server struct {
	s service.Service
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, c cache.Cache, r chi.Router, opts Options) {
	r.Use(
		api.RequestIDMiddleware,
		api.LoggerMiddleware,
		middleware.StripSlashes,
		corsHandler(opts.CORSOrigins),
		metrics.Middleware,
		api.RecovererMiddleware,
		api.TimeoutMiddleware(opts.Timeout),
		api.BodyLimiterMiddleware(maxBodySize),
	)

	srv := server{
		s: s,
	}

	auth := mm.AuthRequired(s)
	limited := func(next http.Handler) http.Handler { return next }
	if opts.AuthLimiter != nil {
		limited = opts.AuthLimiter.Handler
	}
	invalidates := func(h http.HandlerFunc) http.HandlerFunc {
		return mm.Invalidates(c, h, sharesPrefix)
	}

	r.Get("/health", health.Handler(healthTimeout, opts.Pingers...))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(limited).Post("/auth/login", srv.login)
		r.With(limited).Post("/auth/sui-login", srv.suiLogin)
		r.With(limited).Post("/users/register", srv.register)

		r.With(auth).Get("/users/profile", srv.getProfile)
		r.With(auth).Post("/users/profile", invalidates(srv.updateProfile))

		r.Get("/shares", mm.Cached(c, opts.CacheTTL, srv.listShares))
		r.Get("/shares/{id}", mm.Cached(c, opts.CacheTTL, srv.getShare))
		r.With(auth).Post("/shares", invalidates(srv.createShare))
		r.With(auth).Put("/shares/{id}", invalidates(srv.updateShare))
		r.With(auth).Delete("/shares/{id}", invalidates(srv.deleteShare))

		r.With(auth).Post("/shares/{id}/like", invalidates(srv.like))
		r.With(auth).Delete("/shares/{id}/like", invalidates(srv.unlike))
		r.With(auth).Post("/likes/share/{id}", invalidates(srv.like))
		r.With(auth).Delete("/likes/share/{id}", invalidates(srv.unlike))
		r.With(auth).Post("/likes/share/{id}/check", srv.isLiked)

		r.Get("/comments/share/{id}", srv.listComments)
		r.With(auth).Post("/comments/share/{id}", invalidates(srv.createComment))
		r.With(auth).Delete("/comments/{id}", invalidates(srv.deleteComment))

		r.With(auth).Get("/notifications", srv.listNotifications)
		r.With(auth).Post("/notifications/{id}/read", srv.markNotificationRead)
		r.With(auth).Post("/notifications/read-all", srv.markAllNotificationsRead)
	})
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", api.RequestIDHeader},
		ExposedHeaders:   []string{api.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
