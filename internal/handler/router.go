/*
Package handler provides the HTTP handlers and routing setup for the development server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to the authentication API and
the presence WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"hzpresence/internal/app/credential"
	"hzpresence/internal/pkg/auth/jwt"
	"hzpresence/internal/pkg/limiter"
	"hzpresence/internal/pkg/logx"
	"hzpresence/internal/pkg/resp"
)

const (
	AuthRate  = 0.5
	AuthBurst = 5
	JoinRate  = 1
	JoinBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the development server.
// The returned stop function releases the rate limiters' background goroutines.
func Router(deps *AppDeps) (http.Handler, func()) {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if deps.Config.IsDevelopment() || origin == "" {
				return true
			}

			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", credential.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, "ok", map[string]any{
			"service": "hzpresence devserver",
			"online":  len(deps.Hub.Online()),
		})
	})

	r.Route("/api/auth", func(auth chi.Router) {
		auth.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		auth.Get("/check", HandleCheck(deps))
		auth.With(authLimiter.Middleware).Post("/signup", HandleSignup(deps))
		auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
		auth.Put("/update-profile", HandleUpdateProfile(deps))
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, joinLimiter))

	stop := func() {
		authLimiter.Close()
		joinLimiter.Close()
	}
	return r, stop
}
