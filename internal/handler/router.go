package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"akshaya-auth/internal/config"
	"akshaya-auth/internal/ratelimit"
	"akshaya-auth/internal/token"
	"akshaya-auth/internal/util"
)

// NewRouter wires the middleware stack and routes. The rate limiter
// guards everything under /api; the profile routes additionally require a
// bearer credential.
func NewRouter(authHandler *AuthHandler, limiter *ratelimit.Limiter, issuer token.Issuer, corsCfg config.CORSConfig) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(util.Get()))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(SecurityHeaders)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"akshaya-auth"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(limiter))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/request-otp", authHandler.RequestOTP)
			r.Post("/verify-otp", authHandler.VerifyOTP)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(AuthMiddleware(issuer))
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "endpoint not found")
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return router
}
