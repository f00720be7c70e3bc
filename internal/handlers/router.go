package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Notifications   *NotificationHandler
	Realtime        http.Handler
	Auth            TokenVerifier
	Redis           *redis.Client // nil disables rate limiting
	RateLimit       int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	Logger          *zap.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// ---- Global Middleware ----
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Realtime endpoint authenticates from the access_token query parameter
	r.Get("/chatHub", cfg.Realtime.ServeHTTP)

	h := cfg.Notifications
	limit := func(prefix string) func(http.Handler) http.Handler {
		if cfg.Redis == nil || cfg.RateLimit <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		return RateLimiter(cfg.Redis, cfg.RateLimit, cfg.RateLimitWindow, prefix, cfg.Logger)
	}

	r.Route("/notifications", func(r chi.Router) {
		// Service-to-service, unauthenticated, limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(limit("ratelimit:notifications:service"))

			r.Post("/send", h.Send)
			r.Post("/system", h.SendSystem)
		})

		// User endpoints, limited per user
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Auth))
			r.Use(limit("ratelimit:notifications"))

			r.Get("/", h.ListNotifications)
			r.Get("/unread-count", h.UnreadCount)
			r.Post("/{id}/read", h.MarkAsRead)
			r.Post("/read-all", h.MarkAllAsRead)
			r.Get("/online-status/{userId}", h.OnlineStatus)
			r.Post("/test", h.SendTest)
		})
	})

	return r
}
