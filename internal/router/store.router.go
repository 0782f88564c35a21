package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/SasLord/tma/internal/config"
	"github.com/SasLord/tma/internal/handler"
	"github.com/SasLord/tma/internal/middleware"
	"github.com/SasLord/tma/internal/response"
)

func SetupRoutes(
	r chi.Router,
	h *handler.WebhookHandler,
	rdb *redis.Client,
	cfg config.AppConfig,
) chi.Router {
	// ---- Global Middleware ----
	// Telegram's WebApp loads from an arbitrary origin, so the policy
	// stays permissive; only the methods this API serves are allowed.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false, // must be false when using "*"
		MaxAge:           300,
	}))

	if rdb != nil {
		r.Use(middleware.RateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, cfg.RateBlock, "store"))
	}

	r.Get("/", h.HandleStatus)
	r.Get("/health", h.HandleHealth)
	r.Post("/webhook", h.HandleWebhook)
	r.Post("/webapp-data", h.HandleWebAppData)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.KeyMethodNotAllowed)
	})

	return r
}
