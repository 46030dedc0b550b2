package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/event-concierge/internal/middleware"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	JWTSecret         string
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Health        *HealthHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Stream        *StreamHandler
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests*2, cfg.RateLimitWindow))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/messages", h.Messages.Send)
		r.Post("/messages/stream", h.Stream.Stream)
		r.Post("/feedback", h.Conversations.Feedback)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.Conversations.List)
			r.Post("/", h.Conversations.Start)
			r.Get("/active", h.Conversations.Active)
			r.Post("/active/end", h.Conversations.EndActive)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", h.Conversations.Messages)
				r.Get("/suggestions", h.Conversations.Suggestions)
				r.Get("/events", h.Conversations.Events)
			})
		})
	})

	return r
}
