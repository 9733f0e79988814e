// Package api assembles the HTTP routes of the feedback service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/insightflow/hub/internal/api/handlers"
	"github.com/insightflow/hub/internal/api/middleware"
	"github.com/insightflow/hub/internal/observability"
)

// RouterParams holds the handlers and settings for NewRouter.
// Metrics, BodyLimitMetrics and MetricsHandler are nil when metrics are disabled.
type RouterParams struct {
	APIKey           string
	MaxBodyBytes     int64
	Health           *handlers.HealthHandler
	Feedback         *handlers.FeedbackRecordsHandler
	Search           *handlers.SearchHandler
	Chat             *handlers.ChatHandler
	Tenants          *handlers.TenantsHandler
	Metrics          observability.HubMetrics
	BodyLimitMetrics observability.BodyLimitMetrics
	MetricsHandler   http.Handler
	Logger           *slog.Logger
}

// NewRouter builds the route tree: /health, /ready and /metrics are public, everything under /v1
// requires the API key.
func NewRouter(p RouterParams) http.Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Metrics(p.Metrics))
	r.Use(middleware.Logging(logger))

	r.Get("/health", p.Health.Check)
	r.Get("/ready", p.Health.Ready)

	if p.MetricsHandler != nil {
		r.Handle("/metrics", p.MetricsHandler)
	}

	var bodyRecorder middleware.BodyTooLargeRecorder
	if p.BodyLimitMetrics != nil {
		bodyRecorder = p.BodyLimitMetrics
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.APIKey))
		r.Use(middleware.MaxBody(p.MaxBodyBytes, bodyRecorder))

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", p.Feedback.Ingest)
			r.Get("/", p.Feedback.List)
			r.Post("/search", p.Search.Search)
			r.Get("/{id}", p.Feedback.Get)
		})

		r.Post("/chat", p.Chat.Reply)

		r.Route("/tenants/{tenant_id}", func(r chi.Router) {
			r.Get("/keywords", p.Tenants.Keywords)
			r.Get("/stats", p.Tenants.Stats)
		})
	})

	return r
}
